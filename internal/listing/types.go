package listing

import (
	"strings"
	"time"
)

// FileRecord is one recording advertised by the camera listing
type FileRecord struct {
	Name      string
	Timestamp time.Time
	Size      int64
}

// FileType labels the kind of file being transferred
type FileType int

const (
	Video FileType = iota
	Gps
	ThreeGf
)

func (t FileType) String() string {
	switch t {
	case Video:
		return "video"
	case Gps:
		return "gps"
	case ThreeGf:
		return "3gf"
	default:
		return "unknown"
	}
}

// TypeOf guesses the file type from its extension
func TypeOf(name string) FileType {
	switch {
	case strings.HasSuffix(name, ".gps"):
		return Gps
	case strings.HasSuffix(name, ".3gf"):
		return ThreeGf
	default:
		return Video
	}
}

const (
	frontVideoSuffix = "_NF.mp4"
	gpsSuffix        = "_N.gps"
	gforceSuffix     = "_N.3gf"
)

// HasCompanions reports whether the recording is a front-camera video,
// the only kind that comes with .gps and .3gf files
func HasCompanions(name string) bool {
	return strings.Contains(name, frontVideoSuffix)
}

// Companions returns the gps and 3gf filenames that belong to a front-camera video
func Companions(name string) (gps, gforce string) {
	return strings.ReplaceAll(name, frontVideoSuffix, gpsSuffix),
		strings.ReplaceAll(name, frontVideoSuffix, gforceSuffix)
}
