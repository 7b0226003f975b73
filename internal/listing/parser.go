// Package listing parses the file listing served by the camera's
// blackvue_vod.cgi endpoint and filters it by date.
package listing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// LineSeparator terminates every line of the listing body
	LineSeparator = "\r\n"

	recordPrefix  = "n:/Record/"
	sizeSeparator = ",s:"
	timeLayout    = "20060102 150405"
)

var headers = []string{"v:1.00" + LineSeparator, "v:2.00" + LineSeparator}

// ErrInvalidTimestamp is returned when a well formed filename carries a date or time that cannot be parsed
var ErrInvalidTimestamp = errors.New("invalid recording timestamp")

// Parse turns a raw listing body into records sorted by timestamp.
// Timestamps are read in the local time zone.
func Parse(raw string) ([]FileRecord, error) {
	return ParseInLocation(raw, time.Local)
}

// ParseInLocation is like Parse but reads timestamps in loc
func ParseInLocation(raw string, loc *time.Location) ([]FileRecord, error) {
	var records []FileRecord

	for _, entry := range entries(raw) {
		name, size := splitEntry(entry)

		parts := strings.Split(name, "_")
		if len(parts) != 3 {
			continue
		}

		ts, err := time.ParseInLocation(timeLayout, parts[0]+" "+parts[1], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTimestamp, name)
		}

		records = append(records, FileRecord{Name: name, Timestamp: ts, Size: size})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// entries strips the version header and splits the body into single entries
func entries(raw string) []string {
	for _, h := range headers {
		raw = strings.ReplaceAll(raw, h, "")
	}
	raw = strings.ReplaceAll(raw, LineSeparator, " ")
	return strings.Fields(raw)
}

// splitEntry extracts the filename and advertised size from "n:/Record/<name>,s:<size>"
func splitEntry(entry string) (string, int64) {
	entry = strings.TrimPrefix(entry, recordPrefix)

	name, sizeText, found := strings.Cut(entry, sizeSeparator)
	if !found {
		return entry, 0
	}

	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil {
		return name, 0
	}
	return name, size
}

// Format renders records in the camera's listing wire format
func Format(records []FileRecord) string {
	var b strings.Builder
	b.WriteString("v:1.00")
	b.WriteString(LineSeparator)
	for _, r := range records {
		fmt.Fprintf(&b, "%s%s%s%d%s", recordPrefix, r.Name, sizeSeparator, r.Size, LineSeparator)
	}
	return b.String()
}
