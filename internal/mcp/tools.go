package mcp

// ListRecordingsInput represents input for the list_recordings tool
type ListRecordingsInput struct {
	CameraAddress string `json:"camera_address,omitempty" jsonschema:"IP address or host:port of the camera (defaults to the configured camera)"`
	LastDays      int    `json:"last_days,omitempty" jsonschema:"only list recordings from the last N days (1-50)"`
}

// ListRecordingsOutput represents output from the list_recordings tool
type ListRecordingsOutput struct {
	Recordings []RecordingInfo `json:"recordings"`
	Total      int             `json:"total"`
	TotalSize  string          `json:"total_size"`
	Error      string          `json:"error,omitempty"`
}

// RecordingInfo represents a single file advertised by the camera
type RecordingInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Size      int64  `json:"size,omitempty"`
}

// SyncInput represents input for the sync tool
type SyncInput struct {
	CameraAddress string `json:"camera_address,omitempty" jsonschema:"IP address or host:port of the camera (defaults to the configured camera)"`
	LastDays      int    `json:"last_days,omitempty" jsonschema:"only download recordings from the last N days (1-50)"`
	DateFolders   bool   `json:"date_folders,omitempty" jsonschema:"store files in YYYY-MM-DD sub folders"`
	NoVideo       bool   `json:"no_video,omitempty" jsonschema:"skip videos and only download gps and 3gf files"`
}

// SyncOutput represents output from the sync tool
type SyncOutput struct {
	Copied          uint64  `json:"copied"`
	Ignored         uint64  `json:"ignored"`
	Errored         uint64  `json:"errored"`
	TempCleaned     uint64  `json:"temp_cleaned"`
	TotalBytes      uint64  `json:"total_bytes"`
	DownloadSeconds float64 `json:"download_seconds"`
	TotalSeconds    float64 `json:"total_seconds"`
	Error           string  `json:"error,omitempty"`
}
