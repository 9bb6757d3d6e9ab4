package splitter

import "time"

// Export is one run of writing named crops to the export directory
type Export struct {
	ID        string       `json:"id"`
	Dir       string       `json:"dir"` // relative to the export storage root
	Pattern   string       `json:"pattern"`
	Files     []ExportFile `json:"files"`
	CreatedAt time.Time    `json:"created_at"`
}

// ExportFile is one written photo
type ExportFile struct {
	CropID   string `json:"crop_id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}
