package session

import (
	"github.com/zombor/scansplitter/internal/models"
	"github.com/zombor/scansplitter/internal/scanning"
)

// Mode selects the detection algorithm used by the detection service
type Mode string

const (
	ModeV2    Mode = "scansplitterv2" // Default contour detector.
	ModeV1    Mode = "scansplitterv1" // Legacy contour detector.
	ModeU2Net Mode = "u2net"          // Deep learning model.
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeV2, ModeV1, ModeU2Net:
		return true
	}
	return false
}

// Description is the help text shown for the mode
func (m Mode) Description() string {
	switch m {
	case ModeU2Net:
		return "Deep learning model - best for difficult scans"
	case ModeV1:
		return "Legacy contour detector"
	default:
		return "Default contour detector - fast and improved"
	}
}

// Area limits, in percent of the page
const (
	MinAreaLow  = 1
	MinAreaHigh = 50
	MaxAreaLow  = 50
	MaxAreaHigh = 100
)

// Settings holds the detection settings
type Settings struct {
	MinArea    int  `json:"min_area"`    // Default: 2.
	MaxArea    int  `json:"max_area"`    // Default: 80.
	AutoRotate bool `json:"auto_rotate"` // Default: true.
	AutoDetect bool `json:"auto_detect"` // Default: true. Detect right after upload.
	Mode       Mode `json:"detection_mode"`
	U2NetLite  bool `json:"u2net_lite"` // Only used with ModeU2Net.
}

// DefaultSettings returns the settings a new session starts with
func DefaultSettings() Settings {
	return Settings{
		MinArea:    2,
		MaxArea:    80,
		AutoRotate: true,
		AutoDetect: true,
		Mode:       ModeV2,
	}
}

// Clamp returns s with every field forced into its allowed range
func (s Settings) Clamp() Settings {
	s.MinArea = min(max(s.MinArea, MinAreaLow), MinAreaHigh)
	s.MaxArea = min(max(s.MaxArea, MaxAreaLow), MaxAreaHigh)
	if !s.Mode.Valid() {
		s.Mode = ModeV2
	}
	return s
}

// DetectOptions converts the settings into detector options
func (s Settings) DetectOptions() scanning.DetectOptions {
	return scanning.DetectOptions{
		MinArea: s.MinArea,
		MaxArea: s.MaxArea,
		Mode:    string(s.Mode),
		Lite:    s.Mode == ModeU2Net && s.U2NetLite,
	}
}

// RequiredModels lists the models the settings depend on
func (s Settings) RequiredModels() []models.Key {
	var keys []models.Key
	if s.Mode == ModeU2Net {
		keys = append(keys, models.DetectorKey(s.U2NetLite))
	}
	if s.AutoRotate {
		keys = append(keys, models.KeyOrientation)
	}
	return keys
}
