package scanning

import "context"

// Region is a detected photo on a scanned page, in pixels of the rendered page
type Region struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	AreaRatio float64 `json:"area_ratio"` // region area / page area
}

// DetectOptions tunes region detection
type DetectOptions struct {
	MinArea int    `json:"min_area"` // percent of the page, 1-50
	MaxArea int    `json:"max_area"` // percent of the page, 50-100
	Mode    string `json:"mode"`
	Lite    bool   `json:"u2net_lite"`
}

// Cropped is one cropped photo returned by a Cropper
type Cropped struct {
	Data     []byte // JPEG
	Rotation int    // degrees applied: 0, 90, 180 or 270
}

// Detector finds photo regions on a rendered page
type Detector interface {
	// Detect analyzes a PNG page image and returns regions ordered
	// top-to-bottom, left-to-right
	Detect(ctx context.Context, page []byte, opts DetectOptions) ([]Region, error)
	// Close releases resources
	Close() error
}

// Cropper cuts regions out of a rendered page
type Cropper interface {
	// Crop returns one image per region, in region order
	Crop(ctx context.Context, page []byte, regions []Region, autoRotate bool) ([]Cropped, error)
}
