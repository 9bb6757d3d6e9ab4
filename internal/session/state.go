// Package session holds the state of one splitting session and the reducer
// that is the only way to change it.
package session

import (
	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/scanning"
)

// DetectionStatus is the detection progress of a scan
type DetectionStatus string

const (
	StatusIdle      DetectionStatus = "idle"
	StatusDetecting DetectionStatus = "detecting"
	StatusDetected  DetectionStatus = "detected"
	StatusFailed    DetectionStatus = "failed"
)

// Box is a detected region the user can include in or exclude from cropping
type Box struct {
	scanning.Region
	Selected bool `json:"selected"`
}

// Scan is one uploaded file
type Scan struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Path        string          `json:"path"` // storage path of the original upload
	PageCount   int             `json:"page_count"`
	CurrentPage int             `json:"current_page"`
	Status      DetectionStatus `json:"detection_status"`
	Error       string          `json:"error,omitempty"`
	Pages       [][]Box         `json:"pages"` // detected boxes, indexed by page-1
}

// Crop is one cropped output photo. Name is always rendered; while the
// pattern is invalid existing names are kept and new crops get the invalid
// pattern's literal rendering.
type Crop struct {
	ID          string `json:"id"`
	ScanID      string `json:"scan_id"`
	Page        int    `json:"page"`
	Photo       int    `json:"photo"`
	GlobalIndex int    `json:"global_index"`
	Name        string `json:"name"`
	Renamed     bool   `json:"renamed"` // name was edited by the user
	Rotation    int    `json:"rotation_applied"`
	Path        string `json:"path"` // storage path of the cropped JPEG
}

// State is an immutable snapshot of a session. Reduce never modifies the
// state it is given.
type State struct {
	Scans    []Scan         `json:"scans"`
	Active   int            `json:"active_index"`
	Settings Settings       `json:"settings"`
	Naming   naming.Pattern `json:"naming"`
	Crops    []Crop         `json:"crops"`
	Version  int            `json:"version"`
}

// New returns the state of a fresh session
func New() State {
	return State{
		Scans:    []Scan{},
		Settings: DefaultSettings(),
		Naming:   naming.DefaultPattern(),
		Crops:    []Crop{},
	}
}

// ActiveScan returns the active scan, if any
func (s State) ActiveScan() (Scan, bool) {
	if s.Active < 0 || s.Active >= len(s.Scans) {
		return Scan{}, false
	}
	return s.Scans[s.Active], true
}

// ScanIndex returns the index of the scan with the given ID, or -1
func (s State) ScanIndex(id string) int {
	for i, sc := range s.Scans {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

// CropIndex returns the index of the crop with the given ID, or -1
func (s State) CropIndex(id string) int {
	for i, c := range s.Crops {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Selected returns the selected regions on a page of a scan
func (sc Scan) Selected(page int) []scanning.Region {
	if page < 1 || page > len(sc.Pages) {
		return nil
	}
	var out []scanning.Region
	for _, b := range sc.Pages[page-1] {
		if b.Selected {
			out = append(out, b.Region)
		}
	}
	return out
}

// clone copies every slice reachable from s so the copy can be changed freely
func (s State) clone() State {
	out := s
	out.Scans = make([]Scan, len(s.Scans))
	for i, sc := range s.Scans {
		sc.Pages = clonePages(sc.Pages)
		out.Scans[i] = sc
	}
	out.Crops = append([]Crop{}, s.Crops...)
	return out
}

func clonePages(pages [][]Box) [][]Box {
	if pages == nil {
		return nil
	}
	out := make([][]Box, len(pages))
	for i, p := range pages {
		out[i] = append([]Box(nil), p...)
	}
	return out
}
