package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/scanning"
	"github.com/zombor/scansplitter/internal/sequence"
)

var (
	ErrUnknownScan = errors.New("unknown scan")
	ErrUnknownCrop = errors.New("unknown crop")
	ErrPageRange   = errors.New("page out of range")
	ErrInvalidName = errors.New("invalid name")
	ErrDuplicateID = errors.New("duplicate scan id")
)

// Action is a change to a session. The set of actions is closed.
type Action interface {
	apply(s State) (State, error)
}

// Reduce applies a to s and returns the new state. On error s is returned
// unchanged.
func Reduce(s State, a Action) (State, error) {
	next, err := a.apply(s.clone())
	if err != nil {
		return s, err
	}
	next.Version = s.Version + 1
	return next, nil
}

// AddScans appends uploaded scans and makes the first of them active
type AddScans struct {
	Scans []Scan
}

func (a AddScans) apply(s State) (State, error) {
	if len(a.Scans) == 0 {
		return s, nil
	}
	first := len(s.Scans)
	for _, sc := range a.Scans {
		if s.ScanIndex(sc.ID) >= 0 {
			return s, fmt.Errorf("%w: %s", ErrDuplicateID, sc.ID)
		}
		sc.PageCount = max(sc.PageCount, 1)
		sc.CurrentPage = 1
		if sc.Status == "" {
			sc.Status = StatusIdle
		}
		sc.Pages = clonePages(sc.Pages)
		s.Scans = append(s.Scans, sc)
	}
	s.Active = first
	return s, nil
}

// CloseScan removes a scan and every crop taken from it
type CloseScan struct {
	ScanID string
}

func (a CloseScan) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	s.Scans = append(s.Scans[:idx], s.Scans[idx+1:]...)

	crops := s.Crops[:0]
	for _, c := range s.Crops {
		if c.ScanID != a.ScanID {
			crops = append(crops, c)
		}
	}
	s.Crops = crops

	switch {
	case len(s.Scans) == 0:
		s.Active = 0
	case idx < s.Active:
		s.Active--
	case s.Active >= len(s.Scans):
		s.Active = len(s.Scans) - 1
	}
	return resequence(s), nil
}

// GoTo makes a scan active and shows the given page
type GoTo struct {
	ScanID string
	Page   int
}

func (a GoTo) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	page := a.Page
	if page == 0 {
		page = s.Scans[idx].CurrentPage
	}
	if page < 1 || page > s.Scans[idx].PageCount {
		return s, fmt.Errorf("%w: page %d of %d", ErrPageRange, page, s.Scans[idx].PageCount)
	}
	s.Active = idx
	s.Scans[idx].CurrentPage = page
	return s, nil
}

// Step moves to the next or previous page across all scans. Stepping past
// either end leaves the state unchanged.
type Step struct {
	Forward bool
}

func (a Step) apply(s State) (State, error) {
	active, ok := s.ActiveScan()
	if !ok {
		return s, nil
	}
	counts := make([]int, len(s.Scans))
	for i, sc := range s.Scans {
		counts[i] = sc.PageCount
	}
	scans := sequence.Scans(counts)
	cur := sequence.ScanRef{FileIndex: s.Active, Page: active.CurrentPage}

	move := sequence.Next
	if !a.Forward {
		move = sequence.Prev
	}
	to, ok := move(scans, cur)
	if !ok {
		return s, nil
	}
	s.Active = to.FileIndex
	s.Scans[to.FileIndex].CurrentPage = to.Page
	return s, nil
}

// UpdateSettings replaces the detection settings, clamping out-of-range values
type UpdateSettings struct {
	Settings Settings
}

func (a UpdateSettings) apply(s State) (State, error) {
	s.Settings = a.Settings.Clamp()
	return s, nil
}

// UpdateNaming replaces the naming pattern. Crop names the user has not
// edited are re-rendered while the pattern is valid.
type UpdateNaming struct {
	Pattern naming.Pattern
}

func (a UpdateNaming) apply(s State) (State, error) {
	s.Naming = a.Pattern.Normalize()
	return resequence(s), nil
}

// SetStatus updates the detection status of a scan
type SetStatus struct {
	ScanID string
	Status DetectionStatus
	Err    string
}

func (a SetStatus) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	s.Scans[idx].Status = a.Status
	s.Scans[idx].Error = a.Err
	return s, nil
}

// SetRegions stores detected regions for every page of a scan and marks it
// detected. All regions start selected.
type SetRegions struct {
	ScanID string
	Pages  [][]scanning.Region // indexed by page-1
}

func (a SetRegions) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	sc := &s.Scans[idx]
	if len(a.Pages) != sc.PageCount {
		return s, fmt.Errorf("%w: got regions for %d pages, scan has %d", ErrPageRange, len(a.Pages), sc.PageCount)
	}
	sc.Pages = make([][]Box, len(a.Pages))
	for i, regions := range a.Pages {
		boxes := make([]Box, len(regions))
		for j, r := range regions {
			boxes[j] = Box{Region: r, Selected: true}
		}
		sc.Pages[i] = boxes
	}
	sc.Status = StatusDetected
	sc.Error = ""
	return s, nil
}

// SelectBox includes or excludes one detected region from cropping
type SelectBox struct {
	ScanID   string
	Page     int
	Index    int
	Selected bool
}

func (a SelectBox) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	sc := &s.Scans[idx]
	if a.Page < 1 || a.Page > len(sc.Pages) || a.Index < 0 || a.Index >= len(sc.Pages[a.Page-1]) {
		return s, fmt.Errorf("%w: box %d on page %d", ErrPageRange, a.Index, a.Page)
	}
	sc.Pages[a.Page-1][a.Index].Selected = a.Selected
	return s, nil
}

// AddCrops stores the crops taken from one page, replacing earlier crops of
// the same page. Photo numbers follow the order of Crops.
type AddCrops struct {
	ScanID string
	Page   int
	Crops  []Crop
}

func (a AddCrops) apply(s State) (State, error) {
	idx, err := s.mustScan(a.ScanID)
	if err != nil {
		return s, err
	}
	if a.Page < 1 || a.Page > s.Scans[idx].PageCount {
		return s, fmt.Errorf("%w: page %d of %d", ErrPageRange, a.Page, s.Scans[idx].PageCount)
	}

	crops := s.Crops[:0]
	for _, c := range s.Crops {
		if c.ScanID != a.ScanID || c.Page != a.Page {
			crops = append(crops, c)
		}
	}
	for i, c := range a.Crops {
		c.ScanID = a.ScanID
		c.Page = a.Page
		c.Photo = i + 1
		c.Renamed = false
		crops = append(crops, c)
	}
	s.Crops = crops
	return resequence(s), nil
}

// RenameCrop sets a user-chosen name on one crop
type RenameCrop struct {
	CropID string
	Name   string
}

func (a RenameCrop) apply(s State) (State, error) {
	idx := s.CropIndex(a.CropID)
	if idx < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownCrop, a.CropID)
	}
	if res := naming.ValidateName(a.Name); !res.Valid {
		return s, fmt.Errorf("%w: %s", ErrInvalidName, res.Error)
	}
	s.Crops[idx].Name = a.Name
	s.Crops[idx].Renamed = true
	return s, nil
}

// Reset discards everything and starts a fresh session
type Reset struct{}

func (Reset) apply(State) (State, error) {
	return New(), nil
}

func (s State) mustScan(id string) (int, error) {
	idx := s.ScanIndex(id)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownScan, id)
	}
	return idx, nil
}

// resequence orders crops by scan, page and photo, assigns global indexes
// and re-renders names that were not edited by the user
func resequence(s State) State {
	order := make(map[string]int, len(s.Scans))
	for i, sc := range s.Scans {
		order[sc.ID] = i
	}
	sort.SliceStable(s.Crops, func(i, j int) bool {
		a, b := s.Crops[i], s.Crops[j]
		if order[a.ScanID] != order[b.ScanID] {
			return order[a.ScanID] < order[b.ScanID]
		}
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Photo < b.Photo
	})

	files := make([]sequence.File, len(s.Scans))
	for i, sc := range s.Scans {
		files[i] = sequence.File{Name: sc.Filename, Photos: make([]int, sc.PageCount)}
	}
	for _, c := range s.Crops {
		files[order[c.ScanID]].Photos[c.Page-1]++
	}

	slots := sequence.Assign(files)
	names := sequence.Names(s.Naming, files, slots)
	valid := s.Naming.Validate().Valid
	for i, slot := range slots {
		c := &s.Crops[i]
		c.Page = slot.Page
		c.Photo = slot.Photo
		c.GlobalIndex = slot.GlobalIndex
		if !c.Renamed && (valid || c.Name == "") {
			c.Name = names[i]
		}
	}
	return s
}
