package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/scansplitter/internal/models"
	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/scanning"
	"github.com/zombor/scansplitter/internal/session"
)

var (
	ErrInvalidPattern  = errors.New("invalid naming pattern")
	ErrNoRegions       = errors.New("no regions selected")
	ErrNothingToExport = errors.New("nothing to export")
)

// DefaultDetectConcurrency is the number of scans detected at once
const DefaultDetectConcurrency = 2

// IDGenerator generates unique IDs for scans, crops and exports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Collaborators are the external services the splitter drives
type Collaborators struct {
	Detector scanning.Detector
	Cropper  scanning.Cropper
	Models   models.Source // optional
}

// Service orchestrates uploads, detection, cropping, naming and export
type Service struct {
	db          DB
	files       Storage // uploads and crops
	exports     Storage
	collab      Collaborators
	store       *session.Store
	idGenerator IDGenerator
	timeSource  TimeSource
	concurrency int
}

// NewService creates a new Service, resuming the session stored in db
func NewService(db DB, files, exports Storage, collab Collaborators) (*Service, error) {
	return NewServiceWithDeps(db, files, exports, collab, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, files, exports Storage, collab Collaborators, idGen IDGenerator, timeSrc TimeSource) (*Service, error) {
	state, err := db.LoadSession()
	switch {
	case errors.Is(err, ErrNotFound):
		state = session.New()
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	default:
		slog.Info("Resuming session", "scans", len(state.Scans), "crops", len(state.Crops))
	}

	return &Service{
		db:          db,
		files:       files,
		exports:     exports,
		collab:      collab,
		store:       session.NewStore(state, db.SaveSession),
		idGenerator: idGen,
		timeSource:  timeSrc,
		concurrency: DefaultDetectConcurrency,
	}, nil
}

// SetDetectConcurrency limits how many scans DetectScans works on at once
func (s *Service) SetDetectConcurrency(n int) {
	s.concurrency = max(n, 1)
}

// State returns the current session
func (s *Service) State() session.State {
	return s.store.State()
}

// Upload stores a scanned file and adds it to the session
func (s *Service) Upload(filename string, data []byte, contentType string) (session.Scan, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = scanning.ContentTypeFor(filename)
	}

	pages, err := scanning.PageCount(data, contentType)
	if err != nil {
		return session.Scan{}, fmt.Errorf("reading %s: %w", filename, err)
	}

	id := s.idGenerator.Generate()
	savedPath, err := s.files.Save(path.Join("scans", id+strings.ToLower(path.Ext(filename))), data)
	if err != nil {
		return session.Scan{}, fmt.Errorf("saving file: %w", err)
	}

	scan := session.Scan{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Path:        savedPath,
		PageCount:   pages,
	}
	state, err := s.store.Dispatch(session.AddScans{Scans: []session.Scan{scan}})
	if err != nil {
		s.files.Delete(savedPath)
		return session.Scan{}, err
	}

	slog.Info("Scan uploaded", "id", id, "filename", filename, "pages", pages)
	return state.Scans[state.ScanIndex(id)], nil
}

// CloseScan removes a scan, its crops and their files
func (s *Service) CloseScan(id string) (session.State, error) {
	before := s.store.State()
	idx := before.ScanIndex(id)
	if idx < 0 {
		return before, fmt.Errorf("%w: %s", session.ErrUnknownScan, id)
	}

	state, err := s.store.Dispatch(session.CloseScan{ScanID: id})
	if err != nil {
		return state, err
	}

	s.deleteFile(before.Scans[idx].Path)
	for _, c := range before.Crops {
		if c.ScanID == id {
			s.deleteFile(c.Path)
		}
	}
	return state, nil
}

// Page renders one page of a scan as PNG. A positive maxEdge scales the page
// down to fit.
func (s *Service) Page(id string, page, maxEdge int) ([]byte, error) {
	scan, err := s.scan(id)
	if err != nil {
		return nil, err
	}
	png, err := s.render(scan, page)
	if err != nil {
		return nil, err
	}
	if maxEdge > 0 {
		return scanning.Thumbnail(png, maxEdge)
	}
	return png, nil
}

// Detect finds photo regions on every page of a scan. Failures are recorded
// on the scan.
func (s *Service) Detect(ctx context.Context, id string) error {
	if s.collab.Detector == nil {
		return errors.New("no detector configured")
	}
	scan, err := s.scan(id)
	if err != nil {
		return err
	}
	if _, err := s.store.Dispatch(session.SetStatus{ScanID: id, Status: session.StatusDetecting}); err != nil {
		return err
	}

	pages, err := s.detectPages(ctx, scan, s.store.State().Settings.DetectOptions())
	if err != nil {
		slog.Error("Detection failed", "scan", id, "filename", scan.Filename, "error", err)
		s.store.Dispatch(session.SetStatus{ScanID: id, Status: session.StatusFailed, Err: err.Error()})
		return fmt.Errorf("detecting %s: %w", scan.Filename, err)
	}

	_, err = s.store.Dispatch(session.SetRegions{ScanID: id, Pages: pages})
	return err
}

func (s *Service) detectPages(ctx context.Context, scan session.Scan, opts scanning.DetectOptions) ([][]scanning.Region, error) {
	pages := make([][]scanning.Region, scan.PageCount)
	for page := 1; page <= scan.PageCount; page++ {
		png, err := s.render(scan, page)
		if err != nil {
			return nil, err
		}
		regions, err := s.collab.Detector.Detect(ctx, png, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		slog.Debug("Regions detected", "scan", scan.ID, "page", page, "count", len(regions))
		pages[page-1] = regions
	}
	return pages, nil
}

// DetectScans runs Detect for the given scans with bounded concurrency. Every
// scan is attempted; the first error is returned.
func (s *Service) DetectScans(ctx context.Context, ids []string) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			return s.Detect(ctx, id)
		})
	}
	return g.Wait()
}

// DetectAll runs detection for every scan in the session
func (s *Service) DetectAll(ctx context.Context) error {
	state := s.store.State()
	ids := make([]string, len(state.Scans))
	for i, sc := range state.Scans {
		ids[i] = sc.ID
	}
	return s.DetectScans(ctx, ids)
}

// SelectRegion includes or excludes a detected region from cropping
func (s *Service) SelectRegion(id string, page, index int, selected bool) (session.State, error) {
	return s.store.Dispatch(session.SelectBox{ScanID: id, Page: page, Index: index, Selected: selected})
}

// Crop cuts the selected regions out of a page and names the results. Page 0
// means the page currently shown. Earlier crops of the page are replaced.
func (s *Service) Crop(ctx context.Context, id string, page int) ([]session.Crop, error) {
	if s.collab.Cropper == nil {
		return nil, errors.New("no cropper configured")
	}
	before := s.store.State()
	idx := before.ScanIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrUnknownScan, id)
	}
	scan := before.Scans[idx]
	if page == 0 {
		page = scan.CurrentPage
	}

	regions := scan.Selected(page)
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w on page %d of %s", ErrNoRegions, page, scan.Filename)
	}

	png, err := s.render(scan, page)
	if err != nil {
		return nil, err
	}
	images, err := s.collab.Cropper.Crop(ctx, png, regions, before.Settings.AutoRotate)
	if err != nil {
		return nil, fmt.Errorf("cropping page %d of %s: %w", page, scan.Filename, err)
	}

	crops := make([]session.Crop, len(images))
	for i, img := range images {
		cropID := s.idGenerator.Generate()
		savedPath, err := s.files.Save(path.Join("crops", cropID+".jpg"), img.Data)
		if err != nil {
			for _, c := range crops[:i] {
				s.deleteFile(c.Path)
			}
			return nil, fmt.Errorf("saving crop: %w", err)
		}
		crops[i] = session.Crop{ID: cropID, Rotation: img.Rotation, Path: savedPath}
	}

	state, err := s.store.Dispatch(session.AddCrops{ScanID: id, Page: page, Crops: crops})
	if err != nil {
		for _, c := range crops {
			s.deleteFile(c.Path)
		}
		return nil, err
	}

	for _, c := range before.Crops {
		if c.ScanID == id && c.Page == page {
			s.deleteFile(c.Path)
		}
	}

	out := make([]session.Crop, 0, len(crops))
	for _, c := range state.Crops {
		if c.ScanID == id && c.Page == page {
			out = append(out, c)
		}
	}
	slog.Info("Page cropped", "scan", id, "page", page, "photos", len(out))
	return out, nil
}

// Crops returns every crop in export order
func (s *Service) Crops() []session.Crop {
	return s.store.State().Crops
}

// CropFile returns the JPEG data of a crop
func (s *Service) CropFile(id string) ([]byte, error) {
	state := s.store.State()
	idx := state.CropIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrUnknownCrop, id)
	}
	data, err := s.files.Get(state.Crops[idx].Path)
	if err != nil {
		return nil, fmt.Errorf("getting crop file: %w", err)
	}
	return data, nil
}

// RenameCrop gives one crop a user-chosen name
func (s *Service) RenameCrop(id, name string) (session.Crop, error) {
	state, err := s.store.Dispatch(session.RenameCrop{CropID: id, Name: name})
	if err != nil {
		return session.Crop{}, err
	}
	return state.Crops[state.CropIndex(id)], nil
}

// Navigate steps to the next or previous page across all scans
func (s *Service) Navigate(forward bool) (session.State, error) {
	return s.store.Dispatch(session.Step{Forward: forward})
}

// GoTo shows a page of a scan. Page 0 keeps the page last shown.
func (s *Service) GoTo(id string, page int) (session.State, error) {
	return s.store.Dispatch(session.GoTo{ScanID: id, Page: page})
}

// Settings returns the detection settings
func (s *Service) Settings() session.Settings {
	return s.store.State().Settings
}

// UpdateSettings replaces the detection settings. Out-of-range values are
// clamped.
func (s *Service) UpdateSettings(settings session.Settings) (session.Settings, error) {
	state, err := s.store.Dispatch(session.UpdateSettings{Settings: settings})
	if err != nil {
		return session.Settings{}, err
	}
	return state.Settings, nil
}

// NamingView is the naming configuration together with its validation and
// live preview
type NamingView struct {
	naming.Pattern
	Validation naming.Result `json:"validation"`
	Preview    string        `json:"preview"`
}

// Naming returns the naming configuration as shown to the user
func (s *Service) Naming() NamingView {
	return s.namingView(s.store.State())
}

// UpdateNaming replaces the naming pattern. Crop names are re-rendered when
// the pattern is valid; an invalid pattern is kept so it can be fixed.
func (s *Service) UpdateNaming(p naming.Pattern) (NamingView, error) {
	state, err := s.store.Dispatch(session.UpdateNaming{Pattern: p})
	if err != nil {
		return NamingView{}, err
	}
	return s.namingView(state), nil
}

func (s *Service) namingView(state session.State) NamingView {
	return NamingView{
		Pattern:    state.Naming,
		Validation: state.Naming.Validate(),
		Preview:    state.Naming.Preview(previewSample(state)),
	}
}

// previewSample uses the page being shown, or the default sample without one
func previewSample(state session.State) naming.Sample {
	scan, ok := state.ActiveScan()
	if !ok {
		return naming.DefaultSample
	}
	return naming.Sample{Filename: scan.Filename, Page: scan.CurrentPage}
}

// ModelStatuses reports the detection models and their download state
func (s *Service) ModelStatuses(ctx context.Context) (models.Statuses, error) {
	if s.collab.Models == nil {
		return models.Statuses{}, nil
	}
	statuses, err := s.collab.Models.Statuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting model statuses: %w", err)
	}
	return statuses, nil
}

// Export writes every crop under its name into a new export directory and
// records the manifest. Names that collide get a _dupN suffix.
func (s *Service) Export() (*Export, error) {
	state := s.store.State()
	if res := state.Naming.Validate(); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPattern, res.Error)
	}
	if len(state.Crops) == 0 {
		return nil, ErrNothingToExport
	}

	id := s.idGenerator.Generate()
	export := &Export{
		ID:        id,
		Dir:       id,
		Pattern:   state.Naming.Pattern,
		Files:     make([]ExportFile, 0, len(state.Crops)),
		CreatedAt: s.timeSource.Now(),
	}

	names := naming.NewDeduper()
	for _, c := range state.Crops {
		data, err := s.files.Get(c.Path)
		if err != nil {
			s.discardExport(export)
			return nil, fmt.Errorf("reading crop %s: %w", c.ID, err)
		}
		filename := names.Claim(c.Name) + naming.PreviewExt
		savedPath, err := s.exports.Save(path.Join(export.Dir, filename), data)
		if err != nil {
			s.discardExport(export)
			return nil, fmt.Errorf("writing %s: %w", filename, err)
		}
		export.Files = append(export.Files, ExportFile{CropID: c.ID, Filename: filename, Path: savedPath})
	}

	if err := s.db.SaveExport(export); err != nil {
		s.discardExport(export)
		return nil, fmt.Errorf("saving export: %w", err)
	}
	slog.Info("Export written", "id", id, "files", len(export.Files))
	return export, nil
}

// discardExport removes the files of an export that was not recorded
func (s *Service) discardExport(export *Export) {
	for _, f := range export.Files {
		if err := s.exports.Delete(f.Path); err != nil {
			slog.Error("Failed to clean up export file", "path", f.Path, "error", err)
		}
	}
}

// Exports lists earlier exports, newest first
func (s *Service) Exports() ([]*Export, error) {
	exports, err := s.db.ListExports()
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	return exports, nil
}

// Reset discards the session and every stored upload and crop
func (s *Service) Reset() (session.State, error) {
	before := s.store.State()
	state, err := s.store.Dispatch(session.Reset{})
	if err != nil {
		return state, err
	}
	for _, sc := range before.Scans {
		s.deleteFile(sc.Path)
	}
	for _, c := range before.Crops {
		s.deleteFile(c.Path)
	}
	return state, nil
}

func (s *Service) scan(id string) (session.Scan, error) {
	state := s.store.State()
	idx := state.ScanIndex(id)
	if idx < 0 {
		return session.Scan{}, fmt.Errorf("%w: %s", session.ErrUnknownScan, id)
	}
	return state.Scans[idx], nil
}

func (s *Service) render(scan session.Scan, page int) ([]byte, error) {
	if page < 1 || page > scan.PageCount {
		return nil, fmt.Errorf("%w: page %d of %d", session.ErrPageRange, page, scan.PageCount)
	}
	data, err := s.files.Get(scan.Path)
	if err != nil {
		return nil, fmt.Errorf("getting scan file: %w", err)
	}
	png, err := scanning.RenderPage(data, scan.ContentType, page)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d of %s: %w", page, scan.Filename, err)
	}
	return png, nil
}

func (s *Service) deleteFile(p string) {
	if p == "" {
		return
	}
	if err := s.files.Delete(p); err != nil {
		slog.Warn("Failed to delete file", "path", p, "error", err)
	}
}
