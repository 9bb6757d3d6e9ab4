package splitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/session"
)

// maxUploadSize bounds a multipart upload; scanned PDFs get large
const maxUploadSize = int64(200 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownScan),
		errors.Is(err, session.ErrUnknownCrop),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrPageRange),
		errors.Is(err, session.ErrInvalidName),
		errors.Is(err, session.ErrDuplicateID),
		errors.Is(err, ErrInvalidPattern),
		errors.Is(err, ErrNoRegions),
		errors.Is(err, ErrNothingToExport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeScan answers with one scan of state, or 404 when it was closed meanwhile
func writeScan(w http.ResponseWriter, state session.State, id string) {
	idx := state.ScanIndex(id)
	if idx < 0 {
		jsonError(w, fmt.Sprintf("%v: %s", session.ErrUnknownScan, id), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state.Scans[idx])
}

// serviceError logs unexpected failures and answers with a JSON error
func serviceError(w http.ResponseWriter, action string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("Error "+action, "error", err)
	}
	jsonError(w, err.Error(), code)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, value, name string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil {
		jsonError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleGetSession returns the whole session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleResetSession discards the session
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Reset()
	if err != nil {
		serviceError(w, "resetting session", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListScans returns the uploaded scans
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.State().Scans)
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// handleUploadScans handles one or more scan uploads in the "file" field
func (s *Server) handleUploadScans(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "Upload is too large. Maximum size is 200MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	scans := []session.Scan{}
	failures := []uploadFailure{}
	for _, header := range headers {
		scan, err := s.uploadOne(header.Filename, header.Header.Get("Content-Type"), header.Open)
		if err != nil {
			slog.Error("Error uploading scan", "filename", header.Filename, "error", err)
			failures = append(failures, uploadFailure{Filename: header.Filename, Error: err.Error()})
			continue
		}
		scans = append(scans, scan)
	}

	if len(scans) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No scan could be read", "failures": failures})
		return
	}

	if s.service.Settings().AutoDetect {
		ids := make([]string, len(scans))
		for i, sc := range scans {
			ids[i] = sc.ID
		}
		if err := s.service.DetectScans(r.Context(), ids); err != nil {
			slog.Warn("Automatic detection failed", "error", err)
		}
		state := s.service.State()
		for i, sc := range scans {
			if idx := state.ScanIndex(sc.ID); idx >= 0 {
				scans[i] = state.Scans[idx]
			}
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"scans": scans, "failures": failures})
}

func (s *Server) uploadOne(filename, contentType string, open func() (multipart.File, error)) (session.Scan, error) {
	f, err := open()
	if err != nil {
		return session.Scan{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return session.Scan{}, err
	}
	return s.service.Upload(filename, data, contentType)
}

// handleCloseScan removes a scan
func (s *Server) handleCloseScan(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.CloseScan(r.PathValue("id"))
	if err != nil {
		serviceError(w, "closing scan", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSelectScan makes a scan active, optionally at a page
func (s *Server) handleSelectScan(w http.ResponseWriter, r *http.Request) {
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		var ok bool
		if page, ok = intParam(w, v, "page"); !ok {
			return
		}
	}
	state, err := s.service.GoTo(r.PathValue("id"), page)
	if err != nil {
		serviceError(w, "selecting scan", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleNavigate moves between pages across all scans
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		ScanID    string `json:"scan_id"`
		Page      int    `json:"page"`
	}
	if !decode(w, r, &req) {
		return
	}

	var (
		state session.State
		err   error
	)
	switch {
	case req.ScanID != "":
		state, err = s.service.GoTo(req.ScanID, req.Page)
	case req.Direction == "next":
		state, err = s.service.Navigate(true)
	case req.Direction == "prev":
		state, err = s.service.Navigate(false)
	default:
		jsonError(w, `direction must be "next" or "prev"`, http.StatusBadRequest)
		return
	}
	if err != nil {
		serviceError(w, "navigating", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleGetPage renders a page of a scan as PNG
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, ok := intParam(w, r.PathValue("page"), "page")
	if !ok {
		return
	}
	maxEdge := 0
	if v := r.URL.Query().Get("max"); v != "" {
		if maxEdge, ok = intParam(w, v, "max"); !ok {
			return
		}
	}

	data, err := s.service.Page(r.PathValue("id"), page, maxEdge)
	if err != nil {
		serviceError(w, "rendering page", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// handleDetectScan runs detection on one scan
func (s *Server) handleDetectScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Detect(r.Context(), id); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		jsonError(w, err.Error(), code)
		return
	}
	writeScan(w, s.service.State(), id)
}

// handleDetectAll runs detection on every scan. Per-scan failures are
// reported on the scans.
func (s *Server) handleDetectAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DetectAll(r.Context()); err != nil {
		slog.Warn("Detection failed for some scans", "error", err)
	}
	writeJSON(w, http.StatusOK, s.service.State().Scans)
}

// handleSelectRegion includes or excludes one detected region
func (s *Server) handleSelectRegion(w http.ResponseWriter, r *http.Request) {
	page, ok := intParam(w, r.PathValue("page"), "page")
	if !ok {
		return
	}
	index, ok := intParam(w, r.PathValue("index"), "region index")
	if !ok {
		return
	}
	var req struct {
		Selected bool `json:"selected"`
	}
	if !decode(w, r, &req) {
		return
	}

	state, err := s.service.SelectRegion(r.PathValue("id"), page, index, req.Selected)
	if err != nil {
		serviceError(w, "selecting region", err)
		return
	}
	writeScan(w, state, r.PathValue("id"))
}

// handleCropScan crops the selected regions of a page
func (s *Server) handleCropScan(w http.ResponseWriter, r *http.Request) {
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		var ok bool
		if page, ok = intParam(w, v, "page"); !ok {
			return
		}
	}

	crops, err := s.service.Crop(r.Context(), r.PathValue("id"), page)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			slog.Error("Error cropping", "error", err)
			code = http.StatusBadGateway
		}
		jsonError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusCreated, crops)
}

// handleGetSettings returns the detection settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Settings())
}

// handleUpdateSettings replaces the detection settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.service.Settings()
	if !decode(w, r, &settings) {
		return
	}
	updated, err := s.service.UpdateSettings(settings)
	if err != nil {
		serviceError(w, "updating settings", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleGetNaming returns the naming configuration with validation and preview
func (s *Server) handleGetNaming(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Naming())
}

// handleUpdateNaming replaces the naming configuration. The start number may
// be sent as a number or as the raw text of the input field.
func (s *Server) handleUpdateNaming(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumName   *string         `json:"album_name"`
		StartNumber json.RawMessage `json:"start_number"`
		Pattern     *string         `json:"pattern"`
	}
	if !decode(w, r, &req) {
		return
	}

	p := s.service.Naming().Pattern
	if req.AlbumName != nil {
		p.AlbumName = *req.AlbumName
	}
	if req.Pattern != nil {
		p.Pattern = *req.Pattern
	}
	if len(req.StartNumber) > 0 {
		p = p.WithStartNumber(parseStartNumber(req.StartNumber))
	}

	view, err := s.service.UpdateNaming(p)
	if err != nil {
		serviceError(w, "updating naming", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// parseStartNumber accepts a JSON number or string
func parseStartNumber(raw json.RawMessage) int {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return naming.ParseStartNumber(text)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	return 1
}

// handleNamingPreview renders a preview for an arbitrary pattern without
// changing the session
func (s *Server) handleNamingPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.service.Naming().Pattern
	if q.Has("pattern") {
		p.Pattern = q.Get("pattern")
	}
	if q.Has("album_name") {
		p.AlbumName = q.Get("album_name")
	}
	if q.Has("start_number") {
		p = p.WithStartNumber(naming.ParseStartNumber(q.Get("start_number")))
	}

	sample := naming.DefaultSample
	if q.Has("filename") {
		sample.Filename = q.Get("filename")
	}
	if v := q.Get("page"); v != "" {
		page, ok := intParam(w, v, "page")
		if !ok {
			return
		}
		sample.Page = page
	}

	writeJSON(w, http.StatusOK, NamingView{
		Pattern:    p,
		Validation: p.Validate(),
		Preview:    p.Preview(sample),
	})
}

// handlePlaceholders returns the placeholder registry
func (s *Server) handlePlaceholders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, naming.Placeholders())
}

// handleListCrops returns every crop in export order
func (s *Server) handleListCrops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Crops())
}

// handleRenameCrop gives a crop a user-chosen name
func (s *Server) handleRenameCrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	crop, err := s.service.RenameCrop(r.PathValue("id"), req.Name)
	if err != nil {
		serviceError(w, "renaming crop", err)
		return
	}
	writeJSON(w, http.StatusOK, crop)
}

// handleGetCropFile returns the JPEG of a crop
func (s *Server) handleGetCropFile(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.CropFile(r.PathValue("id"))
	if err != nil {
		serviceError(w, "getting crop file", err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// handleExport writes every crop to the export directory
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.service.Export()
	if err != nil {
		serviceError(w, "exporting", err)
		return
	}
	writeJSON(w, http.StatusCreated, export)
}

// handleListExports returns earlier exports
func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	exports, err := s.service.Exports()
	if err != nil {
		serviceError(w, "listing exports", err)
		return
	}
	writeJSON(w, http.StatusOK, exports)
}

// handleModels returns the status of every detection model
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.service.ModelStatuses(r.Context())
	if err != nil {
		slog.Error("Error getting model statuses", "error", err)
		jsonError(w, "Model service unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}
