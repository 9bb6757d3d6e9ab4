package splitter

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server handles HTTP requests for the splitting session
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="ScanSplitter"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	// Static files
	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /static/app.js", s.requireAuth(s.handleStaticJS))

	// Scans
	s.mux.HandleFunc("GET /api/scans/{id}/pages/{page}", s.requireAuth(s.handleGetPage))
	s.mux.HandleFunc("POST /api/scans/{id}/detect", s.requireAuth(s.handleDetectScan))
	s.mux.HandleFunc("POST /api/scans/{id}/crop", s.requireAuth(s.handleCropScan))
	s.mux.HandleFunc("POST /api/scans/{id}/select", s.requireAuth(s.handleSelectScan))
	s.mux.HandleFunc("PUT /api/scans/{id}/pages/{page}/regions/{index}", s.requireAuth(s.handleSelectRegion))
	s.mux.HandleFunc("DELETE /api/scans/{id}", s.requireAuth(s.handleCloseScan))
	s.mux.HandleFunc("GET /api/scans", s.requireAuth(s.handleListScans))
	s.mux.HandleFunc("POST /api/scans", s.requireAuth(s.handleUploadScans))

	// Session
	s.mux.HandleFunc("GET /api/session", s.requireAuth(s.handleGetSession))
	s.mux.HandleFunc("DELETE /api/session", s.requireAuth(s.handleResetSession))
	s.mux.HandleFunc("POST /api/navigate", s.requireAuth(s.handleNavigate))
	s.mux.HandleFunc("POST /api/detect", s.requireAuth(s.handleDetectAll))

	// Settings and naming
	s.mux.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", s.requireAuth(s.handleUpdateSettings))
	s.mux.HandleFunc("GET /api/naming/preview", s.requireAuth(s.handleNamingPreview))
	s.mux.HandleFunc("GET /api/naming", s.requireAuth(s.handleGetNaming))
	s.mux.HandleFunc("PUT /api/naming", s.requireAuth(s.handleUpdateNaming))
	s.mux.HandleFunc("GET /api/placeholders", s.requireAuth(s.handlePlaceholders))

	// Crops and export
	s.mux.HandleFunc("GET /api/crops/{id}/file", s.requireAuth(s.handleGetCropFile))
	s.mux.HandleFunc("PATCH /api/crops/{id}", s.requireAuth(s.handleRenameCrop))
	s.mux.HandleFunc("GET /api/crops", s.requireAuth(s.handleListCrops))
	s.mux.HandleFunc("GET /api/exports", s.requireAuth(s.handleListExports))
	s.mux.HandleFunc("POST /api/export", s.requireAuth(s.handleExport))

	s.mux.HandleFunc("GET /api/models", s.requireAuth(s.handleModels))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
