package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/peterbourgon/ff/v4/ffyaml"

	"github.com/zombor/scansplitter/internal/models"
	"github.com/zombor/scansplitter/internal/scanning"
	"github.com/zombor/scansplitter/internal/splitter"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("scansplitter")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "scansplitter.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./scans", "Directory for uploads and crops")
		exportPath   = fs.StringLong("export-dir", "./export", "Directory exports are written to")
		detectorType = fs.StringLong("detector", "remote", "Detector type: 'remote' or 'gemini'")
		serviceURL   = fs.StringLong("detector-url", "http://localhost:7860", "Detection and crop service base URL")
		modelsURL    = fs.StringLong("models-url", "", "Model status base URL (defaults to --detector-url)")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		concurrency  = fs.IntLong("detect-concurrency", splitter.DefaultDetectConcurrency, "Scans detected at once")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		_            = fs.StringLong("config", "", "YAML config file (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCANSPLITTER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parse),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := splitter.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The remote service always crops; detection can go to Gemini instead
	remote, err := scanning.NewRemote(*serviceURL)
	if err != nil {
		slog.Error("Failed to initialize detection service client", "error", err)
		os.Exit(1)
	}

	var detector scanning.Detector
	switch *detectorType {
	case "remote":
		slog.Info("Using detection service", "url", *serviceURL)
		detector = remote
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini detector...", "model", *geminiModel)
		detector, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid detector type", "type", *detectorType, "valid", "remote or gemini")
		os.Exit(1)
	}
	defer detector.Close()

	if *modelsURL == "" {
		*modelsURL = *serviceURL
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	files, err := splitter.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	exports, err := splitter.NewLocalStorage(*exportPath)
	if err != nil {
		slog.Error("Failed to initialize export directory", "error", err)
		os.Exit(1)
	}

	// Initialize service
	service, err := splitter.NewService(db, files, exports, splitter.Collaborators{
		Detector: detector,
		Cropper:  remote,
		Models:   models.NewClient(*modelsURL),
	})
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}
	service.SetDetectConcurrency(*concurrency)

	// Initialize server
	basicAuth := splitter.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := splitter.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "exports", exports.Root())
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
