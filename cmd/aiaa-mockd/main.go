package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"aiaa/internal/catalog"
	"aiaa/internal/mockserver"
	"aiaa/pkg/types"
)

// builtinModels is served when no -catalog file is given.
var builtinModels = []types.Model{
	{Name: "clara_ct_annotation_liver", Labels: []string{"liver"}, Description: "DEXTR3D liver annotation", Version: "1", Type: types.ModelTypeAnnotation, Padding: 20, ROI: types.ROI{128, 128, 128}, Sigma: 3},
	{Name: "clara_ct_annotation_spleen", Labels: []string{"spleen"}, Description: "DEXTR3D spleen annotation", Version: "1", Type: types.ModelTypeAnnotation, Padding: 20, ROI: types.ROI{128, 128, 128}, Sigma: 3},
	{Name: "clara_ct_seg_liver_and_tumor", Labels: []string{"liver", "liver tumor"}, Description: "Automatic liver segmentation", Version: "1", Type: types.ModelTypeSegmentation},
	{Name: "clara_deepgrow_spleen", Labels: []string{"spleen"}, Description: "Click-based spleen annotation", Version: "1", Type: types.ModelTypeDeepgrow, ROI: types.ROI{128, 128, 128}},
}

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":5000"
	if v := os.Getenv("AIAA_MOCK_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :5000")
	catalogFile := flag.String("catalog", "", "Model catalog file (.yaml|.json|.toml); built-in models when empty")
	logLevel := flag.String("log-level", "info", "Per-request log level: off|error|info|debug")
	corsOrigins := flag.String("cors", "", "Comma-separated allowed CORS origins (empty disables CORS)")
	maxBody := flag.Int64("max-body-bytes", 0, "Maximum upload size in bytes (0 = 256MiB)")
	emptyResult := flag.Bool("empty-result", false, "Answer DEXTR3D calls with no image")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cat := catalog.New(builtinModels)
	if *catalogFile != "" {
		c, err := catalog.LoadFile(*catalogFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load catalog")
		}
		cat = c
	}
	svc := mockserver.NewMemoryService(cat)
	svc.EmptyResult = *emptyResult

	mockserver.SetLogger(log)
	mockserver.SetDefaultLogLevel(*logLevel)
	mockserver.SetMaxBodyBytes(*maxBody)
	mockserver.ConfigureCORS(*corsOrigins, "", "")

	srv := &http.Server{Addr: *addr, Handler: mockserver.NewMux(svc), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().Str("addr", *addr).Int("models", cat.Len()).Msg("aiaa-mockd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}
