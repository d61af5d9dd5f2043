package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/faces"
	"github.com/kozaktomas/eigenface/internal/modelstore"
	"github.com/kozaktomas/eigenface/internal/pipeline"
	"github.com/kozaktomas/eigenface/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification API",
	Long: `Start the HTTP API serving the saved models.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/models
  POST /api/v1/classify  (multipart "file", optional detect=true)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("no-detect", false, "Disable detection on uploaded photos")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Load()

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := modelstore.Load(ctx, st.reader(), p.SubjectNames())
	if err != nil {
		return err
	}
	gallery, err := pipeline.NewGallery(recs)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d models\n", len(recs))

	var detector faces.Detector
	if !mustGetBool(cmd, "no-detect") {
		detector = faces.NewClient(cfg.Detector.URL)
		fmt.Printf("Face detection via %s\n", cfg.Detector.URL)
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, gallery, detector, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting eigenface API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
