package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustmesh/trustmesh/internal/analysis"
	"github.com/trustmesh/trustmesh/internal/detector"
	httpx "github.com/trustmesh/trustmesh/internal/http"
	"github.com/trustmesh/trustmesh/internal/metrics"
	"github.com/trustmesh/trustmesh/internal/orchestrate"
	"github.com/trustmesh/trustmesh/internal/sink"
	"github.com/trustmesh/trustmesh/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP server",
	Long: "Starts the /v1/analyze endpoint, the metrics server and the\n" +
		"configured result sinks, then blocks until SIGINT or SIGTERM.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	metrics.InitMetrics()

	reg, err := loadRegistry(cfg.RegistryPath)
	if err != nil {
		return err
	}

	orch := orchestrate.New(reg)
	orch.MaxConcurrent = cfg.MaxConcurrent

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sinks, err := sink.ForOutputs(cfg.Outputs)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		if err := s.Start(ctx); err != nil {
			return err
		}
		log.Printf("serve: sink %s started", s.Name())
	}

	publish := func(res analysis.CompositeResult) {
		for _, s := range sinks {
			if err := s.Publish(res); err != nil {
				log.Printf("serve: sink %s publish failed: %v", s.Name(), err)
			}
		}
	}

	msrv := metrics.NewServer(metrics.LoadConfig())
	if err := msrv.Start(ctx); err != nil {
		return err
	}

	env := httpx.Env{Cfg: cfg, Orchestrator: orch, Publish: publish}
	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      httpx.NewMux(env),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("serve: listening on %s (%d detectors registered)", cfg.ServerAddr, reg.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("serve: server error: %v", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Printf("serve: received %v, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("serve: shutdown error: %v", err)
	}
	if err := msrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("serve: metrics shutdown error: %v", err)
	}
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("serve: sink %s close error: %v", s.Name(), err)
		}
	}
	log.Printf("serve: shutdown complete")
	return nil
}

// loadRegistry reads the YAML registry at path, falling back to the
// built-in set when the file is absent so a bare binary still works.
func loadRegistry(path string) (*detector.Registry, error) {
	fileCfg, err := detector.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("serve: no registry config at %s, using built-in detectors", path)
		return detector.DefaultRegistry(), nil
	}
	if err != nil {
		return nil, err
	}
	return detector.BuildRegistry(fileCfg)
}
