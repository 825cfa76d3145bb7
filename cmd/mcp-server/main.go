package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/mcpserver"
	"github.com/apresai/polycast/internal/observability"
)

var version = "1.0.0"

// shutdownGrace bounds how long running tasks get to record their failure
// after SIGTERM before the process exits.
const shutdownGrace = 8 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := observability.InitLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("Polycast MCP Server starting...", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.InitTracer(ctx, observability.TraceOptions{
		ServiceName: "polycast-mcp",
		Version:     version,
		Environment: cfg.Environment,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Tracer shutdown error", "error", err)
			}
		}()
	}

	srv, err := mcpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, waiting for active tasks...", "running", srv.Tasks().Running())

		done := make(chan struct{})
		go func() {
			srv.Tasks().Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			logger.Warn("Tasks still running at shutdown", "running", srv.Tasks().Running())
		}
		if err := srv.Close(); err != nil {
			logger.Error("Close TTS provider", "error", err)
		}
		if tp != nil {
			tp.Shutdown(context.Background())
		}
		logger.Info("Shutdown complete")
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
