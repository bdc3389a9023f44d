// Package main provides the entry point for the Talespring server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/di"
	"github.com/talespring/talespring-server/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create DI container
	injector := di.NewContainer(cfg)

	// Bootstrap all services
	server, err := di.Bootstrap(injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutting down server gracefully...")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}

	// The container shuts down in reverse dependency order: the HTTP server
	// first, then pending read increments, then the stores.
	if report := injector.Shutdown(); !report.Succeed {
		for svc, err := range report.Errors {
			log.Error("Shutdown error", "service", svc.Service, "error", err)
		}
	}

	log.Info("Goodbye")
}
