package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/enrichment"
	"github.com/lehigh-university-libraries/shelfscan/internal/handlers"
	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/lehigh-university-libraries/shelfscan/internal/scanning"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the shelf scanning web API",
		Long: `Starts the Shelfscan HTTP API on the specified port.

Folders are resolved under the configured library root. Scans are kept in
memory for the life of the process.`,
		Example: `  # Start server on the configured port (8888 by default)
  shelfscan serve

  # Start server on custom port
  shelfscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if port == "" {
				port = cfg.Server.Port
			}

			lib := library.New(cfg.Library.Root)
			svc, err := scanning.NewServiceFromConfig(cfg, lib)
			if err != nil {
				return err
			}
			books := enrichment.New(cfg.Enrichment.GoogleBooksKey, time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second)

			handler := handlers.New(svc, lib, books)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfscan API available", "addr", addr, "url", "http://localhost"+addr, "library", cfg.Library.Root, "provider", cfg.LLM.Provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to server.port)")

	return cmd
}
