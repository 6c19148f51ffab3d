package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/linkvault/internal/api"
	"github.com/nikbrunner/linkvault/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the bookmark tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			rec, err := a.reconciler()
			if err != nil {
				return err
			}

			s := server.New(server.Deps{
				Repo:            repo,
				Reconciler:      rec,
				Extractor:       a.extractor(),
				Browser:         a.browserSource(),
				DefaultCategory: a.cfg.DefaultCategory,
			})

			a.logger.Info("mcp server starting", "version", server.Version, "backend", a.cfg.Backend)
			return mcpserver.ServeStdio(s)
		},
	}
}

func httpCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the bookmark JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			rec, err := a.reconciler()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			srv := &http.Server{
				Addr: addr,
				Handler: api.NewRouter(&api.Deps{
					Repo:            repo,
					Reconciler:      rec,
					Extractor:       a.extractor(),
					DefaultCategory: a.cfg.DefaultCategory,
					Logger:          a.logger,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("http server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			case <-cmd.Context().Done():
			}

			a.logger.Info("http server shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
