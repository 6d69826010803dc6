package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/httpapi"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		repo string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

Exposes the panel over HTTP: list configs, fetch render graphs, run
auto-layout, and apply change batches. The server shuts down gracefully
on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), repo, addr)
		},
	}

	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository root to scan")
	cmd.Flags().StringVarP(&addr, "addr", "a", c.Config.Serve.Addr, "listen address")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, repo, addr string) error {
	p, cleanup, err := c.newPanel(ctx, repo, false)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(p, c.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("serving", "addr", addr, "repo", repo)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		c.Logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
