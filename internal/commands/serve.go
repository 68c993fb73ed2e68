package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/bookkeeping/internal/httpapi"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string
	var devSeed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if addr != "" {
				e.cfg.HTTP.Addr = addr
			}
			if devSeed {
				e.cfg.Seed.Enabled = true
			}
			// The memory backend starts empty, so a tenant is always useful there.
			if e.cfg.Seed.Enabled || e.backend == "memory" {
				res, err := seedTenant(ctx, e.store, e.cfg.Seed, e.log)
				if err != nil {
					e.log.Error("dev seed failed", "err", err)
				} else {
					res.log(e.log, e.backend)
					res.print(cmd.OutOrStdout())
				}
			}

			svc := httpapi.NewServices(e.store, e.log)
			api := httpapi.New(e.store, svc, httpapi.Options{CORSOrigins: e.cfg.HTTP.CORSOrigins}, e.log)
			e.log.Info("storage backend: " + e.backend)
			return run(ctx, e, api.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	cmd.Flags().BoolVar(&devSeed, "dev-seed", false, "seed a development business on startup")
	return cmd
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, e *env, h http.Handler) error {
	hc := e.cfg.HTTP
	srv := &http.Server{
		Addr:              hc.Addr,
		Handler:           h,
		ReadTimeout:       hc.ReadTimeout,
		ReadHeaderTimeout: hc.ReadTimeout,
		WriteTimeout:      hc.WriteTimeout,
		IdleTimeout:       hc.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info("ledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(hc.ShutdownTimeout))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.log.Error("server shutdown error", "err", err)
			return err
		}
		e.log.Info("server stopped")
		return nil
	case err := <-errCh:
		e.log.Error("server error", "err", err)
		return err
	}
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
