package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/Readiness/internal/api"
	"github.com/soaringjerry/Readiness/internal/config"
	"github.com/soaringjerry/Readiness/internal/middleware"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return exitError(2, "config: %v", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides READINESS_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	store, sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}()

	rt := api.NewRouter(store, middleware.NewAuthenticator(cfg.JWTSecret), api.Options{
		Commit: cfg.Commit, BuildTime: cfg.BuildTime, CORSOrigins: cfg.CORSOrigins,
	})
	mux := http.NewServeMux()
	rt.Register(mux)
	mountFrontend(mux, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Readiness server listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// mountFrontend serves static files when a static dir is configured,
// otherwise proxies / to a dev frontend if one is set.
func mountFrontend(mux *http.ServeMux, cfg config.Config) {
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
		return
	}
	if cfg.DevFrontendURL == "" {
		return
	}
	u, err := url.Parse(cfg.DevFrontendURL)
	if err != nil {
		log.Printf("invalid READINESS_DEV_FRONTEND_URL=%q: %v", cfg.DevFrontendURL, err)
		return
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	// no-store must also reach proxied responses
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		res.Header.Set("Pragma", "no-cache")
		res.Header.Set("Expires", "0")
		return nil
	}
	mux.Handle("/", rp)
}
