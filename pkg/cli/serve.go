package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/server"
	"github.com/iin-community/kehila/pkg/usecase/enrich"
	"github.com/iin-community/kehila/pkg/usecase/post"
	"github.com/iin-community/kehila/pkg/usecase/search"
	"github.com/iin-community/kehila/pkg/usecase/summary"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const shutdownGrace = 10 * time.Second

func serveCommand() *cli.Command {
	var cfg config
	var addr string

	flags := append(globalFlags(&cfg),
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("KEHILA_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for profile images",
			Sources:     cli.EnvVars("KEHILA_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "auth-endpoint",
			Usage:       "Identity service userinfo endpoint",
			Sources:     cli.EnvVars("KEHILA_AUTH_ENDPOINT"),
			Destination: &cfg.authEndpoint,
		},
		&cli.StringFlag{
			Name:        "job-token",
			Usage:       "Shared secret for the summary job trigger endpoint",
			Sources:     cli.EnvVars("INVOKE_TOKEN"),
			Destination: &cfg.jobToken,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			if cfg.authEndpoint == "" {
				return goerr.New("auth-endpoint is required")
			}
			if cfg.jobToken == "" {
				return goerr.New("job-token is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			searchTuning, summaryTuning, err := cfg.loadTuning()
			if err != nil {
				return err
			}

			enricher := enrich.New(repo)
			searchUC := search.New(repo, gemini, enricher, search.WithTuning(searchTuning))
			postUC := post.New(repo, gemini, enricher)
			job := summary.New(repo, gemini, summary.WithTuning(summaryTuning))
			verifier := adapter.NewTokenVerifier(cfg.authEndpoint)

			srv := server.New(searchUC, postUC, job, repo, storage, verifier, cfg.jobToken)

			httpServer := &http.Server{
				Addr:    addr,
				Handler: srv.Handler(),
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "server failed")
				}
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "graceful shutdown failed")
				}
				postUC.Wait()
			}

			return nil
		},
	}
}
