package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/cyp0633/chorecal/internal/config"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/server"
	authmem "github.com/cyp0633/chorecal/server/auth/memory"
	"github.com/cyp0633/chorecal/task"
)

// defaultClient names the principal holding the configured shared secret.
const defaultClient = "default"

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if driver, _ := cmd.Flags().GetString("storage"); driver != "" {
				cfg.Storage.Driver = driver
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().String("storage", "", "Storage driver: memory, file or postgres (overrides storage.driver)")
	return cmd
}

func newHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	engineCfg, err := cfg.Recurrence.EngineConfig()
	if err != nil {
		return nil, nil, err
	}
	engine := recurrence.NewEngineWithConfig(engineCfg, recurrence.WithLogger(logger))

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
		engine.Close()
	}

	svc := task.NewService(store, engine, task.WithLogger(logger))

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Auth.Secret != "" {
		tokens := authmem.New(authmem.WithLogger(logger))
		if err := tokens.AddToken(defaultClient, cfg.Auth.Secret); err != nil {
			cleanup()
			return nil, nil, zerr.Wrap(err, "failed to configure authentication")
		}
		opts = append(opts, server.WithAuthenticator(tokens, cfg.Auth.Header))
	} else {
		logger.Warn("authentication disabled: auth.secret is empty")
	}

	handler, err := server.New(svc, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return handler, cleanup, nil
}

// serve runs the API until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	handler, cleanup, err := newHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "addr", cfg.Server.Addr)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			"addr", ln.Addr().String(),
			"storage", cfg.Storage.Driver)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, "server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return zerr.Wrap(err, "failed to shut down server")
		}
		return nil
	})
	return g.Wait()
}
