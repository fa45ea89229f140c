package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/config"
	httpDelivery "github.com/vehiclematch/backend/internal/delivery/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("listening on port %s: %w", cfg.Server.Port, err)
			}

			return serve(ctx, cfg, log, ln)
		},
	}
}

// serve runs the API on ln until ctx is cancelled, then shuts down gracefully.
// serve owns ln and closes it on return.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, ln net.Listener) error {
	log.Info("starting the vehiclematch backend",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
	)

	catalog, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		ln.Close()
		return err
	}
	defer closeCatalog()

	service, closeCache := newService(cfg, catalog, log)
	defer closeCache()

	httpDelivery.Version = version
	handler := httpDelivery.NewHandler(service, log)
	router := httpDelivery.SetupRouter(cfg, handler, log)

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
