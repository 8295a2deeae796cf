package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/psykologen/internal/adapters/http"
	"github.com/PabloGalante/psykologen/internal/observability"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, observability.Options{})
			if err != nil {
				return err
			}
			defer a.close()

			server := httpadapter.NewServer(a.svc, a.journal)
			addr := ":" + a.cfg.Server.Port

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.log.Info("Psykologen API listening", zap.String("addr", addr))
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.log.Info("shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}
