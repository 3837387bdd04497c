package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aescanero/wfdiag/pkg/api/grpc"
	"github.com/aescanero/wfdiag/pkg/api/http"
	"github.com/aescanero/wfdiag/pkg/api/websocket"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnostics HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cmd.Flags().Changed("host") {
				cfg.HTTPHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.Info("starting wfdiag",
				zap.String("version", Version),
				zap.String("build_time", BuildTime))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer, logger)
			if err != nil {
				return err
			}

			httpServer := http.NewServer(&http.Config{
				Addr:         cfg.GetHTTPAddr(),
				Orchestrator: a.manager,
				Health:       a.pool.Health(),
				Logger:       logger,
			})
			httpServer.SetupWebSocket(websocket.NewHandler(a.manager, logger))

			var grpcServer *grpc.Server
			if cfg.GRPCPort != 0 {
				grpcServer, err = grpc.NewServer(&grpc.Config{
					Addr:    cfg.GetGRPCAddr(),
					Checker: a.pool.Health(),
					Logger:  logger,
				})
				if err != nil {
					_ = a.close(context.Background())
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(httpServer.Start)
			if grpcServer != nil {
				g.Go(grpcServer.Start)
			}
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("received shutdown signal")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
				defer cancel()

				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("HTTP server shutdown error", zap.Error(err))
				}
				if grpcServer != nil {
					if err := grpcServer.Shutdown(shutdownCtx); err != nil {
						logger.Error("gRPC server shutdown error", zap.Error(err))
					}
				}
				if err := a.close(shutdownCtx); err != nil {
					logger.Error("orchestrator shutdown error", zap.Error(err))
				}
				return nil
			})

			logger.Info("wfdiag started",
				zap.String("http_addr", cfg.GetHTTPAddr()),
				zap.Int("grpc_port", cfg.GRPCPort))

			err = g.Wait()
			logger.Info("wfdiag shut down complete")
			return err
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host (overrides WFDIAG_HTTP_HOST)")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port (overrides WFDIAG_HTTP_PORT)")
	return cmd
}
