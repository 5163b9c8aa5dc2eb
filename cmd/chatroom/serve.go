package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/chatroom"
	"github.com/Zereker/chatroom/gateway"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server and its HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// A .env file is optional; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := chatroom.LoadConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	metrics := chatroom.NewMetrics(registry)

	room := chatroom.NewRoom(
		chatroom.RoomLoggerOption(logger),
		chatroom.RoomMetricsOption(metrics),
		chatroom.MaxParticipantsOption(cfg.MaxParticipants),
	)

	if cfg.Transcript {
		if err := room.Join(chatroom.NewTranscript(logger)); err != nil {
			return errors.Wrap(err, "join transcript")
		}
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "resolve listen addr")
	}

	server, err := chatroom.NewServer(addr, room,
		chatroom.ServerLoggerOption(logger),
		chatroom.ServerMetricsOption(metrics),
		chatroom.ServerShutdownTimeoutOption(cfg.ShutdownTimeout),
		chatroom.ServerSessionOptions(
			chatroom.SessionLoggerOption(logger),
			chatroom.QueueSizeOption(cfg.QueueSize),
			chatroom.IdleTimeoutOption(cfg.IdleTimeout),
		),
	)
	if err != nil {
		return errors.Wrap(err, "start server")
	}

	httpServer := &http.Server{
		Addr:    cfg.GatewayAddr,
		Handler: gateway.New(room, logger, registry).Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Serve(ctx)
	})

	group.Go(func() error {
		logger.Info("gateway started", "addr", cfg.GatewayAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
