package main

import (
	"chat-lounge/auth"
	"chat-lounge/infrastructure/ws/server"
	"chat-lounge/internal"
	"chat-lounge/observability"
	"chat-lounge/projection"
	"chat-lounge/repositories"
	"chat-lounge/runtime"
	"chat-lounge/runtime/workers"
	"chat-lounge/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives.
// Errors bubble up here so deferred cleanups always run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	charReplacement, _ := internal.CharacterRune(config.CharReplacement)
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), in memory when no path is given
	options := badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING)
	if config.BadgerFilepath == "" {
		options = options.WithInMemory(true)
	}
	db, err := badger.Open(options)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messages := projection.NewMessageLog(nil)
	if config.BadgerFilepath != "" {
		messages = projection.NewMessageLog(repositories.NewMessageRepository(db, log, config.LimitMessages))
	}

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewChatMetrics(reg)

	// 4. Room & Supervision
	registry := runtime.NewRegistry()
	hub := workers.NewBroadcastHub(log, registry, config.SinkTimeout, metrics)
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, registry, hub, messages, metrics,
		config.ModerationEnabled, charReplacement)

	// 5. Services & Transport
	tokens := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(log, repositories.NewUserRepository(db), tokens)
	chatService := services.NewChatService(orchestrator)
	chatServer := server.NewChatServer(log, chatService, authService, metrics,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), server.Settings{
			ConnectionBufferSize: config.ConnectionBufferSize,
			WriteTimeout:         config.WriteTimeout,
			PongTimeout:          config.PongTimeout,
			PingInterval:         config.PingInterval,
			MaxContentLength:     config.MaxContentLength,
		})

	orchestrator.Add(
		server.NewHttpWorker(log, config.Address(), chatServer, shutdownTimeout),
		workers.NewHeartbeatWorker(log, metrics, config.MetricInterval),
		workers.NewQueueDepthWorker(log, registry, metrics, config.MetricInterval),
	)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start blocks until the signal context is done and every worker returned
	log.Info("Starting chat lounge", "address", config.Address(), "persistent", config.BadgerFilepath != "")
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
