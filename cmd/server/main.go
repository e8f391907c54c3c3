package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"chat-server/moderation"
	"chat-server/runtime"
	"chat-server/runtime/workers"
	"chat-server/tcp"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups execute before the
// process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	// A positional port argument overrides the environment, so the
	// server can still be launched as `chat-server 9090`.
	if len(os.Args) >= 2 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil {
			return fmt.Errorf("invalid port argument %q: %w", os.Args[1], err)
		}
		config.Port = port
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation (optional)
	var moderator *moderation.Moderator
	if config.ModerationWords != "" {
		maskRune, err := config.CharacterRune()
		if err != nil {
			return err
		}
		moderator, err = moderation.NewModerator(strings.Split(config.ModerationWords, ","), maskRune)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		log.Info("Moderation enabled")
	}

	// 3. Registry & Server
	registry := runtime.NewRoomRegistry(log)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := tcp.NewServer(log, registry, moderator, address, config.ShutdownGrace)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoringWorker(log, config.MetricInterval, server, registry))
	go sup.Run(ctx)

	// 6. Listener
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx)
	}()

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		runErr = <-serverDone
	case runErr = <-serverDone:
	}

	// 8. Final Cleanup
	sup.Stop()
	if runErr != nil {
		return runErr
	}
	log.Info("Program stopped cleanly")
	return nil
}
