package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolpe/remcon/internal/logger"
	"github.com/avolpe/remcon/pkg/config"
	"github.com/avolpe/remcon/pkg/console"
	"github.com/avolpe/remcon/pkg/invoke"
	"github.com/avolpe/remcon/pkg/stats"
)

func main() {
	// Server configuration flags
	configPath := flag.String("config", "", "Path to configuration file (default: search standard locations)")
	port := flag.Int("port", 0, "Override console port")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	tickInterval := flag.Duration("tick", 50*time.Millisecond, "Command dispatch tick interval")

	// Config management flags
	generateConfig := flag.Bool("generate-config", false, "Write a default configuration file and exit")
	force := flag.Bool("force", false, "Overwrite an existing configuration file with -generate-config")

	flag.Parse()

	if *generateConfig {
		path, err := config.InitConfig(*force)
		if err != nil {
			log.Fatalf("Failed to generate configuration: %v", err)
		}
		fmt.Printf("Configuration written to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags take precedence over file and environment.
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetOutput(cfg.Logging.Output)

	fmt.Println("remcon - remote command console")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metrics stats.ConsoleMetrics = stats.NoopConsoleMetrics{}
	if cfg.Metrics.Enabled {
		stats.InitRegistry()
		metrics = stats.NewConsoleMetrics()

		metricsServer := stats.NewServer(stats.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	events := console.NewEventSink(cfg.Console.EventBuffer)
	manager := console.NewConnectionManager(cfg.Server, metrics, events)
	dispatcher := console.NewDispatcher(cfg.Console, manager, events, metrics)

	invoker, err := buildInvoker(cfg)
	if err != nil {
		log.Fatalf("Failed to resolve command bindings: %v", err)
	}
	dispatcher.SetInvoker(invoker)

	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start console server: %v", err)
	}

	logger.Info("Console is running. Press Ctrl+C to stop.")

	// The host tick loop: drain queued commands and surface console
	// events. An embedding application would call Drain from its own
	// main loop instead.
	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			dispatcher.Drain()
		case ev := <-events.Events():
			logEvent(ev)
		case <-ctx.Done():
			break loop
		}
	}

	logger.Info("Shutting down console...")
	manager.Stop()
}

// buildInvoker registers the built-in runtime target and resolves the
// configured command bindings against it. Binding errors are fatal at
// startup so a typoed signature never waits for first use to surface.
func buildInvoker(cfg *config.Config) (*invoke.Invoker, error) {
	inv := invoke.New()
	started := time.Now()

	runtimeMethods := []invoke.Method{
		{
			Name:   "SetLogLevel",
			Params: []invoke.Kind{invoke.KindString},
			Call: func(args []any) error {
				level := args[0].(string)
				logger.SetLevel(level)
				logger.Info("Log level changed to %s", level)
				return nil
			},
		},
		{
			Name:   "Echo",
			Params: []invoke.Kind{invoke.KindString},
			Call: func(args []any) error {
				logger.Info("echo: %s", args[0].(string))
				return nil
			},
		},
		{
			Name: "Uptime",
			Call: func([]any) error {
				logger.Info("Uptime: %v", time.Since(started).Round(time.Second))
				return nil
			},
		},
	}
	if err := inv.RegisterTarget("runtime", runtimeMethods); err != nil {
		return nil, err
	}

	// Always-available bindings for the runtime target.
	defaults := []struct{ command, target, signature string }{
		{"loglevel", "runtime", "SetLogLevel(string)"},
		{"echo", "runtime", "Echo(string)"},
		{"uptime", "runtime", "Uptime()"},
	}
	for _, b := range defaults {
		if err := inv.Bind(b.command, b.target, b.signature); err != nil {
			return nil, err
		}
	}

	bindings, err := config.DecodeBindings(cfg)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		if err := inv.Bind(b.Command, b.Target, b.Signature); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

// logEvent surfaces one console event in the server log.
func logEvent(ev console.Event) {
	switch ev.Kind {
	case console.EventServerError, console.EventCommandError:
		logger.Warn("[%s] %s %s", ev.Kind, ev.ClientID, ev.Message)
	case console.EventCommandReceived:
		logger.Debug("[%s] %s %s", ev.Kind, ev.ClientID, ev.Message)
	default:
		logger.Info("[%s] %s %s", ev.Kind, ev.ClientID, ev.Message)
	}
}
