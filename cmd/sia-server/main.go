// Command sia-server receives SIA DC-09 events from a Honeywell Galaxy Flex
// panel, parses them, and forwards notifications to ntfy.sh-style topics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mvndaai/galaxy-sia/internal/adapter/galaxy"
	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/ipcheck"
	"github.com/mvndaai/galaxy-sia/internal/logger"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
	"github.com/mvndaai/galaxy-sia/internal/notify"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/charmap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `sia-server - Honeywell Galaxy Flex SIA DC-09 event receiver

Usage:
  sia-server <command> [flags]

Commands:
  init     Write a sample configuration file
  start    Start the receiver
  version  Show version information

Flags:
  --config string    Path to config file (default: ./sia-server.yaml)

Environment Variables:
  Options set in the config file can be overridden using environment variables.
  Format: SIA_<SECTION>_<KEY> (use underscores for nested keys), e.g.
  SIA_LOGGING_LEVEL=DEBUG sia-server start
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "start":
		runStart()
	case "version", "--version", "-v":
		fmt.Printf("sia-server %s (commit: %s, built: %s)\n", version, commit, date)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "sia-server.yaml", "Path to config file")
	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	if _, err := os.Stat(*configFile); err == nil {
		log.Fatalf("config file already exists: %s", *configFile)
	}

	cfg := config.GetDefaultConfig()
	cfg.Accounts = map[string]config.AccountConfig{
		config.DefaultAccountKey: {
			SiteName: "Default Site",
			Enabled:  false,
			TopicURL: "https://ntfy.sh/change-me",
			Title:    "Alarm",
		},
	}
	if err := config.SaveConfig(cfg, *configFile); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}
	fmt.Printf("Configuration file created at: %s\n", *configFile)
}

func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file")
	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	logger.Info("sia-server starting", "version", version, "commit", commit)

	charMapKeys, err := charmap.ParseConfigKeys(cfg.CharMap)
	if err != nil {
		log.Fatalf("invalid char_map configuration: %v", err)
	}
	charMap := charmap.Merge(charMapKeys)

	var m *metrics.Metrics
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		m = metrics.New(reg)
	} else {
		m = metrics.NewDisabled()
	}

	sender := notify.NewHTTPSender(nil)
	dispatcher := notify.NewDispatcher(cfg, sender, m)
	listener := galaxy.NewListener(cfg, dispatcher, m, charMap)
	ipListener := ipcheck.NewListener(cfg.IPCheck)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return listener.Serve(gctx)
	})
	if cfg.IPCheck.Enabled {
		g.Go(func() error {
			return ipListener.Serve(gctx)
		})
	}
	if cfg.Metrics.Enabled {
		metricsSrv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Addr, cfg.Metrics.Port),
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		g.Go(func() error {
			logger.Info("metrics endpoint started", "addr", metricsSrv.Addr)
			err := metricsSrv.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsSrv.Close()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("sia-server running, press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	case <-gctx.Done():
		logger.Warn("a component stopped unexpectedly, shutting down")
	}
	signal.Stop(sigCh)

	if err := g.Wait(); err != nil {
		logger.Error("sia-server exited with error", logger.Err(err))
		os.Exit(1)
	}
	logger.Info("sia-server stopped")
}
