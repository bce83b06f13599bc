// Command heatcap captures the Finviz heatmaps during US market hours and
// turns each day's screenshots into looping GIFs after the close.
//
// Usage:
//
//	heatcap -path /srv/heatmaps                        # capture forever
//	heatcap -path /srv/heatmaps -adblock ~/ext/ublock  # with an unpacked ad blocker
//	heatcap -config heatcap.yaml -status-addr :8089    # YAML config + status API
//	heatcap -path /srv/heatmaps -assemble 2026-10-16   # assemble one day and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/heatcap/heatcap"
)

type flags struct {
	path       string
	adblock    string
	delay      int
	duration   int
	clean      bool
	configPath string
	envFile    string
	journal    string
	statusAddr string
	webhook    string
	assemble   string
	logLevel   string
	set        map[string]bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("heatcap", flag.ContinueOnError)
	fs.StringVar(&f.path, "path", "", "where to save screenshots and GIFs (must exist)")
	fs.StringVar(&f.adblock, "adblock", "", "unpacked Chrome ad blocker extension directory")
	fs.IntVar(&f.delay, "delay", 60, "seconds between screenshots, 5-3600")
	fs.IntVar(&f.duration, "duration", 50, "length of each GIF frame in milliseconds, 1-10000")
	fs.BoolVar(&f.clean, "clean", true, "delete screenshots after generating GIFs")
	fs.StringVar(&f.configPath, "config", "", "path to heatcap.yaml config file")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file loaded before HEATCAP_* overrides")
	fs.StringVar(&f.journal, "journal", "", "SQLite journal path (empty = off)")
	fs.StringVar(&f.statusAddr, "status-addr", "", "status API listen address, e.g. :8089 (empty = off)")
	fs.StringVar(&f.webhook, "webhook", "", "POST every event to this URL")
	fs.StringVar(&f.assemble, "assemble", "", "assemble this day (YYYY-MM-DD) and exit")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	var level slog.Level
	switch f.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, f); err != nil {
		logger.Error("heatcap: fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults < YAML file < HEATCAP_* environment < flags.
func loadConfig(f *flags, getenv func(string) string) (*heatcap.Config, error) {
	cfg := heatcap.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = heatcap.LoadConfigFile(f.configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if f.envFile != "" {
		if err := heatcap.LoadEnvFile(f.envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	if f.set["path"] {
		cfg.Path = f.path
	}
	if f.set["adblock"] {
		cfg.Browser.Extension = f.adblock
	}
	if f.set["delay"] {
		cfg.Delay = f.delay
	}
	if f.set["duration"] {
		cfg.Duration = f.duration
	}
	if f.set["clean"] {
		cfg.Clean = f.clean
	}
	if f.set["journal"] {
		cfg.Journal.Path = f.journal
	}
	if f.set["status-addr"] {
		cfg.Status.Addr = f.statusAddr
	}
	if f.webhook != "" {
		cfg.Sinks = append(cfg.Sinks, heatcap.SinkConfig{Type: "webhook", URL: f.webhook})
	}

	// The status API reads the journal; give it one next to the output.
	if cfg.Status.Addr != "" && cfg.Journal.Path == "" && cfg.Path != "" {
		cfg.Journal.Path = filepath.Join(cfg.Path, ".heatcap.db")
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, f *flags) error {
	cfg, err := loadConfig(f, os.Getenv)
	if err != nil {
		return err
	}

	r, err := heatcap.New(cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	if f.assemble != "" {
		_, err := r.AssembleDay(ctx, f.assemble)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return r.Run(gctx)
	})

	if h := r.StatusHandler(); h != nil && cfg.Status.Addr != "" {
		srv := heatcap.NewStatusServer(cfg.Status.Addr, h)
		g.Go(func() error {
			logger.Info("heatcap: status api listening", "addr", cfg.Status.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("heatcap: status api shutdown", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("heatcap: stopped")
	return err
}
