package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tools.zach/dev/shotd/internal/action"
	"tools.zach/dev/shotd/internal/config"
	"tools.zach/dev/shotd/internal/events"
	"tools.zach/dev/shotd/internal/logger"
	"tools.zach/dev/shotd/internal/loop"
	"tools.zach/dev/shotd/internal/paths"
	"tools.zach/dev/shotd/internal/pidfile"
	"tools.zach/dev/shotd/internal/signals"
	"tools.zach/dev/shotd/internal/update"
	"tools.zach/dev/shotd/internal/watcher"
)

// runDaemon wires the queue, signal monitor, watcher and event loop and
// blocks until the loop stops. Any error it returns is a setup failure;
// once the loop is running the daemon always shuts down cleanly.
func runDaemon(ctx context.Context, dd paths.DataDir, watchDir string, stderr io.Writer) error {
	if err := dd.Ensure(); err != nil {
		return err
	}

	pid, err := pidfile.Acquire(dd.PID())
	if err != nil {
		return err
	}
	defer pid.Release()

	cfg, err := config.Load(dd.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if watchDir != "" {
		cfg.Watch.Dir = watchDir
	}

	level, _ := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(logger.Options{
		Path:      dd.Log(),
		Level:     level,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   logger.Console(cfg.Log.Console),
		Stderr:    stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	log.Info("shotd starting", "version", ver, "data_dir", dd.Root, "pid", os.Getpid())

	handler, err := buildHandler(cfg.Action)
	if err != nil {
		return err
	}

	dir, err := cfg.ResolveWatchDir()
	if err != nil {
		return err
	}

	q := events.NewQueue()

	mon := signals.New(q, signals.WithLogger(log))
	if err := mon.Start(); err != nil {
		return fmt.Errorf("register signal handler: %w", err)
	}
	defer mon.Stop()

	opts := []watcher.Option{
		watcher.WithLogger(log),
		watcher.WithDebounce(cfg.Watch.Debounce()),
		watcher.WithFilter(watcher.Filter{Include: cfg.Watch.Include, Ignore: cfg.Watch.Ignore}),
		watcher.WithPollInterval(cfg.Watch.PollInterval()),
	}
	if cfg.Watch.ForcePolling {
		opts = append(opts, watcher.WithPolling(cfg.Watch.PollInterval()))
	}
	w, err := watcher.New(dir, q, opts...)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	log.Info("watching for screenshots",
		"dir", w.Dir(),
		"action", cfg.Action.Kind,
		"polling", w.Polling(),
	)

	if cfg.Update.Check {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("update check panic", "error", r)
				}
			}()
			update.Check(ctx, log, ver)
		}()
	}

	logStopped(log, loop.New(q, handler, loop.WithLogger(log)).Run(ctx))
	return nil
}

// logStopped reports why the loop returned. An Exit event only ever comes
// from the signal monitor.
func logStopped(log *slog.Logger, stats loop.Stats) {
	if stats.Reason == loop.ReasonExit {
		log.Info("shutting down after signal")
	}
	log.Info("shotd stopped", "reason", stats.Reason.String())
}

// buildHandler returns the handler for the configured action kind. Every
// kind other than log is preceded by [action.Log] so each screenshot is
// recorded even when the action fails.
func buildHandler(ac config.ActionConfig) (action.Handler, error) {
	switch ac.Kind {
	case config.KindLog:
		return action.Log{}, nil
	case config.KindMove:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		return action.Chain{
			action.Log{},
			action.Move{Dir: config.ExpandHome(ac.Move.Dir, home), DateSubdirs: ac.Move.DateSubdirs},
		}, nil
	case config.KindExec:
		return action.Chain{
			action.Log{},
			action.Exec{Command: ac.Exec.Command, Timeout: ac.Exec.Timeout()},
		}, nil
	case config.KindUpload:
		return action.Chain{
			action.Log{},
			action.NewUpload(ac.Upload.URL, action.UploadOptions{
				Field:    ac.Upload.Field,
				Headers:  ac.Upload.Headers,
				Timeout:  ac.Upload.Timeout(),
				RetryMax: ac.Upload.RetryMax,
			}),
		}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", ac.Kind)
	}
}
