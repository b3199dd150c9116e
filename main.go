package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/k0kubun/go-ansi"
	"github.com/mos9527/librespot-dl/archive"
	"github.com/mos9527/librespot-dl/bot"
	"github.com/mos9527/librespot-dl/config"
	"github.com/mos9527/librespot-dl/downloader"
	"github.com/mos9527/librespot-dl/playlist"
	"github.com/mos9527/librespot-dl/storage"
	"github.com/mos9527/librespot-dl/tagger"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	var args config.Args
	parser, err := arg.NewParser(arg.Config{Program: "librespot-dl"}, &args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := parser.Parse(os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, arg.ErrHelp):
			parser.WriteHelp(os.Stdout)
			return 0
		case errors.Is(err, arg.ErrVersion):
			fmt.Println(args.Version())
			return 0
		default:
			parser.WriteUsage(os.Stderr)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	file, err := config.LoadFile(args.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	cfg, err := config.Resolve(&args, file, config.NewEnvValidator())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	var counterOpts []downloader.CounterOption
	if !cfg.NoProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		counterOpts = append(counterOpts, downloader.WithProgressBar(ansi.NewAnsiStderr()))
	}
	counter := downloader.NewProgressCounter(counterOpts...)

	logger, err := config.NewLogger(cfg.LogLevel, counter.LogWriter(os.Stderr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locator, err := downloader.Resolve(cfg.URL)
	if err != nil {
		logger.Error("Invalid URL", zap.String("url", cfg.URL), zap.Error(err))
		return 1
	}

	sess, err := login(ctx, cfg, logger)
	if err != nil {
		logger.Error("Login failed", zap.Error(err))
		return 1
	}
	logger.Info(fmt.Sprintf("Logged in as %s", sess.Username()))

	options := []downloader.OrchestratorOption{
		downloader.WithLogger(logger),
		downloader.WithProgressCounter(counter),
	}

	if cfg.Archive != "" {
		a, err := archive.Open(cfg.Archive, logger)
		if err != nil {
			logger.Error("Failed to open archive", zap.Error(err))
			return 1
		}
		defer a.Close()
		options = append(options, downloader.WithArchive(a))
	}

	if cfg.GCSBucket != "" {
		cwd, err := os.Getwd()
		if err != nil {
			logger.Error("Failed to resolve working directory", zap.Error(err))
			return 1
		}
		uploader, err := storage.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSPrefix, cwd, cfg.GCSCredentials, logger)
		if err != nil {
			logger.Error("Failed to set up uploads", zap.Error(err))
			return 1
		}
		defer uploader.Close()
		options = append(options, downloader.WithUploader(uploader))
	}

	if cfg.Telegram != nil {
		if reporter, stopBot := startNotifier(cfg.Telegram, logger); reporter != nil {
			defer stopBot()
			options = append(options, downloader.WithReporter(reporter))
		}
	}

	orchestrator := downloader.NewOrchestrator(sess, tagger.NewWriter(logger), cfg.DownloaderOptions(), options...)
	summary, err := orchestrator.Run(ctx, locator)
	if err != nil {
		logger.Error("Download failed", zap.Error(err))
		return 1
	}

	if cfg.M3U != "" {
		if err := playlist.Write(cfg.M3U, playlist.FromSummary(summary)); err != nil {
			logger.Warn("Failed to write playlist", zap.String("path", cfg.M3U), zap.Error(err))
		} else {
			logger.Info(fmt.Sprintf("Playlist written to %s", cfg.M3U))
		}
	}

	if summary.HasFailures() && cfg.FailExitCode != 0 {
		return cfg.FailExitCode
	}
	return 0
}

// startNotifier logs the Telegram bot in. Notification problems never stop a download.
func startNotifier(cfg *config.TelegramConfig, logger *zap.Logger) (downloader.ProgressReporter, func()) {
	tb, err := bot.NewTelegramBot(cfg, logger)
	if err == nil {
		err = tb.Start()
	}
	if err != nil {
		logger.Warn("Telegram notifications disabled", zap.Error(err))
		return nil, nil
	}

	reporter, err := tb.Reporter()
	if err != nil {
		tb.Stop()
		logger.Warn("Telegram notifications disabled", zap.Error(err))
		return nil, nil
	}
	return reporter, tb.Stop
}
