// Package main is the entry point for the interactive mesh viewer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/internal/config"
	"github.com/Faultbox/meshtex/internal/imagery"
	"github.com/Faultbox/meshtex/internal/logger"
	"github.com/Faultbox/meshtex/internal/modelbuffer"
	"github.com/Faultbox/meshtex/internal/producer"
	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/internal/viewer"
	"github.com/Faultbox/meshtex/internal/window"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
		File:    logger.DefaultFileConfig(cfg.Logging.LogFile),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	logger.Info("=== meshtex viewer ===",
		zap.String("source", cfg.Producer.Source),
		zap.String("policy", cfg.Projection.Policy),
	)

	var frames []*imagery.Frame
	if cfg.Images.Manifest != "" {
		var err error
		frames, err = imagery.LoadManifest(cfg.Images.Manifest, cfg.Images.MaxSize)
		if err != nil {
			return err
		}
		logger.Info("source images loaded", zap.Int("count", len(frames)))
	}

	src, closeSrc, err := producer.NewSource(cfg.Producer, logger.Named("source"))
	if err != nil {
		return err
	}
	defer closeSrc()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buf := modelbuffer.New()
	prod := producer.New(buf, src, cfg.Producer.PollInterval, logger.Named("producer"))

	prodDone := make(chan error, 1)
	go func() { prodDone <- prod.Run(ctx) }()

	proj := projector.New(
		projector.WithPolicy(cfg.Policy()),
		projector.WithWorkers(cfg.Projection.Workers),
		projector.WithLogger(logger.Named("projector")),
	)

	v, err := viewer.New(viewer.Config{
		Window: window.Config{
			Title:      cfg.Window.Title,
			Width:      cfg.Window.Width,
			Height:     cfg.Window.Height,
			Fullscreen: cfg.Window.Fullscreen,
			VSync:      cfg.Window.VSync,
		},
		Alpha:         cfg.Render.Alpha,
		Textured:      cfg.Render.Textured,
		ExportPath:    cfg.Export.Path,
		ScreenshotDir: cfg.Export.ScreenshotDir,
	}, buf, proj, frames)
	if err != nil {
		stop()
		<-prodDone
		return err
	}
	defer v.Close()

	runErr := v.Run(ctx)

	stop()
	if err := <-prodDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("producer stopped", zap.Error(err))
	}
	stats := prod.Stats()
	logger.Info("producer finished",
		zap.Uint64("published", stats.Published),
		zap.Uint64("failed", stats.Failed),
	)
	return runErr
}
