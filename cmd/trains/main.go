package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mini-rodalies-3d/thetrains/internal/config"
	"github.com/mini-rodalies-3d/thetrains/internal/engine"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/sources"
)

func main() {
	once := flag.Bool("once", false, "Render the map, the diagrams and one frame, then exit")
	at := flag.Float64("at", 0, "With -once, the time of the frame in seconds (default: first departure)")
	frames := flag.Bool("frames", true, "Write a glyph frame for every tick")
	flag.Parse()

	if err := run(*once, *at, *frames); err != nil {
		fmt.Fprintf(os.Stderr, "trains: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool, at float64, frames bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	ds, source, err := sources.Load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded",
		slog.String("source", source),
		slog.Int("stations", len(ds.Nodes)),
		slog.Int("trips", len(ds.Trips)))

	renderer := newJSONLinesRenderer(os.Stdout, logger, frames)
	eng, err := engine.Init(ds, renderer, engine.OptionsFromConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer eng.Teardown()

	if once {
		eng.Resize(cfg.MareyWidth)
		t := eng.Time()
		if at != 0 {
			t = at
		}
		eng.SelectTime(t)
		return nil
	}

	eng.OnResize(cfg.MareyWidth)
	eng.Start(ctx)
	logger.Info("engine running", slog.String("session_id", eng.Session()))

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
