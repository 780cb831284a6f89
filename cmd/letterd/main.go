package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/wudi/letterkit/assets"
	"github.com/wudi/letterkit/config"
	"github.com/wudi/letterkit/letter"
	"github.com/wudi/letterkit/observability"
	"github.com/wudi/letterkit/server"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "letterd: %v\n", err)
			os.Exit(2)
		}
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(newLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(newAssets),
		fx.Provide(newRenderer),
		server.Module,
	)
	app.Run()
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := observability.BuildZap(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// newAssets fetches the configured fonts and logo once at startup. Missing
// assets leave their slot empty and renders use the built-in fallbacks.
func newAssets(cfg *config.Config, log *zap.Logger) *assets.Bundle {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Assets.FetchTimeout)
	defer cancel()
	loader := assets.NewLoader(assets.Config{
		Timeout: cfg.Assets.FetchTimeout,
		MaxSize: cfg.Assets.MaxSize,
	}, observability.NewZapLogger(log.Named("assets")))
	return loader.Load(ctx, assets.Sources{
		BodyFont:    cfg.Assets.BodyFont,
		HeadingFont: cfg.Assets.HeadingFont,
		Logo:        cfg.Assets.Logo,
	})
}

func newRenderer(cfg *config.Config, log *zap.Logger) *letter.Renderer {
	return letter.NewRenderer(letter.Options{
		Logger:        observability.NewZapLogger(log.Named("render")),
		Tracer:        observability.NewOTelTracer(otel.Tracer("letterkit/letter")),
		Compression:   cfg.Render.Compression,
		Producer:      cfg.Render.Producer,
		Deterministic: cfg.Render.Deterministic,
	})
}
