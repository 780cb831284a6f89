package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wudi/letterkit/assets"
	"github.com/wudi/letterkit/config"
	"github.com/wudi/letterkit/letter"
	"github.com/wudi/letterkit/observability"
)

type options struct {
	configPath   string
	payloadPath  string
	markdownPath string
	logoPath     string
	outPath      string
	template     bool
	stats        bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "letterpdf: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "letterpdf: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("letterpdf", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: letterpdf [flags]\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.payloadPath, "payload", "", "Letter payload (.yaml, .yml or .json); defaults to the template letter")
	fs.StringVar(&opts.markdownPath, "markdown", "", "Markdown draft applied over the payload")
	fs.StringVar(&opts.logoPath, "logo", "", "Logo image overriding the configured one")
	fs.StringVar(&opts.outPath, "o", "", "Output file, or - for stdout (default: derived from reference and recipient)")
	fs.BoolVar(&opts.template, "template", false, "Print the template payload as YAML and exit")
	fs.BoolVar(&opts.stats, "stats", false, "Print payload statistics and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return options{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}
	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	zl, err := observability.BuildZap(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer zl.Sync()
	log := observability.NewZapLogger(zl)

	now := time.Now()
	if opts.template {
		return yaml.NewEncoder(stdout).Encode(letter.DefaultPayload(now))
	}

	payload, err := loadPayload(opts.payloadPath, now)
	if err != nil {
		return err
	}
	if opts.markdownPath != "" {
		src, err := os.ReadFile(opts.markdownPath)
		if err != nil {
			return fmt.Errorf("read markdown: %w", err)
		}
		payload = letter.ApplyMarkdown(payload, src)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if opts.stats {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(letter.ComputeStats(payload, now))
	}

	src := assets.Sources{
		BodyFont:    cfg.Assets.BodyFont,
		HeadingFont: cfg.Assets.HeadingFont,
		Logo:        cfg.Assets.Logo,
	}
	if opts.logoPath != "" {
		src.Logo = opts.logoPath
	}
	loader := assets.NewLoader(assets.Config{Timeout: cfg.Assets.FetchTimeout, MaxSize: cfg.Assets.MaxSize}, log)
	bundle := loader.Load(ctx, src)

	renderer := letter.NewRenderer(letter.Options{
		Logger:        log,
		Compression:   cfg.Render.Compression,
		Producer:      cfg.Render.Producer,
		Deterministic: cfg.Render.Deterministic,
	})
	out, err := renderer.Render(ctx, letter.Request{
		Payload:    payload,
		Letterhead: cfg.Letterhead,
		Fonts:      bundle.Fonts,
		Logo:       bundle.Logo,
	})
	if err != nil {
		return err
	}

	switch opts.outPath {
	case "-":
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("refusing to write PDF to a terminal; use -o <file>")
		}
		_, err = stdout.Write(out.Data)
		return err
	case "":
		opts.outPath = out.Filename
	}
	if err := writeFileAtomic(opts.outPath, out.Data); err != nil {
		return err
	}
	zl.Info("letter written",
		zap.String("path", opts.outPath),
		zap.Int("pages", out.Pages),
		zap.Int("bytes", len(out.Data)))
	return nil
}

// loadPayload reads a payload file, or returns the template letter when
// path is empty.
func loadPayload(path string, now time.Time) (letter.Payload, error) {
	if path == "" {
		return letter.DefaultPayload(now), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return letter.Payload{}, fmt.Errorf("read payload: %w", err)
	}
	var p letter.Payload
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		return letter.Payload{}, fmt.Errorf("payload %s: unsupported extension", path)
	}
	if err != nil {
		return letter.Payload{}, fmt.Errorf("parse payload %s: %w", path, err)
	}
	return p, nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// failed export never leaves a partial file behind.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".letterpdf-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
