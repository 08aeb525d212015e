// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// folio is a terminal document viewer. It renders document pages
// through the reconciliation pipeline and draws them with the best
// graphics protocol the terminal supports: Kitty graphics, iTerm2
// inline images, or Unicode half-block cells as the universal
// fallback.
//
// Configuration comes from a YAML file (FOLIO_CONFIG or --config) with
// flag overrides. Encoded pages are cached on disk keyed by document
// fingerprint, viewport, and encoder settings, so reopening a document
// at the same size is instant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/folio-foundation/folio/lib/config"
	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pagecache"
	"github.com/folio-foundation/folio/lib/pipeline"
	"github.com/folio-foundation/folio/lib/render/imagedoc"
	"github.com/folio-foundation/folio/lib/termgfx"
	"github.com/folio-foundation/folio/lib/version"
	"github.com/folio-foundation/folio/lib/viewerui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var protocolFlag string
	var prerender int
	var black, white int
	var noCache bool
	var cacheDir string
	var logOutput string

	flagSet := pflag.NewFlagSet("folio", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to folio.yaml (default: $FOLIO_CONFIG)")
	flagSet.StringVar(&protocolFlag, "protocol", "", "graphics protocol: auto, kitty, iterm2, halfblocks")
	flagSet.IntVar(&prerender, "prerender", 0, "pages around the current page to encode eagerly")
	flagSet.IntVar(&black, "black", -1, "luminance floor: pixels at or below render as black (0-255)")
	flagSet.IntVar(&white, "white", -1, "luminance ceiling: pixels at or above render as white (0-255)")
	flagSet.BoolVar(&noCache, "no-cache", false, "disable the on-disk page cache")
	flagSet.StringVar(&cacheDir, "cache-dir", "", "page cache directory")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Folio binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("folio")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected exactly one document path, got %d arguments", len(args))
	}
	documentPath := args[0]

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, flagSet, protocolFlag, prerender, black, white, noCache, cacheDir, logOutput)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLogger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	document, err := imagedoc.Open(documentPath)
	if err != nil {
		return err
	}

	protocol, err := cfg.Protocol()
	if err != nil {
		return err
	}

	columns, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return fmt.Errorf("stdout is not a terminal: %w", err)
	}

	font := cfg.Font()
	window := geometry.WindowSize{
		Columns: columns,
		Rows:    rows,
		Width:   columns * font.Width,
		Height:  rows * font.Height,
	}

	encoder := termgfx.Encoder{
		Protocol: protocol,
		Profile:  termenv.ColorProfile(),
		Black:    cfg.Display.Black,
		White:    cfg.Display.White,
		Font:     font,
	}

	var cache *pagecache.Cache
	if cfg.Cache.Enabled {
		tag, tagErr := pagecache.ParseCompressionTag(cfg.Cache.Compression)
		if tagErr != nil {
			return tagErr
		}
		cache, err = pagecache.New(cfg.Cache.Dir, tag, logger)
		if err != nil {
			// The cache is an accelerator, never a requirement.
			logger.Warn("page cache disabled", "error", err)
			cache = nil
		}
	}

	session := pipeline.Start(document, pipeline.Options{
		Window: window,
		// One row is reserved for the viewer's status bar.
		Area:      geometry.Rect{Width: columns, Height: rows - 1},
		Encoder:   encoder,
		Prerender: cfg.Render.Prerender,
		Cache:     cache,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := viewerui.NewModel(session, font, filepath.Base(documentPath))
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		_, runErr := session.Run(ctx)
		program.Send(viewerui.SessionDoneMsg{Err: runErr})
	}()

	_, err = program.Run()
	return err
}

// loadConfig loads from the --config path when given, otherwise from
// FOLIO_CONFIG, otherwise the built-in defaults.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// applyFlagOverrides lets command-line flags win over the config file.
// Only flags the user actually set are applied.
func applyFlagOverrides(cfg *config.Config, flagSet *pflag.FlagSet,
	protocol string, prerender, black, white int, noCache bool, cacheDir, logOutput string) {
	if flagSet.Changed("protocol") {
		cfg.Display.Protocol = protocol
	}
	if flagSet.Changed("prerender") {
		cfg.Render.Prerender = prerender
	}
	if flagSet.Changed("black") {
		cfg.Display.Black = black
	}
	if flagSet.Changed("white") {
		cfg.Display.White = white
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flagSet.Changed("cache-dir") {
		cfg.Cache.Dir = cacheDir
	}
	if flagSet.Changed("log-output") {
		cfg.Log.Output = logOutput
	}
}

// openLogger builds the background logger. Records go to a JSON file
// when configured; otherwise logging is discarded, because stderr
// belongs to the alt-screen TUI while the viewer runs.
func openLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Log.Output == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	file, err := os.Create(cfg.Log.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %s: %w", cfg.Log.Output, err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})
	return slog.New(handler), func() { file.Close() }, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Folio — terminal document viewer.

Renders document pages with the best graphics protocol the terminal
supports (Kitty graphics, iTerm2 inline images, or half-block cells)
and keeps nearby pages pre-rendered for instant navigation.

The document argument is a directory of PNG/JPEG page images or a
single image file.

Usage:
  folio [flags] <document>

Examples:
  # View a directory of scanned pages
  folio ~/scans/contract/

  # Force half-block rendering with tightened contrast
  folio --protocol halfblocks --black 40 --white 215 doc/

  # Debug the pipeline with a log file
  folio --log-output /tmp/folio.log doc/

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
