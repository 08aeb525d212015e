// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// folio-bench runs the rendering pipeline headless: it opens a
// document, renders and encodes every page to completion, and reports
// timing. Useful for measuring protocol encoders and cache behavior
// without a terminal in the loop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pagecache"
	"github.com/folio-foundation/folio/lib/pipeline"
	"github.com/folio-foundation/folio/lib/render/imagedoc"
	"github.com/folio-foundation/folio/lib/termgfx"
	"github.com/folio-foundation/folio/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var protocolFlag string
	var columns, rows int
	var prerender int
	var cacheDir string
	var searchTerm string
	var verbose bool

	flagSet := pflag.NewFlagSet("folio-bench", pflag.ContinueOnError)
	flagSet.StringVar(&protocolFlag, "protocol", "halfblocks", "graphics protocol: kitty, iterm2, halfblocks")
	flagSet.IntVar(&columns, "columns", 80, "viewport width in cells")
	flagSet.IntVar(&rows, "rows", 24, "viewport height in cells")
	flagSet.IntVar(&prerender, "prerender", 3, "pages around the target to encode eagerly")
	flagSet.StringVar(&cacheDir, "cache-dir", "", "page cache directory (empty disables caching)")
	flagSet.StringVar(&searchTerm, "search", "", "run a document search before rendering")
	flagSet.BoolVar(&verbose, "verbose", false, "log pipeline activity to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Folio binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("folio-bench")
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

	logger := slog.New(slog.DiscardHandler)
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	protocol, err := termgfx.ParseProtocol(protocolFlag)
	if err != nil {
		return err
	}

	document, err := imagedoc.Open(args[0])
	if err != nil {
		return err
	}

	font := geometry.DefaultFontSize
	encoder := termgfx.Encoder{
		Protocol: protocol,
		Profile:  termenv.TrueColor,
		Black:    0,
		White:    255,
		Font:     font,
	}

	var cache *pagecache.Cache
	if cacheDir != "" {
		cache, err = pagecache.New(cacheDir, pagecache.CompressionLZ4, logger)
		if err != nil {
			return err
		}
	}

	start := time.Now()
	session := pipeline.Start(document, pipeline.Options{
		Window: geometry.WindowSize{
			Columns: columns,
			Rows:    rows,
			Width:   columns * font.Width,
			Height:  rows * font.Height,
		},
		Area:      geometry.Rect{Width: columns, Height: rows},
		Encoder:   encoder,
		Prerender: prerender,
		Cache:     cache,
		Logger:    logger,
	})

	if searchTerm != "" {
		session.Search(searchTerm)
	}

	// Drain events so search results print and the queue never backs up.
	searchDone := make(chan []int, 1)
	go func() {
		var results []int
		for event := range session.Events() {
			if found, ok := event.(pipeline.SearchResultsEvent); ok {
				results = found.Pages
			}
		}
		searchDone <- results
	}()

	pages, err := session.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	searchResults := <-searchDone

	var totalBytes int
	for _, page := range pages {
		totalBytes += len(page.Artifact.Data)
	}

	fmt.Printf("document:  %s\n", args[0])
	fmt.Printf("protocol:  %s\n", protocol)
	fmt.Printf("pages:     %d\n", len(pages))
	fmt.Printf("artifacts: %d bytes\n", totalBytes)
	fmt.Printf("elapsed:   %s (%.1f pages/s)\n",
		elapsed.Round(time.Millisecond), float64(len(pages))/elapsed.Seconds())
	if searchTerm != "" {
		fmt.Printf("search:    %q matched pages %v\n", searchTerm, searchResults)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Folio pipeline benchmark — render a document headless and report timing.

Runs the full render/convert pipeline to completion without a TUI:
every page is rendered, encoded for the selected protocol, and
buffered in order. Repeat runs against a --cache-dir measure the
cache hit path.

Usage:
  folio-bench [flags] <document>

Examples:
  # Encode a directory of page scans with the half-block encoder
  folio-bench ~/scans/contract/

  # Measure kitty encoding at a large viewport
  folio-bench --protocol kitty --columns 200 --rows 60 doc/

  # Second run hits the page cache
  folio-bench --cache-dir /tmp/folio-cache doc/

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
