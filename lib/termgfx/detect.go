// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package termgfx

import (
	"os"
	"strings"
)

// Detect picks the best graphics protocol for the current terminal
// from environment variables. Detection is conservative: anything
// unrecognized falls back to halfblocks, which every terminal can
// display. An explicit protocol flag or config value overrides this.
func Detect() Protocol {
	return detectFromEnv(os.Getenv)
}

// detectFromEnv is the testable core of Detect.
func detectFromEnv(getenv func(string) string) Protocol {
	term := strings.ToLower(getenv("TERM"))
	program := strings.ToLower(getenv("TERM_PROGRAM"))

	if getenv("KITTY_WINDOW_ID") != "" ||
		strings.Contains(term, "kitty") ||
		strings.Contains(term, "ghostty") ||
		program == "ghostty" {
		return Kitty
	}

	// WezTerm also speaks kitty graphics, but its iTerm2 support
	// predates it and is complete in older releases too; pick the
	// safer protocol.
	if program == "iterm.app" ||
		program == "wezterm" ||
		program == "mintty" ||
		strings.ToLower(getenv("LC_TERMINAL")) == "iterm2" {
		return ITerm2
	}

	return Halfblocks
}
