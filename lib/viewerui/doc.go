// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package viewerui provides the interactive document viewer TUI. Built
// on bubbletea (Elm architecture), the model consumes pipeline events
// (page count, encoded pages, search results) and turns keyboard input
// into session commands: page navigation, document search, and reload.
//
// The model never blocks on the pipeline: events arrive through the
// session's unbounded event queue, delivered one at a time as bubbletea
// messages. Pages the pipeline has not encoded yet render as a
// placeholder until their PageReadyEvent lands.
package viewerui
