// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package viewerui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the viewer chrome. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility;
// page content itself goes through the graphics encoder and is not
// themed here.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Status bar.
	StatusForeground lipgloss.Color
	StatusBackground lipgloss.Color

	// Search match indicator and input cursor.
	AccentForeground lipgloss.Color

	// Errors shown in the status bar.
	ErrorForeground lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("243"),
	StatusForeground: lipgloss.Color("252"),
	StatusBackground: lipgloss.Color("236"),
	AccentForeground: lipgloss.Color("75"),
	ErrorForeground:  lipgloss.Color("203"),
}
