// Package tui renders finished analyses for the terminal.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan

	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue

	ColorText      = lipgloss.Color("#E5E7EB") // Light gray
	ColorTextMuted = lipgloss.Color("#9CA3AF") // Muted gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
)

// SentimentColor returns the color used for s.
func SentimentColor(s core.Sentiment) lipgloss.Color {
	switch s {
	case core.SentimentPositive:
		return ColorSuccess
	case core.SentimentNegative:
		return ColorError
	case core.SentimentMixed:
		return ColorWarning
	default:
		return ColorInfo
	}
}

// AgreementColor returns the color used for level.
func AgreementColor(level core.AgreementLevel) lipgloss.Color {
	switch level {
	case core.AgreementHigh:
		return ColorSuccess
	case core.AgreementLow:
		return ColorError
	default:
		return ColorWarning
	}
}
