package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

const (
	defaultWidth   = 80
	confidenceBars = 20
)

// ReportRenderer renders reports as styled terminal text.
type ReportRenderer struct {
	width   int
	noColor bool
	verbose bool
}

// RendererOption configures a ReportRenderer.
type RendererOption func(*ReportRenderer)

// WithWidth sets the wrap width.
func WithWidth(w int) RendererOption {
	return func(r *ReportRenderer) {
		if w > 20 {
			r.width = w
		}
	}
}

// WithNoColor disables styling. Output is then plain text.
func WithNoColor(noColor bool) RendererOption {
	return func(r *ReportRenderer) {
		r.noColor = noColor
	}
}

// WithVerbose includes every round instead of only the final one.
func WithVerbose(v bool) RendererOption {
	return func(r *ReportRenderer) {
		r.verbose = v
	}
}

// NewReportRenderer creates a renderer.
func NewReportRenderer(opts ...RendererOption) *ReportRenderer {
	r := &ReportRenderer{width: defaultWidth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ReportRenderer) style() lipgloss.Style {
	return lipgloss.NewStyle()
}

func (r *ReportRenderer) fg(s lipgloss.Style, c lipgloss.Color) lipgloss.Style {
	if r.noColor {
		return s
	}
	return s.Foreground(c)
}

// Render renders a stored report with its identity header.
func (r *ReportRenderer) Render(stored *core.StoredReport) string {
	var b strings.Builder
	muted := r.fg(r.style(), ColorTextMuted)

	b.WriteString(muted.Render(fmt.Sprintf("Report %s  %s", stored.ID, stored.CreatedAt.Format("2006-01-02 15:04:05 MST"))))
	b.WriteString("\n")
	if stored.DocumentPreview != "" {
		b.WriteString(muted.Render(fmt.Sprintf("%q", stored.DocumentPreview)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(r.RenderReport(stored.Report))
	return b.String()
}

// RenderReport renders the verdict, the rounds and the advisory.
func (r *ReportRenderer) RenderReport(report *core.ConsensusReport) string {
	if report == nil {
		return "no report\n"
	}
	var b strings.Builder
	b.WriteString(r.renderHeadline(report))
	b.WriteString("\n\n")

	rounds := report.Rounds
	if !r.verbose && len(rounds) > 1 {
		rounds = rounds[len(rounds)-1:]
	}
	for _, round := range rounds {
		b.WriteString(r.renderRound(round))
		b.WriteString("\n")
	}

	if report.Advisory != nil {
		b.WriteString(r.renderAdvisory(report.Advisory))
	} else if report.AdvisoryError != "" {
		warn := r.fg(r.style(), ColorWarning)
		b.WriteString(warn.Render("Advisory unavailable: " + report.AdvisoryError))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *ReportRenderer) renderHeadline(report *core.ConsensusReport) string {
	title := r.fg(r.style().Bold(true), SentimentColor(report.FinalSentiment)).
		Render(strings.ToUpper(string(report.FinalSentiment)))

	agreement := r.fg(r.style(), AgreementColor(report.AgreementLevel)).
		Render(string(report.AgreementLevel) + " agreement")

	consensus := "consensus reached"
	if !report.ConsensusReached {
		consensus = "no consensus"
	}
	lines := []string{
		fmt.Sprintf("%s  %s  %s", title, agreement, consensus),
		fmt.Sprintf("confidence %s %.2f", ConfidenceBar(report.FinalConfidence, confidenceBars), report.FinalConfidence),
		fmt.Sprintf("rounds %d  votes %s", len(report.Rounds), formatVotes(report.VoteWeights)),
	}
	if report.LowConfidence {
		lines = append(lines, r.fg(r.style().Bold(true), ColorError).Render("LOW CONFIDENCE: treat this verdict with caution"))
	}

	box := r.style().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		Width(r.width - 2)
	if !r.noColor {
		box = box.BorderForeground(ColorPrimary)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (r *ReportRenderer) renderRound(round core.Round) string {
	var b strings.Builder
	label := "Initial round"
	if round.Index > 0 {
		label = fmt.Sprintf("Discussion round %d", round.Index)
	}
	heading := r.fg(r.style().Bold(true), ColorSecondary)
	b.WriteString(heading.Render(fmt.Sprintf("%s  disagreement %.3f", label, round.DisagreementScore)))
	b.WriteString("\n")

	roleWidth := 0
	for _, v := range round.Verdicts {
		roleWidth = max(roleWidth, len(v.Role))
	}
	muted := r.fg(r.style(), ColorTextMuted)
	for _, v := range round.Verdicts {
		role := fmt.Sprintf("  %-*s  ", roleWidth, v.Role)
		if v.Degraded {
			b.WriteString(role)
			b.WriteString(r.fg(r.style(), ColorError).Render("degraded"))
			if v.Error != "" {
				b.WriteString(muted.Render("  " + core.Truncate(v.Error, r.width/2)))
			}
			b.WriteString("\n")
			continue
		}
		sentiment := r.fg(r.style().Width(9), SentimentColor(v.Sentiment)).Render(string(v.Sentiment))
		b.WriteString(fmt.Sprintf("%s%s %.2f", role, sentiment, v.Confidence))
		if v.Reasoning != "" {
			reasoning := core.Truncate(v.Reasoning, max(r.width-roleWidth-20, 20))
			b.WriteString(muted.Render("  " + reasoning))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (r *ReportRenderer) renderAdvisory(a *core.Advisory) string {
	md := AdvisoryMarkdown(a)
	if r.noColor {
		return md
	}
	style := styles.DraculaStyleConfig
	style.Code = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Color:           stringPtr("229"),
			BackgroundColor: stringPtr(""),
		},
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// AdvisoryMarkdown renders an advisory as markdown.
func AdvisoryMarkdown(a *core.Advisory) string {
	var b strings.Builder
	b.WriteString("## Advisory")
	if a.Priority != "" {
		fmt.Fprintf(&b, " (priority: %s)", a.Priority)
	}
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(a.Narrative))
	b.WriteString("\n")
	if len(a.Recommendations) > 0 {
		b.WriteString("\n### Recommendations\n\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	return b.String()
}

// RenderSummaries renders a report listing.
func (r *ReportRenderer) RenderSummaries(summaries []core.ReportSummary) string {
	if len(summaries) == 0 {
		return "no reports\n"
	}
	var b strings.Builder
	muted := r.fg(r.style(), ColorTextMuted)
	for _, s := range summaries {
		sentiment := r.fg(r.style().Width(9), SentimentColor(s.FinalSentiment)).Render(string(s.FinalSentiment))
		fmt.Fprintf(&b, "%s  %s  %s %.2f  %-8s  %s\n",
			s.ID,
			muted.Render(s.CreatedAt.Format("2006-01-02 15:04")),
			sentiment,
			s.FinalConfidence,
			s.AgreementLevel,
			muted.Render(core.Truncate(s.DocumentPreview, 40)),
		)
	}
	return b.String()
}

// RenderRoles renders a role catalog.
func (r *ReportRenderer) RenderRoles(profiles []core.RoleProfile, defaults []string) string {
	isDefault := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		isDefault[d] = true
	}
	var b strings.Builder
	name := r.fg(r.style().Bold(true), ColorSecondary)
	muted := r.fg(r.style(), ColorTextMuted)
	for _, p := range profiles {
		tags := []string{fmt.Sprintf("weight %.1f", p.VoteWeight())}
		if isDefault[p.Name] {
			tags = append(tags, "default")
		}
		if p.Advisory {
			tags = append(tags, "advisory")
		}
		fmt.Fprintf(&b, "%s  %s  %s\n", name.Render(p.Name), p.Title, muted.Render("("+strings.Join(tags, ", ")+")"))
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", muted.Render(p.Description))
		}
	}
	return b.String()
}

// ConfidenceBar draws a fixed-width bar for a value in [0,1].
func ConfidenceBar(value float64, width int) string {
	filled := int(core.Clamp01(value)*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatVotes(weights map[core.Sentiment]float64) string {
	parts := make([]string, 0, len(weights))
	for _, s := range core.AllSentiments() {
		if w, ok := weights[s]; ok && w > 0 {
			parts = append(parts, fmt.Sprintf("%s=%.2f", s, w))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// stringPtr returns a pointer to a string (helper for glamour style config)
func stringPtr(s string) *string {
	return &s
}
