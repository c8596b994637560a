// Package report renders a stock Report for people (terminal text, a
// standalone HTML page, PDF) and for the language model (the analyst prompt).
package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockagent/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Narrative: the model's analysis attached to a rendered report
// ════════════════════════════════════════════════════════════════════

// Narrative is the outcome of a narrative request. The zero value means no
// narrative was requested; a non-nil Err is shown in place of the text.
type Narrative struct {
	Text string
	Err  error
}

// Requested reports whether a narrative was asked for at all.
func (n Narrative) Requested() bool {
	return n.Text != "" || n.Err != nil
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// RenderText renders r for a terminal.
func RenderText(r *models.Report) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s (%s)\n", r.CompanyName, r.Ticker))
	sb.WriteString(line + "\n")
	sb.WriteString(fmt.Sprintf("  Current Price: %s\n", r.CurrentPrice))
	sb.WriteString(fmt.Sprintf("  Last updated: %s\n", r.LastUpdated))
	sb.WriteString(thinLine + "\n")

	if len(r.Stats) > 0 {
		sb.WriteString("\n  ■ DETAILED STATISTICS\n")
		for _, cat := range r.Stats {
			sb.WriteString(fmt.Sprintf("\n  %s\n", cat.Name))
			for _, s := range cat.Stats {
				sb.WriteString(fmt.Sprintf("    **%s:** %s\n", s.Label, s.Value))
			}
		}
		sb.WriteString(thinLine + "\n")
	}

	sb.WriteString("\n  ■ RECENT NEWS\n")
	for _, n := range r.News {
		sb.WriteString(fmt.Sprintf("\n  %s\n", n.Headline))
		if caption := n.Caption(); caption != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", caption))
		}
		if n.Summary != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", n.Summary))
		}
		sb.WriteString(fmt.Sprintf("    Read more: %s\n", n.Link))
	}
	sb.WriteString(thinLine + "\n")

	if r.SourceURL != "" {
		sb.WriteString(fmt.Sprintf("  Source: %s\n", r.SourceURL))
	}
	return sb.String()
}

// RenderNarrativeText renders the analysis block printed after the report.
func RenderNarrativeText(n Narrative) string {
	if !n.Requested() {
		return ""
	}
	var sb strings.Builder
	line := strings.Repeat("═", 60)

	sb.WriteString("\n  ■ AI ANALYSIS & RECOMMENDATION\n\n")
	if n.Err != nil {
		sb.WriteString(fmt.Sprintf("  ⚠ Analysis unavailable: %v\n", n.Err))
	} else {
		sb.WriteString(strings.TrimSpace(n.Text) + "\n")
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Disclaimer: This analysis is AI-generated for educational purposes.\n")
	sb.WriteString("  Not financial advice.\n")
	sb.WriteString(line + "\n")
	return sb.String()
}
