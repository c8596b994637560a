package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockagent/pkg/models"
)

// SummaryPromptRunes is how much of each news summary is quoted in the prompt.
const SummaryPromptRunes = 200

// ReportSections are the sections the model is asked to write, in order.
var ReportSections = []string{
	"**Company Overview**: Business model and industry position",
	"**Financial Health**: Analysis of key metrics and ratios",
	"**Valuation Assessment**: Fair value estimate and comparison",
	"**Recent Developments**: News impact analysis",
	"**Investment Thesis**: Conviction level and time horizon",
	"**Recommendation**: Buy/Hold/Sell with price targets",
	"**Risk Factors**: Key risks to the investment thesis",
}

// BuildPrompt renders the analyst prompt for r.
func BuildPrompt(r *models.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze %s (%s) stock with the following data:\n\n", r.Ticker, r.CompanyName))
	sb.WriteString(fmt.Sprintf("**Current Price:** %s\n\n", r.CurrentPrice))
	sb.WriteString("**Key Statistics:**\n")
	sb.WriteString(formatStats(r.Stats))
	sb.WriteString("\n\n**Recent News Highlights:**\n")
	sb.WriteString(formatNews(r.News))
	sb.WriteString("\n\nProvide a comprehensive report with:\n")
	for i, s := range ReportSections {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}
	return sb.String()
}

func formatStats(cats []models.StatCategory) string {
	var sb strings.Builder
	for _, cat := range cats {
		sb.WriteString("\n**" + cat.Name + "**\n")
		lines := make([]string, len(cat.Stats))
		for i, s := range cat.Stats {
			lines[i] = fmt.Sprintf("- %s: %s", s.Label, s.Value)
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
	return sb.String()
}

func formatNews(news []models.NewsEntry) string {
	lines := make([]string, len(news))
	for i, n := range news {
		lines[i] = fmt.Sprintf("- %s (%s): %s...", n.Headline, n.Timestamp, truncateRunes(n.Summary, SummaryPromptRunes))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
