package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stockagent/internal/report"
	"github.com/seenimoa/stockagent/pkg/models"
)

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report [ticker]",
	Short: "Fetch a stock report and AI analysis",
	Long: `Fetch the current price, key statistics and recent news for a ticker
and print the report, followed by an AI-written analysis.

Examples:
  stockagent report ORCL
  stockagent report aapl --no-narrative
  stockagent report TSLA --json
  stockagent report MSFT --html msft.html --pdf msft.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Bool("no-narrative", false, "skip the AI analysis")
	reportCmd.Flags().Bool("json", false, "print the report as JSON")
	reportCmd.Flags().String("html", "", "also write the report as a standalone HTML page")
	reportCmd.Flags().String("pdf", "", "also export the report as PDF (HTML fallback without an engine)")
}

// reportOutput is the --json document.
type reportOutput struct {
	Report         *models.Report `json:"report"`
	Narrative      string         `json:"narrative,omitempty"`
	NarrativeError string         `json:"narrative_error,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	noNarrative, _ := cmd.Flags().GetBool("no-narrative")
	asJSON, _ := cmd.Flags().GetBool("json")
	htmlPath, _ := cmd.Flags().GetString("html")
	pdfPath, _ := cmd.Flags().GetString("pdf")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := newAggregator(cfg, log).Fetch(ctx, args[0])
	if err != nil {
		return err
	}

	var n report.Narrative
	if !noNarrative {
		n = narrate(ctx, rep)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		doc := reportOutput{Report: rep, Narrative: n.Text}
		if n.Err != nil {
			doc.NarrativeError = n.Err.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	} else {
		fmt.Fprint(out, report.RenderText(rep))
		fmt.Fprint(out, report.RenderNarrativeText(n))
	}

	if htmlPath == "" && pdfPath == "" {
		return nil
	}
	page, err := report.RenderHTML(rep, n)
	if err != nil {
		return err
	}
	if htmlPath != "" {
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			return fmt.Errorf("writing HTML report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "📄 HTML report written to %s\n", htmlPath)
	}
	if pdfPath != "" {
		written, err := report.ExportPDF(ctx, page, report.DefaultPDFConfig(pdfPath))
		if err != nil {
			return fmt.Errorf("exporting PDF: %w", err)
		}
		if written != pdfPath {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  No PDF engine found (wkhtmltopdf or chromium); wrote %s instead\n", written)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "📄 PDF report written to %s\n", written)
		}
	}
	return nil
}

// narrate requests the analysis. Failures, including a misconfigured
// backend, are carried in the Narrative and never fail the command.
func narrate(ctx context.Context, rep *models.Report) report.Narrative {
	narrator, _, err := newNarrator(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("narrative backend unavailable")
		return report.Narrative{Err: err}
	}
	n := narrator.Narrate(ctx, rep)
	if n.Err != nil {
		log.WithError(n.Err).WithField("ticker", rep.Ticker).Warn("narrative failed")
	}
	return n
}
