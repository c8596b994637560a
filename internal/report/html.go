package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/seenimoa/stockagent/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// HTML renderer: standalone report page and lookup form
// ════════════════════════════════════════════════════════════════════

var (
	reportTmpl = template.Must(template.New("report").Parse(reportTemplate))
	indexTmpl  = template.Must(template.New("index").Parse(indexTemplate))

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
)

// reportPage is the template model for reportTemplate.
type reportPage struct {
	Title         string
	Report        *models.Report
	ShowNarrative bool
	Narrative     template.HTML
	NarrativeErr  string
}

// IndexPage is the template model for the lookup form. Error, when set, is
// shown above the form (e.g. a failed lookup).
type IndexPage struct {
	Ticker string
	Error  string
}

// RenderHTML renders r as a standalone HTML page. A narrative error is shown
// inline; the report itself is always rendered.
func RenderHTML(r *models.Report, n Narrative) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}

	data := reportPage{
		Title:         fmt.Sprintf("%s (%s) · Stock Report", r.CompanyName, r.Ticker),
		Report:        r,
		ShowNarrative: n.Requested(),
	}
	switch {
	case n.Err != nil:
		data.NarrativeErr = n.Err.Error()
	case n.Text != "":
		body, err := MarkdownToHTML(n.Text)
		if err != nil {
			data.NarrativeErr = err.Error()
		} else {
			data.Narrative = body
		}
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// RenderIndex renders the ticker lookup form.
func RenderIndex(p IndexPage) (string, error) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// MarkdownToHTML converts model output to HTML. Raw HTML in the input is
// not passed through.
func MarkdownToHTML(md string) (template.HTML, error) {
	md = stripOuterCodeFences(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// stripOuterCodeFences removes a ```markdown ... ``` wrapper that models
// sometimes put around the whole answer.
func stripOuterCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(s[3:], "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		// Drop the info string ("markdown", "md", ...).
		if !strings.ContainsAny(strings.TrimSpace(inner[:nl]), " \t") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

const pageStyle = `
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  a { color: var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .error {
    border-left: 4px solid var(--red);
    background: #fef2f2;
    color: var(--red);
    padding: 10px 14px;
    border-radius: 4px;
    margin: 12px 0;
  }
`

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>` + pageStyle + `
  .price-bar {
    display: flex;
    align-items: baseline;
    gap: 24px;
    background: var(--section-bg);
    padding: 12px 16px;
    border-radius: 8px;
    margin: 12px 0 16px;
  }
  .price-bar .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .price-bar .value { font-size: 1.6rem; font-weight: 600; }

  /* Tabs (radio-driven, no script) */
  .tabs { display: flex; flex-wrap: wrap; }
  .tabs > input { display: none; }
  .tabs > label {
    padding: 6px 14px;
    border: 1px solid var(--border);
    border-bottom: none;
    border-radius: 6px 6px 0 0;
    cursor: pointer;
    color: var(--muted);
  }
  .tabs > input:checked + label { color: var(--accent); font-weight: 600; background: var(--section-bg); }
  .tabs > .panel {
    display: none;
    order: 99;
    width: 100%;
    border: 1px solid var(--border);
    padding: 12px 16px;
    background: var(--section-bg);
  }
  .tabs > input:checked + label + .panel { display: block; }
  .stat code { background: #eef2ff; padding: 1px 6px; border-radius: 4px; }

  details { border: 1px solid var(--border); border-radius: 6px; padding: 8px 12px; margin: 8px 0; }
  summary { cursor: pointer; font-weight: 600; }
  .narrative h1, .narrative h2, .narrative h3 { color: var(--text); border: none; margin: 14px 0 6px; font-size: 1.05rem; }
  .narrative ul, .narrative ol { margin: 6px 0 6px 24px; }
  .narrative table { border-collapse: collapse; margin: 8px 0; }
  .narrative td, .narrative th { border: 1px solid var(--border); padding: 4px 8px; }
  .footer { margin-top: 32px; text-align: center; }
</style>
</head>
<body>
{{with .Report}}
<h1>{{.CompanyName}} ({{.Ticker}})</h1>

<div class="price-bar">
  <div>
    <div class="label">Current Price</div>
    <div class="value">{{.CurrentPrice}}</div>
  </div>
  <div class="muted">Last updated: {{.LastUpdated}}</div>
</div>

<h2>📊 Detailed Statistics</h2>
{{if .Stats}}
<div class="tabs">
{{range $i, $cat := .Stats}}
  <input type="radio" name="stats" id="tab-{{$i}}"{{if eq $i 0}} checked{{end}}>
  <label for="tab-{{$i}}">{{$cat.Name}}</label>
  <div class="panel">
  {{range $cat.Stats}}
    <p class="stat"><strong>{{.Label}}:</strong> <code>{{.Value}}</code></p>
  {{end}}
  </div>
{{end}}
</div>
{{else}}
<p class="muted">No statistics available.</p>
{{end}}

<h2>📰 Recent News</h2>
{{range .News}}
<details>
  <summary>{{.Headline}}</summary>
  {{with .Caption}}<p class="muted">{{.}}</p>{{end}}
  {{with .Summary}}<p>{{.}}</p>{{end}}
  <p><a href="{{.Link}}" target="_blank" rel="noopener">Read more</a></p>
</details>
{{end}}
{{end}}

{{if .ShowNarrative}}
<h2>🤖 AI Analysis &amp; Recommendation</h2>
{{if .NarrativeErr}}
<div class="error">Analysis unavailable: {{.NarrativeErr}}</div>
{{else}}
<div class="narrative">{{.Narrative}}</div>
{{end}}
{{end}}

<div class="footer muted">
  {{with .Report.SourceURL}}Source: <a href="{{.}}">{{.}}</a><br>{{end}}
  AI-generated analysis for educational purposes. Not financial advice.
</div>
</body>
</html>
`

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Stock Research Agent</title>
<style>` + pageStyle + `
  form { display: flex; gap: 8px; margin: 16px 0; }
  input[type=text] { flex: 1; padding: 8px 10px; border: 1px solid var(--border); border-radius: 6px; font-size: 1rem; }
  button { padding: 8px 16px; background: var(--accent); color: white; border: none; border-radius: 6px; font-size: 1rem; cursor: pointer; }
</style>
</head>
<body>
<h1>💰 Advanced Stock Research Agent</h1>
<p class="muted">Comprehensive stock analysis with detailed statistics, news, and AI-powered insights.</p>
{{with .Error}}<div class="error">{{.}}</div>{{end}}
<form action="/report" method="get">
  <input type="text" name="ticker" value="{{.Ticker}}" placeholder="ORCL"
         aria-label="Enter stock ticker (e.g., AAPL, TSLA, ORCL)" autofocus>
  <button type="submit">Get Detailed Report</button>
</form>
</body>
</html>
`
