package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryJSON = `{"quoteSummary":{"result":[{
  "price":{"shortName":"Oracle Corporation","currentPrice":{"raw":120.0,"fmt":"120.00"}},
  "summaryDetail":{"trailingPE":{"raw":35.2,"fmt":"35.20"},"dividendYield":{"raw":0.015,"fmt":"1.50%"}}
}],"error":null}}`

const chartJSON = `{"chart":{"result":[{
  "meta":{"symbol":"ORCL"},
  "timestamp":[1700000000],
  "indicators":{"quote":[{"open":[124.0],"high":[126.0],"low":[123.5],"close":[125.75],"volume":[1000]}]}
}],"error":null}}`

const quotePage = `<html><body><ul>
<li class="js-stream-content">
  <h3><a href="/news/oracle-cloud.html">Oracle cloud revenue jumps</a></h3>
  <div class="C(#959595)">Reuters</div>
  <span class="C(#959595)">1 hour ago</span>
  <p>Oracle reported strong cloud growth.</p>
</li>
</ul></body></html>`

// fakeUpstream serves Yahoo quote/chart, the quote page and an Ollama chat
// endpoint. narrative is what the model answers; an empty string makes the
// model endpoint fail.
func fakeUpstream(t *testing.T, narrative string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v10/finance/quoteSummary/ORCL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, summaryJSON)
	})
	mux.HandleFunc("GET /v8/finance/chart/ORCL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON)
	})
	mux.HandleFunc("GET /quote/ORCL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quotePage)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		if narrative == "" {
			http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": narrative},
			"done":    true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, upstream string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`llm:
  primary: ollama
  model: llama3
  ollama_url: %[1]s
news:
  origin: %[1]s
quote:
  base_url: %[1]s
  cookie_url: ""
logging:
  level: error
`, upstream)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReportCommandText(t *testing.T) {
	up := fakeUpstream(t, "## Recommendation\nHold.")
	cfgPath := writeConfig(t, up.URL)

	out, err := execute(t, "report", "orcl", "--config", cfgPath,
		"--json=false", "--no-narrative=false", "--html=", "--pdf=")
	require.NoError(t, err)

	assert.Contains(t, out, "Oracle Corporation (ORCL)")
	assert.Contains(t, out, "Current Price: $125.75")
	assert.Contains(t, out, "**P/E Ratio:** 35.20")
	assert.Contains(t, out, "Oracle cloud revenue jumps")
	assert.Contains(t, out, "Reuters • 1 hour ago")
	assert.Contains(t, out, "Read more: "+up.URL+"/news/oracle-cloud.html")
	assert.Contains(t, out, "## Recommendation\nHold.")
}

func TestReportCommandNarrativeFailureIsNotFatal(t *testing.T) {
	up := fakeUpstream(t, "")
	cfgPath := writeConfig(t, up.URL)

	out, err := execute(t, "report", "ORCL", "--config", cfgPath,
		"--json=false", "--no-narrative=false", "--html=", "--pdf=")
	require.NoError(t, err)

	assert.Contains(t, out, "Oracle Corporation (ORCL)")
	assert.Contains(t, out, "Analysis unavailable")
}

func TestReportCommandJSONWithHTML(t *testing.T) {
	up := fakeUpstream(t, "unused")
	cfgPath := writeConfig(t, up.URL)
	htmlPath := filepath.Join(t.TempDir(), "orcl.html")

	out, err := execute(t, "report", "ORCL", "--config", cfgPath,
		"--json=true", "--no-narrative=true", "--html="+htmlPath, "--pdf=")
	require.NoError(t, err)

	var doc reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "ORCL", doc.Report.Ticker)
	assert.Equal(t, "$125.75", doc.Report.CurrentPrice)
	assert.Empty(t, doc.Narrative)
	assert.Empty(t, doc.NarrativeError)

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Oracle Corporation (ORCL)</h1>")
}

func TestReportCommandUnknownTicker(t *testing.T) {
	up := fakeUpstream(t, "unused")
	cfgPath := writeConfig(t, up.URL)

	_, err := execute(t, "report", "ZZZZINVALID", "--config", cfgPath,
		"--json=false", "--no-narrative=true", "--html=", "--pdf=")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to fetch data for ZZZZINVALID"), err.Error())
}

func TestVersionCommand(t *testing.T) {
	up := fakeUpstream(t, "unused")
	out, err := execute(t, "version", "--config", writeConfig(t, up.URL))
	require.NoError(t, err)
	assert.Contains(t, out, "stockagent dev")
}

func TestStatusCommand(t *testing.T) {
	up := fakeUpstream(t, "unused")
	cfgPath := writeConfig(t, up.URL)
	t.Setenv("STOCKAGENT_LLM_OPENAI_KEY", "")

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Config file:   "+cfgPath)
	assert.Contains(t, out, "LLM Provider:  ollama (model: llama3)")
	// The fake upstream has no /api/tags.
	assert.Contains(t, out, "Narrative backend: ❌ ollama")
}
