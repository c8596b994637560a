package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stockagent/pkg/models"
	"github.com/seenimoa/stockagent/pkg/utils"
)

// DefaultQuoteBaseURL is the Yahoo Finance API host.
const DefaultQuoteBaseURL = "https://query1.finance.yahoo.com"

// summaryModules are merged into Fundamentals in this order; the first module
// that reports a field wins.
var summaryModules = []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData"}

// YFinance fetches fundamentals and price history from the Yahoo Finance API.
type YFinance struct {
	client    *Client
	baseURL   string
	cookieURL string
	log       logrus.FieldLogger

	mu    sync.Mutex
	crumb string
}

// YFinanceOption configures a YFinance.
type YFinanceOption func(*YFinance)

// WithQuoteBaseURL points the provider at a different API host.
func WithQuoteBaseURL(u string) YFinanceOption {
	return func(y *YFinance) {
		if u != "" {
			y.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCookieURL sets the page visited to obtain the session cookie the crumb
// endpoint requires. An empty URL skips the crumb handshake.
func WithCookieURL(u string) YFinanceOption {
	return func(y *YFinance) { y.cookieURL = u }
}

// WithQuoteLogger sets the logger.
func WithQuoteLogger(l logrus.FieldLogger) YFinanceOption {
	return func(y *YFinance) { y.log = l }
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance(client *Client, opts ...YFinanceOption) *YFinance {
	y := &YFinance{
		client:  client,
		baseURL: DefaultQuoteBaseURL,
		log:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yfError                     `json:"error"`
	} `json:"quoteSummary"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// Fundamentals returns the company descriptors and key statistics for ticker
// as a flat field map.
func (y *YFinance) Fundamentals(ctx context.Context, ticker string) (Fundamentals, error) {
	symbol := utils.NormalizeTicker(ticker)

	q := url.Values{}
	q.Set("modules", strings.Join(summaryModules, ","))
	if crumb := y.getCrumb(ctx); crumb != "" {
		q.Set("crumb", crumb)
	}
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", y.baseURL, utils.TickerPath(symbol), q.Encode())

	data, err := y.fetchJSON(ctx, u, symbol)
	if err != nil {
		return nil, fmt.Errorf("yfinance quoteSummary %s: %w", symbol, err)
	}

	var resp yfSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance quoteSummary: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, yfAPIError(resp.QuoteSummary.Error, symbol)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	fields, err := flattenSummary(resp.QuoteSummary.Result[0])
	if err != nil {
		return nil, fmt.Errorf("parse yfinance quoteSummary: %w", err)
	}
	return fields, nil
}

// History returns daily OHLCV bars for the given range ("1d", "5d", "1mo", ...).
func (y *YFinance) History(ctx context.Context, ticker, period string) ([]models.OHLCV, error) {
	symbol := utils.NormalizeTicker(ticker)
	if period == "" {
		period = "1d"
	}

	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", "1d")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, utils.TickerPath(symbol), q.Encode())

	data, err := y.fetchJSON(ctx, u, symbol)
	if err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, yfAPIError(resp.Chart.Error, symbol)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	return parseYFCandles(resp.Chart.Result[0]), nil
}

// --- Internal helpers ---

// fetchJSON GETs u and returns the body. A 404 means Yahoo does not know the
// symbol and maps to ErrTickerNotFound.
func (y *YFinance) fetchJSON(ctx context.Context, u, symbol string) ([]byte, error) {
	body, _, err := y.client.doGet(ctx, u, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		var httpErr *ErrHTTP
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// getCrumb returns the session crumb, fetching it on first use. Failures are
// logged and yield "", in which case the request goes out without a crumb and
// Yahoo decides whether to serve it.
func (y *YFinance) getCrumb(ctx context.Context) string {
	if y.cookieURL == "" {
		return ""
	}

	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb
	}

	// The cookie page usually answers 404; only the Set-Cookie matters.
	if resp, err := y.client.get(ctx, y.cookieURL, nil); err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	} else {
		y.log.WithError(err).Debug("yfinance: cookie request failed")
	}

	body, _, err := y.client.doGet(ctx, y.baseURL+"/v1/test/getcrumb", map[string]string{
		"Accept": "text/plain",
	})
	if err != nil {
		y.log.WithError(err).Debug("yfinance: crumb unavailable")
		return ""
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 256))
	if err != nil {
		return ""
	}
	y.crumb = strings.TrimSpace(string(data))
	return y.crumb
}

func yfAPIError(e *yfError, symbol string) error {
	if strings.EqualFold(e.Code, "Not Found") {
		return fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	return fmt.Errorf("yfinance API error: %s", e.Description)
}

// flattenSummary merges the quoteSummary modules into one field map.
//
//	{"raw": 1.5, "fmt": "1.50"} → json.Number("1.5")
//	{}                          → absent
//	"Oracle Corporation"        → "Oracle Corporation"
//	null, arrays, nested maps   → absent
func flattenSummary(result map[string]json.RawMessage) (Fundamentals, error) {
	fields := make(Fundamentals)
	for _, module := range summaryModules {
		raw, ok := result[module]
		if !ok || isJSONNull(raw) {
			continue
		}

		var values map[string]json.RawMessage
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("module %s: %w", module, err)
		}
		for key, v := range values {
			if _, seen := fields[key]; seen {
				continue
			}
			if val, ok := flattenValue(v); ok {
				fields[key] = val
			}
		}
	}
	return fields, nil
}

func flattenValue(raw json.RawMessage) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}

	switch val := v.(type) {
	case string, json.Number, bool:
		return val, true
	case map[string]any:
		if r, ok := val["raw"]; ok && r != nil {
			return r, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Close) && q.Close[i] != nil {
			closeVal := *q.Close[i]
			c.Close = &closeVal
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}
