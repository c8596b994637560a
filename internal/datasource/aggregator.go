package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stockagent/pkg/models"
	"github.com/seenimoa/stockagent/pkg/utils"
)

// QuoteProvider supplies fundamentals and recent price history for a ticker.
type QuoteProvider interface {
	Fundamentals(ctx context.Context, ticker string) (Fundamentals, error)
	History(ctx context.Context, ticker, period string) ([]models.OHLCV, error)
}

// NewsProvider supplies the headlines listed on a ticker's quote page.
type NewsProvider interface {
	URL(ticker string) string
	Fetch(ctx context.Context, ticker string) ([]models.NewsEntry, error)
}

// ProviderFetchError reports that the quote provider could not supply the
// data a report needs. No partial report accompanies it.
type ProviderFetchError struct {
	Ticker string
	Err    error
}

func (e *ProviderFetchError) Error() string {
	return fmt.Sprintf("failed to fetch data for %s: %v", e.Ticker, e.Err)
}

func (e *ProviderFetchError) Unwrap() error { return e.Err }

// Aggregator builds a models.Report from a quote provider and a news provider.
// Calls are made one after another: fundamentals, history, then news.
type Aggregator struct {
	quotes        QuoteProvider
	news          NewsProvider
	log           logrus.FieldLogger
	now           func() time.Time
	historyPeriod string
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger used for non-fatal news failures.
func WithLogger(l logrus.FieldLogger) AggregatorOption {
	return func(a *Aggregator) { a.log = l }
}

// WithClock overrides the clock used for Report.LastUpdated.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// WithHistoryPeriod sets the price history range requested from the quote
// provider. An empty period keeps the default "1d".
func WithHistoryPeriod(p string) AggregatorOption {
	return func(a *Aggregator) {
		if p != "" {
			a.historyPeriod = p
		}
	}
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(quotes QuoteProvider, news NewsProvider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		quotes:        quotes,
		news:          news,
		log:           logrus.StandardLogger(),
		now:           time.Now,
		historyPeriod: "1d",
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Fetch gathers everything known about ticker into a new Report.
//
// A quote provider failure is fatal and returned as *ProviderFetchError.
// A news failure is logged and the report carries the placeholder entry.
func (a *Aggregator) Fetch(ctx context.Context, ticker string) (*models.Report, error) {
	lastUpdated := a.now().Format(models.TimestampLayout)

	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return nil, ErrEmptyTicker
	}
	log := a.log.WithField("ticker", symbol)

	fields, err := a.quotes.Fundamentals(ctx, symbol)
	if err != nil {
		return nil, &ProviderFetchError{Ticker: symbol, Err: err}
	}
	bars, err := a.quotes.History(ctx, symbol, a.historyPeriod)
	if err != nil {
		return nil, &ProviderFetchError{Ticker: symbol, Err: err}
	}

	sourceURL := a.news.URL(symbol)
	news, err := a.news.Fetch(ctx, symbol)
	if err != nil {
		log.WithError(err).WithField("url", sourceURL).Warn("news unavailable, continuing without it")
		news = nil
	}
	if len(news) == 0 {
		news = []models.NewsEntry{models.PlaceholderNews()}
	}

	companyName := fields.String("shortName")
	if companyName == "" {
		companyName = symbol
	}

	report := &models.Report{
		Ticker:       symbol,
		CompanyName:  companyName,
		CurrentPrice: currentPrice(bars, fields),
		Stats:        BuildStats(fields),
		News:         news,
		LastUpdated:  lastUpdated,
		SourceURL:    sourceURL,
	}
	log.WithFields(logrus.Fields{
		"price":      report.CurrentPrice,
		"categories": len(report.Stats),
		"news":       len(report.News),
	}).Debug("report assembled")
	return report, nil
}

// currentPrice prefers the latest close and falls back to the provider's
// currentPrice field.
func currentPrice(bars []models.OHLCV, fields Fundamentals) string {
	if last, ok := models.LastClose(bars); ok {
		return utils.FormatStat(last, utils.KindCurrency)
	}
	if v, ok := fields.Value("currentPrice"); ok {
		return utils.FormatStat(v, utils.KindCurrency)
	}
	return utils.NotAvailable
}
