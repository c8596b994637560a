package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stockagent/internal/config"
	"github.com/seenimoa/stockagent/internal/datasource"
	"github.com/seenimoa/stockagent/internal/llm"
	"github.com/seenimoa/stockagent/internal/report"
)

// newAggregator wires the quote provider and news scraper from cfg. Both
// share one HTTP client so the quote session cookie is reused.
func newAggregator(cfg *config.Config, log logrus.FieldLogger) *datasource.Aggregator {
	client := datasource.NewClient(cfg.HTTP.Timeout, cfg.News.UserAgent)

	quotes := datasource.NewYFinance(client,
		datasource.WithQuoteBaseURL(cfg.Quote.BaseURL),
		datasource.WithCookieURL(cfg.Quote.CookieURL),
		datasource.WithQuoteLogger(log),
	)
	news := datasource.NewNewsScraper(client, datasource.NewsOptions{
		Origin:      cfg.News.Origin,
		Limit:       cfg.News.MaxItems,
		RSSFallback: cfg.News.RSSFallback,
		RSSURL:      cfg.News.RSSURL,
	}, log)

	return datasource.NewAggregator(quotes, news,
		datasource.WithLogger(log),
		datasource.WithHistoryPeriod(cfg.Quote.HistoryPeriod),
	)
}

// newNarrator builds the configured narrative backend once.
func newNarrator(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*report.Narrator, llm.LLMProvider, error) {
	provider, err := llm.NewProviderFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return report.NewNarrator(provider, llm.OptionsFromConfig(cfg), log), provider, nil
}

// backendStatus pings the configured narrative backend.
func backendStatus(cmd *cobra.Command) string {
	provider, err := llm.NewProviderFromConfig(cmd.Context(), cfg)
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := provider.Ping(cmd.Context()); err != nil {
		return "❌ " + provider.Name() + ": " + err.Error()
	}
	return "✅ " + provider.Name() + " reachable"
}
