package datasource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stockagent/pkg/models"
	"github.com/seenimoa/stockagent/pkg/utils"
)

// DefaultNewsOrigin is the site whose quote page is scraped for headlines.
const DefaultNewsOrigin = "https://finance.yahoo.com"

// DefaultNewsLimit caps the number of candidates examined per page.
const DefaultNewsLimit = 10

// Selectors for the quote page news stream.
const (
	newsItemSelector      = "li.js-stream-content"
	newsSourceSelector    = `div[class~="C(#959595)"]`
	newsTimestampSelector = `span[class~="C(#959595)"]`
)

// NewsOptions configures a NewsScraper.
type NewsOptions struct {
	Origin      string // scheme://host, e.g. "https://finance.yahoo.com"
	Limit       int
	RSSFallback bool
	RSSURL      string // fmt pattern, %s = ticker
}

// NewsScraper extracts headlines from the public quote page of a ticker.
type NewsScraper struct {
	client *Client
	opts   NewsOptions
	parser *gofeed.Parser
	log    logrus.FieldLogger
}

// NewNewsScraper creates a scraper. Zero-valued options select the defaults.
func NewNewsScraper(client *Client, opts NewsOptions, log logrus.FieldLogger) *NewsScraper {
	if opts.Origin == "" {
		opts.Origin = DefaultNewsOrigin
	}
	opts.Origin = strings.TrimRight(opts.Origin, "/")
	if opts.Limit <= 0 {
		opts.Limit = DefaultNewsLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NewsScraper{
		client: client,
		opts:   opts,
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// Name returns the data source name.
func (n *NewsScraper) Name() string { return "Quote page news" }

// URL returns the quote page address for ticker.
func (n *NewsScraper) URL(ticker string) string {
	return n.opts.Origin + "/quote/" + utils.TickerPath(utils.NormalizeTicker(ticker))
}

// Fetch downloads the quote page and extracts up to Limit headlines. An empty
// slice with a nil error means the page had no usable entries.
func (n *NewsScraper) Fetch(ctx context.Context, ticker string) ([]models.NewsEntry, error) {
	pageURL := n.URL(ticker)
	body, _, err := n.client.doGet(ctx, pageURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch news page: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse news page: %w", err)
	}

	entries, dropped := extractNews(doc, n.opts.Origin, n.opts.Limit)
	if dropped > 0 {
		n.log.WithFields(logrus.Fields{
			"url":     pageURL,
			"dropped": dropped,
		}).Debug("news: skipped malformed entries")
	}

	if len(entries) == 0 && n.opts.RSSFallback && n.opts.RSSURL != "" {
		rss, err := n.fetchRSS(ctx, ticker)
		if err != nil {
			n.log.WithError(err).WithField("ticker", ticker).Warn("news: RSS fallback failed")
			return entries, nil
		}
		return rss, nil
	}
	return entries, nil
}

// ParseNews parses an HTML document and extracts its headlines.
func ParseNews(r io.Reader, origin string, limit int) ([]models.NewsEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse news page: %w", err)
	}
	return ExtractNews(doc, origin, limit), nil
}

// ExtractNews returns the headlines of the first limit stream items of doc,
// in document order. Items without a headline are skipped; a bad item never
// affects the others.
func ExtractNews(doc *goquery.Document, origin string, limit int) []models.NewsEntry {
	entries, _ := extractNews(doc, origin, limit)
	return entries
}

func extractNews(doc *goquery.Document, origin string, limit int) ([]models.NewsEntry, int) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	base, err := url.Parse(strings.TrimRight(origin, "/") + "/")
	if err != nil {
		base = nil
	}

	entries := make([]models.NewsEntry, 0, limit)
	dropped := 0
	doc.Find(newsItemSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		if entry, ok := extractNewsEntry(sel, origin, base); ok {
			entries = append(entries, entry)
		} else {
			dropped++
		}
		return true
	})
	return entries, dropped
}

// extractNewsEntry builds one entry from a stream item. ok is false when the
// item has no headline or building it panicked.
func extractNewsEntry(sel *goquery.Selection, origin string, base *url.URL) (entry models.NewsEntry, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			entry, ok = models.NewsEntry{}, false
		}
	}()

	headline := cleanText(sel.Find("h3").First().Text())
	if headline == "" {
		return models.NewsEntry{}, false
	}

	link := "#"
	if href, exists := sel.Find("a[href]").First().Attr("href"); exists {
		link = resolveLink(strings.TrimSpace(href), origin, base)
	}

	return models.NewsEntry{
		Headline:  headline,
		Source:    cleanText(sel.Find(newsSourceSelector).First().Text()),
		Timestamp: cleanText(sel.Find(newsTimestampSelector).First().Text()),
		Summary:   cleanText(sel.Find("p").First().Text()),
		Link:      link,
	}, true
}

// resolveLink makes href absolute against the news origin. Absolute http(s)
// links are returned unchanged.
func resolveLink(href, origin string, base *url.URL) string {
	if href == "" {
		return "#"
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}
	if base != nil {
		if ref, err := url.Parse(href); err == nil {
			return base.ResolveReference(ref).String()
		}
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimRight(origin, "/") + href
}

// fetchRSS reads the ticker's headline feed.
func (n *NewsScraper) fetchRSS(ctx context.Context, ticker string) ([]models.NewsEntry, error) {
	feedURL := fmt.Sprintf(n.opts.RSSURL, url.QueryEscape(utils.NormalizeTicker(ticker)))
	body, _, err := n.client.doGet(ctx, feedURL, map[string]string{
		"Accept": "application/rss+xml, application/xml, text/xml",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch RSS: %w", err)
	}
	defer body.Close()

	feed, err := n.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse RSS: %w", err)
	}

	entries := make([]models.NewsEntry, 0, n.opts.Limit)
	for _, item := range feed.Items {
		if len(entries) >= n.opts.Limit {
			break
		}
		headline := cleanText(item.Title)
		if headline == "" {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = "#"
		}
		entries = append(entries, models.NewsEntry{
			Headline:  headline,
			Source:    cleanText(feed.Title),
			Timestamp: cleanText(item.Published),
			Summary:   cleanHTML(item.Description),
			Link:      link,
		})
	}
	return entries, nil
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return cleanText(s)
	}
	return cleanText(doc.Text())
}
