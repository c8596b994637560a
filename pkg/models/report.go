package models

// TimestampLayout is the layout of Report.LastUpdated.
const TimestampLayout = "2006-01-02 15:04:05"

// Stat is one formatted statistic, e.g. {"P/E Ratio", "35.20"}.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StatCategory groups statistics under a display heading, in catalog order.
type StatCategory struct {
	Name  string `json:"name"`
	Stats []Stat `json:"stats"`
}

// Report is the normalized result of one lookup. It is built once by the
// aggregator and treated as read-only afterwards.
type Report struct {
	Ticker       string         `json:"ticker"`
	CompanyName  string         `json:"company_name"`
	CurrentPrice string         `json:"current_price"`
	Stats        []StatCategory `json:"stats"`
	News         []NewsEntry    `json:"news"`
	LastUpdated  string         `json:"last_updated"`
	SourceURL    string         `json:"source_url"`
}

// StatsMap returns the statistics as category → label → value.
func (r *Report) StatsMap() map[string]map[string]string {
	out := make(map[string]map[string]string, len(r.Stats))
	for _, cat := range r.Stats {
		m := make(map[string]string, len(cat.Stats))
		for _, s := range cat.Stats {
			m[s.Label] = s.Value
		}
		out[cat.Name] = m
	}
	return out
}

// Stat looks up a single formatted value.
func (r *Report) Stat(category, label string) (string, bool) {
	for _, cat := range r.Stats {
		if cat.Name != category {
			continue
		}
		for _, s := range cat.Stats {
			if s.Label == label {
				return s.Value, true
			}
		}
	}
	return "", false
}

// HasPlaceholderNews reports whether the news list is only the placeholder entry.
func (r *Report) HasPlaceholderNews() bool {
	return len(r.News) == 1 && r.News[0] == PlaceholderNews()
}
