package models

// NoNewsHeadline is the headline of the placeholder entry used when no news was found.
const NoNewsHeadline = "No recent news available"

// NewsEntry is one headline scraped from the quote page.
type NewsEntry struct {
	Headline  string `json:"headline"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	Link      string `json:"link"` // absolute URL, or "#" when the entry had none
}

// PlaceholderNews returns the single entry shown when no news could be extracted.
func PlaceholderNews() NewsEntry {
	return NewsEntry{
		Headline: NoNewsHeadline,
		Link:     "#",
	}
}

// Caption returns "source • timestamp", or "" when both are empty.
func (n NewsEntry) Caption() string {
	if n.Source == "" && n.Timestamp == "" {
		return ""
	}
	return n.Source + " • " + n.Timestamp
}
