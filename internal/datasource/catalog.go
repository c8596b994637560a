package datasource

import (
	"strings"

	"github.com/seenimoa/stockagent/pkg/models"
	"github.com/seenimoa/stockagent/pkg/utils"
)

// Fundamentals is the flat field map returned by a quote provider, keyed by
// Yahoo field name (marketCap, trailingPE, shortName, ...). Values are
// numbers (json.Number or Go numerics) or strings. A missing key means the
// provider did not report the field.
type Fundamentals map[string]any

// Value returns the raw value for key.
func (f Fundamentals) Value(key string) (any, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the trimmed string value for key, or "" when it is absent
// or not a string.
func (f Fundamentals) String(key string) string {
	s, _ := f[key].(string)
	return strings.TrimSpace(s)
}

// StatField maps one provider field to its display label and format.
type StatField struct {
	Key   string
	Label string
	Kind  utils.StatKind
}

// StatCategoryDef is one display group of the catalog.
type StatCategoryDef struct {
	Name   string
	Fields []StatField
}

// StatCatalog lists every statistic shown on a report, in display order.
var StatCatalog = []StatCategoryDef{
	{
		Name: "Valuation",
		Fields: []StatField{
			{"marketCap", "Market Cap", utils.KindCurrency},
			{"enterpriseValue", "Enterprise Value", utils.KindCurrency},
			{"trailingPE", "P/E Ratio", utils.KindFloat},
			{"forwardPE", "Forward P/E", utils.KindFloat},
			{"pegRatio", "PEG Ratio", utils.KindFloat},
			{"priceToSalesTrailing12Months", "Price/Sales", utils.KindFloat},
			{"priceToBook", "Price/Book", utils.KindFloat},
		},
	},
	{
		Name: "Financial",
		Fields: []StatField{
			{"totalRevenue", "Revenue", utils.KindCurrency},
			{"revenuePerShare", "Revenue/Share", utils.KindCurrency},
			{"profitMargins", "Profit Margin", utils.KindPercentage},
			{"operatingMargins", "Operating Margin", utils.KindPercentage},
			{"ebitda", "EBITDA", utils.KindCurrency},
			{"totalDebt", "Total Debt", utils.KindCurrency},
			{"debtToEquity", "Debt/Equity", utils.KindFloat},
		},
	},
	{
		Name: "Dividends",
		Fields: []StatField{
			{"dividendYield", "Dividend Yield", utils.KindPercentage},
			{"dividendRate", "Dividend Rate", utils.KindCurrency},
			{"payoutRatio", "Payout Ratio", utils.KindPercentage},
			{"fiveYearAvgDividendYield", "5Y Avg Yield", utils.KindPercentage},
		},
	},
	{
		Name: "Trading",
		Fields: []StatField{
			{"beta", "Beta", utils.KindFloat},
			{"fiftyTwoWeekHigh", "52W High", utils.KindCurrency},
			{"fiftyTwoWeekLow", "52W Low", utils.KindCurrency},
			{"fiftyDayAverage", "50D Avg", utils.KindCurrency},
			{"twoHundredDayAverage", "200D Avg", utils.KindCurrency},
			{"volume", "Volume", utils.KindLargeNumber},
			{"averageVolume", "Avg Volume", utils.KindLargeNumber},
			{"shortRatio", "Short Ratio", utils.KindFloat},
		},
	},
}

// BuildStats formats every catalog field found in fields. Fields that format
// to "N/A" are left out, and so is any category left with no entries.
// Zero is a value, not an absence: a reported 0 renders as "0.00".
func BuildStats(fields Fundamentals) []models.StatCategory {
	out := make([]models.StatCategory, 0, len(StatCatalog))
	for _, def := range StatCatalog {
		cat := models.StatCategory{Name: def.Name}
		for _, f := range def.Fields {
			raw, _ := fields.Value(f.Key)
			val := utils.FormatStat(raw, f.Kind)
			if val == utils.NotAvailable {
				continue
			}
			cat.Stats = append(cat.Stats, models.Stat{Label: f.Label, Value: val})
		}
		if len(cat.Stats) > 0 {
			out = append(out, cat)
		}
	}
	return out
}
