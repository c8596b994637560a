// Package utils provides common utility functions for stockagent.
package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is what FormatStat renders for an absent value.
const NotAvailable = "N/A"

// StatKind selects how a statistic is rendered.
type StatKind string

const (
	KindCurrency    StatKind = "currency"
	KindPercentage  StatKind = "percentage"
	KindLargeNumber StatKind = "large_number"
	KindFloat       StatKind = "float"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatStat renders a raw provider value for display.
//
//	nil                    → "N/A" (any kind)
//	1234.5, currency       → "$1,234.50"
//	0.0215, percentage     → "2.15%"
//	2500000, large_number  → "2.50M"
//	35.2, float            → "35.20"
//	"Technology", any kind → "Technology"
//
// Unknown kinds format like KindFloat. FormatStat never panics.
func FormatStat(value any, kind StatKind) string {
	if value == nil {
		return NotAvailable
	}
	d, ok := toDecimal(value)
	if !ok {
		if isNonFinite(value) {
			return NotAvailable
		}
		return fmt.Sprint(value)
	}

	switch kind {
	case KindCurrency:
		return "$" + FormatGrouped(d)
	case KindPercentage:
		return FormatGrouped(d.Mul(hundred)) + "%"
	case KindLargeNumber:
		abs := d.Abs()
		switch {
		case abs.GreaterThanOrEqual(billion):
			return FormatGrouped(d.Div(billion)) + "B"
		case abs.GreaterThanOrEqual(million):
			return FormatGrouped(d.Div(million)) + "M"
		case abs.GreaterThanOrEqual(thousand):
			return FormatGrouped(d.Div(thousand)) + "K"
		}
	}
	return FormatGrouped(d)
}

// FormatGrouped renders d with two decimals and comma thousands separators,
// e.g. 1234567.891 → "1,234,567.89".
func FormatGrouped(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(intPart) + "." + frac
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// toDecimal converts any numeric value to a decimal. NaN and ±Inf are not convertible.
func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(v)), 0), true
	case uint8:
		return decimal.NewFromInt(int64(v)), true
	case uint16:
		return decimal.NewFromInt(int64(v)), true
	case uint32:
		return decimal.NewFromInt(int64(v)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), true
	case json.Number:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

func isNonFinite(value any) bool {
	switch v := value.(type) {
	case float64:
		return math.IsNaN(v) || math.IsInf(v, 0)
	case float32:
		f := float64(v)
		return math.IsNaN(f) || math.IsInf(f, 0)
	}
	return false
}
