// Package models defines the core data structures used throughout stockagent.
package models

import "time"

// OHLCV represents a single candlestick bar of price data.
// Close is nil when the provider returned no close for the session.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     *float64  `json:"close,omitempty"`
	Volume    int64     `json:"volume"`
}

// LastClose returns the close of the most recent bar that has one.
func LastClose(bars []OHLCV) (float64, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close != nil {
			return *bars[i].Close, true
		}
	}
	return 0, false
}
