// Package models provides the data structures used while fetching OHLCV data:
// products, tickers, candles, candle series, date ranges and resolutions.
// Everything here is created, used and discarded within a single run.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents a single OHLCV record for a symbol at a resolution.
// Prices and volume are kept as the decimal strings received from the exchange
// so that exporting them does not lose or reformat precision.
type Candle struct {
	Timestamp  time.Time `json:"timestamp"`
	Open       string    `json:"open"`
	High       string    `json:"high"`
	Low        string    `json:"low"`
	Close      string    `json:"close"`
	Volume     string    `json:"volume"`
	Symbol     string    `json:"symbol"`
	Resolution string    `json:"resolution"`
}

// ValidationError represents a candle validation error with specific field context.
type ValidationError struct {
	Field   string // Field is the name of the field that failed validation
	Message string // Message explains the failure
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate checks the shape of the candle: a non-zero timestamp and numeric
// fields that parse as decimals. It deliberately does not check OHLC
// relationships; upstream values are trusted as received.
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp cannot be null or zero"}
	}

	fields := []struct {
		name  string
		value string
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
		{"volume", c.Volume},
	}
	for _, f := range fields {
		if _, err := decimal.NewFromString(f.value); err != nil {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("invalid %s format: %v", f.name, err)}
		}
	}

	if c.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	if c.Resolution == "" {
		return &ValidationError{Field: "resolution", Message: "resolution cannot be empty"}
	}

	return nil
}

// GetOpenDecimal returns the open price as a decimal.Decimal.
func (c *Candle) GetOpenDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Open)
}

// GetCloseDecimal returns the close price as a decimal.Decimal.
func (c *Candle) GetCloseDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Close)
}

// GetPriceChange calculates Close - Open.
func (c *Candle) GetPriceChange() (decimal.Decimal, error) {
	open, err := c.GetOpenDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse open price: %w", err)
	}

	close, err := c.GetCloseDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse close price: %w", err)
	}

	return close.Sub(open), nil
}

// String returns a human-readable representation of the candle.
func (c *Candle) String() string {
	return fmt.Sprintf("Candle{Symbol: %s, Resolution: %s, Timestamp: %s, O: %s, H: %s, L: %s, C: %s, V: %s}",
		c.Symbol, c.Resolution, c.Timestamp.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
}

// NewCandle creates a Candle and validates its shape.
// The timestamp is normalised to UTC and should be the candle open time.
//
// Example:
//
//	candle, err := NewCandle(
//	    time.Unix(1609459200, 0),
//	    "28923.5", "29600", "28624.5", "29331", "1523.5",
//	    "BTCUSD", "1d",
//	)
func NewCandle(timestamp time.Time, open, high, low, close, volume, symbol, resolution string) (*Candle, error) {
	candle := &Candle{
		Timestamp:  timestamp.UTC(),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		Volume:     volume,
		Symbol:     symbol,
		Resolution: resolution,
	}

	if err := candle.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create candle: %w", err)
	}

	return candle, nil
}
