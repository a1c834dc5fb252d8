// Package exchange defines the exchange capabilities the fetcher depends on and
// the Delta Exchange REST adapter that implements them.
//
// The interfaces are small and focused so that the fetcher can be tested
// against fakes and so the product lookup and the candle download can be
// exercised independently.
package exchange

import (
	"context"
	"time"

	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// ProductLister retrieves the exchange product catalog.
type ProductLister interface {
	// ListProducts returns every product the exchange reports, including
	// inactive ones. Callers filter on Product.Active.
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// CandleFetcher retrieves one page of historical candles.
type CandleFetcher interface {
	// FetchCandles returns the candles whose open time lies in
	// [req.Start, req.End]. The exchange returns at most
	// MaxCandlesPerRequest candles per call; callers are responsible for
	// sizing the window. Order of the returned slice is not guaranteed.
	FetchCandles(ctx context.Context, req FetchRequest) ([]models.Candle, error)
}

// TickerProvider retrieves 24h statistics for every product.
type TickerProvider interface {
	ListTickers(ctx context.Context) ([]models.Ticker, error)
}

// Exchange combines the capabilities used by the CLI.
type Exchange interface {
	ProductLister
	CandleFetcher
	TickerProvider
}

// FetchRequest specifies one page of candle data.
type FetchRequest struct {
	// Symbol is the exchange symbol (e.g., "BTCUSD")
	Symbol string `json:"symbol"`

	// Resolution is the candle size (e.g., "1d")
	Resolution models.Resolution `json:"resolution"`

	// Start is the beginning of the window (inclusive)
	Start time.Time `json:"start"`

	// End is the end of the window (inclusive)
	End time.Time `json:"end"`
}

// Validate checks if the FetchRequest has valid parameters.
func (r *FetchRequest) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}

	if r.Resolution.Duration() == 0 {
		return &ValidationError{Field: "resolution", Message: "unsupported resolution " + string(r.Resolution)}
	}

	if r.Start.IsZero() {
		return &ValidationError{Field: "start", Message: "start time cannot be zero"}
	}

	if r.End.IsZero() {
		return &ValidationError{Field: "end", Message: "end time cannot be zero"}
	}

	if r.End.Before(r.Start) {
		return &ValidationError{Field: "end", Message: "end time must not be before start time"}
	}

	return nil
}


// ValidationError represents a validation error for exchange requests.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation error for field " + e.Field + ": " + e.Message
}
