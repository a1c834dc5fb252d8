// Package fetcher validates symbols against the exchange catalog and pages
// through the history endpoint to assemble a complete candle series.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/exchange"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// Default configuration values
const (
	DefaultPageSize     = exchange.MaxCandlesPerRequest
	DefaultPageInterval = 100 * time.Millisecond
)

// Config holds the range fetcher settings.
type Config struct {
	// PageSize is the number of candles requested per window, 1..MaxCandlesPerRequest
	PageSize int

	// PageInterval is the minimum spacing between two page requests
	PageInterval time.Duration

	// DataFloor is the earliest time history is requested for
	DataFloor time.Time

	// Now returns the current time; nil means time.Now
	Now func() time.Time

	Logger *slog.Logger
}

// DefaultConfig returns the settings used against the live exchange.
func DefaultConfig() Config {
	return Config{
		PageSize:     DefaultPageSize,
		PageInterval: DefaultPageInterval,
		DataFloor:    exchange.DataFloor,
		Now:          time.Now,
		Logger:       slog.Default(),
	}
}

// Request describes one range download.
type Request struct {
	Symbol     string
	Resolution models.Resolution
	Range      models.DateRange
}

// Result is a completed range download.
type Result struct {
	Symbol     string
	Resolution models.Resolution
	Requested  models.DateRange

	// Start and End are the bounds actually fetched after clamping
	Start time.Time
	End   time.Time

	Series   models.CandleSeries
	Pages    int
	Warnings []string
	Metrics  FetchMetrics
	Duration time.Duration
}

// ListSymbols fetches the product catalog and returns the active symbols.
func ListSymbols(ctx context.Context, lister exchange.ProductLister) (models.SymbolSet, error) {
	products, err := lister.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewSymbolSet(products), nil
}

// RangeFetcher downloads a date range page by page, one request at a time.
type RangeFetcher struct {
	candles exchange.CandleFetcher
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a RangeFetcher. Zero config values fall back to DefaultConfig.
func New(candles exchange.CandleFetcher, config Config) *RangeFetcher {
	defaults := DefaultConfig()
	if config.PageSize <= 0 || config.PageSize > exchange.MaxCandlesPerRequest {
		config.PageSize = defaults.PageSize
	}
	if config.PageInterval < 0 {
		config.PageInterval = defaults.PageInterval
	}
	if config.DataFloor.IsZero() {
		config.DataFloor = defaults.DataFloor
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	limit := rate.Inf
	if config.PageInterval > 0 {
		limit = rate.Every(config.PageInterval)
	}

	return &RangeFetcher{
		candles: candles,
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		logger:  config.Logger,
	}
}

// EffectiveRange turns a calendar range into the instants to fetch. The start
// is raised to the data floor and the end is lowered to now; each adjustment
// yields a warning. The returned start may be after the returned end.
func (f *RangeFetcher) EffectiveRange(r models.DateRange) (time.Time, time.Time, []string) {
	start, end := r.Bounds()
	var warnings []string

	if start.Before(f.config.DataFloor) {
		warnings = append(warnings, fmt.Sprintf(
			"start %s is before the exchange data floor, using %s",
			start.Format(models.DateLayout), f.config.DataFloor.Format(models.DateLayout)))
		start = f.config.DataFloor
	}

	now := f.config.Now().UTC().Truncate(time.Second)
	if end.After(now) {
		warnings = append(warnings, fmt.Sprintf(
			"end %s is in the future, using %s",
			end.Format(time.RFC3339), now.Format(time.RFC3339)))
		end = now
	}

	return start, end, warnings
}

// Fetch validates the symbol against symbols and downloads the range. An
// unknown symbol fails before any candle request is made.
func (f *RangeFetcher) Fetch(ctx context.Context, symbols models.SymbolSet, req Request) (*Result, error) {
	startTime := time.Now()
	symbol := models.NormalizeSymbol(req.Symbol)

	if !symbols.Contains(symbol) {
		return nil, apperr.InvalidSymbol(symbol, symbols.Len())
	}
	if req.Resolution.Duration() == 0 {
		return nil, apperr.Validation("resolution", fmt.Sprintf("unsupported resolution %q", req.Resolution))
	}
	if err := req.Range.Validate(); err != nil {
		return nil, err
	}

	start, end, warnings := f.EffectiveRange(req.Range)
	for _, w := range warnings {
		f.logger.WarnContext(ctx, w, "symbol", symbol)
	}

	result := &Result{
		Symbol:     symbol,
		Resolution: req.Resolution,
		Requested:  req.Range,
		Start:      start,
		End:        end,
		Warnings:   warnings,
	}

	if start.After(end) {
		return nil, apperr.EmptyRange(symbol, start, end)
	}

	f.logger.InfoContext(ctx, "Starting range fetch",
		"symbol", symbol,
		"resolution", req.Resolution,
		"start", start,
		"end", end,
		"page_size", f.config.PageSize,
	)

	metrics := newMetricsCollector()
	series, err := f.fetchPages(ctx, symbol, req.Resolution, start, end, metrics)
	result.Metrics = metrics.snapshot()
	result.Pages = int(result.Metrics.Pages)
	if err != nil {
		f.logger.ErrorContext(ctx, "Range fetch failed",
			"symbol", symbol,
			"pages", result.Pages,
			"error", err,
		)
		return nil, err
	}

	if series.IsEmpty() {
		return nil, apperr.EmptyRange(symbol, start, end)
	}

	result.Series = series
	result.Duration = time.Since(startTime)

	f.logger.InfoContext(ctx, "Range fetch completed",
		"symbol", symbol,
		"records", series.Len(),
		"pages", result.Pages,
		"duration", result.Duration,
	)

	return result, nil
}

// fetchPages walks [start, end] in windows of PageSize candles. Each page is
// cut to its window and only timestamps later than the last kept candle are
// appended, so the series stays strictly ascending.
//
// Empty windows before the first candle are a listing gap and are skipped.
// Once data has been seen, an empty window ends the range.
func (f *RangeFetcher) fetchPages(ctx context.Context, symbol string, resolution models.Resolution, start, end time.Time, metrics *metricsCollector) (models.CandleSeries, error) {
	span := time.Duration(f.config.PageSize) * resolution.Duration()

	var series models.CandleSeries
	page := 0

	for cur := start; !cur.After(end); {
		page++
		windowEnd := cur.Add(span - time.Second)
		if windowEnd.After(end) {
			windowEnd = end
		}

		if err := f.limiter.Wait(ctx); err != nil {
			metrics.recordError()
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		requestStart := time.Now()
		candles, err := f.candles.FetchCandles(ctx, exchange.FetchRequest{
			Symbol:     symbol,
			Resolution: resolution,
			Start:      cur,
			End:        windowEnd,
		})
		if err != nil {
			metrics.recordError()
			return nil, apperr.WrapError(err, "fetcher", "fetch_page", fmt.Sprintf("failed to fetch page %d", page))
		}

		if len(candles) == 0 {
			metrics.recordPage(0, 0, 0, 0, time.Since(requestStart))
			if series.IsEmpty() {
				f.logger.DebugContext(ctx, "Empty page before first candle, skipping window",
					"page", page,
					"window_start", cur,
					"window_end", windowEnd,
				)
				cur = windowEnd.Add(time.Second)
				continue
			}
			f.logger.DebugContext(ctx, "Empty page, stopping",
				"page", page,
				"window_start", cur,
				"window_end", windowEnd,
			)
			break
		}

		inWindow := models.CandleSeries(candles).Between(cur, windowEnd)
		fresh := inWindow.Normalize()
		outside := len(candles) - len(inWindow)
		duplicates := len(inWindow) - len(fresh)

		if last := series.Last(); last != nil {
			skip := 0
			for skip < len(fresh) && !fresh[skip].Timestamp.After(last.Timestamp) {
				skip++
			}
			duplicates += skip
			fresh = fresh[skip:]
		}
		series = append(series, fresh...)
		metrics.recordPage(len(candles), len(fresh), duplicates, outside, time.Since(requestStart))

		f.logger.DebugContext(ctx, "Fetched page",
			"page", page,
			"window_start", cur,
			"window_end", windowEnd,
			"received", len(candles),
			"kept", len(fresh),
		)

		next := windowEnd
		if last := series.Last(); last != nil && last.Timestamp.After(next) {
			next = last.Timestamp
		}
		cur = next.Add(time.Second)
	}

	return series, nil
}
