package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

const (
	// DefaultBaseURL is the Delta Exchange (India) public REST API
	DefaultBaseURL = "https://api.india.delta.exchange"

	// API endpoints
	productsEndpoint = "/v2/products"
	tickersEndpoint  = "/v2/tickers"
	candlesEndpoint  = "/v2/history/candles"

	// MaxCandlesPerRequest is the largest page the candles endpoint returns
	MaxCandlesPerRequest = 2000

	// Request configuration
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "go-ohlcv-fetcher/1.0"

	// maxErrorBody caps how much of a failed response is echoed into errors
	maxErrorBody = 512
)

// DataFloor is the earliest date Delta Exchange guarantees history for.
var DataFloor = time.Date(2020, time.March, 30, 0, 0, 0, 0, time.UTC)

// ClientConfig configures the Delta Exchange client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DeltaClient implements Exchange for the Delta Exchange public REST API.
// Only unauthenticated, read-only endpoints are used.
type DeltaClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

// NewDeltaClient creates a client. Zero config values fall back to defaults.
func NewDeltaClient(cfg ClientConfig, logger *slog.Logger) *DeltaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DeltaClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// ListProducts implements the ProductLister interface.
func (c *DeltaClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	c.logger.Debug("fetching products", "endpoint", productsEndpoint)

	var products []deltaProduct
	if err := c.getJSON(ctx, "list_products", productsEndpoint, nil, &products); err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		out = append(out, models.Product{
			Symbol:       p.Symbol,
			State:        p.State,
			ContractType: p.ContractType,
			Description:  p.Description,
		})
	}

	c.logger.Debug("fetched products", "count", len(out))
	return out, nil
}

// ListTickers implements the TickerProvider interface.
func (c *DeltaClient) ListTickers(ctx context.Context) ([]models.Ticker, error) {
	c.logger.Debug("fetching tickers", "endpoint", tickersEndpoint)

	var tickers []deltaTicker
	if err := c.getJSON(ctx, "list_tickers", tickersEndpoint, nil, &tickers); err != nil {
		return nil, err
	}

	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, models.Ticker{
			Symbol:      t.Symbol,
			TurnoverUSD: t.TurnoverUSD.String(),
			Volume:      t.Volume.String(),
			Open:        t.Open.String(),
			High:        t.High.String(),
			Low:         t.Low.String(),
			Close:       t.Close.String(),
			MarkPrice:   t.MarkPrice.String(),
		})
	}

	c.logger.Debug("fetched tickers", "count", len(out))
	return out, nil
}

// FetchCandles implements the CandleFetcher interface.
// The returned candles are sorted by ascending timestamp.
func (c *DeltaClient) FetchCandles(ctx context.Context, req FetchRequest) ([]models.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("fetch_request", err.Error())
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("resolution", string(req.Resolution))
	params.Set("start", strconv.FormatInt(req.Start.Unix(), 10))
	params.Set("end", strconv.FormatInt(req.End.Unix(), 10))

	c.logger.Debug("fetching candles",
		"symbol", req.Symbol,
		"resolution", req.Resolution,
		"start", req.Start,
		"end", req.End)

	var raw []deltaCandle
	if err := c.getJSON(ctx, "fetch_candles", candlesEndpoint, params, &raw); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(raw))
	for i, rc := range raw {
		candle, err := c.convertCandleToModel(rc, req.Symbol, string(req.Resolution))
		if err != nil {
			return nil, apperr.Parse("exchange", "fetch_candles",
				fmt.Errorf("candle %d: %w", i, err))
		}
		candles = append(candles, *candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	c.logger.Debug("fetched candles", "count", len(candles))
	return candles, nil
}

// getJSON issues a GET and decodes the "result" field of the Delta envelope
// into out. Transport failures, non-2xx statuses and success=false responses
// are network errors; anything that does not match the envelope is a parse
// error.
func (c *DeltaClient) getJSON(ctx context.Context, operation, endpoint string, params url.Values, out interface{}) error {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return apperr.Network("exchange", operation, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network("exchange", operation, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Network("exchange", operation, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Network("exchange", operation,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, maxErrorBody))).
			WithContext("status", resp.StatusCode)
	}

	var envelope deltaEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apperr.Parse("exchange", operation, fmt.Errorf("failed to decode response: %w", err))
	}

	if envelope.Success != nil && !*envelope.Success {
		return apperr.Network("exchange", operation,
			fmt.Errorf("api reported failure: %s", envelope.Error.describe()))
	}

	result := bytes.TrimSpace(envelope.Result)
	if len(result) == 0 || result[0] != '[' {
		return apperr.Parse("exchange", operation,
			fmt.Errorf("unexpected response format: expected \"result\" list, got %s", truncate(body, maxErrorBody)))
	}

	if err := json.Unmarshal(result, out); err != nil {
		return apperr.Parse("exchange", operation, fmt.Errorf("failed to decode result: %w", err))
	}

	return nil
}

func (c *DeltaClient) convertCandleToModel(candle deltaCandle, symbol, resolution string) (*models.Candle, error) {
	if candle.Time == nil {
		return nil, fmt.Errorf("missing time")
	}

	return models.NewCandle(
		time.Unix(*candle.Time, 0),
		candle.Open.String(),
		candle.High.String(),
		candle.Low.String(),
		candle.Close.String(),
		candle.Volume.String(),
		symbol,
		resolution,
	)
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

// API response structures

type deltaEnvelope struct {
	Success *bool           `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *deltaError     `json:"error"`
}

type deltaError struct {
	Code    string          `json:"code"`
	Context json.RawMessage `json:"context"`
}

func (e *deltaError) describe() string {
	if e == nil {
		return "unknown error"
	}
	if len(e.Context) > 0 {
		return e.Code + " " + string(e.Context)
	}
	return e.Code
}

type deltaCandle struct {
	Time   *int64      `json:"time"`
	Open   json.Number `json:"open"`
	High   json.Number `json:"high"`
	Low    json.Number `json:"low"`
	Close  json.Number `json:"close"`
	Volume json.Number `json:"volume"`
}

type deltaProduct struct {
	ID           int64  `json:"id"`
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
	State        string `json:"state"`
	ContractType string `json:"contract_type"`
}

type deltaTicker struct {
	Symbol      string      `json:"symbol"`
	TurnoverUSD json.Number `json:"turnover_usd"`
	Volume      json.Number `json:"volume"`
	Open        json.Number `json:"open"`
	High        json.Number `json:"high"`
	Low         json.Number `json:"low"`
	Close       json.Number `json:"close"`
	MarkPrice   json.Number `json:"mark_price"`
}
