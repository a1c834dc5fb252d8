package models

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductStateLive is the state of a product that is currently tradable.
const ProductStateLive = "live"

// Product is an entry of the exchange product catalog.
type Product struct {
	Symbol       string `json:"symbol"`
	State        string `json:"state"`
	ContractType string `json:"contract_type"`
	Description  string `json:"description"`
}

// Active reports whether the product is currently listed for trading.
func (p Product) Active() bool {
	return strings.EqualFold(p.State, ProductStateLive)
}

// SymbolSet is a set of trading symbols.
type SymbolSet map[string]struct{}

// NewSymbolSet builds the set of active symbols from a product catalog.
func NewSymbolSet(products []Product) SymbolSet {
	set := make(SymbolSet, len(products))
	for _, p := range products {
		if p.Symbol == "" || !p.Active() {
			continue
		}
		set[p.Symbol] = struct{}{}
	}
	return set
}

// Contains reports whether symbol is in the set.
func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Len returns the number of symbols.
func (s SymbolSet) Len() int { return len(s) }

// Sorted returns the symbols in lexical order.
func (s SymbolSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Sample returns up to n symbols in lexical order, for user hints.
func (s SymbolSet) Sample(n int) []string {
	sorted := s.Sorted()
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// NormalizeSymbol trims and upper-cases user input.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Ticker holds 24h market statistics for a symbol.
type Ticker struct {
	Symbol      string `json:"symbol"`
	TurnoverUSD string `json:"turnover_usd"`
	Volume      string `json:"volume"`
	Open        string `json:"open"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Close       string `json:"close"`
	MarkPrice   string `json:"mark_price"`
}

// RankedTicker is a ticker with its parsed turnover.
type RankedTicker struct {
	Ticker
	Turnover decimal.Decimal
}

// TopByTurnover returns at most n tickers ordered by 24h USD turnover,
// highest first. Tickers whose turnover does not parse are dropped.
func TopByTurnover(tickers []Ticker, n int) []RankedTicker {
	ranked := make([]RankedTicker, 0, len(tickers))
	for _, t := range tickers {
		turnover, err := decimal.NewFromString(t.TurnoverUSD)
		if err != nil {
			continue
		}
		ranked = append(ranked, RankedTicker{Ticker: t, Turnover: turnover})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Turnover.GreaterThan(ranked[j].Turnover)
	})

	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
