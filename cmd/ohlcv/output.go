package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/johnayoung/go-ohlcv-fetcher/internal/fetcher"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// newTableWriter returns a rounded, uncolored table mirrored to w
func newTableWriter(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

var numericColumns = []table.ColumnConfig{
	{Number: 2, Align: text.AlignRight},
	{Number: 3, Align: text.AlignRight},
	{Number: 4, Align: text.AlignRight},
	{Number: 5, Align: text.AlignRight},
	{Number: 6, Align: text.AlignRight},
	{Number: 7, Align: text.AlignRight},
}

// renderPreview prints the first and last n candles of a fetch result
func renderPreview(w io.Writer, result *fetcher.Result, n int) {
	series := result.Series
	title := fmt.Sprintf("%s %s  %s .. %s  (%d candles, %d pages)",
		result.Symbol, result.Resolution,
		result.Start.Format(time.RFC3339), result.End.Format(time.RFC3339),
		series.Len(), result.Pages)

	if series.Len() <= 2*n {
		renderCandles(w, title, series)
	} else {
		renderCandles(w, title+" head", series.Head(n))
		renderCandles(w, title+" tail", series.Tail(n))
	}

	if first, last := series.First(), series.Last(); first != nil {
		fmt.Fprintf(w, "Actual data starts: %s\n", first.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(w, "Actual data ends:   %s\n", last.Timestamp.Format(time.RFC3339))
	}
}

func renderCandles(w io.Writer, title string, series models.CandleSeries) {
	t := newTableWriter(w, title)
	t.AppendHeader(table.Row{"Timestamp", "Open", "High", "Low", "Close", "Volume", "Change"})
	t.SetColumnConfigs(numericColumns)
	for _, c := range series {
		change := ""
		if d, err := c.GetPriceChange(); err == nil {
			change = d.String()
		}
		t.AppendRow(table.Row{
			c.Timestamp.UTC().Format("2006-01-02 15:04"),
			c.Open, c.High, c.Low, c.Close, c.Volume, change,
		})
	}
	t.Render()
}

func renderProducts(w io.Writer, products []models.Product) {
	t := newTableWriter(w, "")
	t.AppendHeader(table.Row{"#", "Symbol", "Contract Type", "Description"})
	for i, p := range products {
		t.AppendRow(table.Row{i + 1, p.Symbol, p.ContractType, p.Description})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d symbols", len(products)), "", ""})
	t.Render()
}

func renderTickers(w io.Writer, ranked []models.RankedTicker) {
	t := newTableWriter(w, "Top symbols by 24h turnover")
	t.AppendHeader(table.Row{"Rank", "Symbol", "Turnover (USD)", "Close", "Volume"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for i, r := range ranked {
		t.AppendRow(table.Row{i + 1, r.Symbol, r.Turnover.StringFixed(2), r.Close, r.Volume})
	}
	t.Render()
}
