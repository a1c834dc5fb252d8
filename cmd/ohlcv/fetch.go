package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/export"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/fetcher"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/logger"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// symbolHintCount is how many symbols are suggested after a bad entry
const symbolHintCount = 10

// FetchFlags holds the flags of the fetch command
type FetchFlags struct {
	Symbol  string
	Start   string
	End     string
	Output  string
	Preview int
}

func (cli *CLI) newFetchCommand() *cobra.Command {
	flags := &FetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download candles for one symbol over a date range",
		Long: `Download candles for one symbol over an inclusive date range and write
them to a delimited file. Missing symbol or dates are asked for interactively.`,
		Example: `  ohlcv fetch --symbol BTCUSD --start 2021-01-01 --end 2021-01-05
  ohlcv fetch --symbol ETHUSD --start 2023-01-01 --end 2023-01-31 --resolution 1h --output eth.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.handleFetch(cmd.Context(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Symbol, "symbol", "s", "", "trading symbol, e.g. BTCUSD")
	f.StringVar(&flags.Start, "start", "", "start date (YYYY-MM-DD), inclusive")
	f.StringVar(&flags.End, "end", "", "end date (YYYY-MM-DD), inclusive")
	f.StringVarP(&flags.Output, "output", "o", "", "output file (default: SYMBOL_RES_START_END_ohlc.csv in export.dir)")
	f.IntVar(&flags.Preview, "preview", 5, "rows shown from the head and tail of the series, 0 to disable")
	f.StringP("resolution", "r", "1d", "candle resolution: "+fmt.Sprint(models.SupportedResolutions()))
	f.String("delimiter", ",", `column delimiter, one character or "tab"`)
	f.Int("page-size", fetcher.DefaultPageSize, "candles requested per page")
	f.String("output-dir", ".", "directory for the default output file")

	return cmd
}

// handleFetch runs the three stages: symbol lookup, range fetch, export
func (cli *CLI) handleFetch(ctx context.Context, flags *FetchFlags) error {
	resolution, err := models.ParseResolution(cli.config.Fetch.Resolution)
	if err != nil {
		return apperr.Validation("resolution", err.Error())
	}

	var symbols models.SymbolSet
	err = logger.TimedOperation(ctx, cli.logger, "list_symbols", func(ctx context.Context) error {
		var err error
		symbols, err = fetcher.ListSymbols(ctx, cli.exchange)
		return err
	})
	if err != nil {
		return err
	}
	cli.logger.InfoContext(ctx, "Loaded active symbols", "count", symbols.Len())

	p := newPrompter(cli.stdin, cli.stdout)

	symbol := models.NormalizeSymbol(flags.Symbol)
	switch {
	case symbol == "":
		if symbol, err = p.askSymbol(symbols, symbolHintCount); err != nil {
			return err
		}
	case !symbols.Contains(symbol):
		return apperr.InvalidSymbol(symbol, symbols.Len())
	}

	dateRange, err := cli.resolveDateRange(p, flags)
	if err != nil {
		return err
	}

	ctx = logger.WithSymbol(ctx, symbol)
	ctx = logger.WithResolution(ctx, string(resolution))

	rf := fetcher.New(cli.exchange, fetcher.Config{
		PageSize:     cli.config.Fetch.PageSize,
		PageInterval: cli.config.Fetch.PageInterval,
		Now:          cli.now,
		Logger:       cli.logs.GetComponentLogger(logger.ComponentFetcher),
	})

	var result *fetcher.Result
	err = logger.TimedOperation(ctx, cli.logger, "fetch_range", func(ctx context.Context) error {
		var err error
		result, err = rf.Fetch(ctx, symbols, fetcher.Request{
			Symbol:     symbol,
			Resolution: resolution,
			Range:      dateRange,
		})
		return err
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(cli.stderr, "Warning: %s\n", w)
	}

	if flags.Preview > 0 {
		renderPreview(cli.stdout, result, flags.Preview)
	}

	path := flags.Output
	if path == "" {
		path = filepath.Join(cli.config.Export.Dir, export.DefaultFileName(result.Symbol, resolution, dateRange))
	}

	exporter := export.NewCSVExporter(cli.config.Delimiter())
	exportLogger := cli.logs.GetComponentLogger(logger.ComponentExport)
	err = logger.TimedOperation(ctx, exportLogger, "export", func(ctx context.Context) error {
		return exporter.Export(result.Series, path)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.stdout, "Saved %d candles for %s (%s, %s) to %s\n",
		result.Series.Len(), result.Symbol, resolution, dateRange, path)
	return nil
}

// resolveDateRange parses the date flags, prompting for any that are missing
func (cli *CLI) resolveDateRange(p *prompter, flags *FetchFlags) (models.DateRange, error) {
	start, end := flags.Start, flags.End
	var err error

	if start == "" {
		if start, err = p.askDate("Start date (YYYY-MM-DD): "); err != nil {
			return models.DateRange{}, err
		}
	}
	if end == "" {
		if end, err = p.askDate("End date (YYYY-MM-DD): "); err != nil {
			return models.DateRange{}, err
		}
	}

	return models.ParseDateRange(start, end)
}
