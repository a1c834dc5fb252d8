package main

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/logger"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

func (cli *CLI) newSymbolsCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the symbols currently listed for trading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.handleSymbols(cmd.Context(), filter)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show symbols containing this text")

	return cmd
}

// handleSymbols prints the active products, optionally filtered by substring
func (cli *CLI) handleSymbols(ctx context.Context, filter string) error {
	var products []models.Product
	err := logger.TimedOperation(ctx, cli.logger, "list_products", func(ctx context.Context) error {
		var err error
		products, err = cli.exchange.ListProducts(ctx)
		return err
	})
	if err != nil {
		return err
	}

	filter = strings.ToUpper(strings.TrimSpace(filter))
	active := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.Active() || p.Symbol == "" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToUpper(p.Symbol), filter) {
			continue
		}
		active = append(active, p)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Symbol < active[j].Symbol })

	renderProducts(cli.stdout, active)
	return nil
}

func (cli *CLI) newTopCommand() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most traded symbols by 24h USD turnover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.handleTop(cmd.Context(), n)
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 10, "number of symbols to show")

	return cmd
}

// handleTop ranks the tickers by turnover and prints the first n
func (cli *CLI) handleTop(ctx context.Context, n int) error {
	if n <= 0 {
		return apperr.Validation("n", "must be greater than 0")
	}

	var tickers []models.Ticker
	err := logger.TimedOperation(ctx, cli.logger, "list_tickers", func(ctx context.Context) error {
		var err error
		tickers, err = cli.exchange.ListTickers(ctx)
		return err
	})
	if err != nil {
		return err
	}

	renderTickers(cli.stdout, models.TopByTurnover(tickers, n))
	return nil
}
