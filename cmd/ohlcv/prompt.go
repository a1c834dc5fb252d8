package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// prompter reads answers line by line from the user
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed next line
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", apperr.Validation("input", "no answer given to "+strings.TrimSpace(label))
	}
	return strings.TrimSpace(line), nil
}

// askSymbol asks until the answer is an active symbol
func (p *prompter) askSymbol(symbols models.SymbolSet, hints int) (string, error) {
	for {
		answer, err := p.ask("Symbol (e.g. BTCUSD): ")
		if err != nil {
			return "", err
		}

		symbol := models.NormalizeSymbol(answer)
		if symbol == "" {
			continue
		}
		if symbols.Contains(symbol) {
			return symbol, nil
		}

		fmt.Fprintf(p.out, "%q is not a valid or currently listed symbol. Examples: %s\n",
			symbol, strings.Join(symbols.Sample(hints), ", "))
	}
}

// askDate asks until the answer is a YYYY-MM-DD date
func (p *prompter) askDate(label string) (string, error) {
	for {
		answer, err := p.ask(label)
		if err != nil {
			return "", err
		}
		if _, err := time.Parse(models.DateLayout, answer); err == nil {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Invalid date format, use YYYY-MM-DD.")
	}
}
