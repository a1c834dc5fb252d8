// Package export writes candle series to delimited text files and reads them back.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
)

// DefaultDelimiter separates columns unless configured otherwise.
const DefaultDelimiter = ','

// Header is the fixed column order of an export file.
var Header = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CSVExporter writes one row per candle after a header row.
type CSVExporter struct {
	Delimiter rune
}

// NewCSVExporter returns an exporter using delimiter, or DefaultDelimiter when zero.
func NewCSVExporter(delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &CSVExporter{Delimiter: delimiter}
}

// ParseDelimiter accepts a single character or the word "tab".
func ParseDelimiter(s string) (rune, error) {
	if strings.EqualFold(s, "tab") || s == `\t` {
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '\r' || r[0] == '\n' || r[0] == '"' {
		return 0, apperr.Validation("delimiter", fmt.Sprintf("%q is not a single usable character", s))
	}
	return r[0], nil
}

// Export writes series to path, replacing any existing file. The parent
// directory is created when missing.
func (e *CSVExporter) Export(series models.CandleSeries, path string) error {
	if series.IsEmpty() {
		return apperr.Validation("series", "refusing to export an empty series")
	}
	if !series.IsStrictlyAscending() {
		return apperr.Validation("series", "timestamps must be strictly ascending")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.IO("create_dir", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return apperr.IO("create_file", path, err)
	}

	if err := e.write(file, series); err != nil {
		file.Close()
		return apperr.IO("write_file", path, err)
	}
	if err := file.Close(); err != nil {
		return apperr.IO("close_file", path, err)
	}
	return nil
}

func (e *CSVExporter) write(w io.Writer, series models.CandleSeries) error {
	buf := bufio.NewWriter(w)
	cw := csv.NewWriter(buf)
	cw.Comma = e.delimiter()

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range series {
		record := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// Read parses a file written by Export. Symbol and resolution are not stored
// in the file and are attached to every candle.
func (e *CSVExporter) Read(path, symbol, resolution string) (models.CandleSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO("open_file", path, err)
	}
	defer file.Close()

	cr := csv.NewReader(bufio.NewReader(file))
	cr.Comma = e.delimiter()
	cr.FieldsPerRecord = len(Header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperr.IO("read_file", path, err)
	}
	if len(records) == 0 {
		return nil, apperr.IO("read_file", path, fmt.Errorf("missing header"))
	}
	for i, col := range Header {
		if records[0][i] != col {
			return nil, apperr.IO("read_file", path,
				fmt.Errorf("unexpected header column %d: got %q, want %q", i+1, records[0][i], col))
		}
	}

	series := make(models.CandleSeries, 0, len(records)-1)
	for i, rec := range records[1:] {
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, apperr.IO("read_file", path, fmt.Errorf("line %d: %w", i+2, err))
		}
		candle, err := models.NewCandle(ts, rec[1], rec[2], rec[3], rec[4], rec[5], symbol, resolution)
		if err != nil {
			return nil, apperr.IO("read_file", path, fmt.Errorf("line %d: %w", i+2, err))
		}
		series = append(series, *candle)
	}
	return series, nil
}

func (e *CSVExporter) delimiter() rune {
	if e.Delimiter == 0 {
		return DefaultDelimiter
	}
	return e.Delimiter
}

// DefaultFileName builds SYMBOL_RES_YYYYMMDD_YYYYMMDD_ohlc.csv for a range.
func DefaultFileName(symbol string, resolution models.Resolution, r models.DateRange) string {
	return fmt.Sprintf("%s_%s_%s_%s_ohlc.csv",
		symbol,
		resolution,
		r.Start.Format("20060102"),
		r.End.Format("20060102"),
	)
}
