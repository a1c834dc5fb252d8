package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeDelta serves products, tickers and one daily candle per day of the
// requested window, newest first like the real API.
type fakeDelta struct {
	server       *httptest.Server
	candleCalls  atomic.Int32
	productsCode int
}

func newFakeDelta(t *testing.T) *fakeDelta {
	t.Helper()
	fd := &fakeDelta{productsCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/products", func(w http.ResponseWriter, r *http.Request) {
		if fd.productsCode != http.StatusOK {
			w.WriteHeader(fd.productsCode)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"internal_error"}}`))
			return
		}
		writeResult(w, []map[string]interface{}{
			{"id": 27, "symbol": "BTCUSD", "state": "live", "contract_type": "perpetual_futures", "description": "Bitcoin Perpetual"},
			{"id": 3136, "symbol": "ETHUSD", "state": "live", "contract_type": "perpetual_futures", "description": "Ether Perpetual"},
			{"id": 9001, "symbol": "OLDUSD", "state": "expired", "contract_type": "futures", "description": "Delisted"},
		})
	})
	mux.HandleFunc("/v2/tickers", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, []map[string]interface{}{
			{"symbol": "ETHUSD", "turnover_usd": 1500000.5, "close": "3500", "volume": "420"},
			{"symbol": "BTCUSD", "turnover_usd": "98000000.25", "close": "67000", "volume": "1460"},
		})
	})
	mux.HandleFunc("/v2/history/candles", func(w http.ResponseWriter, r *http.Request) {
		fd.candleCalls.Add(1)
		q := r.URL.Query()
		start, err := strconv.ParseInt(q.Get("start"), 10, 64)
		require.NoError(t, err)
		end, err := strconv.ParseInt(q.Get("end"), 10, 64)
		require.NoError(t, err)

		const day = int64(86400)
		first := (start + day - 1) / day * day
		candles := []map[string]interface{}{}
		for ts := end / day * day; ts >= first; ts -= day {
			candles = append(candles, map[string]interface{}{
				"time": ts, "open": 100, "high": 110, "low": 90, "close": 105, "volume": 12.5,
			})
		}
		writeResult(w, candles)
	})

	fd.server = httptest.NewServer(mux)
	t.Cleanup(fd.server.Close)
	return fd
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "result": result})
}

// testEnv points the CLI at fd from a clean working directory
func testEnv(t *testing.T, fd *fakeDelta) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OHLCV_EXCHANGE_BASE_URL", fd.server.URL)
	t.Setenv("OHLCV_FETCH_PAGE_INTERVAL", "0s")
	chdir(t, dir)
	return dir
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

type cliOutput struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, ctx context.Context, stdin string, args ...string) cliOutput {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cli := newCLI(strings.NewReader(stdin), &stdout, &stderr)
	cli.now = func() time.Time { return fixedNow }

	code := cli.execute(ctx, args)
	return cliOutput{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestFetchCommand(t *testing.T) {
	t.Run("flags only", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "btcusd", "--start", "2021-01-01", "--end", "2021-01-05")

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		path := filepath.Join(dir, "BTCUSD_1d_20210101_20210105_ohlc.csv")
		lines := readLines(t, path)
		require.Len(t, lines, 6)
		assert.Equal(t, "timestamp,open,high,low,close,volume", lines[0])
		assert.Equal(t, "2021-01-01T00:00:00Z,100,110,90,105,12.5", lines[1])
		assert.Equal(t, "2021-01-05T00:00:00Z,100,110,90,105,12.5", lines[5])
		// export.dir defaults to ".", so the reported path is relative
		assert.Contains(t, out.stdout, "Saved 5 candles")
		assert.Contains(t, out.stdout, "to BTCUSD_1d_20210101_20210105_ohlc.csv\n")
		assert.Contains(t, out.stdout, "Actual data starts: 2021-01-01T00:00:00Z")
		assert.Contains(t, out.stdout, "Actual data ends:   2021-01-05T00:00:00Z")
		assert.Equal(t, int32(1), fd.candleCalls.Load())
	})

	t.Run("output dir from flag", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)
		outDir := filepath.Join(dir, "data")

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-01-01", "--end", "2021-01-02",
			"--output-dir", outDir)

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		path := filepath.Join(outDir, "BTCUSD_1d_20210101_20210102_ohlc.csv")
		assert.FileExists(t, path)
		assert.Contains(t, out.stdout, path)
	})

	t.Run("output path and delimiter", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)
		path := filepath.Join(dir, "nested", "eth.tsv")

		out := runCLI(t, context.Background(), "",
			"fetch", "-s", "ETHUSD", "--start", "2022-02-01", "--end", "2022-02-02",
			"--delimiter", "tab", "--output", path, "--preview", "0")

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		lines := readLines(t, path)
		require.Len(t, lines, 3)
		assert.Equal(t, "timestamp\topen\thigh\tlow\tclose\tvolume", lines[0])
		assert.NotContains(t, out.stdout, "TIMESTAMP")
	})

	t.Run("unknown symbol", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "ZZZFAKE", "--start", "2021-01-01", "--end", "2021-01-05")

		assert.Equal(t, apperr.ExitInvalidSymbol, out.code)
		assert.Contains(t, out.stderr, "ZZZFAKE")
		assert.Equal(t, int32(0), fd.candleCalls.Load())
	})

	t.Run("custom env file", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)
		// registered so cleanup unsets whatever the env file loads
		t.Setenv("OHLCV_EXPORT_DELIMITER", "")
		require.NoError(t, os.Unsetenv("OHLCV_EXPORT_DELIMITER"))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.env"), []byte("OHLCV_EXPORT_DELIMITER=;\n"), 0o600))

		out := runCLI(t, context.Background(), "",
			"--env-file", "custom.env",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-01-01", "--end", "2021-01-01")

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		lines := readLines(t, filepath.Join(dir, "BTCUSD_1d_20210101_20210101_ohlc.csv"))
		assert.Equal(t, "timestamp;open;high;low;close;volume", lines[0])
	})

	t.Run("unknown symbol flag without dates", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "", "fetch", "--symbol", "ZZZFAKE")

		assert.Equal(t, apperr.ExitInvalidSymbol, out.code, out.stderr)
		assert.NotContains(t, out.stdout, "Start date")
		assert.Equal(t, int32(0), fd.candleCalls.Load())
	})

	t.Run("future range", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2030-01-01", "--end", "2030-01-05")

		assert.Equal(t, apperr.ExitEmptyRange, out.code)
		assert.Equal(t, int32(0), fd.candleCalls.Load())
	})

	t.Run("range clamped to data floor", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2020-03-01", "--end", "2020-04-02")

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		assert.Contains(t, out.stderr, "Warning:")
		lines := readLines(t, filepath.Join(dir, "BTCUSD_1d_20200301_20200402_ohlc.csv"))
		assert.Len(t, lines, 5)
	})

	t.Run("interactive prompts", func(t *testing.T) {
		fd := newFakeDelta(t)
		dir := testEnv(t, fd)

		out := runCLI(t, context.Background(), "zzz\nbtcusd\nbad-date\n2021-01-01\n2021-01-05\n", "fetch")

		require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
		assert.Contains(t, out.stdout, `"ZZZ" is not a valid or currently listed symbol`)
		assert.Contains(t, out.stdout, "BTCUSD, ETHUSD")
		assert.Contains(t, out.stdout, "Invalid date format")
		assert.FileExists(t, filepath.Join(dir, "BTCUSD_1d_20210101_20210105_ohlc.csv"))
	})

	t.Run("input ends before an answer", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "zzz\n", "fetch")

		assert.Equal(t, apperr.ExitUsageError, out.code)
		assert.Equal(t, int32(0), fd.candleCalls.Load())
	})

	t.Run("bad date flag", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-13-01", "--end", "2021-01-05")

		assert.Equal(t, apperr.ExitUsageError, out.code)
		assert.Contains(t, out.stderr, "YYYY-MM-DD")
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		fd := newFakeDelta(t)
		fd.productsCode = http.StatusInternalServerError
		testEnv(t, fd)

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-01-01", "--end", "2021-01-05")

		assert.Equal(t, apperr.ExitNetworkError, out.code)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)
		t.Setenv("OHLCV_FETCH_PAGE_SIZE", "0")

		out := runCLI(t, context.Background(), "",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-01-01", "--end", "2021-01-05")

		assert.Equal(t, apperr.ExitConfigError, out.code)
		assert.Contains(t, out.stderr, "page_size")
	})

	t.Run("interrupted", func(t *testing.T) {
		fd := newFakeDelta(t)
		testEnv(t, fd)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := runCLI(t, ctx, "",
			"fetch", "--symbol", "BTCUSD", "--start", "2021-01-01", "--end", "2021-01-05")

		assert.Equal(t, apperr.ExitInterrupt, out.code)
	})
}

func TestSymbolsCommand(t *testing.T) {
	fd := newFakeDelta(t)
	testEnv(t, fd)

	out := runCLI(t, context.Background(), "", "symbols")
	require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
	assert.Contains(t, out.stdout, "BTCUSD")
	assert.Contains(t, out.stdout, "ETHUSD")
	assert.NotContains(t, out.stdout, "OLDUSD")
	assert.Contains(t, out.stdout, "2 SYMBOLS")

	out = runCLI(t, context.Background(), "", "symbols", "--filter", "eth")
	require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
	assert.Contains(t, out.stdout, "ETHUSD")
	assert.NotContains(t, out.stdout, "BTCUSD")
}

func TestTopCommand(t *testing.T) {
	fd := newFakeDelta(t)
	testEnv(t, fd)

	out := runCLI(t, context.Background(), "", "top", "--n", "1")
	require.Equal(t, apperr.ExitSuccess, out.code, out.stderr)
	assert.Contains(t, out.stdout, "BTCUSD")
	assert.Contains(t, out.stdout, "98000000.25")
	assert.NotContains(t, out.stdout, "ETHUSD")

	out = runCLI(t, context.Background(), "", "top", "--n", "0")
	assert.Equal(t, apperr.ExitUsageError, out.code)
}

func TestVersionCommand(t *testing.T) {
	out := runCLI(t, context.Background(), "", "version")
	require.Equal(t, apperr.ExitSuccess, out.code)
	assert.Equal(t, fmt.Sprintf("%s version %s\n", AppName, Version), out.stdout)
}

func TestUnknownCommand(t *testing.T) {
	fd := newFakeDelta(t)
	testEnv(t, fd)

	out := runCLI(t, context.Background(), "", "nope")
	assert.Equal(t, apperr.ExitUsageError, out.code)
	assert.Contains(t, out.stderr, "unknown command")
}
