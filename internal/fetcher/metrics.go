package fetcher

import (
	"sync/atomic"
	"time"
)

// FetchMetrics is a snapshot of the work done by a RangeFetcher.
type FetchMetrics struct {
	Pages             int64         `json:"pages"`
	EmptyPages        int64         `json:"empty_pages"`
	CandlesReceived   int64         `json:"candles_received"`
	CandlesKept       int64         `json:"candles_kept"`
	DuplicatesDropped int64         `json:"duplicates_dropped"`
	OutOfWindow       int64         `json:"out_of_window"`
	ErrorCount        int64         `json:"error_count"`
	AvgResponseTime   time.Duration `json:"avg_response_time"`
	Elapsed           time.Duration `json:"elapsed"`
}

// metricsCollector tracks page statistics
type metricsCollector struct {
	pages             int64
	emptyPages        int64
	candlesReceived   int64
	candlesKept       int64
	duplicatesDropped int64
	outOfWindow       int64
	errorCount        int64

	// Response time tracking
	totalResponseTime int64 // nanoseconds
	responseCount     int64

	startTime time.Time
}

func newMetricsCollector() *metricsCollector {
	return &metricsCollector{startTime: time.Now()}
}

// recordPage records one successful page request
func (m *metricsCollector) recordPage(received, kept, duplicates, outOfWindow int, duration time.Duration) {
	atomic.AddInt64(&m.pages, 1)
	if received == 0 {
		atomic.AddInt64(&m.emptyPages, 1)
	}
	atomic.AddInt64(&m.candlesReceived, int64(received))
	atomic.AddInt64(&m.candlesKept, int64(kept))
	atomic.AddInt64(&m.duplicatesDropped, int64(duplicates))
	atomic.AddInt64(&m.outOfWindow, int64(outOfWindow))
	atomic.AddInt64(&m.totalResponseTime, duration.Nanoseconds())
	atomic.AddInt64(&m.responseCount, 1)
}

func (m *metricsCollector) recordError() {
	atomic.AddInt64(&m.errorCount, 1)
}

// snapshot returns the current metrics
func (m *metricsCollector) snapshot() FetchMetrics {
	totalResponseTime := atomic.LoadInt64(&m.totalResponseTime)
	responseCount := atomic.LoadInt64(&m.responseCount)

	var avgResponseTime time.Duration
	if responseCount > 0 {
		avgResponseTime = time.Duration(totalResponseTime / responseCount)
	}

	return FetchMetrics{
		Pages:             atomic.LoadInt64(&m.pages),
		EmptyPages:        atomic.LoadInt64(&m.emptyPages),
		CandlesReceived:   atomic.LoadInt64(&m.candlesReceived),
		CandlesKept:       atomic.LoadInt64(&m.candlesKept),
		DuplicatesDropped: atomic.LoadInt64(&m.duplicatesDropped),
		OutOfWindow:       atomic.LoadInt64(&m.outOfWindow),
		ErrorCount:        atomic.LoadInt64(&m.errorCount),
		AvgResponseTime:   avgResponseTime,
		Elapsed:           time.Since(m.startTime),
	}
}
