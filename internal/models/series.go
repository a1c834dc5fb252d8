package models

import (
	"sort"
	"time"
)

// CandleSeries is an ordered sequence of candles for one symbol and resolution.
type CandleSeries []Candle

// Len returns the number of candles in the series.
func (s CandleSeries) Len() int { return len(s) }

// IsEmpty reports whether the series holds no candles.
func (s CandleSeries) IsEmpty() bool { return len(s) == 0 }

// Normalize returns a copy sorted by ascending timestamp with duplicate
// timestamps removed. The first occurrence of a timestamp wins.
func (s CandleSeries) Normalize() CandleSeries {
	if len(s) == 0 {
		return CandleSeries{}
	}

	sorted := make(CandleSeries, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:1]
	for _, c := range sorted[1:] {
		if c.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Between returns the candles whose timestamp lies in [start, end].
func (s CandleSeries) Between(start, end time.Time) CandleSeries {
	out := make(CandleSeries, 0, len(s))
	for _, c := range s {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsStrictlyAscending reports whether timestamps strictly increase.
func (s CandleSeries) IsStrictlyAscending() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// First returns the earliest candle, or nil for an empty series.
func (s CandleSeries) First() *Candle {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// Last returns the latest candle, or nil for an empty series.
func (s CandleSeries) Last() *Candle {
	if len(s) == 0 {
		return nil
	}
	return &s[len(s)-1]
}

// Head returns at most n candles from the start of the series.
func (s CandleSeries) Head(n int) CandleSeries {
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// Tail returns at most n candles from the end of the series.
func (s CandleSeries) Tail(n int) CandleSeries {
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return s[len(s)-n:]
}
