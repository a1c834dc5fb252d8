package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
)

// Resolution is the time-bucket size of a candle, in the exchange's notation.
type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution3m  Resolution = "3m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution30m Resolution = "30m"
	Resolution1h  Resolution = "1h"
	Resolution2h  Resolution = "2h"
	Resolution4h  Resolution = "4h"
	Resolution6h  Resolution = "6h"
	Resolution1d  Resolution = "1d"
	Resolution1w  Resolution = "1w"
)

var resolutionDurations = map[Resolution]time.Duration{
	Resolution1m:  time.Minute,
	Resolution3m:  3 * time.Minute,
	Resolution5m:  5 * time.Minute,
	Resolution15m: 15 * time.Minute,
	Resolution30m: 30 * time.Minute,
	Resolution1h:  time.Hour,
	Resolution2h:  2 * time.Hour,
	Resolution4h:  4 * time.Hour,
	Resolution6h:  6 * time.Hour,
	Resolution1d:  24 * time.Hour,
	Resolution1w:  7 * 24 * time.Hour,
}

// ParseResolution normalises and validates a resolution string.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := resolutionDurations[r]; !ok {
		return "", apperr.Validation("resolution",
			fmt.Sprintf("unsupported resolution %q, use one of: %s", s, strings.Join(SupportedResolutions(), ", ")))
	}
	return r, nil
}

// Duration returns the length of one candle, or zero for an unknown value.
func (r Resolution) Duration() time.Duration {
	return resolutionDurations[r]
}

// String implements fmt.Stringer.
func (r Resolution) String() string {
	return string(r)
}

// SupportedResolutions lists every resolution, shortest first.
func SupportedResolutions() []string {
	all := make([]Resolution, 0, len(resolutionDurations))
	for r := range resolutionDurations {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return resolutionDurations[all[i]] < resolutionDurations[all[j]]
	})

	out := make([]string, len(all))
	for i, r := range all {
		out[i] = string(r)
	}
	return out
}
