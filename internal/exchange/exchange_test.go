package exchange

import (
	"testing"
	"time"

	"github.com/johnayoung/go-ohlcv-fetcher/internal/models"
	"github.com/stretchr/testify/assert"
)

// TestInterfaceDefinitions verifies the Delta client satisfies every capability
func TestInterfaceDefinitions(t *testing.T) {
	var _ ProductLister = (*DeltaClient)(nil)
	var _ CandleFetcher = (*DeltaClient)(nil)
	var _ TickerProvider = (*DeltaClient)(nil)
	var _ Exchange = (*DeltaClient)(nil)
}

func TestFetchRequestValidation(t *testing.T) {
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		request   FetchRequest
		wantError bool
		errField  string
	}{
		{
			name: "valid request",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution1d,
				Start:      now,
				End:        now.Add(24 * time.Hour),
			},
			wantError: false,
		},
		{
			name: "start equals end",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution1h,
				Start:      now,
				End:        now,
			},
			wantError: false,
		},
		{
			name: "empty symbol",
			request: FetchRequest{
				Resolution: models.Resolution1d,
				Start:      now,
				End:        now.Add(time.Hour),
			},
			wantError: true,
			errField:  "symbol",
		},
		{
			name: "unsupported resolution",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution("7s"),
				Start:      now,
				End:        now.Add(time.Hour),
			},
			wantError: true,
			errField:  "resolution",
		},
		{
			name: "zero start",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution1d,
				End:        now,
			},
			wantError: true,
			errField:  "start",
		},
		{
			name: "zero end",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution1d,
				Start:      now,
			},
			wantError: true,
			errField:  "end",
		},
		{
			name: "end before start",
			request: FetchRequest{
				Symbol:     "BTCUSD",
				Resolution: models.Resolution1d,
				Start:      now,
				End:        now.Add(-time.Hour),
			},
			wantError: true,
			errField:  "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}

			if assert.Error(t, err) {
				vErr, ok := err.(*ValidationError)
				if assert.True(t, ok, "expected *ValidationError, got %T", err) {
					assert.Equal(t, tt.errField, vErr.Field)
					assert.Contains(t, vErr.Error(), tt.errField)
				}
			}
		})
	}
}
