package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooFinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewYahooFinanceClient(srv.URL, 5*time.Second, zerolog.Nop())
	client.now = func() time.Time { return time.Unix(1735689600, 0) } // 2025-01-01
	return client
}

// 1672531200 is 2023-01-01, outside the trailing year.
const yahooChartBody = `{"chart":{"result":[{
	"meta":{"symbol":"AAPL","currency":"USD"},
	"timestamp":[1735516800,1672531200,1735430400,1735603200],
	"indicators":{"quote":[{
		"open":[219,100,218,220],
		"high":[221,101,220,222],
		"low":[218,99,217,219],
		"close":[220.5,100.5,219,221.25],
		"volume":[1000,9,2000,3000]
	}]}
}],"error":null}}`

func TestYahooFetchDailyHistory(t *testing.T) {
	client := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.URL.Query().Get("period2"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yahooChartBody))
	})

	series, err := client.FetchDailyHistory(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Ticker)
	assert.Equal(t, []float64{219.0, 220.5, 221.25}, series.Closes())
	last, ok := series.Last()
	require.True(t, ok)
	assert.Equal(t, int64(3000), last.Volume)
	assert.Equal(t, 222.0, last.High)
}

func TestYahooUnknownTicker(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
			},
		},
		{
			name: "error in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			},
		},
		{
			name: "empty result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
			},
		},
		{
			name: "result without quotes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[]}],"error":null}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestYahoo(t, tt.handler)

			_, err := client.FetchDailyHistory(context.Background(), "ZZQXQ9")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownTicker), "got %v", err)

			var unknown *UnknownTickerError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, "ZZQXQ9", unknown.Ticker)
			assert.Equal(t, "yahoo", unknown.Provider)
		})
	}
}

func TestYahooServerErrorPropagates(t *testing.T) {
	client := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := client.FetchDailyHistory(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownTicker))
	assert.Contains(t, err.Error(), "429")
}

func TestYahooHonorsContextDeadline(t *testing.T) {
	client := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := client.FetchDailyHistory(ctx, "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(started), time.Second)
}
