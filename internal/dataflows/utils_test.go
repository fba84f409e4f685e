package dataflows

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/models"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "aapl", want: "AAPL"},
		{in: "  brk.b ", want: "BRK.B"},
		{in: "^GSPC", want: "^GSPC"},
		{in: "", wantErr: true},
		{in: "TOOLONGTICKER", wantErr: true},
		{in: "AA PL", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ValidateSymbol(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidTicker), "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestClipToWindow(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start, _ := Window(end)
	points := []models.PricePoint{
		{Date: start.AddDate(0, 0, -1), Close: 1},
		{Date: start.AddDate(0, 0, 1), Close: 2},
		{Date: end, Close: 3},
		{Date: end.AddDate(0, 0, 1), Close: 4},
	}

	series := clipToWindow("AAPL", points, start, end)
	assert.Equal(t, []float64{2, 3}, series.Closes())
}

func TestLongportSymbol(t *testing.T) {
	assert.Equal(t, "AAPL.US", longportSymbol("AAPL"))
	assert.Equal(t, "700.HK", longportSymbol("700.HK"))
}

func TestNewProviderSelection(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())

	p, err := NewProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	cfg.MarketDataProvider = "finnhub"
	_, err = NewProvider(cfg, zerolog.Nop())
	assert.Error(t, err, "finnhub without key")

	cfg.FinnhubAPIKey = "k"
	p, err = NewProvider(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "finnhub", p.Name())

	cfg.MarketDataProvider = "longport"
	_, err = NewProvider(cfg, zerolog.Nop())
	assert.Error(t, err, "longport without credentials")
}
