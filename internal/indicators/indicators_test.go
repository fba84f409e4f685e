package indicators

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/internal/models"
)

func seriesOf(closes ...float64) *models.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return models.NewPriceSeries("TEST", points)
}

func TestLatestClose(t *testing.T) {
	v, err := LatestClose(seriesOf(10, 11, 12.5))
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = LatestClose(seriesOf())
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestSMA(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)

	v, err := SMA(s, 2)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, v, 1e-12)

	v, err = SMA(s, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	_, err = SMA(s, 6)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, err = SMA(s, 0)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

// The calculators use the whole history, so a moving average of a trending
// series differs from the last close.
func TestMovingAveragesUseFullSeries(t *testing.T) {
	s := seriesOf(10, 20, 30, 40)

	sma, err := SMA(s, 4)
	require.NoError(t, err)
	assert.NotEqual(t, 40.0, sma)

	ema, err := EMA(s, 3)
	require.NoError(t, err)
	assert.NotEqual(t, 40.0, ema)
}

func TestEMAHandComputed(t *testing.T) {
	// alpha = 0.5: 1, 1.5, 2.25, 3.125
	v, err := EMA(seriesOf(1, 2, 3, 4), 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.125, v, 1e-12)

	v, err = EMA(seriesOf(7), 10)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = EMA(seriesOf(), 10)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, err = EMA(seriesOf(1, 2), -1)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestEMAIsOrderSensitive(t *testing.T) {
	forward, err := EMA(seriesOf(1, 2, 3, 4, 5), 3)
	require.NoError(t, err)
	reversed, err := EMA(seriesOf(5, 4, 3, 2, 1), 3)
	require.NoError(t, err)
	assert.NotEqual(t, forward, reversed)
}

func TestRSI(t *testing.T) {
	v, err := RSI(seriesOf(1, 2, 3, 4, 5), 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "no losses")

	v, err = RSI(seriesOf(5, 4, 3, 2, 1), 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "no gains")

	v, err = RSI(seriesOf(3, 3, 3), 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v, "flat")

	// period 2, alpha 0.5: changes +2, -1
	// gains 2, 0 -> 2, 1 ; losses 0, 1 -> 0, 0.5 ; rs = 2
	v, err = RSI(seriesOf(10, 12, 11), 2)
	require.NoError(t, err)
	assert.InDelta(t, 100-100/3.0, v, 1e-9)

	_, err = RSI(seriesOf(10), 14)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestMACD(t *testing.T) {
	res, err := MACD(seriesOf(5, 5, 5, 5))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.MACD, 1e-12)
	assert.InDelta(t, 0, res.Signal, 1e-12)
	assert.InDelta(t, 0, res.Histogram, 1e-12)

	res, err = MACD(seriesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	require.NoError(t, err)
	assert.Greater(t, res.MACD, 0.0, "fast EMA leads in an uptrend")
	assert.Equal(t, res.MACD-res.Signal, res.Histogram)

	_, err = MACD(seriesOf())
	assert.True(t, errors.Is(err, ErrInsufficientData))
}
