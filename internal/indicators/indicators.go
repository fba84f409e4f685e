// Package indicators computes technical indicators over the closing prices of
// a price series. Every calculator works on the full series it is given.
package indicators

import (
	"errors"

	"github.com/dyike/StockPilot/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidWindow is returned when the window or period is not positive.
	ErrInvalidWindow = errors.New("invalid window")
)

const (
	DefaultRSIPeriod = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
)

// MACDResult holds the MACD line, signal line and histogram at the final point.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// LatestClose returns the last closing price.
func LatestClose(series *models.PriceSeries) (float64, error) {
	last, ok := series.Last()
	if !ok {
		return 0, ErrInsufficientData
	}
	return last.Close, nil
}

// SMA returns the unweighted mean of the most recent window closes.
func SMA(series *models.PriceSeries, window int) (float64, error) {
	return smaOf(series.Closes(), window)
}

// EMA returns the final value of the exponential moving average with
// smoothing factor 2/(window+1), seeded with the first close.
func EMA(series *models.PriceSeries, window int) (float64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}
	values := emaSeries(series.Closes(), 2.0/float64(window+1))
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	return values[len(values)-1], nil
}

// RSI returns the relative strength index of the last point. Gains and losses
// are smoothed with alpha 1/period; a series with no losses scores 100, a flat
// series 50.
func RSI(series *models.PriceSeries, period int) (float64, error) {
	return rsiOf(series.Closes(), period)
}

// MACD returns EMA(12)-EMA(26), its 9-period signal line and the histogram.
func MACD(series *models.PriceSeries) (MACDResult, error) {
	return macdOf(series.Closes())
}

func smaOf(closes []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}
	if window > len(closes) {
		return 0, ErrInsufficientData
	}
	return mean(closes[len(closes)-window:]), nil
}

func rsiOf(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidWindow
	}
	if len(closes) < 2 {
		return 0, ErrInsufficientData
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := last(emaSeries(gains, alpha))
	avgLoss := last(emaSeries(losses, alpha))

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

func macdOf(closes []float64) (MACDResult, error) {
	if len(closes) == 0 {
		return MACDResult{}, ErrInsufficientData
	}
	fast := emaSeries(closes, 2.0/float64(macdFast+1))
	slow := emaSeries(closes, 2.0/float64(macdSlow+1))

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := emaSeries(line, 2.0/float64(macdSignal+1))

	res := MACDResult{
		MACD:   last(line),
		Signal: last(signal),
	}
	res.Histogram = res.MACD - res.Signal
	return res, nil
}

// emaSeries is the non-adjusted exponential recurrence
// ema[0]=v[0], ema[i]=v[i]*alpha + ema[i-1]*(1-alpha).
func emaSeries(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
