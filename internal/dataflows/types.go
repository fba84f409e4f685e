package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/StockPilot/internal/models"
)

// HistoryDays is the trailing window every provider fetches.
const HistoryDays = 365

var (
	// ErrUnknownTicker is matched by every *UnknownTickerError.
	ErrUnknownTicker = errors.New("unknown ticker")
	ErrInvalidTicker = errors.New("invalid ticker")
)

// UnknownTickerError reports a ticker for which the provider returned no rows.
type UnknownTickerError struct {
	Ticker   string
	Provider string
}

func (e *UnknownTickerError) Error() string {
	return fmt.Sprintf("%s: no price data for %q", e.Provider, e.Ticker)
}

func (e *UnknownTickerError) Is(target error) bool {
	return target == ErrUnknownTicker
}

// Provider fetches daily price history for a ticker.
type Provider interface {
	Name() string
	FetchDailyHistory(ctx context.Context, ticker string) (*models.PriceSeries, error)
}

// Window returns the [start, end] range of the trailing history window.
func Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -HistoryDays), now
}
