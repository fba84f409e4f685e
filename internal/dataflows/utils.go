package dataflows

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dyike/StockPilot/internal/models"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]+$`)

// NormalizeSymbol converts symbol to standard format
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// ValidateSymbol normalizes symbol and checks its format.
func ValidateSymbol(symbol string) (string, error) {
	symbol = NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return "", fmt.Errorf("%w: symbol cannot be empty", ErrInvalidTicker)
	}
	if len(symbol) > 10 {
		return "", fmt.Errorf("%w: symbol too long: %s", ErrInvalidTicker, symbol)
	}
	if !tickerPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: unexpected characters in %s", ErrInvalidTicker, symbol)
	}
	return symbol, nil
}

// FormatDateRange creates a human-readable date range string
func FormatDateRange(start, end time.Time) string {
	return fmt.Sprintf("%s to %s",
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))
}

// clipToWindow keeps points inside [start, end] and returns them as a series.
func clipToWindow(ticker string, points []models.PricePoint, start, end time.Time) *models.PriceSeries {
	kept := points[:0]
	for _, p := range points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		kept = append(kept, p)
	}
	return models.NewPriceSeries(ticker, kept)
}
