package models

import (
	"sort"
	"time"
)

// PricePoint is one daily bar. Close is always set; the other fields are
// zero when a provider does not report them.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open,omitempty"`
	High   float64   `json:"high,omitempty"`
	Low    float64   `json:"low,omitempty"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

// PriceSeries is the daily history of one ticker, ascending by date.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

func NewPriceSeries(ticker string, points []PricePoint) *PriceSeries {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &PriceSeries{Ticker: ticker, Points: sorted}
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Closes returns the closing-price sub-sequence.
func (s *PriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent point.
func (s *PriceSeries) Last() (PricePoint, bool) {
	if s.Len() == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
