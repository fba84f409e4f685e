package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dyike/StockPilot/internal/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient reads daily candles from the Finnhub REST API.
type FinnhubClient struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
	logger zerolog.Logger
}

// finnhubCandles is the column-oriented /stock/candle payload.
type finnhubCandles struct {
	Close     []decimal.Decimal `json:"c"`
	High      []decimal.Decimal `json:"h"`
	Low       []decimal.Decimal `json:"l"`
	Open      []decimal.Decimal `json:"o"`
	Status    string            `json:"s"`
	Timestamp []int64           `json:"t"`
	Volume    []decimal.Decimal `json:"v"`
}

// NewFinnhubClient creates a new Finnhub client. An empty baseURL uses the public endpoint.
func NewFinnhubClient(apiKey, baseURL string, timeout time.Duration, logger zerolog.Logger) (*FinnhubClient, error) {
	if apiKey == "" {
		return nil, errors.New("finnhub API key not configured")
	}
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (fc *FinnhubClient) Name() string { return "finnhub" }

func (fc *FinnhubClient) FetchDailyHistory(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	start, end := Window(fc.now())

	var candles finnhubCandles
	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     symbol,
			"resolution": "D",
			"from":       strconv.FormatInt(start.Unix(), 10),
			"to":         strconv.FormatInt(end.Unix(), 10),
			"token":      fc.apiKey,
		}).
		SetResult(&candles).
		Get("/stock/candle")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("finnhub API error %d: %s", resp.StatusCode(), resp.String())
	}

	if candles.Status == "no_data" || len(candles.Close) == 0 {
		return nil, &UnknownTickerError{Ticker: symbol, Provider: fc.Name()}
	}
	if len(candles.Timestamp) != len(candles.Close) {
		return nil, fmt.Errorf("finnhub candles for %s: %d timestamps for %d closes",
			symbol, len(candles.Timestamp), len(candles.Close))
	}

	points := make([]models.PricePoint, len(candles.Close))
	for i := range candles.Close {
		points[i] = models.PricePoint{
			Date:   time.Unix(candles.Timestamp[i], 0),
			Close:  at(candles.Close, i),
			Open:   at(candles.Open, i),
			High:   at(candles.High, i),
			Low:    at(candles.Low, i),
			Volume: atInt(candles.Volume, i),
		}
	}

	fc.logger.Debug().Str("ticker", symbol).Int("rows", len(points)).Msg("finnhub history fetched")
	return clipToWindow(symbol, points, start, end), nil
}

func at(values []decimal.Decimal, i int) float64 {
	if i < len(values) {
		f, _ := values[i].Float64()
		return f
	}
	return 0
}

func atInt(values []decimal.Decimal, i int) int64 {
	if i < len(values) {
		return values[i].IntPart()
	}
	return 0
}
