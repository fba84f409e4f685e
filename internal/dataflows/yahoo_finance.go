package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/form"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/models"
)

// errYahooNotFound is returned by yahooBackend when Yahoo has no chart for a symbol.
var errYahooNotFound = errors.New("yahoo: symbol not found")

// YahooFinanceClient reads daily bars from the Yahoo Finance chart API.
type YahooFinanceClient struct {
	charts chart.Client
	now    func() time.Time
	logger zerolog.Logger
}

// NewYahooFinanceClient creates a new Yahoo Finance client. An empty baseURL
// uses the public Yahoo endpoint.
func NewYahooFinanceClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *YahooFinanceClient {
	if baseURL == "" {
		baseURL = finance.YFinURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backend := &yahooBackend{
		BackendConfiguration: &finance.BackendConfiguration{
			Type:       finance.YFinBackend,
			URL:        strings.TrimRight(baseURL, "/"),
			HTTPClient: &http.Client{Timeout: timeout},
		},
	}
	return &YahooFinanceClient{
		charts: chart.Client{B: backend},
		now:    time.Now,
		logger: logger,
	}
}

func (yf *YahooFinanceClient) Name() string { return "yahoo" }

// FetchDailyHistory gets the trailing year of daily bars for symbol.
func (yf *YahooFinanceClient) FetchDailyHistory(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	start, end := Window(yf.now())

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := yf.charts.Get(params)

	points := make([]models.PricePoint, 0, 256)
	for iter.Next() {
		bar := iter.Bar()

		open, _ := bar.Open.Float64()
		high, _ := bar.High.Float64()
		low, _ := bar.Low.Float64()
		closePrice, _ := bar.Close.Float64()

		points = append(points, models.PricePoint{
			Date:   time.Unix(int64(bar.Timestamp), 0),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(bar.Volume),
		})
	}

	if err := iter.Err(); err != nil {
		if isYahooNotFound(err) {
			return nil, &UnknownTickerError{Ticker: symbol, Provider: yf.Name()}
		}
		return nil, fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
	}

	series := clipToWindow(symbol, points, start, end)
	if series.Len() == 0 {
		return nil, &UnknownTickerError{Ticker: symbol, Provider: yf.Name()}
	}
	yf.logger.Debug().
		Str("ticker", symbol).
		Int("rows", series.Len()).
		Str("range", FormatDateRange(start, end)).
		Msg("yahoo history fetched")
	return series, nil
}

func isYahooNotFound(err error) bool {
	if errors.Is(err, errYahooNotFound) {
		return true
	}
	var yerr *finance.YfinError
	if errors.As(err, &yerr) {
		return strings.EqualFold(yerr.Code, "Not Found")
	}
	return strings.Contains(err.Error(), "no results in chart response")
}

// yahooBackend is a finance.Backend that reports a 404 as errYahooNotFound
// instead of a generic remote error.
type yahooBackend struct {
	*finance.BackendConfiguration
}

func (b *yahooBackend) Call(path string, body *form.Values, ctx *context.Context, v interface{}) error {
	if body != nil && !body.Empty() {
		path += "?" + body.Encode()
	}

	req, err := b.NewRequest(http.MethodGet, path, ctx)
	if err != nil {
		return err
	}
	res, err := b.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return errYahooNotFound
	case res.StatusCode >= 400:
		return fmt.Errorf("yahoo: HTTP %d", res.StatusCode)
	}

	// finance-go indexes result[0] without a length check.
	var peek struct {
		Chart struct {
			Result []json.RawMessage  `json:"result"`
			Error  *finance.YfinError `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return fmt.Errorf("yahoo: decode chart: %w", err)
	}
	if peek.Chart.Error != nil {
		return peek.Chart.Error
	}
	if len(peek.Chart.Result) == 0 {
		return errYahooNotFound
	}
	return json.Unmarshal(raw, v)
}
