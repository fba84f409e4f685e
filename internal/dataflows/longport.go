package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/models"
)

// LongportConfig holds the three Longport OpenAPI credentials.
type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient reads daily candlesticks through a Longport quote context.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
	now      func() time.Time
	logger   zerolog.Logger
}

func NewLongportClient(conf LongportConfig, logger zerolog.Logger) (*LongportClient, error) {
	if conf.AppKey == "" || conf.AppSecret == "" || conf.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	lpConf, err := lpconfig.New(lpconfig.WithConfigKey(conf.AppKey, conf.AppSecret, conf.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(lpConf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		now:      time.Now,
		logger:   logger,
	}, nil
}

func (lpc *LongportClient) Name() string { return "longport" }

// FetchDailyHistory asks for one candle per calendar day of the window and
// keeps the trading days that fall inside it.
func (lpc *LongportClient) FetchDailyHistory(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	symbol, err := ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	lpSymbol := longportSymbol(symbol)
	start, end := Window(lpc.now())

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, lpSymbol, quote.PeriodDay, int32(HistoryDays), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", lpSymbol, err)
	}
	if len(sticks) == 0 {
		return nil, &UnknownTickerError{Ticker: symbol, Provider: lpc.Name()}
	}

	points := make([]models.PricePoint, 0, len(sticks))
	for _, stick := range sticks {
		open, _ := stick.Open.Float64()
		high, _ := stick.High.Float64()
		low, _ := stick.Low.Float64()
		closePrice, _ := stick.Close.Float64()
		points = append(points, models.PricePoint{
			Date:   time.Unix(stick.Timestamp, 0),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: stick.Volume,
		})
	}

	series := clipToWindow(symbol, points, start, end)
	if series.Len() == 0 {
		return nil, &UnknownTickerError{Ticker: symbol, Provider: lpc.Name()}
	}
	lpc.logger.Debug().Str("ticker", lpSymbol).Int("rows", series.Len()).Msg("longport history fetched")
	return series, nil
}

func (lpc *LongportClient) Close() error {
	if lpc.quoteCtx != nil {
		return lpc.quoteCtx.Close()
	}
	return nil
}

// longportSymbol maps a bare US ticker to Longport's market-suffixed form.
func longportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}
