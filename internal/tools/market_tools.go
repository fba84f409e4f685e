package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockPilot/internal/chart"
	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/indicators"
	"github.com/dyike/StockPilot/internal/models"
)

const tickerDesc = "the stock ticker symbol for a company(For example, AMZN for Amazon.com)."

func tickerParam() ParamSpec {
	return ParamSpec{Name: "ticker", Type: schema.String, Description: tickerDesc, Required: true}
}

func windowParam(indicator string) ParamSpec {
	return ParamSpec{
		Name:        "window",
		Type:        schema.Integer,
		Description: "The timeframe to use when calculating the " + indicator,
		Required:    true,
	}
}

func marketToolSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Kind:        KindPrice,
			Name:        "get_stock_price",
			Description: "gets the latest stock price given the ticker symbol of a company.",
			Params:      []ParamSpec{tickerParam()},
		},
		{
			Kind:        KindSMA,
			Name:        "calculate_SMA",
			Description: "Calculates the simple moving average for a given stock ticker and a window",
			Params:      []ParamSpec{tickerParam(), windowParam("SMA")},
		},
		{
			Kind:        KindEMA,
			Name:        "calculate_EMA",
			Description: "Calculates the exponential moving average for a given stock ticker and a window",
			Params:      []ParamSpec{tickerParam(), windowParam("EMA")},
		},
		{
			Kind:        KindRSI,
			Name:        "calculate_RSI",
			Description: "Calculates the relative strength index of a given stock ticker",
			Params:      []ParamSpec{tickerParam()},
		},
		{
			Kind:        KindMACD,
			Name:        "calculate_MACD",
			Description: "Calculates the moving average convergence divergence of a given stock ticker",
			Params:      []ParamSpec{tickerParam()},
		},
		{
			Kind:        KindPlot,
			Name:        "plot_stock_prices",
			Description: "plots the stock prices of a given stock ticker over the past year.",
			Params:      []ParamSpec{tickerParam()},
		},
	}
}

// execute fetches the history of the requested ticker and runs the tool's
// computation on it. args is a TickerArgs or a WindowArgs.
func (r *Registry) execute(ctx context.Context, spec ToolSpec, args any) (Result, error) {
	var ticker string
	var window int
	switch a := args.(type) {
	case TickerArgs:
		ticker = a.Ticker
	case WindowArgs:
		ticker, window = a.Ticker, a.Window
	default:
		return Result{}, &MalformedToolCallError{Tool: spec.Name, Reason: fmt.Sprintf("unexpected argument record %T", args)}
	}

	if strings.TrimSpace(ticker) == "" {
		return Result{}, &MissingArgumentError{Tool: spec.Name, Argument: "ticker"}
	}
	symbol, err := dataflows.ValidateSymbol(ticker)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", spec.Name, err)
	}

	start := time.Now()
	logger := r.logger.With().Str("tool", spec.Name).Str("ticker", symbol).Logger()

	series, err := r.fetch(ctx, symbol)
	if err != nil {
		logger.Warn().Err(err).Msg("fetch history failed")
		return Result{}, fmt.Errorf("%s: %w", spec.Name, err)
	}

	res, err := r.compute(spec, symbol, window, series)
	if err != nil {
		logger.Warn().Err(err).Msg("tool failed")
		return Result{}, fmt.Errorf("%s: %w", spec.Name, err)
	}

	logger.Info().
		Int("points", series.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("tool invoked")
	return res, nil
}

func (r *Registry) fetch(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	return r.provider.FetchDailyHistory(ctx, symbol)
}

func (r *Registry) compute(spec ToolSpec, symbol string, window int, series *models.PriceSeries) (Result, error) {
	var (
		v   float64
		err error
	)

	switch spec.Kind {
	case KindPrice:
		v, err = indicators.LatestClose(series)
	case KindSMA:
		v, err = indicators.SMA(series, window)
	case KindEMA:
		v, err = indicators.EMA(series, window)
	case KindRSI:
		v, err = indicators.RSI(series, r.opts.RSIPeriod)
	case KindMACD:
		m, err := indicators.MACD(series)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: fmt.Sprintf("%s, %s, %s",
			formatFloat(m.MACD), formatFloat(m.Signal), formatFloat(m.Histogram))}, nil
	case KindPlot:
		path, err := chart.RenderPriceChart(symbol, series, r.opts.ChartPath)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: path, ImagePath: path}, nil
	default:
		return Result{}, fmt.Errorf("no handler for tool kind %d", spec.Kind)
	}

	if err != nil {
		return Result{}, err
	}
	return Result{Text: formatFloat(v)}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
