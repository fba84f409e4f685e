// Package dataflows adapts market-data APIs to a single daily-history provider.
package dataflows

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
)

// NewProvider builds the provider selected by cfg.MarketDataProvider.
func NewProvider(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	logger = logger.With().Str("component", "dataflows").Logger()

	switch strings.ToLower(cfg.MarketDataProvider) {
	case "", "yahoo":
		return NewYahooFinanceClient("", cfg.MarketDataTimeout, logger), nil
	case "finnhub":
		client, err := NewFinnhubClient(cfg.FinnhubAPIKey, "", cfg.MarketDataTimeout, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "longport":
		client, err := NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported market data provider %q", cfg.MarketDataProvider)
	}
}
