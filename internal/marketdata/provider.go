// Package marketdata defines the OHLCV read contract the scanner depends
// on, plus the caching decorator and symbol-list loader around it.
package marketdata

import (
	"context"

	"fib-scannerv1/internal/model"
)

// Provider fetches historical OHLCV bars, chronologically ascending.
// A nil, nil return means the source has no data for the symbol — callers
// treat it like an empty series. Implementations must tolerate concurrent
// calls from multiple scan workers.
type Provider interface {
	GetData(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error)

func (f ProviderFunc) GetData(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error) {
	return f(ctx, symbol, exchange, interval, nBars)
}
