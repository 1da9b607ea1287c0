package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource fetches the latest USD price per chain from an upstream
// market-data provider. Missing chains are simply absent from the map.
type RateSource interface {
	FetchUSDRates(ctx context.Context) (map[Chain]decimal.Decimal, error)
}
