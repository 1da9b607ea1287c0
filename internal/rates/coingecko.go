// Package rates fetches USD prices for the supported chains from a
// CoinGecko-compatible market-data API.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/logger"
)

// coinIDs maps each chain to its market-data identifier.
var coinIDs = map[models.Chain]string{
	models.ChainBitcoin: "bitcoin",
	models.ChainSolana:  "solana",
	models.ChainERC20:   "ethereum",
	models.ChainTRC20:   "tron",
}

type CoinGeckoSource struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client
}

func NewCoinGeckoSource(baseURL string, log *logger.Logger) *CoinGeckoSource {
	return &CoinGeckoSource{
		logger:  log,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchUSDRates queries the simple-price endpoint for all supported chains
// in one round trip. Chains the provider did not price are absent from the
// returned map; zero or negative prices are dropped with a warning.
func (c *CoinGeckoSource) FetchUSDRates(ctx context.Context) (map[models.Chain]decimal.Decimal, error) {
	ids := make([]string, 0, len(coinIDs))
	for _, chain := range models.SupportedChains() {
		ids = append(ids, coinIDs[chain])
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	// {"bitcoin": {"usd": 60000.12}, ...} — decoded via json.Number so the
	// price never takes a trip through float64.
	var payload map[string]map[string]json.Number
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}

	result := make(map[models.Chain]decimal.Decimal, len(coinIDs))
	for chain, id := range coinIDs {
		prices, ok := payload[id]
		if !ok {
			c.logger.Warn("No rate returned for chain ", "chain ", chain)
			continue
		}
		usd, ok := prices["usd"]
		if !ok {
			c.logger.Warn("No USD quote for chain ", "chain ", chain)
			continue
		}
		price, err := decimal.NewFromString(usd.String())
		if err != nil || !price.IsPositive() {
			c.logger.Warn("Dropping unusable rate ", "chain ", chain, " value ", usd.String())
			continue
		}
		result[chain] = price
	}
	return result, nil
}
