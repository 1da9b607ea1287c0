package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// satoshisPerBTC converts esplora's satoshi amounts to BTC.
var satoshisPerBTC = decimal.New(1, 8)

// bitcoinClient speaks the esplora REST API (blockstream.info and
// compatible explorers).
type bitcoinClient struct {
	baseURL string
	client  *http.Client
}

func newBitcoinClient(baseURL string) *bitcoinClient {
	return &bitcoinClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type esploraTx struct {
	TxID   string `json:"txid"`
	Fee    int64  `json:"fee"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
		BlockTime   int64  `json:"block_time"`
	} `json:"status"`
	Vin []struct {
		Prevout struct {
			Address string `json:"scriptpubkey_address"`
			Value   int64  `json:"value"`
		} `json:"prevout"`
	} `json:"vin"`
	Vout []struct {
		Address string `json:"scriptpubkey_address"`
		Value   int64  `json:"value"`
	} `json:"vout"`
}

func (b *bitcoinClient) transactionStatus(ctx context.Context, txHash string) (*txStatus, error) {
	raw, err := b.get(ctx, "/tx/"+txHash)
	if err != nil {
		return nil, err
	}
	var tx esploraTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	status := &txStatus{
		fee: decimal.NewFromInt(tx.Fee).Div(satoshisPerBTC),
		raw: raw,
	}
	if len(tx.Vin) > 0 {
		status.from = tx.Vin[0].Prevout.Address
	}
	var received int64
	for _, out := range tx.Vout {
		received += out.Value
		if status.to == "" && out.Address != "" && out.Address != status.from {
			status.to = out.Address
		}
	}
	status.amount = decimal.NewFromInt(received).Div(satoshisPerBTC)

	if !tx.Status.Confirmed {
		return status, nil
	}
	status.blockHeight = tx.Status.BlockHeight
	status.blockTime = tx.Status.BlockTime

	tipRaw, err := b.get(ctx, "/blocks/tip/height")
	if err != nil {
		return nil, err
	}
	tip, err := strconv.ParseUint(strings.TrimSpace(string(tipRaw)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip height: %w", err)
	}
	if tip >= tx.Status.BlockHeight {
		status.confirmations = int64(tip-tx.Status.BlockHeight) + 1
	}
	return status, nil
}

func (b *bitcoinClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
