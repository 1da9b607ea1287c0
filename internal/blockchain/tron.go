package blockchain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/shopspring/decimal"
)

var sunPerTRX = decimal.New(1, 6)

const tronAddressVersion = 0x41

// tronClient speaks the trongrid-style full-node HTTP API.
type tronClient struct {
	baseURL string
	client  *http.Client
}

func newTronClient(baseURL string) *tronClient {
	return &tronClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type tronTxInfo struct {
	ID             string `json:"id"`
	BlockNumber    uint64 `json:"blockNumber"`
	BlockTimeStamp int64  `json:"blockTimeStamp"`
	Fee            int64  `json:"fee"`
	Receipt        struct {
		Result string `json:"result"`
	} `json:"receipt"`
}

type tronTx struct {
	RawData struct {
		Contract []struct {
			Parameter struct {
				Value struct {
					Amount       int64  `json:"amount"`
					OwnerAddress string `json:"owner_address"`
					ToAddress    string `json:"to_address"`
				} `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
	} `json:"raw_data"`
}

type tronBlock struct {
	BlockHeader struct {
		RawData struct {
			Number uint64 `json:"number"`
		} `json:"raw_data"`
	} `json:"block_header"`
}

func (t *tronClient) transactionStatus(ctx context.Context, txHash string) (*txStatus, error) {
	infoRaw, err := t.post(ctx, "/wallet/gettransactioninfobyid", map[string]string{"value": txHash})
	if err != nil {
		return nil, err
	}
	var info tronTxInfo
	if err := json.Unmarshal(infoRaw, &info); err != nil {
		return nil, fmt.Errorf("failed to decode transaction info: %w", err)
	}
	if info.ID == "" {
		// The node returns an empty object for unknown and unmined hashes.
		return &txStatus{raw: infoRaw}, nil
	}

	status := &txStatus{
		blockHeight: info.BlockNumber,
		blockTime:   info.BlockTimeStamp / 1000,
		fee:         decimal.NewFromInt(info.Fee).Div(sunPerTRX),
		raw:         infoRaw,
	}

	if txRaw, err := t.post(ctx, "/wallet/gettransactionbyid", map[string]string{"value": txHash}); err == nil {
		var tx tronTx
		if err := json.Unmarshal(txRaw, &tx); err == nil && len(tx.RawData.Contract) > 0 {
			value := tx.RawData.Contract[0].Parameter.Value
			status.amount = decimal.NewFromInt(value.Amount).Div(sunPerTRX)
			status.from = tronHexToBase58(value.OwnerAddress)
			status.to = tronHexToBase58(value.ToAddress)
		}
	}

	nowRaw, err := t.post(ctx, "/wallet/getnowblock", map[string]string{})
	if err != nil {
		return nil, err
	}
	var now tronBlock
	if err := json.Unmarshal(nowRaw, &now); err != nil {
		return nil, fmt.Errorf("failed to decode current block: %w", err)
	}
	if head := now.BlockHeader.RawData.Number; head >= info.BlockNumber {
		status.confirmations = int64(head-info.BlockNumber) + 1
	}
	return status, nil
}

// tronHexToBase58 converts the node's 41-prefixed hex address form to the
// base58check form used everywhere else.
func tronHexToBase58(hexAddr string) string {
	raw, err := hex.DecodeString(hexAddr)
	if err != nil || len(raw) != 21 || raw[0] != tronAddressVersion {
		return hexAddr
	}
	return base58.CheckEncode(raw[1:], tronAddressVersion)
}

func (t *tronClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("node request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
