package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

var lamportsPerSOL = decimal.New(1, 9)

// solanaClient speaks Solana JSON-RPC. Signature status gives slot and
// commitment; the full transaction fills in fee, block time and the
// balance delta on the receiving account.
type solanaClient struct {
	rpcURL string
	client *http.Client
}

func newSolanaClient(rpcURL string) *solanaClient {
	return &solanaClient{rpcURL: rpcURL, client: &http.Client{}}
}

type solSignatureStatuses struct {
	Value []*struct {
		Slot               uint64 `json:"slot"`
		Confirmations      *int64 `json:"confirmations"`
		ConfirmationStatus string `json:"confirmationStatus"`
		Err                any    `json:"err"`
	} `json:"value"`
}

type solTransaction struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Fee          uint64   `json:"fee"`
		PreBalances  []int64  `json:"preBalances"`
		PostBalances []int64  `json:"postBalances"`
		Err          any      `json:"err"`
		LogMessages  []string `json:"logMessages"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

func (s *solanaClient) transactionStatus(ctx context.Context, signature string) (*txStatus, error) {
	var statuses solSignatureStatuses
	raw, err := s.call(ctx, "getSignatureStatuses",
		[]interface{}{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}, &statuses)
	if err != nil {
		return nil, err
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return nil, fmt.Errorf("signature %s not found", signature)
	}
	sig := statuses.Value[0]
	if sig.Err != nil {
		return nil, fmt.Errorf("transaction failed on chain: %v", sig.Err)
	}

	status := &txStatus{blockHeight: sig.Slot, raw: raw}
	switch {
	case sig.Confirmations != nil:
		status.confirmations = *sig.Confirmations
	case sig.ConfirmationStatus == "finalized":
		// Finalized signatures stop reporting a count; measure slot depth.
		var currentSlot uint64
		if _, err := s.call(ctx, "getSlot", []interface{}{}, &currentSlot); err != nil {
			return nil, err
		}
		if currentSlot >= sig.Slot {
			status.confirmations = int64(currentSlot-sig.Slot) + 1
		}
	}

	var tx solTransaction
	if _, err := s.call(ctx, "getTransaction",
		[]interface{}{signature, map[string]interface{}{"encoding": "json", "maxSupportedTransactionVersion": 0}}, &tx); err == nil {
		if tx.BlockTime != nil {
			status.blockTime = *tx.BlockTime
		}
		if tx.Meta != nil {
			status.fee = decimal.NewFromUint64(tx.Meta.Fee).Div(lamportsPerSOL)
			keys := tx.Transaction.Message.AccountKeys
			if len(keys) > 0 {
				status.from = keys[0]
			}
			// The receiving account is the one whose balance grew.
			for i := range tx.Meta.PostBalances {
				if i >= len(tx.Meta.PreBalances) || i >= len(keys) {
					break
				}
				delta := tx.Meta.PostBalances[i] - tx.Meta.PreBalances[i]
				if delta > 0 {
					status.to = keys[i]
					status.amount = decimal.NewFromInt(delta).Div(lamportsPerSOL)
					break
				}
			}
		}
	}

	return status, nil
}

func (s *solanaClient) call(ctx context.Context, method string, params []interface{}, out interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil && len(rpcResp.Result) > 0 && string(rpcResp.Result) != "null" {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return rpcResp.Result, nil
}
