package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

var weiPerEther = decimal.New(1, 18)

// ethereumClient speaks plain JSON-RPC against a node or gateway.
type ethereumClient struct {
	rpcURL string
	client *http.Client
}

func newEthereumClient(rpcURL string) *ethereumClient {
	return &ethereumClient{rpcURL: rpcURL, client: &http.Client{}}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type ethTx struct {
	BlockNumber *string `json:"blockNumber"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gasPrice"`
}

type ethReceipt struct {
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	Status            string `json:"status"`
}

type ethBlock struct {
	Timestamp string `json:"timestamp"`
}

func (e *ethereumClient) transactionStatus(ctx context.Context, txHash string) (*txStatus, error) {
	var tx ethTx
	txRaw, err := e.call(ctx, "eth_getTransactionByHash", []interface{}{txHash}, &tx)
	if err != nil {
		return nil, err
	}
	if len(txRaw) == 0 || string(txRaw) == "null" {
		return nil, fmt.Errorf("transaction %s not found", txHash)
	}

	status := &txStatus{
		from: tx.From,
		to:   tx.To,
		raw:  txRaw,
	}
	if value, ok := parseHexBig(tx.Value); ok {
		status.amount = decimal.NewFromBigInt(value, 0).Div(weiPerEther)
	}

	// A transaction without a block number is still in the mempool.
	if tx.BlockNumber == nil || *tx.BlockNumber == "" {
		return status, nil
	}
	blockNumber, ok := parseHexBig(*tx.BlockNumber)
	if !ok {
		return nil, fmt.Errorf("failed to parse block number %q", *tx.BlockNumber)
	}
	status.blockHeight = blockNumber.Uint64()

	var latestHex string
	if _, err := e.call(ctx, "eth_blockNumber", []interface{}{}, &latestHex); err != nil {
		return nil, err
	}
	latest, ok := parseHexBig(latestHex)
	if !ok {
		return nil, fmt.Errorf("failed to parse latest block %q", latestHex)
	}
	if latest.Cmp(blockNumber) >= 0 {
		status.confirmations = new(big.Int).Sub(latest, blockNumber).Int64() + 1
	}

	var receipt ethReceipt
	if _, err := e.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash}, &receipt); err == nil {
		gasUsed, okGas := parseHexBig(receipt.GasUsed)
		gasPrice, okPrice := parseHexBig(receipt.EffectiveGasPrice)
		if !okPrice {
			gasPrice, okPrice = parseHexBig(tx.GasPrice)
		}
		if okGas && okPrice {
			feeWei := new(big.Int).Mul(gasUsed, gasPrice)
			status.fee = decimal.NewFromBigInt(feeWei, 0).Div(weiPerEther)
		}
	}

	var block ethBlock
	if _, err := e.call(ctx, "eth_getBlockByNumber", []interface{}{*tx.BlockNumber, false}, &block); err == nil {
		if ts, ok := parseHexBig(block.Timestamp); ok {
			status.blockTime = ts.Int64()
		}
	}

	return status, nil
}

func (e *ethereumClient) call(ctx context.Context, method string, params []interface{}, out interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
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

func parseHexBig(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
