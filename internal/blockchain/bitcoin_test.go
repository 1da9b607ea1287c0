package blockchain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitcoinTransactionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx/abc123":
			w.Write([]byte(`{
				"txid": "abc123",
				"fee": 1500,
				"status": {"confirmed": true, "block_height": 850000, "block_time": 1700000000},
				"vin": [{"prevout": {"scriptpubkey_address": "1Sender", "value": 100000}}],
				"vout": [
					{"scriptpubkey_address": "1Sender", "value": 48500},
					{"scriptpubkey_address": "1Receiver", "value": 50000}
				]
			}`))
		case "/blocks/tip/height":
			w.Write([]byte("850004\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newBitcoinClient(srv.URL)
	status, err := client.transactionStatus(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, int64(5), status.confirmations, "tip 850004 - height 850000 + 1")
	assert.Equal(t, uint64(850000), status.blockHeight)
	assert.Equal(t, int64(1700000000), status.blockTime)
	assert.Equal(t, "1Sender", status.from)
	assert.Equal(t, "1Receiver", status.to, "change output back to sender is skipped")
	assert.True(t, status.fee.Equal(decimal.RequireFromString("0.000015")))
	assert.True(t, status.amount.Equal(decimal.RequireFromString("0.000985")))
}

func TestBitcoinTransactionStatusUnconfirmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tx/mempool1", r.URL.Path, "tip height must not be queried for mempool txs")
		w.Write([]byte(`{"txid": "mempool1", "fee": 900, "status": {"confirmed": false}, "vin": [], "vout": []}`))
	}))
	defer srv.Close()

	client := newBitcoinClient(srv.URL)
	status, err := client.transactionStatus(context.Background(), "mempool1")
	require.NoError(t, err)
	assert.Zero(t, status.confirmations)
	assert.Zero(t, status.blockHeight)
}

func TestBitcoinTransactionStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := newBitcoinClient(srv.URL)
	_, err := client.transactionStatus(context.Background(), "missing")
	assert.Error(t, err)
}
