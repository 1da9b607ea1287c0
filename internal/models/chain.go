package models

import "fmt"

// Chain identifies a supported payment network.
type Chain string

const (
	ChainBitcoin Chain = "bitcoin"
	ChainSolana  Chain = "solana"
	ChainERC20   Chain = "erc20"
	ChainTRC20   Chain = "trc20"
)

// minConfirmations is the per-chain finality policy: how many
// confirmations a deposit needs before it counts as paid.
var minConfirmations = map[Chain]int{
	ChainBitcoin: 3,
	ChainSolana:  32,
	ChainERC20:   12,
	ChainTRC20:   19,
}

var chainSymbols = map[Chain]string{
	ChainBitcoin: "BTC",
	ChainSolana:  "SOL",
	ChainERC20:   "ETH",
	ChainTRC20:   "TRX",
}

// SupportedChains returns every chain wallets are provisioned for, in a
// stable order.
func SupportedChains() []Chain {
	return []Chain{ChainBitcoin, ChainSolana, ChainERC20, ChainTRC20}
}

// ParseChain validates a client-supplied chain name.
func ParseChain(s string) (Chain, error) {
	chain := Chain(s)
	if !chain.Valid() {
		return "", fmt.Errorf("unsupported chain: %q", s)
	}
	return chain, nil
}

// MinConfirmations returns the chain's finality policy.
func (c Chain) MinConfirmations() int {
	return minConfirmations[c]
}

// Symbol returns the chain's native asset ticker.
func (c Chain) Symbol() string {
	return chainSymbols[c]
}

// Valid reports whether c names a supported chain.
func (c Chain) Valid() bool {
	_, ok := minConfirmations[c]
	return ok
}
