package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghostliai/cryptopay/internal/models"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		chain   models.Chain
		addr    string
		wantErr bool
	}{
		{"bitcoin p2pkh", models.ChainBitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", false},
		{"bitcoin bech32", models.ChainBitcoin, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", false},
		{"bitcoin garbage", models.ChainBitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7Divfbad", true},
		{"ethereum checksummed", models.ChainERC20, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"ethereum short", models.ChainERC20, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA", true},
		{"solana system program", models.ChainSolana, "11111111111111111111111111111111", false},
		{"solana too short", models.ChainSolana, "abc", true},
		{"tron mainnet", models.ChainTRC20, "TJCnKsPa7y5okkXvQAidZBzqx3QyQ6sxMW", false},
		{"tron bad checksum", models.ChainTRC20, "TJCnKsPa7y5okkXvQAidZBzqx3QyQ6sxMX", true},
		{"empty", models.ChainBitcoin, "", true},
		{"unsupported chain", models.Chain("dogecoin"), "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.chain, tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTxHash(t *testing.T) {
	assert.NoError(t, ValidateTxHash(models.ChainERC20,
		"0x3a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f9"))
	assert.NoError(t, ValidateTxHash(models.ChainBitcoin,
		"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"))
	assert.NoError(t, ValidateTxHash(models.ChainSolana,
		"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"))

	assert.Error(t, ValidateTxHash(models.ChainBitcoin, ""))
	assert.Error(t, ValidateTxHash(models.ChainBitcoin, "short"))
	assert.Error(t, ValidateTxHash(models.ChainERC20, "0xzz1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d!e5f60718293a4b5c6d7e8f9"))
}
