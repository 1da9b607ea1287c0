package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/ghostliai/cryptopay/internal/models"
)

// tronAddressVersion is the base58check version byte of Tron mainnet.
const tronAddressVersion = 0x41

var txHashPattern = regexp.MustCompile(`^[0-9a-zA-Z]{16,128}$`)

// ValidateAddress checks that an address is syntactically valid for the
// given chain.
func ValidateAddress(chain models.Chain, addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch chain {
	case models.ChainBitcoin:
		if _, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err != nil {
			return fmt.Errorf("invalid bitcoin address: %w", err)
		}
	case models.ChainERC20:
		if !ethcommon.IsHexAddress(addr) {
			return fmt.Errorf("invalid ethereum address: %s", addr)
		}
	case models.ChainSolana:
		decoded := base58.Decode(addr)
		if len(decoded) != 32 {
			return fmt.Errorf("invalid solana address: expected 32 decoded bytes, got %d", len(decoded))
		}
	case models.ChainTRC20:
		payload, version, err := base58.CheckDecode(addr)
		if err != nil {
			return fmt.Errorf("invalid tron address: %w", err)
		}
		if version != tronAddressVersion {
			return fmt.Errorf("invalid tron address version: 0x%02x", version)
		}
		if len(payload) != 20 {
			return fmt.Errorf("invalid tron address payload length: %d", len(payload))
		}
	default:
		return fmt.Errorf("unsupported chain: %q", chain)
	}

	return nil
}

// ValidateTxHash performs a shape check on a transaction hash before it is
// sent to an explorer. Solana signatures are base58, the rest are hex.
func ValidateTxHash(chain models.Chain, hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	normalized := strings.TrimPrefix(hash, "0x")
	if !txHashPattern.MatchString(normalized) {
		return fmt.Errorf("malformed transaction hash")
	}
	return nil
}
