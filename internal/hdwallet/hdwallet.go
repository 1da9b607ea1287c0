// Package hdwallet derives per-user deposit wallets for every supported
// chain from a single server-wide seed phrase. The BIP-39 passphrase slot
// carries a SHA-256 hash of (user, chain), so each pair gets its own key
// space while derivation stays deterministic and re-runnable.
package hdwallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/ghostliai/cryptopay/internal/models"
)

// BIP-44 coin types for the secp256k1 chains.
const (
	coinTypeBitcoin  = 0
	coinTypeEthereum = 60
	coinTypeTron     = 195
)

const tronAddressVersion = 0x41

// Generator derives and seals wallets. If no server seed phrase is
// configured, each wallet gets a fresh BIP-39 mnemonic of its own.
type Generator struct {
	encryptionKey []byte
	seedPhrase    string
}

// NewGenerator builds a Generator. seedPhrase may be empty; when set it
// must be a valid BIP-39 mnemonic.
func NewGenerator(encryptionSecret, seedPhrase string) (*Generator, error) {
	if encryptionSecret == "" {
		return nil, fmt.Errorf("encryption secret is required")
	}
	if seedPhrase != "" && !bip39.IsMnemonicValid(seedPhrase) {
		return nil, fmt.Errorf("invalid seed phrase")
	}
	return &Generator{
		encryptionKey: DeriveKey(encryptionSecret),
		seedPhrase:    seedPhrase,
	}, nil
}

// Generate derives the wallet for (chain, userID). Any rejection of the
// derived key material by the underlying curve library is returned as an
// error so provisioning fails loudly instead of retrying.
func (g *Generator) Generate(chain models.Chain, userID uint) (*models.GeneratedWallet, error) {
	mnemonic := g.seedPhrase
	if mnemonic == "" {
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			return nil, fmt.Errorf("failed to generate entropy: %w", err)
		}
		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
		}
	}
	return g.GenerateFromMnemonic(chain, userID, mnemonic)
}

// GenerateFromMnemonic is Generate with an explicit mnemonic. Deterministic
// for a fixed (mnemonic, userID, chain) triple.
func (g *Generator) GenerateFromMnemonic(chain models.Chain, userID uint, mnemonic string) (*models.GeneratedWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, userSalt(userID, chain))

	var (
		address    string
		publicKey  string
		privateKey string
		err        error
	)
	switch chain {
	case models.ChainBitcoin:
		address, publicKey, privateKey, err = deriveBitcoin(seed)
	case models.ChainERC20:
		address, publicKey, privateKey, err = deriveSecp256k1(seed, coinTypeEthereum, ethereumAddress)
	case models.ChainTRC20:
		address, publicKey, privateKey, err = deriveSecp256k1(seed, coinTypeTron, tronAddress)
	case models.ChainSolana:
		address, publicKey, privateKey, err = deriveSolana(seed)
	default:
		return nil, fmt.Errorf("unsupported chain: %q", chain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s wallet: %w", chain, err)
	}

	encryptedKey, err := Encrypt(g.encryptionKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	encryptedMnemonic, err := Encrypt(g.encryptionKey, mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt mnemonic: %w", err)
	}

	return &models.GeneratedWallet{
		Chain:               chain,
		Address:             address,
		PublicKey:           publicKey,
		EncryptedPrivateKey: encryptedKey,
		EncryptedMnemonic:   encryptedMnemonic,
	}, nil
}

// userSalt is the per-(user, chain) entropy mixed into seed derivation.
func userSalt(userID uint, chain models.Chain) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", userID, chain)))
	return hex.EncodeToString(sum[:])
}

// deriveBitcoin derives m/44'/0'/0'/0/0 and encodes a mainnet P2PKH address.
func deriveBitcoin(seed []byte) (address, publicKey, privateKey string, err error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to create master key: %w", err)
	}
	key := master
	for _, index := range []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + coinTypeBitcoin,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	} {
		key, err = key.Derive(index)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to derive child %d: %w", index, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to extract private key: %w", err)
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to extract public key: %w", err)
	}

	pubBytes := pub.SerializeCompressed()
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubBytes), &chaincfg.MainNetParams)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode address: %w", err)
	}

	return addr.EncodeAddress(), hex.EncodeToString(pubBytes), hex.EncodeToString(priv.Serialize()), nil
}

// deriveSecp256k1 derives m/44'/coin'/0'/0/0 and hands the key to the
// chain-specific address encoder.
func deriveSecp256k1(seed []byte, coinType uint32, encode func(key []byte) (string, string, error)) (address, publicKey, privateKey string, err error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to create master key: %w", err)
	}
	key := master
	for _, index := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + coinType,
		bip32.FirstHardenedChild + 0,
		0,
		0,
	} {
		key, err = key.NewChildKey(index)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to derive child %d: %w", index, err)
		}
	}

	address, publicKey, err = encode(key.Key)
	if err != nil {
		return "", "", "", err
	}
	return address, publicKey, hex.EncodeToString(key.Key), nil
}

func ethereumAddress(keyBytes []byte) (address, publicKey string, err error) {
	priv, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return "", "", fmt.Errorf("curve rejected derived key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(),
		hex.EncodeToString(ethcrypto.FromECDSAPub(&priv.PublicKey)), nil
}

// tronAddress encodes the keccak-derived 20-byte account as base58check
// with Tron's 0x41 version byte.
func tronAddress(keyBytes []byte) (address, publicKey string, err error) {
	priv, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return "", "", fmt.Errorf("curve rejected derived key: %w", err)
	}
	account := ethcrypto.PubkeyToAddress(priv.PublicKey)
	return base58.CheckEncode(account.Bytes(), tronAddressVersion),
		hex.EncodeToString(ethcrypto.FromECDSAPub(&priv.PublicKey)), nil
}

// deriveSolana maps the seed directly onto an ed25519 keypair; Solana
// wallets are not BIP-32 trees.
func deriveSolana(seed []byte) (address, publicKey, privateKey string, err error) {
	if len(seed) < ed25519.SeedSize {
		return "", "", "", fmt.Errorf("seed too short for ed25519: %d bytes", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)

	encoded := base58.Encode(pub)
	return encoded, encoded, base58.Encode(priv), nil
}
