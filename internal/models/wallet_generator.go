package models

// GeneratedWallet is freshly derived key material. Private key and mnemonic
// are already encrypted; the plaintext never leaves the generator.
type GeneratedWallet struct {
	Chain               Chain
	Address             string
	PublicKey           string
	EncryptedPrivateKey string
	EncryptedMnemonic   string
}

// WalletGenerator derives a wallet for (user, chain). Derivation is
// deterministic for a fixed server seed, so re-provisioning is idempotent.
// A rejected key from the underlying curve library surfaces as an error,
// never as a silent retry.
type WalletGenerator interface {
	Generate(chain Chain, userID uint) (*GeneratedWallet, error)
}
