package hdwallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostliai/cryptopay/internal/models"
	"github.com/ghostliai/cryptopay/pkg/validation"
)

// Well-known BIP-39 test vector mnemonic.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator("unit-test-secret", testMnemonic)
	require.NoError(t, err)
	return g
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator("", testMnemonic)
	assert.Error(t, err, "empty encryption secret must be rejected")

	_, err = NewGenerator("secret", "not a valid mnemonic at all")
	assert.Error(t, err)

	_, err = NewGenerator("secret", "")
	assert.NoError(t, err, "empty seed phrase means per-wallet mnemonics")
}

func TestGenerateDeterministic(t *testing.T) {
	g := testGenerator(t)

	for _, chain := range models.SupportedChains() {
		first, err := g.Generate(chain, 42)
		require.NoError(t, err, "chain %s", chain)
		second, err := g.Generate(chain, 42)
		require.NoError(t, err, "chain %s", chain)

		assert.Equal(t, first.Address, second.Address,
			"derivation must be re-runnable for %s", chain)
		assert.Equal(t, first.PublicKey, second.PublicKey)
	}
}

func TestGenerateAddressesValid(t *testing.T) {
	g := testGenerator(t)

	for _, chain := range models.SupportedChains() {
		wallet, err := g.Generate(chain, 7)
		require.NoError(t, err, "chain %s", chain)

		assert.Equal(t, chain, wallet.Chain)
		assert.NoError(t, validation.ValidateAddress(chain, wallet.Address),
			"derived %s address %q must validate", chain, wallet.Address)
		assert.NotEmpty(t, wallet.PublicKey)
		assert.NotEmpty(t, wallet.EncryptedPrivateKey)
		assert.NotEmpty(t, wallet.EncryptedMnemonic)
	}
}

func TestGenerateDistinctPerUserAndChain(t *testing.T) {
	g := testGenerator(t)

	seen := make(map[string]string)
	for _, chain := range models.SupportedChains() {
		for _, userID := range []uint{1, 2, 3} {
			wallet, err := g.Generate(chain, userID)
			require.NoError(t, err)

			prev, dup := seen[wallet.Address]
			assert.False(t, dup, "address %s for %s/user %d already used by %s",
				wallet.Address, chain, userID, prev)
			seen[wallet.Address] = string(chain)
		}
	}
}

func TestGenerateFreshMnemonics(t *testing.T) {
	g, err := NewGenerator("unit-test-secret", "")
	require.NoError(t, err)

	first, err := g.Generate(models.ChainBitcoin, 1)
	require.NoError(t, err)
	second, err := g.Generate(models.ChainBitcoin, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Address, second.Address,
		"without a server seed every derivation gets its own mnemonic")
}

func TestGenerateUnsupportedChain(t *testing.T) {
	g := testGenerator(t)
	_, err := g.Generate(models.Chain("dogecoin"), 1)
	assert.Error(t, err)
}

func TestEncryptRoundTrip(t *testing.T) {
	key := DeriveKey("secret")
	require.Len(t, key, 32)

	sealed, err := Encrypt(key, testMnemonic)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "abandon", "ciphertext must not leak plaintext")

	plain, err := Decrypt(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, plain)

	_, err = Decrypt(DeriveKey("wrong"), sealed)
	assert.Error(t, err, "wrong key must not decrypt")

	_, err = Decrypt(key, "not base64 at all!!!")
	assert.Error(t, err)
}

func TestEncryptedMnemonicRecoverable(t *testing.T) {
	g := testGenerator(t)

	wallet, err := g.Generate(models.ChainERC20, 9)
	require.NoError(t, err)

	plain, err := Decrypt(DeriveKey("unit-test-secret"), wallet.EncryptedMnemonic)
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, plain)
}
