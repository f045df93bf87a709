package keyring

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/mintworks/tokenledger/pkg/crypto"
	"github.com/mintworks/tokenledger/pkg/types"
)

// BIP-44-style derivation path constants.
// Identity path: m/44'/7007'/index'
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeLedger is our (placeholder) coin type (hardened).
	// TODO: Register an actual coin type number.
	CoinTypeLedger = bip32.FirstHardenedChild + 7007
)

// HDKey is a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index. For hardened
// derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveIdentity derives the identity key at m/44'/7007'/index'. Every
// level is hardened: identity keys sign delegated approvals, so a leaked
// child must never expose siblings.
func (k *HDKey) DeriveIdentity(index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP44,
		CoinTypeLedger,
		bip32.FirstHardenedChild+index,
	)
}

// privateKeyBytes returns the raw 32-byte private key, nil for a
// public-only key.
func (k *HDKey) privateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// Signer returns the Schnorr signing key for this HD key. Fails for a
// public-only key.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.privateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Account returns the ledger account for this key: the x-only public key
// of the Schnorr signing key.
func (k *HDKey) Account() (types.Account, error) {
	signer, err := k.Signer()
	if err != nil {
		return types.ZeroAccount, err
	}
	return signer.Account(), nil
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}
