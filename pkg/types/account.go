package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AccountSize is the length of an account identifier in bytes.
const AccountSize = 32

// Account identifies a party on the ledger. The 32 bytes are an x-only
// secp256k1 public key (BIP-340 serialization), so delegated-approval
// signatures verify directly against the account identifier.
type Account [AccountSize]byte

// ZeroAccount is the reserved "no account" sentinel. It is the implicit
// counterparty of mint and burn and must never hold a balance or appear
// as a transfer endpoint.
var ZeroAccount = Account{}

// IsZero returns true if the account is the zero sentinel.
func (a Account) IsZero() bool {
	return a == Account{}
}

// String returns the hex-encoded account.
func (a Account) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns an abbreviated form for log output.
func (a Account) Short() string {
	s := a.String()
	return s[:8] + ".." + s[len(s)-4:]
}

// Bytes returns a copy of the account as a byte slice.
func (a Account) Bytes() []byte {
	b := make([]byte, AccountSize)
	copy(b, a[:])
	return b
}

// Cmp compares two accounts lexicographically by their raw bytes.
// Used to impose the canonical ordering in encodable snapshots.
func (a Account) Cmp(b Account) int {
	return bytes.Compare(a[:], b[:])
}

// MarshalJSON encodes the account as a hex string.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string into an account.
func (a *Account) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Account{}
		return nil
	}
	parsed, err := ParseAccount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccount parses a 64-character hex account string.
func ParseAccount(s string) (Account, error) {
	if s == "" {
		return Account{}, fmt.Errorf("empty account")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Account{}, fmt.Errorf("invalid account hex: %w", err)
	}
	if len(b) != AccountSize {
		return Account{}, fmt.Errorf("account must be %d bytes, got %d", AccountSize, len(b))
	}
	var a Account
	copy(a[:], b)
	return a, nil
}

// AccountFromBytes converts a 32-byte slice to an Account.
func AccountFromBytes(b []byte) (Account, error) {
	if len(b) != AccountSize {
		return Account{}, fmt.Errorf("account must be %d bytes, got %d", AccountSize, len(b))
	}
	var a Account
	copy(a[:], b)
	return a, nil
}
