package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// TokenID identifies a token class within a multi-token ledger, or a unique
// token in an NFT ledger. IDs are opaque 256-bit values; the decimal form is
// used for display and JSON. TokenID is comparable and usable as a map key.
type TokenID struct {
	v uint256.Int
}

// NewTokenID creates a TokenID from a uint64.
func NewTokenID(x uint64) TokenID {
	var id TokenID
	id.v.SetUint64(x)
	return id
}

// TokenIDFromString parses a decimal string into a TokenID.
func TokenIDFromString(s string) (TokenID, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return TokenID{}, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	return TokenID{v: *v}, nil
}

// Cmp returns -1, 0, or +1 comparing ids as 256-bit integers.
// Used to impose the canonical ordering in encodable snapshots.
func (id TokenID) Cmp(other TokenID) int {
	return id.v.Cmp(&other.v)
}

// IsZero returns true if the id is zero.
func (id TokenID) IsZero() bool {
	return id.v.IsZero()
}

// Bytes32 returns the id as a 32-byte big-endian array.
// Used by the delegated-approval signing payload.
func (id TokenID) Bytes32() [32]byte {
	return id.v.Bytes32()
}

// String returns the decimal representation.
func (id TokenID) String() string {
	return id.v.Dec()
}

// MarshalJSON encodes the id as a decimal string.
func (id TokenID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a decimal string (or bare JSON number) into an id.
func (id *TokenID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	if s == "" {
		*id = TokenID{}
		return nil
	}
	parsed, err := TokenIDFromString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
