package nft

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/mintworks/tokenledger/pkg/crypto"
	"github.com/mintworks/tokenledger/pkg/types"
)

// Delegated approval verification errors.
var (
	ErrWrongProgram         = errors.New("approval bound to a different ledger instance")
	ErrWrongOwner           = errors.New("claimed owner does not own the token")
	ErrExpiredAuthorization = errors.New("approval has expired")
	ErrSignatureMismatch    = errors.New("approval signature does not verify")
)

// delegatedPayloadVersion versions the signing payload layout. Bump it if
// fields are added or reordered; signatures over one version never verify
// under another.
const delegatedPayloadVersion = 1

// delegatedPayloadTag is the domain separator prepended to every signing
// payload so a delegated approval can never double as any other signed
// message.
const delegatedPayloadTag = "tokenledger/delegated-approval"

// DelegatedApproval is an off-chain-issued, signed, time-bounded capability
// that substitutes for an on-chain Approve call. It is immutable once
// signed and never stored as ledger state: it is presented, verified once,
// and discarded.
type DelegatedApproval struct {
	TokenOwner    types.Account `json:"token_owner"`
	ApprovedActor types.Account `json:"approved_actor"`
	ProgramID     types.Hash    `json:"program_id"`
	TokenID       types.TokenID `json:"token_id"`
	ExpiresAt     int64         `json:"expires_at"` // unix milliseconds
	Signature     []byte        `json:"signature"`
}

// SigningPayload builds the canonical byte serialization of the signed
// fields: tag, version, then each field in declaration order with the
// expiry big-endian. The layout is explicit and versioned so verification
// never depends on in-memory struct layout.
func (m *DelegatedApproval) SigningPayload() []byte {
	payload := make([]byte, 0, len(delegatedPayloadTag)+1+32+32+32+32+8)
	payload = append(payload, delegatedPayloadTag...)
	payload = append(payload, delegatedPayloadVersion)
	payload = append(payload, m.TokenOwner[:]...)
	payload = append(payload, m.ApprovedActor[:]...)
	payload = append(payload, m.ProgramID[:]...)
	id := m.TokenID.Bytes32()
	payload = append(payload, id[:]...)
	payload = binary.BigEndian.AppendUint64(payload, uint64(m.ExpiresAt))
	return payload
}

// SigningHash returns the BLAKE3 digest of the signing payload.
func (m *DelegatedApproval) SigningHash() types.Hash {
	return crypto.Hash(m.SigningPayload())
}

// Sign fills in the signature using the token owner's key. The signer's
// account must be the message's TokenOwner for later verification to pass.
func (m *DelegatedApproval) Sign(signer crypto.Signer) error {
	hash := m.SigningHash()
	sig, err := signer.Sign(hash[:])
	if err != nil {
		return err
	}
	m.Signature = sig
	return nil
}

// VerifyDelegated checks a delegated approval against the presenting
// caller, this instance's identity, the ledger's ownership record, and
// the current time. It is side-effect-free: on success the caller applies
// the approval as a separate step (Approve on behalf of the owner).
//
// Every check must pass; the first failure aborts:
//  1. the presenting caller is the designated actor;
//  2. the message is bound to this instance, not another deployment;
//  3. the actor is not the zero account;
//  4. the claimed owner is the token's true current owner;
//  5. the current time is strictly before expiry (equality is expired);
//  6. the signature verifies against the owner's key.
func (l *Ledger) VerifyDelegated(caller types.Account, instance types.Hash, m *DelegatedApproval, now time.Time) error {
	if caller != m.ApprovedActor {
		return ErrNotAuthorized
	}
	if instance != m.ProgramID {
		return ErrWrongProgram
	}
	if m.ApprovedActor.IsZero() {
		return ErrInvalidAddress
	}
	owner, err := l.OwnerOf(m.TokenID)
	if err != nil {
		return err
	}
	if owner != m.TokenOwner {
		return ErrWrongOwner
	}
	if now.UnixMilli() >= m.ExpiresAt {
		return ErrExpiredAuthorization
	}
	hash := m.SigningHash()
	if !crypto.VerifySignature(hash[:], m.Signature, m.TokenOwner) {
		return ErrSignatureMismatch
	}
	return nil
}

// ApplyDelegated records the approval granted by a verified delegated
// message. Call only after VerifyDelegated has succeeded.
func (l *Ledger) ApplyDelegated(m *DelegatedApproval) (*ApprovalEvent, error) {
	return l.Approve(m.TokenOwner, m.ApprovedActor, m.TokenID)
}
