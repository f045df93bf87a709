// Package nft implements the non-fungible token ledger: unique ids, one
// owner each, per-token approval sets, and an optional royalty table fixed
// at mint. It also carries the delegated-approval verifier and royalty
// sale settlement.
package nft

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mintworks/tokenledger/internal/log"
	"github.com/mintworks/tokenledger/pkg/types"
)

// Ledger validation errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrTokenExists    = errors.New("token id already minted")
	ErrUnknownToken   = errors.New("unknown token id")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrBadRoyalty     = errors.New("royalty shares exceed 100%")
	ErrTokenHeld      = errors.New("token is held by a pending settlement")
)

// royaltyDenominator is the basis-point scale: 10000 = 100%.
const royaltyDenominator = 10000

// Metadata is the free-text description attached to a token at mint.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Media       string `json:"media"`
	Reference   string `json:"reference"`
}

// RoyaltyShare routes a fraction of every sale price to an account,
// expressed in basis points.
type RoyaltyShare struct {
	Account     types.Account `json:"account"`
	BasisPoints uint16        `json:"basis_points"`
}

// tokenState is the bookkeeping for one token id.
type tokenState struct {
	owner     types.Account
	metadata  Metadata
	approved  map[types.Account]struct{}
	royalties []RoyaltyShare
	held      bool
}

// Ledger is a unique-token ledger.
type Ledger struct {
	name    string
	symbol  string
	baseURI string
	tokens  map[types.TokenID]*tokenState
	byOwner map[types.Account]map[types.TokenID]struct{}
	logger  zerolog.Logger
}

// New creates an empty NFT ledger.
func New(name, symbol, baseURI string) *Ledger {
	return &Ledger{
		name:    name,
		symbol:  symbol,
		baseURI: baseURI,
		tokens:  make(map[types.TokenID]*tokenState),
		byOwner: make(map[types.Account]map[types.TokenID]struct{}),
		logger:  log.NFT,
	}
}

// Name returns the collection name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the collection symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// BaseURI returns the collection's base metadata URI.
func (l *Ledger) BaseURI() string { return l.baseURI }

// TotalSupply returns the number of live tokens.
func (l *Ledger) TotalSupply() uint64 {
	return uint64(len(l.tokens))
}

// OwnerOf returns the current owner of a token.
func (l *Ledger) OwnerOf(id types.TokenID) (types.Account, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return types.ZeroAccount, ErrUnknownToken
	}
	return tok.owner, nil
}

// MetadataOf returns the metadata attached to a token at mint.
func (l *Ledger) MetadataOf(id types.TokenID) (Metadata, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return Metadata{}, ErrUnknownToken
	}
	return tok.metadata, nil
}

// RoyaltiesOf returns the royalty table fixed at mint.
func (l *Ledger) RoyaltiesOf(id types.TokenID) ([]RoyaltyShare, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	return append([]RoyaltyShare(nil), tok.royalties...), nil
}

// IsApproved reports whether account is in the token's approved set.
func (l *Ledger) IsApproved(id types.TokenID, account types.Account) bool {
	tok, ok := l.tokens[id]
	if !ok {
		return false
	}
	_, ok = tok.approved[account]
	return ok
}

// ApprovedOf returns the token's approved accounts in canonical order.
func (l *Ledger) ApprovedOf(id types.TokenID) ([]types.Account, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	accounts := make([]types.Account, 0, len(tok.approved))
	for account := range tok.approved {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Cmp(accounts[j]) < 0 })
	return accounts, nil
}

// TokensOf returns the ids owned by an account in canonical order.
func (l *Ledger) TokensOf(owner types.Account) []types.TokenID {
	ids := make([]types.TokenID, 0, len(l.byOwner[owner]))
	for id := range l.byOwner[owner] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })
	return ids
}

// Mint creates a token with a fresh id, owned by owner. The royalty table
// is fixed here and may not exceed 100% in total.
func (l *Ledger) Mint(owner types.Account, id types.TokenID, metadata Metadata, royalties []RoyaltyShare) (*TransferEvent, error) {
	if owner.IsZero() {
		return nil, ErrInvalidAddress
	}
	if _, ok := l.tokens[id]; ok {
		return nil, ErrTokenExists
	}
	var totalBps uint32
	for _, share := range royalties {
		if share.Account.IsZero() {
			return nil, ErrInvalidAddress
		}
		totalBps += uint32(share.BasisPoints)
	}
	if totalBps > royaltyDenominator {
		return nil, ErrBadRoyalty
	}

	l.tokens[id] = &tokenState{
		owner:     owner,
		metadata:  metadata,
		royalties: append([]RoyaltyShare(nil), royalties...),
	}
	l.index(owner, id)

	l.logger.Debug().
		Str("to", owner.Short()).
		Str("id", id.String()).
		Msg("minted")

	return &TransferEvent{From: types.ZeroAccount, To: owner, ID: id}, nil
}

// Burn destroys a token. Only the owner may burn.
func (l *Ledger) Burn(caller types.Account, id types.TokenID) (*TransferEvent, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	if tok.held {
		return nil, ErrTokenHeld
	}
	if caller != tok.owner {
		return nil, ErrNotAuthorized
	}

	l.unindex(tok.owner, id)
	delete(l.tokens, id)

	l.logger.Debug().
		Str("from", caller.Short()).
		Str("id", id.String()).
		Msg("burned")

	return &TransferEvent{From: caller, To: types.ZeroAccount, ID: id}, nil
}

// Transfer moves a token to a new owner. The caller must be the owner or
// in the token's approved set; the approved set is cleared on transfer.
func (l *Ledger) Transfer(caller, to types.Account, id types.TokenID) (*TransferEvent, error) {
	if to.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	if tok.held {
		return nil, ErrTokenHeld
	}
	if caller != tok.owner {
		if _, ok := tok.approved[caller]; !ok {
			return nil, ErrNotAuthorized
		}
	}

	from := tok.owner
	l.move(tok, id, to)

	l.logger.Debug().
		Str("from", from.Short()).
		Str("to", to.Short()).
		Str("id", id.String()).
		Msg("transferred")

	return &TransferEvent{From: from, To: to, ID: id}, nil
}

// Approve adds an account to the token's approved set. Only the owner may
// approve.
func (l *Ledger) Approve(caller, approved types.Account, id types.TokenID) (*ApprovalEvent, error) {
	if approved.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	if caller != tok.owner {
		return nil, ErrNotAuthorized
	}

	if tok.approved == nil {
		tok.approved = make(map[types.Account]struct{})
	}
	tok.approved[approved] = struct{}{}

	l.logger.Debug().
		Str("owner", caller.Short()).
		Str("approved", approved.Short()).
		Str("id", id.String()).
		Msg("approved")

	return &ApprovalEvent{Owner: caller, Approved: approved, ID: id}, nil
}

// Revoke removes an account from the token's approved set. Only the owner
// may revoke.
func (l *Ledger) Revoke(caller, approved types.Account, id types.TokenID) error {
	tok, ok := l.tokens[id]
	if !ok {
		return ErrUnknownToken
	}
	if caller != tok.owner {
		return ErrNotAuthorized
	}
	delete(tok.approved, approved)
	return nil
}

// move reassigns ownership and clears the approved set.
func (l *Ledger) move(tok *tokenState, id types.TokenID, to types.Account) {
	l.unindex(tok.owner, id)
	tok.owner = to
	tok.approved = nil
	l.index(to, id)
}

func (l *Ledger) index(owner types.Account, id types.TokenID) {
	ids, ok := l.byOwner[owner]
	if !ok {
		ids = make(map[types.TokenID]struct{})
		l.byOwner[owner] = ids
	}
	ids[id] = struct{}{}
}

func (l *Ledger) unindex(owner types.Account, id types.TokenID) {
	ids := l.byOwner[owner]
	delete(ids, id)
	if len(ids) == 0 {
		delete(l.byOwner, owner)
	}
}
