// Package multitoken implements the hierarchical multi-token ledger: many
// token ids in one instance, each with its own supply and per-owner
// balances, nested under a per-owner aggregate balance that is maintained
// incrementally on every mutation.
package multitoken

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/mintworks/tokenledger/internal/log"
	"github.com/mintworks/tokenledger/pkg/types"
)

// Ledger validation errors.
var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInsufficientBalance   = errors.New("amount exceeds account balance")
	ErrNotAuthorized         = errors.New("not authorized to transfer")
	ErrInsufficientAllowance = errors.New("amount exceeds allowance")
	ErrUnknownToken          = errors.New("unknown token id")
)

// tokenState is the bookkeeping for one token id.
type tokenState struct {
	totalSupply types.Amount
	holders     map[types.Account]*holderState
	attributes  map[string][]byte
}

// holderState is one owner's position in one token id.
type holderState struct {
	balance    types.Amount
	allowances map[types.Account]types.Amount
}

// ownerState is the per-owner aggregate across all token ids.
type ownerState struct {
	balance   types.Amount
	operators map[types.Account]struct{}
}

// Ledger is a multi-token balance/allowance/operator ledger. A token id
// exists once it has been minted, even with a zero amount, and never goes
// away; the owner aggregate tracks the sum of that owner's per-id
// balances without recomputation.
type Ledger struct {
	name        string
	symbol      string
	baseURI     string
	totalSupply types.Amount
	tokens      map[types.TokenID]*tokenState
	owners      map[types.Account]*ownerState
	logger      zerolog.Logger
}

// New creates an empty multi-token ledger.
func New(name, symbol, baseURI string) *Ledger {
	return &Ledger{
		name:    name,
		symbol:  symbol,
		baseURI: baseURI,
		tokens:  make(map[types.TokenID]*tokenState),
		owners:  make(map[types.Account]*ownerState),
		logger:  log.MultiToken,
	}
}

// Name returns the collection name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the collection symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// BaseURI returns the collection's base metadata URI.
func (l *Ledger) BaseURI() string { return l.baseURI }

// TotalSupply returns the supply of one token id, or the grand total
// across all ids if id is nil. An unknown id has zero supply.
func (l *Ledger) TotalSupply(id *types.TokenID) types.Amount {
	if id == nil {
		return l.totalSupply
	}
	tok, ok := l.tokens[*id]
	if !ok {
		return types.Amount{}
	}
	return tok.totalSupply
}

// BalanceOf returns the (owner, id) balance, or the owner's aggregate
// balance across all ids if id is nil.
func (l *Ledger) BalanceOf(owner types.Account, id *types.TokenID) types.Amount {
	if id == nil {
		own, ok := l.owners[owner]
		if !ok {
			return types.Amount{}
		}
		return own.balance
	}
	tok, ok := l.tokens[*id]
	if !ok {
		return types.Amount{}
	}
	holder, ok := tok.holders[owner]
	if !ok {
		return types.Amount{}
	}
	return holder.balance
}

// Allowance returns what operator may move out of owner's holdings. An
// operator-for-all grant short-circuits to the MAX sentinel for any id.
// Otherwise the stored (owner, operator, id) allowance is returned, zero
// if absent or if id is nil.
func (l *Ledger) Allowance(owner, operator types.Account, id *types.TokenID) types.Amount {
	if own, ok := l.owners[owner]; ok {
		if _, ok := own.operators[operator]; ok {
			return types.MaxAmount()
		}
	}
	if id == nil {
		return types.Amount{}
	}
	tok, ok := l.tokens[*id]
	if !ok {
		return types.Amount{}
	}
	holder, ok := tok.holders[owner]
	if !ok {
		return types.Amount{}
	}
	return holder.allowances[operator]
}

// IsOperator reports whether operator holds an operator-for-all grant
// from owner.
func (l *Ledger) IsOperator(owner, operator types.Account) bool {
	own, ok := l.owners[owner]
	if !ok {
		return false
	}
	_, ok = own.operators[operator]
	return ok
}

// Mint credits (owner, id) and raises the id's supply, the owner
// aggregate, and the grand total in lockstep. Minting zero is allowed
// and brings the id into existence without changing any balance.
func (l *Ledger) Mint(owner types.Account, id types.TokenID, amount types.Amount) (*TransferEvent, error) {
	if owner.IsZero() {
		return nil, ErrInvalidAddress
	}

	tok := l.token(id)
	holder := tok.holder(owner)
	own := l.owner(owner)

	newHolder, err := holder.balance.Add(amount)
	if err != nil {
		return nil, err
	}
	newTokenSupply, err := tok.totalSupply.Add(amount)
	if err != nil {
		return nil, err
	}
	newAggregate, err := own.balance.Add(amount)
	if err != nil {
		return nil, err
	}
	newTotal, err := l.totalSupply.Add(amount)
	if err != nil {
		return nil, err
	}

	holder.balance = newHolder
	tok.totalSupply = newTokenSupply
	own.balance = newAggregate
	l.totalSupply = newTotal

	l.logger.Debug().
		Str("to", owner.Short()).
		Str("id", id.String()).
		Str("amount", amount.String()).
		Msg("minted")

	return &TransferEvent{From: types.ZeroAccount, To: owner, ID: id, Amount: amount}, nil
}

// Burn debits (owner, id) and lowers the id's supply, the owner
// aggregate, and the grand total in lockstep.
func (l *Ledger) Burn(owner types.Account, id types.TokenID, amount types.Amount) (*TransferEvent, error) {
	if owner.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	holder, ok := tok.holders[owner]
	if !ok || holder.balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	own := l.owner(owner)

	newHolder, err := holder.balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newTokenSupply, err := tok.totalSupply.Sub(amount)
	if err != nil {
		return nil, err
	}
	newAggregate, err := own.balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newTotal, err := l.totalSupply.Sub(amount)
	if err != nil {
		return nil, err
	}

	holder.balance = newHolder
	tok.totalSupply = newTokenSupply
	own.balance = newAggregate
	l.totalSupply = newTotal

	l.logger.Debug().
		Str("from", owner.Short()).
		Str("id", id.String()).
		Str("amount", amount.String()).
		Msg("burned")

	return &TransferEvent{From: owner, To: types.ZeroAccount, ID: id, Amount: amount}, nil
}

// transferAuth records which rule authorized a transfer.
type transferAuth int

const (
	transferAuthOwner     transferAuth = iota // caller is the from account
	transferAuthOperator                      // operator-for-all grant
	transferAuthAllowance                     // per-id allowance, spent on success
)

// Transfer moves amount of id from one account to another. The caller
// must be the from account, hold an operator-for-all grant from it, or
// hold a sufficient per-id allowance. The allowance is only spent after
// the balance check has passed.
func (l *Ledger) Transfer(caller, from, to types.Account, id types.TokenID, amount types.Amount) (*TransferEvent, error) {
	if from.IsZero() || to.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}

	auth, err := l.authorizeTransfer(tok, caller, from, amount)
	if err != nil {
		return nil, err
	}

	fromHolder, ok := tok.holders[from]
	if !ok || fromHolder.balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	toHolder := tok.holder(to)
	fromOwner := l.owner(from)
	toOwner := l.owner(to)

	newFrom, err := fromHolder.balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newTo, err := toHolder.balance.Add(amount)
	if err != nil {
		return nil, err
	}
	newFromAgg, err := fromOwner.balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newToAgg, err := toOwner.balance.Add(amount)
	if err != nil {
		return nil, err
	}

	if auth == transferAuthAllowance {
		l.spendAllowance(fromHolder, caller, amount)
	}
	fromHolder.balance = newFrom
	toHolder.balance = newTo
	fromOwner.balance = newFromAgg
	toOwner.balance = newToAgg

	l.logger.Debug().
		Str("from", from.Short()).
		Str("to", to.Short()).
		Str("id", id.String()).
		Str("amount", amount.String()).
		Msg("transferred")

	return &TransferEvent{From: from, To: to, ID: id, Amount: amount}, nil
}

// Approve overwrites the (owner, operator, id) allowance with amount.
// It is independent of operator-for-all: granting or revoking either
// never touches the other.
func (l *Ledger) Approve(owner, operator types.Account, id types.TokenID, amount types.Amount) (*ApprovalEvent, error) {
	if owner.IsZero() || operator.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}

	holder := tok.holder(owner)
	if holder.allowances == nil {
		holder.allowances = make(map[types.Account]types.Amount)
	}
	holder.allowances[operator] = amount

	l.logger.Debug().
		Str("owner", owner.Short()).
		Str("operator", operator.Short()).
		Str("id", id.String()).
		Str("amount", amount.String()).
		Msg("approved")

	return &ApprovalEvent{Owner: owner, Operator: operator, ID: id, Amount: amount}, nil
}

// SetOperator grants or revokes operator's operator-for-all approval on
// every token id owner holds now or later. Per-id allowances are a
// separate store and are left untouched either way.
func (l *Ledger) SetOperator(owner, operator types.Account, approved bool) (*OperatorEvent, error) {
	if owner.IsZero() || operator.IsZero() {
		return nil, ErrInvalidAddress
	}

	own := l.owner(owner)
	if approved {
		own.operators[operator] = struct{}{}
	} else {
		delete(own.operators, operator)
	}

	l.logger.Debug().
		Str("owner", owner.Short()).
		Str("operator", operator.Short()).
		Bool("approved", approved).
		Msg("operator updated")

	return &OperatorEvent{Owner: owner, Operator: operator, Approved: approved}, nil
}

// SetAttribute stores a byte value under key for an existing token id,
// overwriting any previous value.
func (l *Ledger) SetAttribute(id types.TokenID, key, value []byte) error {
	tok, ok := l.tokens[id]
	if !ok {
		return ErrUnknownToken
	}
	if tok.attributes == nil {
		tok.attributes = make(map[string][]byte)
	}
	tok.attributes[string(key)] = append([]byte(nil), value...)
	return nil
}

// GetAttribute returns the value stored under key for a token id. The
// second return distinguishes "attribute never set" from a stored empty
// value; an id that was never minted is an error.
func (l *Ledger) GetAttribute(id types.TokenID, key []byte) ([]byte, bool, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return nil, false, ErrUnknownToken
	}
	value, ok := tok.attributes[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// token returns the state for id, creating it if absent.
func (l *Ledger) token(id types.TokenID) *tokenState {
	tok, ok := l.tokens[id]
	if !ok {
		tok = &tokenState{holders: make(map[types.Account]*holderState)}
		l.tokens[id] = tok
	}
	return tok
}

// holder returns owner's state within the token, creating it if absent.
func (t *tokenState) holder(owner types.Account) *holderState {
	h, ok := t.holders[owner]
	if !ok {
		h = &holderState{}
		t.holders[owner] = h
	}
	return h
}

// owner returns the aggregate state for an account, creating it if absent.
func (l *Ledger) owner(account types.Account) *ownerState {
	own, ok := l.owners[account]
	if !ok {
		own = &ownerState{operators: make(map[types.Account]struct{})}
		l.owners[account] = own
	}
	return own
}

// authorizeTransfer decides whether caller may move amount of the token
// out of from. It is a pure check: no allowance is consumed here.
func (l *Ledger) authorizeTransfer(tok *tokenState, caller, from types.Account, amount types.Amount) (transferAuth, error) {
	if caller == from {
		return transferAuthOwner, nil
	}
	if l.IsOperator(from, caller) {
		return transferAuthOperator, nil
	}

	holder, ok := tok.holders[from]
	if !ok {
		return 0, ErrNotAuthorized
	}
	allowance, ok := holder.allowances[caller]
	if !ok {
		return 0, ErrNotAuthorized
	}
	if allowance.Cmp(amount) < 0 {
		return 0, ErrInsufficientAllowance
	}
	return transferAuthAllowance, nil
}

// spendAllowance decrements the holder's stored allowance for operator.
// Callers must have verified the allowance covers amount.
func (l *Ledger) spendAllowance(holder *holderState, operator types.Account, amount types.Amount) {
	remaining, err := holder.allowances[operator].Sub(amount)
	if err != nil {
		// Unreachable: authorizeTransfer checked allowance >= amount.
		remaining = types.Amount{}
	}
	holder.allowances[operator] = remaining
}
