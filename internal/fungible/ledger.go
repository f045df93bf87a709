// Package fungible implements the single-balance fungible token ledger.
//
// The ledger keeps a sparse balance table (absent entry = zero), an
// owner → spender allowance table, and the total supply. Every mutating
// operation either applies fully or returns an error with no state change.
package fungible

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
)

// Ledger is a single-token balance/allowance ledger.
type Ledger struct {
	name        string
	symbol      string
	decimals    uint8
	totalSupply types.Amount
	balances    map[types.Account]types.Amount
	allowances  map[types.Account]map[types.Account]types.Amount
	logger      zerolog.Logger
}

// New creates an empty fungible ledger.
func New(name, symbol string, decimals uint8) *Ledger {
	return &Ledger{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[types.Account]types.Amount),
		allowances: make(map[types.Account]map[types.Account]types.Amount),
		logger:     log.Ledger,
	}
}

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the token's display decimals.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// TotalSupply returns the current total supply.
func (l *Ledger) TotalSupply() types.Amount { return l.totalSupply }

// BalanceOf returns the balance of an account (zero if absent).
func (l *Ledger) BalanceOf(account types.Account) types.Amount {
	return l.balances[account]
}

// Allowance returns the stored allowance for (owner, spender), zero if absent.
func (l *Ledger) Allowance(owner, spender types.Account) types.Amount {
	return l.allowances[owner][spender]
}

// Mint credits the caller's balance and increases total supply.
// There is no supply cap.
func (l *Ledger) Mint(caller types.Account, amount types.Amount) (*TransferEvent, error) {
	if caller.IsZero() {
		return nil, ErrInvalidAddress
	}

	newBalance, err := l.balances[caller].Add(amount)
	if err != nil {
		return nil, err
	}
	newSupply, err := l.totalSupply.Add(amount)
	if err != nil {
		return nil, err
	}

	l.balances[caller] = newBalance
	l.totalSupply = newSupply

	l.logger.Debug().
		Str("to", caller.Short()).
		Str("amount", amount.String()).
		Msg("minted")

	return &TransferEvent{From: types.ZeroAccount, To: caller, Amount: amount}, nil
}

// Burn debits the caller's balance and decreases total supply.
func (l *Ledger) Burn(caller types.Account, amount types.Amount) (*TransferEvent, error) {
	if caller.IsZero() {
		return nil, ErrInvalidAddress
	}

	balance := l.balances[caller]
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	newBalance, err := balance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newSupply, err := l.totalSupply.Sub(amount)
	if err != nil {
		return nil, err
	}

	l.balances[caller] = newBalance
	l.totalSupply = newSupply

	l.logger.Debug().
		Str("from", caller.Short()).
		Str("amount", amount.String()).
		Msg("burned")

	return &TransferEvent{From: caller, To: types.ZeroAccount, Amount: amount}, nil
}

// authMode records which rule authorized a transfer.
type authMode int

const (
	authOwner       authMode = iota // caller is the from account
	authOrigin                      // from account signed the original transaction
	authCallerFunds                 // caller's own balance covers the amount
	authAllowance                   // allowance from the owner, spent on success
)

// Transfer moves amount from one account to another. The caller must be
// authorized: it is the from account, the from account is the original
// transaction signer (origin), the caller holds a sufficient balance of
// its own, or it has an allowance from the owner. An allowance is only
// spent after every other check has passed, so a failed transfer never
// consumes it.
func (l *Ledger) Transfer(caller, origin, from, to types.Account, amount types.Amount) (*TransferEvent, error) {
	if from.IsZero() || to.IsZero() {
		return nil, ErrInvalidAddress
	}

	mode, err := l.authorizeTransfer(caller, origin, from, amount)
	if err != nil {
		return nil, err
	}

	fromBalance := l.balances[from]
	if fromBalance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	newFrom, err := fromBalance.Sub(amount)
	if err != nil {
		return nil, err
	}
	newTo, err := l.balances[to].Add(amount)
	if err != nil {
		return nil, err
	}

	if mode == authAllowance {
		l.spendAllowance(from, caller, amount)
	}
	l.balances[from] = newFrom
	l.balances[to] = newTo

	l.logger.Debug().
		Str("from", from.Short()).
		Str("to", to.Short()).
		Str("amount", amount.String()).
		Msg("transferred")

	return &TransferEvent{From: from, To: to, Amount: amount}, nil
}

// Approve overwrites the allowance for (caller, spender) with amount.
// The new value replaces any previous allowance, it is not added to it.
func (l *Ledger) Approve(caller, spender types.Account, amount types.Amount) (*ApprovalEvent, error) {
	if caller.IsZero() || spender.IsZero() {
		return nil, ErrInvalidAddress
	}

	spenders, ok := l.allowances[caller]
	if !ok {
		spenders = make(map[types.Account]types.Amount)
		l.allowances[caller] = spenders
	}
	spenders[spender] = amount

	l.logger.Debug().
		Str("owner", caller.Short()).
		Str("spender", spender.Short()).
		Str("amount", amount.String()).
		Msg("approved")

	return &ApprovalEvent{Owner: caller, Spender: spender, Amount: amount}, nil
}

// authorizeTransfer decides whether caller may move amount out of from.
// It is a pure check: no allowance is consumed here.
func (l *Ledger) authorizeTransfer(caller, origin, from types.Account, amount types.Amount) (authMode, error) {
	if caller == from {
		return authOwner, nil
	}
	// An intermediary may debit the account that signed the original
	// transaction, and no one else, without an allowance.
	if from == origin {
		return authOrigin, nil
	}
	// TODO: confirm whether this branch should check from's balance instead
	// of the caller's. Kept as-is to match the deployed behavior.
	if l.balances[caller].Cmp(amount) >= 0 {
		return authCallerFunds, nil
	}

	allowance, ok := l.allowances[from][caller]
	if !ok {
		return 0, ErrNotAuthorized
	}
	if allowance.Cmp(amount) < 0 {
		return 0, ErrInsufficientAllowance
	}
	return authAllowance, nil
}

// spendAllowance decrements the stored allowance for (owner, spender).
// Callers must have verified the allowance covers amount.
func (l *Ledger) spendAllowance(owner, spender types.Account, amount types.Amount) {
	remaining, err := l.allowances[owner][spender].Sub(amount)
	if err != nil {
		// Unreachable: authorizeTransfer checked allowance >= amount.
		remaining = types.Amount{}
	}
	l.allowances[owner][spender] = remaining
}
