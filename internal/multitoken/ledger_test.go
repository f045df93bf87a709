package multitoken

import (
	"errors"
	"testing"

	"github.com/mintworks/tokenledger/pkg/types"
)

func acct(b byte) types.Account {
	return types.Account{31: b}
}

func tid(x uint64) types.TokenID {
	return types.NewTokenID(x)
}

func amt(x uint64) types.Amount {
	return types.NewAmount(x)
}

// checkInvariants verifies the two supply invariants: per id, holder
// balances sum to the id's supply; per owner, per-id balances sum to the
// stored aggregate.
func checkInvariants(t *testing.T, l *Ledger) {
	t.Helper()

	aggregates := make(map[types.Account]types.Amount)
	var grand types.Amount
	var err error
	for id, tok := range l.tokens {
		var idSum types.Amount
		for account, holder := range tok.holders {
			if idSum, err = idSum.Add(holder.balance); err != nil {
				t.Fatalf("sum id %s: %v", id, err)
			}
			if aggregates[account], err = aggregates[account].Add(holder.balance); err != nil {
				t.Fatalf("sum owner %s: %v", account.Short(), err)
			}
		}
		if idSum.Cmp(tok.totalSupply) != 0 {
			t.Fatalf("id %s: balances sum to %s, supply is %s", id, idSum, tok.totalSupply)
		}
		if grand, err = grand.Add(tok.totalSupply); err != nil {
			t.Fatalf("sum supplies: %v", err)
		}
	}
	if grand.Cmp(l.totalSupply) != 0 {
		t.Fatalf("supplies sum to %s, grand total is %s", grand, l.totalSupply)
	}
	for account, own := range l.owners {
		if own.balance.Cmp(aggregates[account]) != 0 {
			t.Fatalf("owner %s: aggregate %s, per-id sum %s", account.Short(), own.balance, aggregates[account])
		}
	}
}

func newTestLedger() *Ledger {
	return New("Test Items", "ITM", "ipfs://items/")
}

func TestMintAndAggregates(t *testing.T) {
	l := newTestLedger()
	a := acct(1)

	if _, err := l.Mint(a, tid(1), amt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := l.Mint(a, tid(2), amt(50)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if got := l.BalanceOf(a, ptr(tid(1))); got.Cmp(amt(100)) != 0 {
		t.Errorf("balance(a, 1) = %s, want 100", got)
	}
	if got := l.BalanceOf(a, nil); got.Cmp(amt(150)) != 0 {
		t.Errorf("aggregate(a) = %s, want 150", got)
	}
	if got := l.TotalSupply(ptr(tid(2))); got.Cmp(amt(50)) != 0 {
		t.Errorf("supply(2) = %s, want 50", got)
	}
	if got := l.TotalSupply(nil); got.Cmp(amt(150)) != 0 {
		t.Errorf("grand supply = %s, want 150", got)
	}
	checkInvariants(t, l)
}

func TestMintZeroCreatesID(t *testing.T) {
	l := newTestLedger()
	a := acct(1)

	if _, err := l.Mint(a, tid(7), types.Amount{}); err != nil {
		t.Fatalf("Mint zero: %v", err)
	}
	// The id now exists, so attribute access succeeds.
	if _, _, err := l.GetAttribute(tid(7), []byte("k")); err != nil {
		t.Errorf("GetAttribute on zero-minted id: %v", err)
	}
	checkInvariants(t, l)
}

func TestBurn(t *testing.T) {
	l := newTestLedger()
	a := acct(1)
	l.Mint(a, tid(1), amt(100))

	if _, err := l.Burn(a, tid(1), amt(30)); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if got := l.BalanceOf(a, ptr(tid(1))); got.Cmp(amt(70)) != 0 {
		t.Errorf("balance = %s, want 70", got)
	}
	if got := l.BalanceOf(a, nil); got.Cmp(amt(70)) != 0 {
		t.Errorf("aggregate = %s, want 70", got)
	}
	checkInvariants(t, l)
}

func TestBurn_Failures(t *testing.T) {
	l := newTestLedger()
	a := acct(1)
	l.Mint(a, tid(1), amt(10))

	if _, err := l.Burn(a, tid(99), amt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown id: expected ErrUnknownToken, got: %v", err)
	}
	if _, err := l.Burn(a, tid(1), amt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("short balance: expected ErrInsufficientBalance, got: %v", err)
	}
	if _, err := l.Burn(acct(2), tid(1), amt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("non-holder: expected ErrInsufficientBalance, got: %v", err)
	}
	checkInvariants(t, l)
}

func TestTransfer_AsOwner(t *testing.T) {
	l := newTestLedger()
	a, b := acct(1), acct(2)
	l.Mint(a, tid(1), amt(100))
	l.Mint(a, tid(2), amt(40))

	ev, err := l.Transfer(a, a, b, tid(1), amt(60))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if ev.From != a || ev.To != b || ev.ID != tid(1) || ev.Amount.Cmp(amt(60)) != 0 {
		t.Errorf("unexpected event: %+v", ev)
	}
	if got := l.BalanceOf(a, ptr(tid(1))); got.Cmp(amt(40)) != 0 {
		t.Errorf("balance(a, 1) = %s, want 40", got)
	}
	if got := l.BalanceOf(b, nil); got.Cmp(amt(60)) != 0 {
		t.Errorf("aggregate(b) = %s, want 60", got)
	}
	if got := l.BalanceOf(a, nil); got.Cmp(amt(80)) != 0 {
		t.Errorf("aggregate(a) = %s, want 80", got)
	}
	if got := l.TotalSupply(ptr(tid(1))); got.Cmp(amt(100)) != 0 {
		t.Errorf("supply changed: %s", got)
	}
	checkInvariants(t, l)
}

func TestTransfer_Failures(t *testing.T) {
	l := newTestLedger()
	a, b, c := acct(1), acct(2), acct(3)
	l.Mint(a, tid(1), amt(100))

	if _, err := l.Transfer(a, types.ZeroAccount, b, tid(1), amt(1)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("zero from: %v", err)
	}
	if _, err := l.Transfer(a, a, types.ZeroAccount, tid(1), amt(1)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("zero to: %v", err)
	}
	if _, err := l.Transfer(a, a, b, tid(9), amt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown id: %v", err)
	}
	if _, err := l.Transfer(c, a, b, tid(1), amt(1)); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("no grant: %v", err)
	}
	if _, err := l.Transfer(a, a, b, tid(1), amt(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("short balance: %v", err)
	}
	checkInvariants(t, l)
}

func TestTransfer_ViaAllowance(t *testing.T) {
	l := newTestLedger()
	a, b, c := acct(1), acct(2), acct(3)
	l.Mint(a, tid(1), amt(100))
	l.Approve(a, c, tid(1), amt(70))

	if _, err := l.Transfer(c, a, b, tid(1), amt(50)); err != nil {
		t.Fatalf("Transfer via allowance: %v", err)
	}
	if got := l.Allowance(a, c, ptr(tid(1))); got.Cmp(amt(20)) != 0 {
		t.Errorf("allowance = %s, want 20", got)
	}

	// The remaining allowance no longer covers another 50.
	if _, err := l.Transfer(c, a, b, tid(1), amt(50)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got: %v", err)
	}
	if got := l.Allowance(a, c, ptr(tid(1))); got.Cmp(amt(20)) != 0 {
		t.Errorf("failed transfer changed allowance: %s", got)
	}
	checkInvariants(t, l)
}

func TestTransfer_AllowanceKeptWhenBalanceShort(t *testing.T) {
	l := newTestLedger()
	a, b, c := acct(1), acct(2), acct(3)
	l.Mint(a, tid(1), amt(10))
	l.Approve(a, c, tid(1), amt(100))

	if _, err := l.Transfer(c, a, b, tid(1), amt(50)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}
	if got := l.Allowance(a, c, ptr(tid(1))); got.Cmp(amt(100)) != 0 {
		t.Errorf("allowance spent by failed transfer: %s", got)
	}
}

func TestTransfer_AsOperator(t *testing.T) {
	l := newTestLedger()
	a, b, d := acct(1), acct(2), acct(4)
	l.Mint(a, tid(1), amt(100))
	l.SetOperator(a, d, true)

	if _, err := l.Transfer(d, a, b, tid(1), amt(80)); err != nil {
		t.Fatalf("Transfer as operator: %v", err)
	}
	// Operator transfers never touch the per-id allowance table.
	if got := l.Allowance(a, d, ptr(tid(1))); got.Cmp(types.MaxAmount()) != 0 {
		t.Errorf("allowance = %s, want MAX sentinel", got)
	}
	checkInvariants(t, l)
}

func TestApprove_Overwrites(t *testing.T) {
	l := newTestLedger()
	a, c := acct(1), acct(3)
	l.Mint(a, tid(1), amt(10))

	l.Approve(a, c, tid(1), amt(500))
	if _, err := l.Approve(a, c, tid(1), amt(30)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := l.Allowance(a, c, ptr(tid(1))); got.Cmp(amt(30)) != 0 {
		t.Errorf("allowance = %s, want 30 (overwrite, not add)", got)
	}
}

func TestApprove_UnknownID(t *testing.T) {
	l := newTestLedger()
	if _, err := l.Approve(acct(1), acct(3), tid(9), amt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got: %v", err)
	}
}

func TestOperatorForAll_MaxSentinel(t *testing.T) {
	l := newTestLedger()
	a, d := acct(1), acct(4)
	l.Mint(a, tid(1), amt(10))
	l.Mint(a, tid(2), amt(10))

	l.SetOperator(a, d, true)

	// MAX for every id, and for the nil-id query, though no per-id
	// allowance entry was ever written.
	for _, id := range []*types.TokenID{ptr(tid(1)), ptr(tid(2)), ptr(tid(99)), nil} {
		if got := l.Allowance(a, d, id); got.Cmp(types.MaxAmount()) != 0 {
			t.Errorf("allowance(id=%v) = %s, want MAX", id, got)
		}
	}

	l.SetOperator(a, d, false)
	if got := l.Allowance(a, d, ptr(tid(1))); !got.IsZero() {
		t.Errorf("allowance after revoke = %s, want 0", got)
	}
}

func TestOperatorIndependentOfAllowances(t *testing.T) {
	l := newTestLedger()
	a, d := acct(1), acct(4)
	l.Mint(a, tid(1), amt(10))
	l.Approve(a, d, tid(1), amt(5))

	// Granting then revoking operator-for-all leaves the stored per-id
	// allowance untouched.
	l.SetOperator(a, d, true)
	l.SetOperator(a, d, false)
	if got := l.Allowance(a, d, ptr(tid(1))); got.Cmp(amt(5)) != 0 {
		t.Errorf("allowance = %s, want 5", got)
	}
}

func TestAttributes(t *testing.T) {
	l := newTestLedger()
	a := acct(1)
	l.Mint(a, tid(1), amt(1))

	if _, _, err := l.GetAttribute(tid(9), []byte("k")); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown id: expected ErrUnknownToken, got: %v", err)
	}

	value, found, err := l.GetAttribute(tid(1), []byte("color"))
	if err != nil || found || value != nil {
		t.Errorf("unset attribute = %q, %v, %v; want nil, false, nil", value, found, err)
	}

	if err := l.SetAttribute(tid(1), []byte("color"), []byte("red")); err != nil {
		t.Fatalf("SetAttribute: %v", err)
	}
	value, found, err = l.GetAttribute(tid(1), []byte("color"))
	if err != nil || !found || string(value) != "red" {
		t.Errorf("attribute = %q, %v, %v; want red, true, nil", value, found, err)
	}

	// Overwrite.
	l.SetAttribute(tid(1), []byte("color"), []byte("blue"))
	value, _, _ = l.GetAttribute(tid(1), []byte("color"))
	if string(value) != "blue" {
		t.Errorf("attribute = %q, want blue", value)
	}

	if err := l.SetAttribute(tid(9), []byte("k"), []byte("v")); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("SetAttribute unknown id: %v", err)
	}
}

func ptr(id types.TokenID) *types.TokenID { return &id }
