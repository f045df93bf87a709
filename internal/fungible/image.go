package fungible

import (
	"fmt"
	"sort"

	"github.com/mintworks/tokenledger/pkg/types"
)

// Image is the serializable form of the ledger state, with every table
// flattened into a canonically ordered slice (accounts ascending by raw
// bytes) so that equal states encode identically.
type Image struct {
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Decimals    uint8             `json:"decimals"`
	TotalSupply types.Amount      `json:"total_supply"`
	Balances    []BalanceRecord   `json:"balances"`
	Allowances  []AllowanceRecord `json:"allowances"`
}

// BalanceRecord pairs an account with its balance.
type BalanceRecord struct {
	Account types.Account `json:"account"`
	Balance types.Amount  `json:"balance"`
}

// AllowanceRecord is one (owner, spender) allowance entry.
type AllowanceRecord struct {
	Owner   types.Account `json:"owner"`
	Spender types.Account `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

// Image returns a detached, canonically ordered copy of the ledger state.
func (l *Ledger) Image() *Image {
	img := &Image{
		Name:        l.name,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		TotalSupply: l.totalSupply,
	}

	for account, balance := range l.balances {
		img.Balances = append(img.Balances, BalanceRecord{Account: account, Balance: balance})
	}
	sort.Slice(img.Balances, func(i, j int) bool {
		return img.Balances[i].Account.Cmp(img.Balances[j].Account) < 0
	})

	for owner, spenders := range l.allowances {
		for spender, amount := range spenders {
			img.Allowances = append(img.Allowances, AllowanceRecord{
				Owner:   owner,
				Spender: spender,
				Amount:  amount,
			})
		}
	}
	sort.Slice(img.Allowances, func(i, j int) bool {
		a, b := img.Allowances[i], img.Allowances[j]
		if c := a.Owner.Cmp(b.Owner); c != 0 {
			return c < 0
		}
		return a.Spender.Cmp(b.Spender) < 0
	})

	return img
}

// FromImage reconstructs a ledger from a state image. The image's total
// supply must equal the sum of its balances.
func FromImage(img *Image) (*Ledger, error) {
	l := New(img.Name, img.Symbol, img.Decimals)

	var sum types.Amount
	for _, rec := range img.Balances {
		if rec.Account.IsZero() {
			return nil, fmt.Errorf("restore ledger: %w: zero account holds a balance", ErrInvalidAddress)
		}
		l.balances[rec.Account] = rec.Balance
		var err error
		if sum, err = sum.Add(rec.Balance); err != nil {
			return nil, fmt.Errorf("restore ledger: %w", err)
		}
	}
	if sum.Cmp(img.TotalSupply) != 0 {
		return nil, fmt.Errorf("restore ledger: balances sum to %s, total supply says %s", sum, img.TotalSupply)
	}
	l.totalSupply = img.TotalSupply

	for _, rec := range img.Allowances {
		spenders, ok := l.allowances[rec.Owner]
		if !ok {
			spenders = make(map[types.Account]types.Amount)
			l.allowances[rec.Owner] = spenders
		}
		spenders[rec.Spender] = rec.Amount
	}

	return l, nil
}
