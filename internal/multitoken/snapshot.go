package multitoken

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/mintworks/tokenledger/pkg/types"
)

// Snapshot is a detached, order-stable projection of the ledger at one
// instant. Every map is flattened into a slice sorted by key (token ids
// and accounts ascending by raw bytes, attribute keys by byte order), so
// two snapshots of the same logical state are structurally equal and
// encode identically. It answers the same queries as the live ledger and
// doubles as the persistence image.
type Snapshot struct {
	Name    string        `json:"name"`
	Symbol  string        `json:"symbol"`
	BaseURI string        `json:"base_uri"`
	Total   types.Amount  `json:"total_supply"`
	Tokens  []TokenRecord `json:"tokens"`
	Owners  []OwnerRecord `json:"owners"`
}

// TokenRecord is the flattened state of one token id.
type TokenRecord struct {
	ID          types.TokenID     `json:"id"`
	TotalSupply types.Amount      `json:"total_supply"`
	Holders     []HolderRecord    `json:"holders,omitempty"`
	Attributes  []AttributeRecord `json:"attributes,omitempty"`
}

// HolderRecord is one owner's position in one token id.
type HolderRecord struct {
	Account    types.Account     `json:"account"`
	Balance    types.Amount      `json:"balance"`
	Allowances []AllowanceRecord `json:"allowances,omitempty"`
}

// AllowanceRecord is one (operator, amount) allowance entry.
type AllowanceRecord struct {
	Operator types.Account `json:"operator"`
	Amount   types.Amount  `json:"amount"`
}

// AttributeRecord is one attribute key/value pair, both hex-encoded in
// JSON since keys and values are arbitrary bytes.
type AttributeRecord struct {
	Key   hexBytes `json:"key"`
	Value hexBytes `json:"value"`
}

// OwnerRecord is the per-owner aggregate.
type OwnerRecord struct {
	Account   types.Account   `json:"account"`
	Balance   types.Amount    `json:"balance"`
	Operators []types.Account `json:"operators,omitempty"`
}

// hexBytes marshals a byte slice as a hex string.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(h) + `"`), nil
}

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("hex bytes must be a JSON string")
	}
	decoded, err := hex.DecodeString(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("decode hex bytes: %w", err)
	}
	*h = decoded
	return nil
}

// Snapshot builds a canonical projection of the current ledger state.
// The ledger is not modified and shares no memory with the result.
func (l *Ledger) Snapshot() *Snapshot {
	snap := &Snapshot{
		Name:    l.name,
		Symbol:  l.symbol,
		BaseURI: l.baseURI,
		Total:   l.totalSupply,
	}

	for id, tok := range l.tokens {
		rec := TokenRecord{ID: id, TotalSupply: tok.totalSupply}
		for account, holder := range tok.holders {
			h := HolderRecord{Account: account, Balance: holder.balance}
			for operator, amount := range holder.allowances {
				h.Allowances = append(h.Allowances, AllowanceRecord{Operator: operator, Amount: amount})
			}
			sort.Slice(h.Allowances, func(i, j int) bool {
				return h.Allowances[i].Operator.Cmp(h.Allowances[j].Operator) < 0
			})
			rec.Holders = append(rec.Holders, h)
		}
		sort.Slice(rec.Holders, func(i, j int) bool {
			return rec.Holders[i].Account.Cmp(rec.Holders[j].Account) < 0
		})
		for key, value := range tok.attributes {
			rec.Attributes = append(rec.Attributes, AttributeRecord{
				Key:   append(hexBytes(nil), key...),
				Value: append(hexBytes(nil), value...),
			})
		}
		sort.Slice(rec.Attributes, func(i, j int) bool {
			return bytes.Compare(rec.Attributes[i].Key, rec.Attributes[j].Key) < 0
		})
		snap.Tokens = append(snap.Tokens, rec)
	}
	sort.Slice(snap.Tokens, func(i, j int) bool {
		return snap.Tokens[i].ID.Cmp(snap.Tokens[j].ID) < 0
	})

	for account, own := range l.owners {
		rec := OwnerRecord{Account: account, Balance: own.balance}
		for operator := range own.operators {
			rec.Operators = append(rec.Operators, operator)
		}
		sort.Slice(rec.Operators, func(i, j int) bool {
			return rec.Operators[i].Cmp(rec.Operators[j]) < 0
		})
		snap.Owners = append(snap.Owners, rec)
	}
	sort.Slice(snap.Owners, func(i, j int) bool {
		return snap.Owners[i].Account.Cmp(snap.Owners[j].Account) < 0
	})

	return snap
}

// TotalSupply answers as the live ledger would have at snapshot time.
func (s *Snapshot) TotalSupply(id *types.TokenID) types.Amount {
	if id == nil {
		return s.Total
	}
	tok := s.findToken(*id)
	if tok == nil {
		return types.Amount{}
	}
	return tok.TotalSupply
}

// BalanceOf answers as the live ledger would have at snapshot time.
func (s *Snapshot) BalanceOf(owner types.Account, id *types.TokenID) types.Amount {
	if id == nil {
		rec := s.findOwner(owner)
		if rec == nil {
			return types.Amount{}
		}
		return rec.Balance
	}
	tok := s.findToken(*id)
	if tok == nil {
		return types.Amount{}
	}
	holder := tok.findHolder(owner)
	if holder == nil {
		return types.Amount{}
	}
	return holder.Balance
}

// Allowance answers as the live ledger would have at snapshot time,
// including the MAX sentinel for operator-for-all grants.
func (s *Snapshot) Allowance(owner, operator types.Account, id *types.TokenID) types.Amount {
	if rec := s.findOwner(owner); rec != nil {
		i := sort.Search(len(rec.Operators), func(i int) bool {
			return rec.Operators[i].Cmp(operator) >= 0
		})
		if i < len(rec.Operators) && rec.Operators[i] == operator {
			return types.MaxAmount()
		}
	}
	if id == nil {
		return types.Amount{}
	}
	tok := s.findToken(*id)
	if tok == nil {
		return types.Amount{}
	}
	holder := tok.findHolder(owner)
	if holder == nil {
		return types.Amount{}
	}
	i := sort.Search(len(holder.Allowances), func(i int) bool {
		return holder.Allowances[i].Operator.Cmp(operator) >= 0
	})
	if i < len(holder.Allowances) && holder.Allowances[i].Operator == operator {
		return holder.Allowances[i].Amount
	}
	return types.Amount{}
}

// GetAttribute answers as the live ledger would have at snapshot time.
func (s *Snapshot) GetAttribute(id types.TokenID, key []byte) ([]byte, bool, error) {
	tok := s.findToken(id)
	if tok == nil {
		return nil, false, ErrUnknownToken
	}
	i := sort.Search(len(tok.Attributes), func(i int) bool {
		return bytes.Compare(tok.Attributes[i].Key, key) >= 0
	})
	if i < len(tok.Attributes) && bytes.Equal(tok.Attributes[i].Key, key) {
		return append([]byte(nil), tok.Attributes[i].Value...), true, nil
	}
	return nil, false, nil
}

func (s *Snapshot) findToken(id types.TokenID) *TokenRecord {
	i := sort.Search(len(s.Tokens), func(i int) bool {
		return s.Tokens[i].ID.Cmp(id) >= 0
	})
	if i < len(s.Tokens) && s.Tokens[i].ID == id {
		return &s.Tokens[i]
	}
	return nil
}

func (s *Snapshot) findOwner(account types.Account) *OwnerRecord {
	i := sort.Search(len(s.Owners), func(i int) bool {
		return s.Owners[i].Account.Cmp(account) >= 0
	})
	if i < len(s.Owners) && s.Owners[i].Account == account {
		return &s.Owners[i]
	}
	return nil
}

func (t *TokenRecord) findHolder(account types.Account) *HolderRecord {
	i := sort.Search(len(t.Holders), func(i int) bool {
		return t.Holders[i].Account.Cmp(account) >= 0
	})
	if i < len(t.Holders) && t.Holders[i].Account == account {
		return &t.Holders[i]
	}
	return nil
}

// FromSnapshot reconstructs a live ledger from a snapshot, verifying the
// per-id and per-owner supply invariants along the way.
func FromSnapshot(snap *Snapshot) (*Ledger, error) {
	l := New(snap.Name, snap.Symbol, snap.BaseURI)

	aggregates := make(map[types.Account]types.Amount)
	var grand types.Amount

	for _, rec := range snap.Tokens {
		tok := l.token(rec.ID)
		var idSum types.Amount
		for _, h := range rec.Holders {
			if h.Account.IsZero() {
				return nil, fmt.Errorf("restore multitoken: %w: zero account holds a balance", ErrInvalidAddress)
			}
			holder := tok.holder(h.Account)
			holder.balance = h.Balance
			for _, a := range h.Allowances {
				if holder.allowances == nil {
					holder.allowances = make(map[types.Account]types.Amount)
				}
				holder.allowances[a.Operator] = a.Amount
			}
			var err error
			if idSum, err = idSum.Add(h.Balance); err != nil {
				return nil, fmt.Errorf("restore multitoken: %w", err)
			}
			if aggregates[h.Account], err = aggregates[h.Account].Add(h.Balance); err != nil {
				return nil, fmt.Errorf("restore multitoken: %w", err)
			}
		}
		if idSum.Cmp(rec.TotalSupply) != 0 {
			return nil, fmt.Errorf("restore multitoken: id %s balances sum to %s, supply says %s",
				rec.ID, idSum, rec.TotalSupply)
		}
		tok.totalSupply = rec.TotalSupply
		for _, attr := range rec.Attributes {
			if tok.attributes == nil {
				tok.attributes = make(map[string][]byte)
			}
			tok.attributes[string(attr.Key)] = append([]byte(nil), attr.Value...)
		}
		var err error
		if grand, err = grand.Add(rec.TotalSupply); err != nil {
			return nil, fmt.Errorf("restore multitoken: %w", err)
		}
	}
	if grand.Cmp(snap.Total) != 0 {
		return nil, fmt.Errorf("restore multitoken: supplies sum to %s, grand total says %s",
			grand, snap.Total)
	}
	l.totalSupply = grand

	for _, rec := range snap.Owners {
		if rec.Balance.Cmp(aggregates[rec.Account]) != 0 {
			return nil, fmt.Errorf("restore multitoken: owner %s aggregate %s, per-id balances sum to %s",
				rec.Account.Short(), rec.Balance, aggregates[rec.Account])
		}
		own := l.owner(rec.Account)
		own.balance = rec.Balance
		for _, operator := range rec.Operators {
			own.operators[operator] = struct{}{}
		}
	}

	return l, nil
}
