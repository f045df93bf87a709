package nft

import (
	"fmt"
	"sort"

	"github.com/mintworks/tokenledger/pkg/types"
)

// Image is the serializable form of the NFT ledger, tokens in ascending id
// order so that equal states encode identically. Settlement holds are
// transient and not part of the image.
type Image struct {
	Name    string        `json:"name"`
	Symbol  string        `json:"symbol"`
	BaseURI string        `json:"base_uri"`
	Tokens  []TokenRecord `json:"tokens"`
}

// TokenRecord is the flattened state of one token.
type TokenRecord struct {
	ID        types.TokenID   `json:"id"`
	Owner     types.Account   `json:"owner"`
	Metadata  Metadata        `json:"metadata"`
	Approved  []types.Account `json:"approved,omitempty"`
	Royalties []RoyaltyShare  `json:"royalties,omitempty"`
}

// Image returns a detached, canonically ordered copy of the ledger state.
func (l *Ledger) Image() *Image {
	img := &Image{Name: l.name, Symbol: l.symbol, BaseURI: l.baseURI}

	for id, tok := range l.tokens {
		rec := TokenRecord{
			ID:        id,
			Owner:     tok.owner,
			Metadata:  tok.metadata,
			Royalties: append([]RoyaltyShare(nil), tok.royalties...),
		}
		for account := range tok.approved {
			rec.Approved = append(rec.Approved, account)
		}
		sort.Slice(rec.Approved, func(i, j int) bool {
			return rec.Approved[i].Cmp(rec.Approved[j]) < 0
		})
		img.Tokens = append(img.Tokens, rec)
	}
	sort.Slice(img.Tokens, func(i, j int) bool {
		return img.Tokens[i].ID.Cmp(img.Tokens[j].ID) < 0
	})

	return img
}

// FromImage reconstructs a ledger from a state image.
func FromImage(img *Image) (*Ledger, error) {
	l := New(img.Name, img.Symbol, img.BaseURI)

	for _, rec := range img.Tokens {
		if rec.Owner.IsZero() {
			return nil, fmt.Errorf("restore nft: %w: token %s owned by zero account", ErrInvalidAddress, rec.ID)
		}
		if _, ok := l.tokens[rec.ID]; ok {
			return nil, fmt.Errorf("restore nft: %w: duplicate id %s", ErrTokenExists, rec.ID)
		}
		tok := &tokenState{
			owner:     rec.Owner,
			metadata:  rec.Metadata,
			royalties: append([]RoyaltyShare(nil), rec.Royalties...),
		}
		for _, account := range rec.Approved {
			if tok.approved == nil {
				tok.approved = make(map[types.Account]struct{})
			}
			tok.approved[account] = struct{}{}
		}
		l.tokens[rec.ID] = tok
		l.index(rec.Owner, rec.ID)
	}

	return l, nil
}
