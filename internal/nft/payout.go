package nft

import (
	"context"
	"fmt"

	"github.com/mintworks/tokenledger/pkg/types"
)

// Remitter executes one payment leg of a sale against another ledger
// instance or payment program. Calls are remote: they may fail or time
// out, and the implementation must honor ctx cancellation.
type Remitter interface {
	Remit(ctx context.Context, to types.Account, amount types.Amount) error
}

// PayoutLeg is one payment owed out of a sale price.
type PayoutLeg struct {
	To     types.Account `json:"to"`
	Amount types.Amount  `json:"amount"`
}

// Payouts computes the payment legs for selling a token at price: one leg
// per royalty share (basis points of the price, rounded down) and a final
// leg paying the remainder to the current owner. Zero-amount legs are
// omitted. Pure; the ledger is not modified.
func (l *Ledger) Payouts(id types.TokenID, price types.Amount) ([]PayoutLeg, error) {
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}

	legs := make([]PayoutLeg, 0, len(tok.royalties)+1)
	remainder := price
	for _, share := range tok.royalties {
		cut, err := price.MulDiv(uint64(share.BasisPoints), royaltyDenominator)
		if err != nil {
			return nil, fmt.Errorf("royalty for %s: %w", share.Account.Short(), err)
		}
		if cut.IsZero() {
			continue
		}
		if remainder, err = remainder.Sub(cut); err != nil {
			// Unreachable: shares are capped at 100% at mint.
			return nil, fmt.Errorf("royalty for %s: %w", share.Account.Short(), err)
		}
		legs = append(legs, PayoutLeg{To: share.Account, Amount: cut})
	}
	if !remainder.IsZero() {
		legs = append(legs, PayoutLeg{To: tok.owner, Amount: remainder})
	}
	return legs, nil
}

// SettleSale completes a sale of a token to buyer at price. The token is
// held before any payment leg is attempted, so no concurrent transfer or
// burn can race the settlement; ownership moves to the buyer only after
// every leg has been confirmed. If any leg fails the hold is released and
// the token stays with the seller — the remitter is responsible for
// unwinding legs it already executed.
func (l *Ledger) SettleSale(ctx context.Context, remitter Remitter, buyer types.Account, id types.TokenID, price types.Amount) (*TransferEvent, error) {
	if buyer.IsZero() {
		return nil, ErrInvalidAddress
	}
	tok, ok := l.tokens[id]
	if !ok {
		return nil, ErrUnknownToken
	}
	if tok.held {
		return nil, ErrTokenHeld
	}

	legs, err := l.Payouts(id, price)
	if err != nil {
		return nil, err
	}

	tok.held = true
	for _, leg := range legs {
		if err := remitter.Remit(ctx, leg.To, leg.Amount); err != nil {
			tok.held = false
			l.logger.Warn().
				Str("id", id.String()).
				Str("to", leg.To.Short()).
				Str("amount", leg.Amount.String()).
				Err(err).
				Msg("sale settlement aborted")
			return nil, fmt.Errorf("remit %s to %s: %w", leg.Amount, leg.To.Short(), err)
		}
	}
	tok.held = false

	from := tok.owner
	l.move(tok, id, buyer)

	l.logger.Info().
		Str("id", id.String()).
		Str("seller", from.Short()).
		Str("buyer", buyer.Short()).
		Str("price", price.String()).
		Msg("sale settled")

	return &TransferEvent{From: from, To: buyer, ID: id}, nil
}
