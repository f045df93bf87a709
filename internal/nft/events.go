package nft

import "github.com/mintworks/tokenledger/pkg/types"

// TransferEvent describes a completed ownership change. Mint and burn are
// reported as transfers from and to the zero account.
type TransferEvent struct {
	From types.Account `json:"from"`
	To   types.Account `json:"to"`
	ID   types.TokenID `json:"id"`
}

// ApprovalEvent describes an account being added to a token's approved set.
type ApprovalEvent struct {
	Owner    types.Account `json:"owner"`
	Approved types.Account `json:"approved"`
	ID       types.TokenID `json:"id"`
}
