package fungible

import "github.com/mintworks/tokenledger/pkg/types"

// TransferEvent describes a completed balance movement. Mint and burn are
// reported as transfers from and to the zero account.
type TransferEvent struct {
	From   types.Account `json:"from"`
	To     types.Account `json:"to"`
	Amount types.Amount  `json:"amount"`
}

// ApprovalEvent describes a completed allowance update.
type ApprovalEvent struct {
	Owner   types.Account `json:"owner"`
	Spender types.Account `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}
