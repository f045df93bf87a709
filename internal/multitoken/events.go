package multitoken

import "github.com/mintworks/tokenledger/pkg/types"

// TransferEvent describes a completed movement of one token id. Mint and
// burn are reported as transfers from and to the zero account.
type TransferEvent struct {
	From   types.Account `json:"from"`
	To     types.Account `json:"to"`
	ID     types.TokenID `json:"id"`
	Amount types.Amount  `json:"amount"`
}

// ApprovalEvent describes a completed per-id allowance update.
type ApprovalEvent struct {
	Owner    types.Account `json:"owner"`
	Operator types.Account `json:"operator"`
	ID       types.TokenID `json:"id"`
	Amount   types.Amount  `json:"amount"`
}

// OperatorEvent describes an operator-for-all grant or revocation.
type OperatorEvent struct {
	Owner    types.Account `json:"owner"`
	Operator types.Account `json:"operator"`
	Approved bool          `json:"approved"`
}
