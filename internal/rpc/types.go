package rpc

import (
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeLedgerError    = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AccountParam is used by endpoints that take a single account.
type AccountParam struct {
	Account string `json:"account"`
}

// AmountParam is used by ft_mint and ft_burn.
type AmountParam struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// FTTransferParam is used by ft_transfer. Origin is the original
// transaction signer when the call arrives through an intermediary;
// empty means the caller signed it directly.
type FTTransferParam struct {
	Caller string `json:"caller"`
	Origin string `json:"origin,omitempty"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// FTApproveParam is used by ft_approve.
type FTApproveParam struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// FTAllowanceParam is used by ft_getAllowance.
type FTAllowanceParam struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

// MTBalanceParam is used by mt_getBalance and mt_getSupply. A missing id
// selects the owner aggregate (or grand total).
type MTBalanceParam struct {
	Owner string  `json:"owner,omitempty"`
	ID    *string `json:"id,omitempty"`
}

// MTAllowanceParam is used by mt_getAllowance.
type MTAllowanceParam struct {
	Owner    string  `json:"owner"`
	Operator string  `json:"operator"`
	ID       *string `json:"id,omitempty"`
}

// MTMintParam is used by mt_mint and mt_burn.
type MTMintParam struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

// MTTransferParam is used by mt_transfer.
type MTTransferParam struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

// MTApproveParam is used by mt_approve.
type MTApproveParam struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	ID       string `json:"id"`
	Amount   string `json:"amount"`
}

// MTOperatorParam is used by mt_setOperator.
type MTOperatorParam struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// MTAttributeParam is used by mt_getAttribute and mt_setAttribute. Key
// and value are hex-encoded bytes.
type MTAttributeParam struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// NFTTokenParam is used by endpoints that take a single token id.
type NFTTokenParam struct {
	ID string `json:"id"`
}

// NFTMintParam is used by nft_mint.
type NFTMintParam struct {
	Caller    string             `json:"caller"`
	ID        string             `json:"id"`
	Metadata  nft.Metadata       `json:"metadata"`
	Royalties []nft.RoyaltyShare `json:"royalties,omitempty"`
}

// NFTCallerTokenParam is used by nft_burn.
type NFTCallerTokenParam struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
}

// NFTTransferParam is used by nft_transfer.
type NFTTransferParam struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	ID     string `json:"id"`
}

// NFTApproveParam is used by nft_approve and nft_revoke.
type NFTApproveParam struct {
	Caller   string `json:"caller"`
	Approved string `json:"approved"`
	ID       string `json:"id"`
}

// NFTDelegatedParam is used by nft_delegatedApprove. The caller must be
// the approval's designated actor.
type NFTDelegatedParam struct {
	Caller   string                 `json:"caller"`
	Approval *nft.DelegatedApproval `json:"approval"`
}

// NFTPayoutsParam is used by nft_getPayouts.
type NFTPayoutsParam struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

// ── Result types ────────────────────────────────────────────────────────

// NodeInfoResult is returned by node_getInfo.
type NodeInfoResult struct {
	Network       string     `json:"network"`
	InstanceID    types.Hash `json:"instance_id"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	FTTotalSupply string     `json:"ft_total_supply"`
	MTGrandSupply string     `json:"mt_grand_supply"`
	NFTCount      uint64     `json:"nft_count"`
}

// FTInfoResult is returned by ft_getInfo.
type FTInfoResult struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
}

// BalanceResult is returned by balance and allowance queries.
type BalanceResult struct {
	Amount string `json:"amount"`
}

// AttributeResult is returned by mt_getAttribute. Value is hex-encoded;
// Found distinguishes an unset attribute from a stored empty value.
type AttributeResult struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// NFTTokenResult is returned by nft_getToken.
type NFTTokenResult struct {
	ID        types.TokenID      `json:"id"`
	Owner     types.Account      `json:"owner"`
	Metadata  nft.Metadata       `json:"metadata"`
	Approved  []types.Account    `json:"approved,omitempty"`
	Royalties []nft.RoyaltyShare `json:"royalties,omitempty"`
}

// NFTTokensResult is returned by nft_getTokensOf.
type NFTTokensResult struct {
	Owner  types.Account   `json:"owner"`
	Tokens []types.TokenID `json:"tokens"`
}
