package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mintworks/tokenledger/internal/multitoken"
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/pkg/types"
)

// ── Param helpers ───────────────────────────────────────────────────────

// parseAccount decodes a required hex account parameter.
func parseAccount(value, field string) (types.Account, *Error) {
	if value == "" {
		return types.ZeroAccount, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("%s is required", field)}
	}
	account, err := types.ParseAccount(value)
	if err != nil {
		return types.ZeroAccount, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return account, nil
}

// parseAmount decodes a required decimal amount parameter.
func parseAmount(value, field string) (types.Amount, *Error) {
	if value == "" {
		return types.Amount{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("%s is required", field)}
	}
	amount, err := types.AmountFromString(value)
	if err != nil {
		return types.Amount{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return amount, nil
}

// parseTokenID decodes a required decimal token id parameter.
func parseTokenID(value, field string) (types.TokenID, *Error) {
	if value == "" {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("%s is required", field)}
	}
	id, err := types.TokenIDFromString(value)
	if err != nil {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return id, nil
}

// parseOptionalTokenID decodes an optional token id; nil selects the
// aggregate form of the query.
func parseOptionalTokenID(value *string) (*types.TokenID, *Error) {
	if value == nil {
		return nil, nil
	}
	id, rpcErr := parseTokenID(*value, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &id, nil
}

// ledgerError maps a ledger error to a JSON-RPC error.
func ledgerError(err error) *Error {
	code := CodeLedgerError
	if errors.Is(err, multitoken.ErrUnknownToken) || errors.Is(err, nft.ErrUnknownToken) {
		code = CodeNotFound
	}
	return &Error{Code: code, Message: err.Error()}
}

// run submits a closure to the executor and maps any error.
func (s *Server) run(fn func(l *Ledgers) (interface{}, error)) (interface{}, *Error) {
	result, err := s.exec.Exec(fn)
	if err != nil {
		return nil, ledgerError(err)
	}
	return result, nil
}

// ── Node endpoints ──────────────────────────────────────────────────────

func (s *Server) handleNodeGetInfo(_ *Request) (interface{}, *Error) {
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &NodeInfoResult{
			Network:       s.network,
			InstanceID:    s.instance,
			UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
			FTTotalSupply: l.FT.TotalSupply().String(),
			MTGrandSupply: l.MT.TotalSupply(nil).String(),
			NFTCount:      l.NFT.TotalSupply(),
		}, nil
	})
}

// ── Fungible endpoints ──────────────────────────────────────────────────

func (s *Server) handleFTGetInfo(_ *Request) (interface{}, *Error) {
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &FTInfoResult{
			Name:        l.FT.Name(),
			Symbol:      l.FT.Symbol(),
			Decimals:    l.FT.Decimals(),
			TotalSupply: l.FT.TotalSupply().String(),
		}, nil
	})
}

func (s *Server) handleFTGetBalance(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	account, rpcErr := parseAccount(params.Account, "account")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &BalanceResult{Amount: l.FT.BalanceOf(account).String()}, nil
	})
}

func (s *Server) handleFTGetAllowance(req *Request) (interface{}, *Error) {
	var params FTAllowanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAccount(params.Owner, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAccount(params.Spender, "spender")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &BalanceResult{Amount: l.FT.Allowance(owner, spender).String()}, nil
	})
}

func (s *Server) handleFTMint(req *Request) (interface{}, *Error) {
	var params AmountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.FT.Mint(caller, amount)
	})
}

func (s *Server) handleFTBurn(req *Request) (interface{}, *Error) {
	var params AmountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.FT.Burn(caller, amount)
	})
}

func (s *Server) handleFTTransfer(req *Request) (interface{}, *Error) {
	var params FTTransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	origin := caller
	if params.Origin != "" {
		if origin, rpcErr = parseAccount(params.Origin, "origin"); rpcErr != nil {
			return nil, rpcErr
		}
	}
	from, rpcErr := parseAccount(params.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAccount(params.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.FT.Transfer(caller, origin, from, to, amount)
	})
}

func (s *Server) handleFTApprove(req *Request) (interface{}, *Error) {
	var params FTApproveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAccount(params.Spender, "spender")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.FT.Approve(caller, spender, amount)
	})
}

// ── Multi-token endpoints ───────────────────────────────────────────────

func (s *Server) handleMTGetSupply(req *Request) (interface{}, *Error) {
	params := MTBalanceParam{}
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}
	id, rpcErr := parseOptionalTokenID(params.ID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &BalanceResult{Amount: l.MT.TotalSupply(id).String()}, nil
	})
}

func (s *Server) handleMTGetBalance(req *Request) (interface{}, *Error) {
	var params MTBalanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAccount(params.Owner, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseOptionalTokenID(params.ID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &BalanceResult{Amount: l.MT.BalanceOf(owner, id).String()}, nil
	})
}

func (s *Server) handleMTGetAllowance(req *Request) (interface{}, *Error) {
	var params MTAllowanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAccount(params.Owner, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	operator, rpcErr := parseAccount(params.Operator, "operator")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseOptionalTokenID(params.ID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &BalanceResult{Amount: l.MT.Allowance(owner, operator, id).String()}, nil
	})
}

func (s *Server) handleMTGetAttribute(req *Request) (interface{}, *Error) {
	var params MTAttributeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	key, err := hex.DecodeString(params.Key)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid key: must be hex"}
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		value, found, err := l.MT.GetAttribute(id, key)
		if err != nil {
			return nil, err
		}
		return &AttributeResult{Value: hex.EncodeToString(value), Found: found}, nil
	})
}

func (s *Server) handleMTGetSnapshot(_ *Request) (interface{}, *Error) {
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.Snapshot(), nil
	})
}

func (s *Server) handleMTMint(req *Request) (interface{}, *Error) {
	var params MTMintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.Mint(caller, id, amount)
	})
}

func (s *Server) handleMTBurn(req *Request) (interface{}, *Error) {
	var params MTMintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.Burn(caller, id, amount)
	})
}

func (s *Server) handleMTTransfer(req *Request) (interface{}, *Error) {
	var params MTTransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAccount(params.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAccount(params.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.Transfer(caller, from, to, id, amount)
	})
}

func (s *Server) handleMTApprove(req *Request) (interface{}, *Error) {
	var params MTApproveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	operator, rpcErr := parseAccount(params.Operator, "operator")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.Approve(caller, operator, id, amount)
	})
}

func (s *Server) handleMTSetOperator(req *Request) (interface{}, *Error) {
	var params MTOperatorParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	operator, rpcErr := parseAccount(params.Operator, "operator")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.MT.SetOperator(caller, operator, params.Approved)
	})
}

func (s *Server) handleMTSetAttribute(req *Request) (interface{}, *Error) {
	var params MTAttributeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	key, err := hex.DecodeString(params.Key)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid key: must be hex"}
	}
	value, err := hex.DecodeString(params.Value)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid value: must be hex"}
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		if err := l.MT.SetAttribute(id, key, value); err != nil {
			return nil, err
		}
		return true, nil
	})
}

// ── NFT endpoints ───────────────────────────────────────────────────────

func (s *Server) handleNFTGetToken(req *Request) (interface{}, *Error) {
	var params NFTTokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		owner, err := l.NFT.OwnerOf(id)
		if err != nil {
			return nil, err
		}
		metadata, err := l.NFT.MetadataOf(id)
		if err != nil {
			return nil, err
		}
		approved, err := l.NFT.ApprovedOf(id)
		if err != nil {
			return nil, err
		}
		royalties, err := l.NFT.RoyaltiesOf(id)
		if err != nil {
			return nil, err
		}
		return &NFTTokenResult{
			ID:        id,
			Owner:     owner,
			Metadata:  metadata,
			Approved:  approved,
			Royalties: royalties,
		}, nil
	})
}

func (s *Server) handleNFTGetTokensOf(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAccount(params.Account, "account")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return &NFTTokensResult{Owner: owner, Tokens: l.NFT.TokensOf(owner)}, nil
	})
}

func (s *Server) handleNFTGetPayouts(req *Request) (interface{}, *Error) {
	var params NFTPayoutsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmount(params.Price, "price")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.NFT.Payouts(id, price)
	})
}

func (s *Server) handleNFTMint(req *Request) (interface{}, *Error) {
	var params NFTMintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.NFT.Mint(caller, id, params.Metadata, params.Royalties)
	})
}

func (s *Server) handleNFTBurn(req *Request) (interface{}, *Error) {
	var params NFTCallerTokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.NFT.Burn(caller, id)
	})
}

func (s *Server) handleNFTTransfer(req *Request) (interface{}, *Error) {
	var params NFTTransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAccount(params.To, "to")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.NFT.Transfer(caller, to, id)
	})
}

func (s *Server) handleNFTApprove(req *Request) (interface{}, *Error) {
	var params NFTApproveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	approved, rpcErr := parseAccount(params.Approved, "approved")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		return l.NFT.Approve(caller, approved, id)
	})
}

func (s *Server) handleNFTRevoke(req *Request) (interface{}, *Error) {
	var params NFTApproveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	approved, rpcErr := parseAccount(params.Approved, "approved")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.ID, "id")
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		if err := l.NFT.Revoke(caller, approved, id); err != nil {
			return nil, err
		}
		return true, nil
	})
}

func (s *Server) handleNFTDelegatedApprove(req *Request) (interface{}, *Error) {
	var params NFTDelegatedParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount(params.Caller, "caller")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Approval == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "approval is required"}
	}
	return s.run(func(l *Ledgers) (interface{}, error) {
		if err := l.NFT.VerifyDelegated(caller, s.instance, params.Approval, time.Now()); err != nil {
			return nil, err
		}
		return l.NFT.ApplyDelegated(params.Approval)
	})
}
