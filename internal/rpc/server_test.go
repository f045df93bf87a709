package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/mintworks/tokenledger/config"
	"github.com/mintworks/tokenledger/internal/fungible"
	klog "github.com/mintworks/tokenledger/internal/log"
	"github.com/mintworks/tokenledger/internal/multitoken"
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/pkg/crypto"
	"github.com/mintworks/tokenledger/pkg/types"
)

// directExecutor runs closures inline. Tests are single-threaded, so no
// mailbox is needed.
type directExecutor struct {
	ledgers *Ledgers
}

func (e *directExecutor) Exec(fn func(l *Ledgers) (interface{}, error)) (interface{}, error) {
	return fn(e.ledgers)
}

// testEnv holds all components for an RPC test.
type testEnv struct {
	server   *Server
	ledgers  *Ledgers
	instance types.Hash
	alice    types.Account
	bob      types.Account
	url      string
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	ledgers := &Ledgers{
		FT:  fungible.New("Test Coin", "TST", 8),
		MT:  multitoken.New("Test Multi", "TSM", "https://tokens.test/"),
		NFT: nft.New("Test Collectibles", "TSC", "https://nft.test/"),
	}
	instance := crypto.Hash([]byte("rpc-test-instance"))

	srv := New("127.0.0.1:0", &directExecutor{ledgers: ledgers}, "testnet", instance, rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:   srv,
		ledgers:  ledgers,
		instance: instance,
		alice:    types.Account{0x0A},
		bob:      types.Account{0x0B},
		url:      fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

// ── Node ────────────────────────────────────────────────────────────────

func TestRPC_NodeGetInfo(t *testing.T) {
	env := setupTestEnv(t)

	env.ledgers.FT.Mint(env.alice, types.NewAmount(500))

	var result NodeInfoResult
	decodeResult(t, rpcCall(t, env.url, "node_getInfo", nil), &result)

	if result.Network != "testnet" {
		t.Errorf("network = %q, want %q", result.Network, "testnet")
	}
	if result.InstanceID != env.instance {
		t.Errorf("instance_id = %s, want %s", result.InstanceID, env.instance)
	}
	if result.FTTotalSupply != "500" {
		t.Errorf("ft_total_supply = %q, want %q", result.FTTotalSupply, "500")
	}
	if result.NFTCount != 0 {
		t.Errorf("nft_count = %d, want 0", result.NFTCount)
	}
}

// ── Fungible ────────────────────────────────────────────────────────────

func TestRPC_FTGetInfo(t *testing.T) {
	env := setupTestEnv(t)

	var result FTInfoResult
	decodeResult(t, rpcCall(t, env.url, "ft_getInfo", nil), &result)

	if result.Name != "Test Coin" {
		t.Errorf("name = %q", result.Name)
	}
	if result.Symbol != "TST" {
		t.Errorf("symbol = %q", result.Symbol)
	}
	if result.Decimals != 8 {
		t.Errorf("decimals = %d", result.Decimals)
	}
	if result.TotalSupply != "0" {
		t.Errorf("total_supply = %q", result.TotalSupply)
	}
}

func TestRPC_FTMintTransferBalance(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()

	resp := rpcCall(t, env.url, "ft_mint", AmountParam{Caller: alice, Amount: "1000"})
	if resp.Error != nil {
		t.Fatalf("ft_mint: %s", resp.Error.Message)
	}

	resp = rpcCall(t, env.url, "ft_transfer", FTTransferParam{
		Caller: alice, From: alice, To: bob, Amount: "400",
	})
	if resp.Error != nil {
		t.Fatalf("ft_transfer: %s", resp.Error.Message)
	}

	var balance BalanceResult
	decodeResult(t, rpcCall(t, env.url, "ft_getBalance", AccountParam{Account: bob}), &balance)
	if balance.Amount != "400" {
		t.Errorf("bob balance = %q, want %q", balance.Amount, "400")
	}
	decodeResult(t, rpcCall(t, env.url, "ft_getBalance", AccountParam{Account: alice}), &balance)
	if balance.Amount != "600" {
		t.Errorf("alice balance = %q, want %q", balance.Amount, "600")
	}
}

func TestRPC_FTApproveAndAllowance(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()

	rpcCall(t, env.url, "ft_mint", AmountParam{Caller: alice, Amount: "1000"})

	resp := rpcCall(t, env.url, "ft_approve", FTApproveParam{Caller: alice, Spender: bob, Amount: "250"})
	if resp.Error != nil {
		t.Fatalf("ft_approve: %s", resp.Error.Message)
	}

	var allowance BalanceResult
	decodeResult(t, rpcCall(t, env.url, "ft_getAllowance", FTAllowanceParam{Owner: alice, Spender: bob}), &allowance)
	if allowance.Amount != "250" {
		t.Errorf("allowance = %q, want %q", allowance.Amount, "250")
	}
}

func TestRPC_FTTransfer_AllowanceEnforcedForDirectCaller(t *testing.T) {
	// With origin omitted it defaults to the caller, which must not grant
	// authority over other accounts: a spender stays bound to its
	// allowance.
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()
	carol := types.Account{0x0C}.String()

	rpcCall(t, env.url, "ft_mint", AmountParam{Caller: alice, Amount: "1000"})
	rpcCall(t, env.url, "ft_approve", FTApproveParam{Caller: alice, Spender: carol, Amount: "100"})

	resp := rpcCall(t, env.url, "ft_transfer", FTTransferParam{
		Caller: carol, From: alice, To: bob, Amount: "150",
	})
	if resp.Error == nil {
		t.Fatal("expected error for transfer beyond allowance")
	}
	if resp.Error.Code != CodeLedgerError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeLedgerError)
	}

	var balance BalanceResult
	decodeResult(t, rpcCall(t, env.url, "ft_getBalance", AccountParam{Account: alice}), &balance)
	if balance.Amount != "1000" {
		t.Errorf("alice balance = %q, want %q", balance.Amount, "1000")
	}

	// Within the allowance the same call goes through.
	resp = rpcCall(t, env.url, "ft_transfer", FTTransferParam{
		Caller: carol, From: alice, To: bob, Amount: "80",
	})
	if resp.Error != nil {
		t.Fatalf("ft_transfer within allowance: %s", resp.Error.Message)
	}
	decodeResult(t, rpcCall(t, env.url, "ft_getAllowance", FTAllowanceParam{Owner: alice, Spender: carol}), &balance)
	if balance.Amount != "20" {
		t.Errorf("allowance = %q, want %q", balance.Amount, "20")
	}
}

func TestRPC_FTTransfer_InsufficientBalance(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()

	resp := rpcCall(t, env.url, "ft_transfer", FTTransferParam{
		Caller: alice, From: alice, To: bob, Amount: "1",
	})
	if resp.Error == nil {
		t.Fatal("expected error for empty account transfer")
	}
	if resp.Error.Code != CodeLedgerError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeLedgerError)
	}
}

func TestRPC_FTBurn(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()

	rpcCall(t, env.url, "ft_mint", AmountParam{Caller: alice, Amount: "100"})
	resp := rpcCall(t, env.url, "ft_burn", AmountParam{Caller: alice, Amount: "30"})
	if resp.Error != nil {
		t.Fatalf("ft_burn: %s", resp.Error.Message)
	}

	var info FTInfoResult
	decodeResult(t, rpcCall(t, env.url, "ft_getInfo", nil), &info)
	if info.TotalSupply != "70" {
		t.Errorf("total_supply = %q, want %q", info.TotalSupply, "70")
	}
}

// ── Multi-token ─────────────────────────────────────────────────────────

func TestRPC_MTMintAndQueries(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	id7 := "7"

	resp := rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: id7, Amount: "100"})
	if resp.Error != nil {
		t.Fatalf("mt_mint: %s", resp.Error.Message)
	}
	resp = rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "8", Amount: "50"})
	if resp.Error != nil {
		t.Fatalf("mt_mint: %s", resp.Error.Message)
	}

	var balance BalanceResult
	decodeResult(t, rpcCall(t, env.url, "mt_getBalance", MTBalanceParam{Owner: alice, ID: &id7}), &balance)
	if balance.Amount != "100" {
		t.Errorf("per-id balance = %q, want %q", balance.Amount, "100")
	}

	// Missing id selects the owner aggregate.
	decodeResult(t, rpcCall(t, env.url, "mt_getBalance", MTBalanceParam{Owner: alice}), &balance)
	if balance.Amount != "150" {
		t.Errorf("aggregate balance = %q, want %q", balance.Amount, "150")
	}

	decodeResult(t, rpcCall(t, env.url, "mt_getSupply", MTBalanceParam{ID: &id7}), &balance)
	if balance.Amount != "100" {
		t.Errorf("per-id supply = %q, want %q", balance.Amount, "100")
	}
	decodeResult(t, rpcCall(t, env.url, "mt_getSupply", nil), &balance)
	if balance.Amount != "150" {
		t.Errorf("grand supply = %q, want %q", balance.Amount, "150")
	}
}

func TestRPC_MTTransferViaOperator(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()

	rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "1", Amount: "100"})

	resp := rpcCall(t, env.url, "mt_setOperator", MTOperatorParam{Caller: alice, Operator: bob, Approved: true})
	if resp.Error != nil {
		t.Fatalf("mt_setOperator: %s", resp.Error.Message)
	}

	resp = rpcCall(t, env.url, "mt_transfer", MTTransferParam{
		Caller: bob, From: alice, To: bob, ID: "1", Amount: "40",
	})
	if resp.Error != nil {
		t.Fatalf("operator transfer: %s", resp.Error.Message)
	}

	id1 := "1"
	var balance BalanceResult
	decodeResult(t, rpcCall(t, env.url, "mt_getBalance", MTBalanceParam{Owner: bob, ID: &id1}), &balance)
	if balance.Amount != "40" {
		t.Errorf("bob balance = %q, want %q", balance.Amount, "40")
	}
}

func TestRPC_MTTransfer_NotAuthorized(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()

	rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "1", Amount: "100"})

	resp := rpcCall(t, env.url, "mt_transfer", MTTransferParam{
		Caller: bob, From: alice, To: bob, ID: "1", Amount: "10",
	})
	if resp.Error == nil {
		t.Fatal("expected error for unauthorized transfer")
	}
	if resp.Error.Code != CodeLedgerError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeLedgerError)
	}
}

func TestRPC_MTAttributes(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()

	rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "3", Amount: "1"})

	// Keys and values travel hex-encoded.
	resp := rpcCall(t, env.url, "mt_setAttribute", MTAttributeParam{
		ID: "3", Key: "6e616d65", Value: "676f6c64",
	})
	if resp.Error != nil {
		t.Fatalf("mt_setAttribute: %s", resp.Error.Message)
	}

	var attr AttributeResult
	decodeResult(t, rpcCall(t, env.url, "mt_getAttribute", MTAttributeParam{ID: "3", Key: "6e616d65"}), &attr)
	if !attr.Found {
		t.Fatal("attribute not found")
	}
	if attr.Value != "676f6c64" {
		t.Errorf("value = %q, want %q", attr.Value, "676f6c64")
	}

	// Unset key on a known token: found=false, no error.
	decodeResult(t, rpcCall(t, env.url, "mt_getAttribute", MTAttributeParam{ID: "3", Key: "ff"}), &attr)
	if attr.Found {
		t.Error("unset attribute reported found")
	}
}

func TestRPC_MTGetAttribute_UnknownToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "mt_getAttribute", MTAttributeParam{ID: "999", Key: "00"})
	if resp.Error == nil {
		t.Fatal("expected error for unknown token")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

func TestRPC_MTGetSnapshot(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()

	rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "1", Amount: "10"})
	rpcCall(t, env.url, "mt_mint", MTMintParam{Caller: alice, ID: "2", Amount: "20"})

	var snap multitoken.Snapshot
	decodeResult(t, rpcCall(t, env.url, "mt_getSnapshot", nil), &snap)

	if len(snap.Tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(snap.Tokens))
	}
	if snap.Total.String() != "30" {
		t.Errorf("total = %s, want 30", snap.Total)
	}
}

// ── NFT ─────────────────────────────────────────────────────────────────

func mintTestNFT(t *testing.T, env *testEnv, owner string, id string) {
	t.Helper()
	resp := rpcCall(t, env.url, "nft_mint", NFTMintParam{
		Caller: owner,
		ID:     id,
		Metadata: nft.Metadata{
			Name:  "Piece #" + id,
			Media: "https://nft.test/" + id + ".png",
		},
	})
	if resp.Error != nil {
		t.Fatalf("nft_mint: %s", resp.Error.Message)
	}
}

func TestRPC_NFTMintAndGetToken(t *testing.T) {
	env := setupTestEnv(t)
	mintTestNFT(t, env, env.alice.String(), "42")

	var result NFTTokenResult
	decodeResult(t, rpcCall(t, env.url, "nft_getToken", NFTTokenParam{ID: "42"}), &result)

	if result.Owner != env.alice {
		t.Errorf("owner = %s, want %s", result.Owner, env.alice)
	}
	if result.Metadata.Name != "Piece #42" {
		t.Errorf("metadata name = %q", result.Metadata.Name)
	}
}

func TestRPC_NFTGetToken_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "nft_getToken", NFTTokenParam{ID: "404"})
	if resp.Error == nil {
		t.Fatal("expected error for unknown token")
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeNotFound)
	}
}

func TestRPC_NFTTransferAndTokensOf(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()
	mintTestNFT(t, env, alice, "1")
	mintTestNFT(t, env, alice, "2")

	resp := rpcCall(t, env.url, "nft_transfer", NFTTransferParam{Caller: alice, To: bob, ID: "1"})
	if resp.Error != nil {
		t.Fatalf("nft_transfer: %s", resp.Error.Message)
	}

	var tokens NFTTokensResult
	decodeResult(t, rpcCall(t, env.url, "nft_getTokensOf", AccountParam{Account: bob}), &tokens)
	if len(tokens.Tokens) != 1 || tokens.Tokens[0] != types.NewTokenID(1) {
		t.Errorf("bob tokens = %v, want [1]", tokens.Tokens)
	}

	decodeResult(t, rpcCall(t, env.url, "nft_getTokensOf", AccountParam{Account: alice}), &tokens)
	if len(tokens.Tokens) != 1 || tokens.Tokens[0] != types.NewTokenID(2) {
		t.Errorf("alice tokens = %v, want [2]", tokens.Tokens)
	}
}

func TestRPC_NFTApproveRevoke(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	bob := env.bob.String()
	mintTestNFT(t, env, alice, "1")

	resp := rpcCall(t, env.url, "nft_approve", NFTApproveParam{Caller: alice, Approved: bob, ID: "1"})
	if resp.Error != nil {
		t.Fatalf("nft_approve: %s", resp.Error.Message)
	}

	var result NFTTokenResult
	decodeResult(t, rpcCall(t, env.url, "nft_getToken", NFTTokenParam{ID: "1"}), &result)
	if len(result.Approved) != 1 || result.Approved[0] != env.bob {
		t.Errorf("approved = %v, want [bob]", result.Approved)
	}

	resp = rpcCall(t, env.url, "nft_revoke", NFTApproveParam{Caller: alice, Approved: bob, ID: "1"})
	if resp.Error != nil {
		t.Fatalf("nft_revoke: %s", resp.Error.Message)
	}

	var afterRevoke NFTTokenResult
	decodeResult(t, rpcCall(t, env.url, "nft_getToken", NFTTokenParam{ID: "1"}), &afterRevoke)
	if len(afterRevoke.Approved) != 0 {
		t.Errorf("approved after revoke = %v, want empty", afterRevoke.Approved)
	}
}

func TestRPC_NFTGetPayouts(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.alice.String()
	artist := types.Account{0xAA}

	resp := rpcCall(t, env.url, "nft_mint", NFTMintParam{
		Caller:   alice,
		ID:       "1",
		Metadata: nft.Metadata{Name: "Royal"},
		Royalties: []nft.RoyaltyShare{
			{Account: artist, BasisPoints: 1000}, // 10%
		},
	})
	if resp.Error != nil {
		t.Fatalf("nft_mint: %s", resp.Error.Message)
	}

	var legs []nft.PayoutLeg
	decodeResult(t, rpcCall(t, env.url, "nft_getPayouts", NFTPayoutsParam{ID: "1", Price: "10000"}), &legs)

	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}
	if legs[0].To != artist || legs[0].Amount.String() != "1000" {
		t.Errorf("royalty leg = %s/%s", legs[0].To.Short(), legs[0].Amount)
	}
	if legs[1].To != env.alice || legs[1].Amount.String() != "9000" {
		t.Errorf("seller leg = %s/%s", legs[1].To.Short(), legs[1].Amount)
	}
}

func TestRPC_NFTDelegatedApprove(t *testing.T) {
	env := setupTestEnv(t)

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := ownerKey.Account()
	actor := env.bob

	mintTestNFT(t, env, owner.String(), "9")

	approval := &nft.DelegatedApproval{
		TokenOwner:    owner,
		ApprovedActor: actor,
		ProgramID:     env.instance,
		TokenID:       types.NewTokenID(9),
		ExpiresAt:     time.Now().Add(time.Hour).UnixMilli(),
	}
	if err := approval.Sign(ownerKey); err != nil {
		t.Fatalf("sign approval: %v", err)
	}

	resp := rpcCall(t, env.url, "nft_delegatedApprove", NFTDelegatedParam{
		Caller:   actor.String(),
		Approval: approval,
	})
	if resp.Error != nil {
		t.Fatalf("nft_delegatedApprove: %s", resp.Error.Message)
	}

	var result NFTTokenResult
	decodeResult(t, rpcCall(t, env.url, "nft_getToken", NFTTokenParam{ID: "9"}), &result)
	if len(result.Approved) != 1 || result.Approved[0] != actor {
		t.Errorf("approved = %v, want [actor]", result.Approved)
	}
}

func TestRPC_NFTDelegatedApprove_Expired(t *testing.T) {
	env := setupTestEnv(t)

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := ownerKey.Account()
	mintTestNFT(t, env, owner.String(), "9")

	approval := &nft.DelegatedApproval{
		TokenOwner:    owner,
		ApprovedActor: env.bob,
		ProgramID:     env.instance,
		TokenID:       types.NewTokenID(9),
		ExpiresAt:     time.Now().Add(-time.Second).UnixMilli(),
	}
	if err := approval.Sign(ownerKey); err != nil {
		t.Fatalf("sign approval: %v", err)
	}

	resp := rpcCall(t, env.url, "nft_delegatedApprove", NFTDelegatedParam{
		Caller:   env.bob.String(),
		Approval: approval,
	})
	if resp.Error == nil {
		t.Fatal("expected error for expired approval")
	}
	if resp.Error.Code != CodeLedgerError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeLedgerError)
	}
}

func TestRPC_NFTDelegatedApprove_WrongCaller(t *testing.T) {
	env := setupTestEnv(t)

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := ownerKey.Account()
	mintTestNFT(t, env, owner.String(), "9")

	approval := &nft.DelegatedApproval{
		TokenOwner:    owner,
		ApprovedActor: env.bob,
		ProgramID:     env.instance,
		TokenID:       types.NewTokenID(9),
		ExpiresAt:     time.Now().Add(time.Hour).UnixMilli(),
	}
	if err := approval.Sign(ownerKey); err != nil {
		t.Fatalf("sign approval: %v", err)
	}

	// Presented by alice, not the designated actor.
	resp := rpcCall(t, env.url, "nft_delegatedApprove", NFTDelegatedParam{
		Caller:   env.alice.String(),
		Approval: approval,
	})
	if resp.Error == nil {
		t.Fatal("expected error for wrong presenter")
	}
}

// ── Protocol-level behavior ─────────────────────────────────────────────

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "nonexistent_method", nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "ft_getBalance", nil)
	if resp.Error == nil {
		t.Fatal("expected error for missing params")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_InvalidAccount(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "ft_getBalance", AccountParam{Account: "xyz"})
	if resp.Error == nil {
		t.Fatal("expected error for invalid account")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_InvalidAmount(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "ft_mint", AmountParam{Caller: env.alice.String(), Amount: "-5"})
	if resp.Error == nil {
		t.Fatal("expected error for negative amount")
	}
	if resp.Error.Code != CodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
	}
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if rpcResp.Error.Code != CodeParseError {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeParseError)
	}
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for GET request")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

// ── IP filtering ────────────────────────────────────────────────────────

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{AllowedIPs: []string{"127.0.0.1"}})

	resp := rpcCall(t, env.url, "ft_getInfo", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{AllowedIPs: []string{"10.0.0.0/8"}})

	req := Request{JSONRPC: "2.0", Method: "ft_getInfo", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

// ── CORS ────────────────────────────────────────────────────────────────

func TestRPC_CORS_WildcardOrigin(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{CORSOrigins: []string{"*"}})

	req := Request{JSONRPC: "2.0", Method: "ft_getInfo", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS origin = %q, want %q", origin, "*")
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{CORSOrigins: []string{"*"}})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}
