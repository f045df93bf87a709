// tokenledger-cli is a command-line client for interacting with a
// tokenledgerd node and for managing keyrings locally.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mintworks/tokenledger/config"
	"github.com/mintworks/tokenledger/internal/keyring"
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/internal/rpc"
	"github.com/mintworks/tokenledger/internal/rpcclient"
	"github.com/mintworks/tokenledger/pkg/types"
	"golang.org/x/term"
)

// keyringDir returns the keyring path matching tokenledgerd's layout:
// <datadir>/<network>/keyring
func keyringDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keyring")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	// Scan for --rpc, --datadir, and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if rpcURL == "" {
		port := 8571
		if network == "testnet" {
			port = 8671
		}
		rpcURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	krDir := keyringDir(dataDir, network)
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "ft":
		cmdFT(client, cmdArgs)
	case "mt":
		cmdMT(client, cmdArgs)
	case "nft":
		cmdNFT(client, cmdArgs)
	case "keyring":
		cmdKeyring(cmdArgs, krDir)
	case "approval":
		cmdApproval(client, cmdArgs, krDir)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tokenledger-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8571, testnet 8671)
  --datadir <path>    Data directory (default: ~/.tokenledger)
  --network <net>     mainnet (default) or testnet

Commands:
  status                          Show node and ledger status

  ft info                         Show fungible token metadata and supply
  ft balance <account>            Show fungible balance
  ft allowance <owner> <spender>  Show fungible allowance
  ft mint --caller <a> --amount <n>
  ft burn --caller <a> --amount <n>
  ft transfer --caller <a> --from <a> --to <a> --amount <n> [--origin <a>]
  ft approve --caller <a> --spender <a> --amount <n>

  mt supply [--id <n>]            Show multi-token supply (all ids if omitted)
  mt balance <owner> [--id <n>]   Show multi-token balance (aggregate if omitted)
  mt snapshot                     Dump the full multi-token snapshot
  mt mint --caller <a> --id <n> --amount <n>
  mt burn --caller <a> --id <n> --amount <n>
  mt transfer --caller <a> --from <a> --to <a> --id <n> --amount <n>
  mt approve --caller <a> --operator <a> --id <n> --amount <n>
  mt set-operator --caller <a> --operator <a> [--revoke]
  mt attr get <id> <key>          Read a token attribute (key in hex)
  mt attr set --id <n> --key <hex> --value <hex>

  nft show <id>                   Show a token's owner, metadata, royalties
  nft tokens <account>            List token ids owned by an account
  nft payouts <id> <price>        Compute sale payout legs
  nft mint --caller <a> --id <n> --name <s> [--description <s>]
           [--media <uri>] [--reference <uri>] [--royalties a:bps,a:bps]
  nft burn --caller <a> --id <n>
  nft transfer --caller <a> --to <a> --id <n>
  nft approve --caller <a> --approved <a> --id <n>
  nft revoke --caller <a> --approved <a> --id <n>

  keyring create --name <n>       Create a keyring (prints a new mnemonic)
  keyring import --name <n> --mnemonic "word1 word2 ..."
  keyring list                    List keyrings
  keyring identities --name <n>   List identities in a keyring
  keyring new-identity --name <n> [--label <s>]
  keyring delete --name <n>       Delete a keyring file

  approval sign --keyring <n> --owner <a> --actor <a> --token <id>
                [--expires-in <dur>] [--instance <hex>] [--out <file>]
                                  Sign a delegated approval offline
  approval submit --caller <a> --file <approval.json>
                                  Present a signed approval to the node
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	info, err := client.NodeInfo()
	if err != nil {
		fatal("node_getInfo: %v", err)
	}

	fmt.Printf("Network:   %s\n", info.Network)
	fmt.Printf("Instance:  %s\n", info.InstanceID)
	fmt.Printf("Uptime:    %s\n", (time.Duration(info.UptimeSeconds) * time.Second))
	fmt.Printf("FT supply: %s\n", info.FTTotalSupply)
	fmt.Printf("MT supply: %s\n", info.MTGrandSupply)
	fmt.Printf("NFTs:      %d\n", info.NFTCount)
}

// ── ft ──────────────────────────────────────────────────────────────────

func cmdFT(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli ft <info|balance|allowance|mint|burn|transfer|approve> [flags]")
	}

	switch args[0] {
	case "info":
		info, err := client.FTInfo()
		if err != nil {
			fatal("ft_getInfo: %v", err)
		}
		fmt.Printf("Name:     %s\n", info.Name)
		fmt.Printf("Symbol:   %s\n", info.Symbol)
		fmt.Printf("Decimals: %d\n", info.Decimals)
		fmt.Printf("Supply:   %s\n", info.TotalSupply)

	case "balance":
		if len(args) < 2 {
			fatal("Usage: tokenledger-cli ft balance <account>")
		}
		balance, err := client.FTBalance(args[1])
		if err != nil {
			fatal("ft_getBalance: %v", err)
		}
		fmt.Println(balance)

	case "allowance":
		if len(args) < 3 {
			fatal("Usage: tokenledger-cli ft allowance <owner> <spender>")
		}
		var result rpc.BalanceResult
		if err := client.Call("ft_getAllowance", rpc.FTAllowanceParam{
			Owner:   args[1],
			Spender: args[2],
		}, &result); err != nil {
			fatal("ft_getAllowance: %v", err)
		}
		fmt.Println(result.Amount)

	case "mint", "burn":
		method := "ft_" + args[0]
		fs := flag.NewFlagSet("ft "+args[0], flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		amount := fs.String("amount", "", "Amount")
		fs.Parse(args[1:])
		if *caller == "" || *amount == "" {
			fatal("Usage: tokenledger-cli ft %s --caller <account> --amount <n>", args[0])
		}
		var ev struct {
			Amount string `json:"amount"`
		}
		if err := client.Call(method, rpc.AmountParam{Caller: *caller, Amount: *amount}, &ev); err != nil {
			fatal("%s: %v", method, err)
		}
		if args[0] == "mint" {
			fmt.Printf("Minted %s\n", ev.Amount)
		} else {
			fmt.Printf("Burned %s\n", ev.Amount)
		}

	case "transfer":
		fs := flag.NewFlagSet("ft transfer", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		origin := fs.String("origin", "", "Original signer (defaults to caller)")
		from := fs.String("from", "", "Source account")
		to := fs.String("to", "", "Destination account")
		amount := fs.String("amount", "", "Amount")
		fs.Parse(args[1:])
		if *caller == "" || *from == "" || *to == "" || *amount == "" {
			fatal("Usage: tokenledger-cli ft transfer --caller <a> --from <a> --to <a> --amount <n> [--origin <a>]")
		}
		var raw json.RawMessage
		if err := client.Call("ft_transfer", rpc.FTTransferParam{
			Caller: *caller,
			Origin: *origin,
			From:   *from,
			To:     *to,
			Amount: *amount,
		}, &raw); err != nil {
			fatal("ft_transfer: %v", err)
		}
		fmt.Println("Transferred.")

	case "approve":
		fs := flag.NewFlagSet("ft approve", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		spender := fs.String("spender", "", "Spender account")
		amount := fs.String("amount", "", "Allowance amount")
		fs.Parse(args[1:])
		if *caller == "" || *spender == "" || *amount == "" {
			fatal("Usage: tokenledger-cli ft approve --caller <a> --spender <a> --amount <n>")
		}
		var raw json.RawMessage
		if err := client.Call("ft_approve", rpc.FTApproveParam{
			Caller:  *caller,
			Spender: *spender,
			Amount:  *amount,
		}, &raw); err != nil {
			fatal("ft_approve: %v", err)
		}
		fmt.Println("Approved.")

	default:
		fatal("Unknown ft command: %s", args[0])
	}
}

// ── mt ──────────────────────────────────────────────────────────────────

func cmdMT(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli mt <supply|balance|snapshot|mint|burn|transfer|approve|set-operator|attr> [flags]")
	}

	switch args[0] {
	case "supply":
		fs := flag.NewFlagSet("mt supply", flag.ExitOnError)
		id := fs.String("id", "", "Token id (omit for grand total)")
		fs.Parse(args[1:])
		var params rpc.MTBalanceParam
		if *id != "" {
			params.ID = id
		}
		var result rpc.BalanceResult
		if err := client.Call("mt_getSupply", params, &result); err != nil {
			fatal("mt_getSupply: %v", err)
		}
		fmt.Println(result.Amount)

	case "balance":
		if len(args) < 2 {
			fatal("Usage: tokenledger-cli mt balance <owner> [--id <n>]")
		}
		fs := flag.NewFlagSet("mt balance", flag.ExitOnError)
		id := fs.String("id", "", "Token id (omit for owner aggregate)")
		fs.Parse(args[2:])
		var idPtr *string
		if *id != "" {
			idPtr = id
		}
		balance, err := client.MTBalance(args[1], idPtr)
		if err != nil {
			fatal("mt_getBalance: %v", err)
		}
		fmt.Println(balance)

	case "snapshot":
		snap, err := client.MTSnapshot()
		if err != nil {
			fatal("mt_getSnapshot: %v", err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			fatal("encode snapshot: %v", err)
		}
		fmt.Println(string(data))

	case "mint", "burn":
		method := "mt_" + args[0]
		fs := flag.NewFlagSet("mt "+args[0], flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		id := fs.String("id", "", "Token id")
		amount := fs.String("amount", "", "Amount")
		fs.Parse(args[1:])
		if *caller == "" || *id == "" || *amount == "" {
			fatal("Usage: tokenledger-cli mt %s --caller <a> --id <n> --amount <n>", args[0])
		}
		var ev struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
		}
		if err := client.Call(method, rpc.MTMintParam{
			Caller: *caller,
			ID:     *id,
			Amount: *amount,
		}, &ev); err != nil {
			fatal("%s: %v", method, err)
		}
		if args[0] == "mint" {
			fmt.Printf("Minted %s of token %s\n", ev.Amount, ev.ID)
		} else {
			fmt.Printf("Burned %s of token %s\n", ev.Amount, ev.ID)
		}

	case "transfer":
		fs := flag.NewFlagSet("mt transfer", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		from := fs.String("from", "", "Source account")
		to := fs.String("to", "", "Destination account")
		id := fs.String("id", "", "Token id")
		amount := fs.String("amount", "", "Amount")
		fs.Parse(args[1:])
		if *caller == "" || *from == "" || *to == "" || *id == "" || *amount == "" {
			fatal("Usage: tokenledger-cli mt transfer --caller <a> --from <a> --to <a> --id <n> --amount <n>")
		}
		var raw json.RawMessage
		if err := client.Call("mt_transfer", rpc.MTTransferParam{
			Caller: *caller,
			From:   *from,
			To:     *to,
			ID:     *id,
			Amount: *amount,
		}, &raw); err != nil {
			fatal("mt_transfer: %v", err)
		}
		fmt.Println("Transferred.")

	case "approve":
		fs := flag.NewFlagSet("mt approve", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		operator := fs.String("operator", "", "Operator account")
		id := fs.String("id", "", "Token id")
		amount := fs.String("amount", "", "Allowance amount")
		fs.Parse(args[1:])
		if *caller == "" || *operator == "" || *id == "" || *amount == "" {
			fatal("Usage: tokenledger-cli mt approve --caller <a> --operator <a> --id <n> --amount <n>")
		}
		var raw json.RawMessage
		if err := client.Call("mt_approve", rpc.MTApproveParam{
			Caller:   *caller,
			Operator: *operator,
			ID:       *id,
			Amount:   *amount,
		}, &raw); err != nil {
			fatal("mt_approve: %v", err)
		}
		fmt.Println("Approved.")

	case "set-operator":
		fs := flag.NewFlagSet("mt set-operator", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		operator := fs.String("operator", "", "Operator account")
		revoke := fs.Bool("revoke", false, "Revoke instead of grant")
		fs.Parse(args[1:])
		if *caller == "" || *operator == "" {
			fatal("Usage: tokenledger-cli mt set-operator --caller <a> --operator <a> [--revoke]")
		}
		var raw json.RawMessage
		if err := client.Call("mt_setOperator", rpc.MTOperatorParam{
			Caller:   *caller,
			Operator: *operator,
			Approved: !*revoke,
		}, &raw); err != nil {
			fatal("mt_setOperator: %v", err)
		}
		if *revoke {
			fmt.Println("Operator revoked.")
		} else {
			fmt.Println("Operator granted.")
		}

	case "attr":
		cmdMTAttr(client, args[1:])

	default:
		fatal("Unknown mt command: %s", args[0])
	}
}

func cmdMTAttr(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli mt attr <get|set> [flags]")
	}

	switch args[0] {
	case "get":
		if len(args) < 3 {
			fatal("Usage: tokenledger-cli mt attr get <id> <key-hex>")
		}
		var result rpc.AttributeResult
		if err := client.Call("mt_getAttribute", rpc.MTAttributeParam{
			ID:  args[1],
			Key: args[2],
		}, &result); err != nil {
			fatal("mt_getAttribute: %v", err)
		}
		if !result.Found {
			fmt.Println("(not set)")
			return
		}
		fmt.Println(result.Value)

	case "set":
		fs := flag.NewFlagSet("mt attr set", flag.ExitOnError)
		id := fs.String("id", "", "Token id")
		key := fs.String("key", "", "Attribute key (hex)")
		value := fs.String("value", "", "Attribute value (hex)")
		fs.Parse(args[1:])
		if *id == "" || *key == "" {
			fatal("Usage: tokenledger-cli mt attr set --id <n> --key <hex> --value <hex>")
		}
		if _, err := hex.DecodeString(*key); err != nil {
			fatal("invalid key hex: %v", err)
		}
		if _, err := hex.DecodeString(*value); err != nil {
			fatal("invalid value hex: %v", err)
		}
		var raw json.RawMessage
		if err := client.Call("mt_setAttribute", rpc.MTAttributeParam{
			ID:    *id,
			Key:   *key,
			Value: *value,
		}, &raw); err != nil {
			fatal("mt_setAttribute: %v", err)
		}
		fmt.Println("Attribute set.")

	default:
		fatal("Unknown mt attr command: %s", args[0])
	}
}

// ── nft ─────────────────────────────────────────────────────────────────

func cmdNFT(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli nft <show|tokens|payouts|mint|burn|transfer|approve|revoke> [flags]")
	}

	switch args[0] {
	case "show":
		if len(args) < 2 {
			fatal("Usage: tokenledger-cli nft show <id>")
		}
		tok, err := client.NFTToken(args[1])
		if err != nil {
			fatal("nft_getToken: %v", err)
		}
		fmt.Printf("ID:          %s\n", tok.ID)
		fmt.Printf("Owner:       %s\n", tok.Owner)
		fmt.Printf("Name:        %s\n", tok.Metadata.Name)
		if tok.Metadata.Description != "" {
			fmt.Printf("Description: %s\n", tok.Metadata.Description)
		}
		if tok.Metadata.Media != "" {
			fmt.Printf("Media:       %s\n", tok.Metadata.Media)
		}
		if tok.Metadata.Reference != "" {
			fmt.Printf("Reference:   %s\n", tok.Metadata.Reference)
		}
		for _, a := range tok.Approved {
			fmt.Printf("Approved:    %s\n", a)
		}
		for _, r := range tok.Royalties {
			fmt.Printf("Royalty:     %s (%d bps)\n", r.Account, r.BasisPoints)
		}

	case "tokens":
		if len(args) < 2 {
			fatal("Usage: tokenledger-cli nft tokens <account>")
		}
		result, err := client.NFTTokensOf(args[1])
		if err != nil {
			fatal("nft_getTokensOf: %v", err)
		}
		fmt.Printf("Tokens: %d\n", len(result.Tokens))
		for _, id := range result.Tokens {
			fmt.Printf("  %s\n", id)
		}

	case "payouts":
		if len(args) < 3 {
			fatal("Usage: tokenledger-cli nft payouts <id> <price>")
		}
		var legs []nft.PayoutLeg
		if err := client.Call("nft_getPayouts", rpc.NFTPayoutsParam{
			ID:    args[1],
			Price: args[2],
		}, &legs); err != nil {
			fatal("nft_getPayouts: %v", err)
		}
		for _, leg := range legs {
			fmt.Printf("  %s -> %s\n", leg.Amount, leg.To)
		}

	case "mint":
		cmdNFTMint(client, args[1:])

	case "burn":
		fs := flag.NewFlagSet("nft burn", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		id := fs.String("id", "", "Token id")
		fs.Parse(args[1:])
		if *caller == "" || *id == "" {
			fatal("Usage: tokenledger-cli nft burn --caller <a> --id <n>")
		}
		var raw json.RawMessage
		if err := client.Call("nft_burn", rpc.NFTCallerTokenParam{
			Caller: *caller,
			ID:     *id,
		}, &raw); err != nil {
			fatal("nft_burn: %v", err)
		}
		fmt.Println("Burned.")

	case "transfer":
		fs := flag.NewFlagSet("nft transfer", flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		to := fs.String("to", "", "Destination account")
		id := fs.String("id", "", "Token id")
		fs.Parse(args[1:])
		if *caller == "" || *to == "" || *id == "" {
			fatal("Usage: tokenledger-cli nft transfer --caller <a> --to <a> --id <n>")
		}
		var raw json.RawMessage
		if err := client.Call("nft_transfer", rpc.NFTTransferParam{
			Caller: *caller,
			To:     *to,
			ID:     *id,
		}, &raw); err != nil {
			fatal("nft_transfer: %v", err)
		}
		fmt.Println("Transferred.")

	case "approve", "revoke":
		method := "nft_" + args[0]
		fs := flag.NewFlagSet("nft "+args[0], flag.ExitOnError)
		caller := fs.String("caller", "", "Calling account")
		approved := fs.String("approved", "", "Approved account")
		id := fs.String("id", "", "Token id")
		fs.Parse(args[1:])
		if *caller == "" || *approved == "" || *id == "" {
			fatal("Usage: tokenledger-cli nft %s --caller <a> --approved <a> --id <n>", args[0])
		}
		var raw json.RawMessage
		if err := client.Call(method, rpc.NFTApproveParam{
			Caller:   *caller,
			Approved: *approved,
			ID:       *id,
		}, &raw); err != nil {
			fatal("%s: %v", method, err)
		}
		fmt.Println("Done.")

	default:
		fatal("Unknown nft command: %s", args[0])
	}
}

func cmdNFTMint(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("nft mint", flag.ExitOnError)
	caller := fs.String("caller", "", "Calling account (becomes owner)")
	id := fs.String("id", "", "Token id")
	name := fs.String("name", "", "Token name")
	description := fs.String("description", "", "Token description")
	media := fs.String("media", "", "Media URI")
	reference := fs.String("reference", "", "Reference URI")
	royalties := fs.String("royalties", "", "Royalty shares as account:bps,account:bps")
	fs.Parse(args)

	if *caller == "" || *id == "" || *name == "" {
		fatal("Usage: tokenledger-cli nft mint --caller <a> --id <n> --name <s> [--royalties a:bps,...]")
	}

	shares, err := parseRoyalties(*royalties)
	if err != nil {
		fatal("invalid royalties: %v", err)
	}

	var ev struct {
		To string `json:"to"`
		ID string `json:"id"`
	}
	if err := client.Call("nft_mint", rpc.NFTMintParam{
		Caller: *caller,
		ID:     *id,
		Metadata: nft.Metadata{
			Name:        *name,
			Description: *description,
			Media:       *media,
			Reference:   *reference,
		},
		Royalties: shares,
	}, &ev); err != nil {
		fatal("nft_mint: %v", err)
	}

	fmt.Printf("Minted %s to %s\n", ev.ID, ev.To)
}

// parseRoyalties parses "account:bps,account:bps" into royalty shares.
func parseRoyalties(s string) ([]nft.RoyaltyShare, error) {
	if s == "" {
		return nil, nil
	}
	var shares []nft.RoyaltyShare
	for _, part := range strings.Split(s, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("share %q: want account:bps", part)
		}
		account, err := types.ParseAccount(fields[0])
		if err != nil {
			return nil, fmt.Errorf("share %q: %w", part, err)
		}
		var bps uint16
		if _, err := fmt.Sscanf(fields[1], "%d", &bps); err != nil {
			return nil, fmt.Errorf("share %q: %w", part, err)
		}
		shares = append(shares, nft.RoyaltyShare{Account: account, BasisPoints: bps})
	}
	return shares, nil
}

// ── keyring ─────────────────────────────────────────────────────────────

func cmdKeyring(args []string, krDir string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli keyring <create|import|list|identities|new-identity|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdKeyringCreate(args[1:], krDir)
	case "import":
		cmdKeyringImport(args[1:], krDir)
	case "list":
		cmdKeyringList(krDir)
	case "identities":
		cmdKeyringIdentities(args[1:], krDir)
	case "new-identity":
		cmdKeyringNewIdentity(args[1:], krDir)
	case "delete":
		cmdKeyringDelete(args[1:], krDir)
	default:
		fatal("Unknown keyring command: %s", args[0])
	}
}

func cmdKeyringCreate(args []string, krDir string) {
	fs := flag.NewFlagSet("keyring create", flag.ExitOnError)
	name := fs.String("name", "", "Keyring name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenledger-cli keyring create --name <name>")
	}

	mnemonic, err := keyring.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	createKeyring(*name, mnemonic, krDir)
}

func cmdKeyringImport(args []string, krDir string) {
	fs := flag.NewFlagSet("keyring import", flag.ExitOnError)
	name := fs.String("name", "", "Keyring name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: tokenledger-cli keyring import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !keyring.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	createKeyring(*name, *mnemonic, krDir)
}

func createKeyring(name, mnemonic, krDir string) {
	// Prompt for passphrase (twice).
	passphrase, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(passphrase) != string(confirm) {
		fatal("passphrases do not match")
	}

	seed, err := keyring.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	if err := kr.Create(name, seed, passphrase, keyring.DefaultKDFParams()); err != nil {
		fatal("create keyring: %v", err)
	}
	for i := range seed {
		seed[i] = 0
	}

	identity, err := kr.NewIdentity(name, "Default", passphrase)
	if err != nil {
		fatal("derive identity: %v", err)
	}

	fmt.Printf("\nKeyring created: %s\n", name)
	fmt.Printf("Account: %s\n", identity.Account)
}

func cmdKeyringList(krDir string) {
	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	names, err := kr.List()
	if err != nil {
		fatal("list keyrings: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No keyrings.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdKeyringIdentities(args []string, krDir string) {
	fs := flag.NewFlagSet("keyring identities", flag.ExitOnError)
	name := fs.String("name", "", "Keyring name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenledger-cli keyring identities --name <name>")
	}

	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	identities, err := kr.Identities(*name)
	if err != nil {
		fatal("read keyring: %v", err)
	}
	for _, id := range identities {
		fmt.Printf("  [%d] %-16s %s\n", id.Index, id.Name, id.Account)
	}
}

func cmdKeyringNewIdentity(args []string, krDir string) {
	fs := flag.NewFlagSet("keyring new-identity", flag.ExitOnError)
	name := fs.String("name", "", "Keyring name")
	label := fs.String("label", "", "Identity label")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenledger-cli keyring new-identity --name <name> [--label <s>]")
	}

	passphrase, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}

	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	identity, err := kr.NewIdentity(*name, *label, passphrase)
	if err != nil {
		fatal("derive identity: %v", err)
	}

	fmt.Printf("New identity [%d] %s\n", identity.Index, identity.Account)
}

func cmdKeyringDelete(args []string, krDir string) {
	fs := flag.NewFlagSet("keyring delete", flag.ExitOnError)
	name := fs.String("name", "", "Keyring name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenledger-cli keyring delete --name <name>")
	}

	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	if err := kr.Delete(*name); err != nil {
		fatal("delete keyring: %v", err)
	}
	fmt.Printf("Keyring deleted: %s\n", *name)
}

// ── approval ────────────────────────────────────────────────────────────

func cmdApproval(client *rpcclient.Client, args []string, krDir string) {
	if len(args) < 1 {
		fatal("Usage: tokenledger-cli approval <sign|submit> [flags]")
	}

	switch args[0] {
	case "sign":
		cmdApprovalSign(client, args[1:], krDir)
	case "submit":
		cmdApprovalSubmit(client, args[1:])
	default:
		fatal("Unknown approval command: %s", args[0])
	}
}

func cmdApprovalSign(client *rpcclient.Client, args []string, krDir string) {
	fs := flag.NewFlagSet("approval sign", flag.ExitOnError)
	krName := fs.String("keyring", "", "Keyring holding the owner's key")
	owner := fs.String("owner", "", "Token owner account")
	actor := fs.String("actor", "", "Account to approve")
	token := fs.String("token", "", "Token id")
	expiresIn := fs.Duration("expires-in", time.Hour, "Validity window from now")
	instanceHex := fs.String("instance", "", "Ledger instance id (hex; default: ask the node)")
	out := fs.String("out", "", "Output file (default: stdout)")
	fs.Parse(args)

	if *krName == "" || *owner == "" || *actor == "" || *token == "" {
		fatal("Usage: tokenledger-cli approval sign --keyring <n> --owner <a> --actor <a> --token <id> [--expires-in <dur>]")
	}

	ownerAccount, err := types.ParseAccount(*owner)
	if err != nil {
		fatal("invalid owner: %v", err)
	}
	actorAccount, err := types.ParseAccount(*actor)
	if err != nil {
		fatal("invalid actor: %v", err)
	}
	tokenID, err := types.TokenIDFromString(*token)
	if err != nil {
		fatal("invalid token id: %v", err)
	}

	// The approval is bound to one ledger instance. Take the id from the
	// flag, or ask the target node for its own.
	var instance types.Hash
	if *instanceHex != "" {
		instance, err = types.HexToHash(*instanceHex)
		if err != nil {
			fatal("invalid instance id: %v", err)
		}
	} else {
		info, err := client.NodeInfo()
		if err != nil {
			fatal("fetch instance id from node: %v", err)
		}
		instance = info.InstanceID
	}

	approval := &nft.DelegatedApproval{
		TokenOwner:    ownerAccount,
		ApprovedActor: actorAccount,
		ProgramID:     instance,
		TokenID:       tokenID,
		ExpiresAt:     time.Now().Add(*expiresIn).UnixMilli(),
	}

	passphrase, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}

	kr, err := keyring.Open(krDir)
	if err != nil {
		fatal("open keyring dir: %v", err)
	}
	signer, err := kr.Signer(*krName, ownerAccount, passphrase)
	if err != nil {
		fatal("unlock signer: %v", err)
	}
	defer signer.Zero()

	if err := approval.Sign(signer); err != nil {
		fatal("sign approval: %v", err)
	}

	data, err := json.MarshalIndent(approval, "", "  ")
	if err != nil {
		fatal("encode approval: %v", err)
	}
	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0600); err != nil {
		fatal("write approval: %v", err)
	}
	fmt.Printf("Approval written to %s (expires %s)\n", *out,
		time.UnixMilli(approval.ExpiresAt).UTC().Format("2006-01-02 15:04:05 UTC"))
}

func cmdApprovalSubmit(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("approval submit", flag.ExitOnError)
	caller := fs.String("caller", "", "Presenting account (the approved actor)")
	file := fs.String("file", "", "Signed approval JSON file")
	fs.Parse(args)

	if *caller == "" || *file == "" {
		fatal("Usage: tokenledger-cli approval submit --caller <a> --file <approval.json>")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal("read approval file: %v", err)
	}
	var approval nft.DelegatedApproval
	if err := json.Unmarshal(data, &approval); err != nil {
		fatal("parse approval: %v", err)
	}

	var raw json.RawMessage
	if err := client.Call("nft_delegatedApprove", rpc.NFTDelegatedParam{
		Caller:   *caller,
		Approval: &approval,
	}, &raw); err != nil {
		fatal("nft_delegatedApprove: %v", err)
	}
	fmt.Println("Approval accepted.")
}

// ── helpers ─────────────────────────────────────────────────────────────

// readPassword prompts for a password without echoing it.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
