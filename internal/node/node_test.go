package node

import (
	"sync"
	"testing"

	klog "github.com/mintworks/tokenledger/internal/log"

	"github.com/mintworks/tokenledger/config"
	"github.com/mintworks/tokenledger/internal/rpc"
	"github.com/mintworks/tokenledger/internal/rpcclient"
	"github.com/mintworks/tokenledger/internal/storage"
	"github.com/mintworks/tokenledger/internal/store"
	"github.com/mintworks/tokenledger/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultTestnet()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = config.StorageMemory
	cfg.RPC.Enabled = true
	cfg.RPC.Addr = "127.0.0.1"
	cfg.RPC.Port = 0
	cfg.Ledger.CheckpointSeconds = 0
	return cfg
}

func newTestNode(t *testing.T, cfg *config.Config, db store.BatchingDB) *Node {
	t.Helper()
	klog.Init("error", false, "")
	n, err := newWithDB(cfg, db)
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("start node: %v", err)
	}
	return n
}

func TestNode_ExecSerializesAccess(t *testing.T) {
	cfg := testConfig(t)
	n := newTestNode(t, cfg, storage.NewMemory())
	defer n.Stop()

	alice := types.Account{0x0A}

	// Hammer the mailbox from many goroutines; every increment must land.
	const workers = 16
	const perWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := n.Exec(func(l *rpc.Ledgers) (interface{}, error) {
					return l.FT.Mint(alice, types.NewAmount(1))
				})
				if err != nil {
					t.Errorf("mint: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	result, err := n.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		return l.FT.BalanceOf(alice), nil
	})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	want := types.NewAmount(workers * perWorker)
	if result.(types.Amount) != want {
		t.Errorf("balance = %s, want %s", result.(types.Amount), want)
	}
}

func TestNode_ExecAfterStop(t *testing.T) {
	cfg := testConfig(t)
	n := newTestNode(t, cfg, storage.NewMemory())
	n.Stop()

	_, err := n.Exec(func(l *rpc.Ledgers) (interface{}, error) { return nil, nil })
	if err != ErrStopped {
		t.Errorf("err = %v, want ErrStopped", err)
	}
}

func TestNode_CheckpointAndRestore(t *testing.T) {
	cfg := testConfig(t)
	db := storage.NewMemory()

	alice := types.Account{0x0A}

	klog.Init("error", false, "")
	n, err := newWithDB(cfg, db)
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	n.Start()

	n.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		return l.FT.Mint(alice, types.NewAmount(900))
	})
	n.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		return l.MT.Mint(alice, types.NewTokenID(4), types.NewAmount(12))
	})

	// Stop writes a final checkpoint. The memory DB is closed but keeps
	// its contents, so a second node over it acts as a restart.
	n.Stop()

	n2, err := newWithDB(cfg, db)
	if err != nil {
		t.Fatalf("recreate node: %v", err)
	}
	defer n2.Stop()
	n2.Start()

	result, err := n2.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		return l.FT.BalanceOf(alice), nil
	})
	if err != nil {
		t.Fatalf("balance after restart: %v", err)
	}
	if result.(types.Amount) != types.NewAmount(900) {
		t.Errorf("balance = %s, want 900", result.(types.Amount))
	}

	result, err = n2.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		id := types.NewTokenID(4)
		return l.MT.BalanceOf(alice, &id), nil
	})
	if err != nil {
		t.Fatalf("mt balance after restart: %v", err)
	}
	if result.(types.Amount) != types.NewAmount(12) {
		t.Errorf("mt balance = %s, want 12", result.(types.Amount))
	}
}

func TestNode_RPCEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	n := newTestNode(t, cfg, storage.NewMemory())
	defer n.Stop()

	if n.RPCAddr() == "" {
		t.Fatal("RPC server not listening")
	}
	client := rpcclient.New("http://" + n.RPCAddr() + "/")

	info, err := client.NodeInfo()
	if err != nil {
		t.Fatalf("NodeInfo: %v", err)
	}
	if info.Network != "testnet" {
		t.Errorf("network = %q, want %q", info.Network, "testnet")
	}
	if info.InstanceID != n.Instance() {
		t.Errorf("instance mismatch")
	}

	alice := types.Account{0x0A}
	if err := client.Call("ft_mint", rpc.AmountParam{
		Caller: alice.String(),
		Amount: "1234",
	}, nil); err != nil {
		t.Fatalf("ft_mint: %v", err)
	}

	balance, err := client.FTBalance(alice.String())
	if err != nil {
		t.Fatalf("FTBalance: %v", err)
	}
	if balance != "1234" {
		t.Errorf("balance = %q, want %q", balance, "1234")
	}
}

func TestNode_InstanceDerivation(t *testing.T) {
	cfg := testConfig(t)
	n := newTestNode(t, cfg, storage.NewMemory())
	n.Stop()

	cfg2 := testConfig(t)
	cfg2.Ledger.InstanceLabel = cfg.Ledger.InstanceLabel + "-other"
	n2 := newTestNode(t, cfg2, storage.NewMemory())
	defer n2.Stop()

	if n.Instance() == n2.Instance() {
		t.Error("different instance labels derive the same instance id")
	}
}
