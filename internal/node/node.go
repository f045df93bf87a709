// Package node assembles a runnable ledger node: the three ledgers, their
// persistence, and the RPC surface. All ledger access is serialized
// through a single mailbox goroutine, so the ledgers themselves carry no
// locks and every command or query runs to completion before the next
// one starts.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mintworks/tokenledger/config"
	"github.com/mintworks/tokenledger/internal/fungible"
	klog "github.com/mintworks/tokenledger/internal/log"
	"github.com/mintworks/tokenledger/internal/multitoken"
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/internal/rpc"
	"github.com/mintworks/tokenledger/internal/storage"
	"github.com/mintworks/tokenledger/internal/store"
	"github.com/mintworks/tokenledger/pkg/crypto"
	"github.com/mintworks/tokenledger/pkg/types"
)

// ErrStopped is returned by Exec after the node has shut down.
var ErrStopped = errors.New("node is stopped")

// task is one unit of work submitted to the mailbox.
type task struct {
	fn    func(l *rpc.Ledgers) (interface{}, error)
	reply chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// Node is a fully-initialized ledger node.
type Node struct {
	cfg      *config.Config
	logger   zerolog.Logger
	instance types.Hash

	db      store.BatchingDB
	store   *store.Store
	ledgers *rpc.Ledgers

	rpcServer *rpc.Server

	mailbox chan task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a Node: logger, storage, ledgers (restored
// from the last checkpoint if one exists), mailbox, and RPC server. Call
// Start to launch the checkpoint timer and Stop to shut down.
func New(cfg *config.Config) (*Node, error) {
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "tokenledger.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	n, err := newWithDB(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

// openBackend opens the configured state database.
func openBackend(cfg *config.Config) (store.BatchingDB, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	default:
		db, err := storage.NewBadger(cfg.StateDir())
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", cfg.StateDir(), err)
		}
		return db, nil
	}
}

// newWithDB builds a node over an already-open database. The caller owns
// the database until the node is returned; after that Stop closes it.
func newWithDB(cfg *config.Config, db store.BatchingDB) (*Node, error) {
	logger := klog.WithComponent("node")
	instance := crypto.Hash([]byte(cfg.Ledger.InstanceLabel))

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("instance", instance.String()[:16]+"...").
		Msg("Starting ledger node")

	st := store.New(db)
	ledgers, restored, err := loadLedgers(cfg, st)
	if err != nil {
		return nil, err
	}
	if restored {
		logger.Info().
			Str("ft_supply", ledgers.FT.TotalSupply().String()).
			Uint64("nft_count", ledgers.NFT.TotalSupply()).
			Msg("Ledgers restored from checkpoint")
	} else {
		logger.Info().Msg("Ledgers initialized fresh")
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:      cfg,
		logger:   logger,
		instance: instance,
		db:       db,
		store:    st,
		ledgers:  ledgers,
		mailbox:  make(chan task),
		ctx:      ctx,
		cancel:   cancel,
	}

	n.wg.Add(1)
	go n.runMailbox()

	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer := rpc.New(rpcAddr, n, string(cfg.Network), instance, cfg.RPC)
		if err := rpcServer.Start(); err != nil {
			n.stopMailbox()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		n.rpcServer = rpcServer
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// loadLedgers restores the ledgers from the last checkpoint, or builds
// fresh ones from the config labels if none exists.
func loadLedgers(cfg *config.Config, st *store.Store) (*rpc.Ledgers, bool, error) {
	cp, err := st.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return &rpc.Ledgers{
			FT:  fungible.New(cfg.Ledger.FTName, cfg.Ledger.FTSymbol, cfg.Ledger.FTDecimals),
			MT:  multitoken.New(cfg.Ledger.MTName, cfg.Ledger.MTSymbol, cfg.Ledger.MTBaseURI),
			NFT: nft.New(cfg.Ledger.NFTName, cfg.Ledger.NFTSymbol, cfg.Ledger.NFTBaseURI),
		}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}

	ft, err := fungible.FromImage(cp.Fungible)
	if err != nil {
		return nil, false, fmt.Errorf("restore fungible ledger: %w", err)
	}
	mt, err := multitoken.FromSnapshot(cp.MultiToken)
	if err != nil {
		return nil, false, fmt.Errorf("restore multi-token ledger: %w", err)
	}
	nl, err := nft.FromImage(cp.NFT)
	if err != nil {
		return nil, false, fmt.Errorf("restore nft ledger: %w", err)
	}
	return &rpc.Ledgers{FT: ft, MT: mt, NFT: nl}, true, nil
}

// runMailbox is the single goroutine with access to the ledgers.
func (n *Node) runMailbox() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			// Fail any task that raced the shutdown.
			for {
				select {
				case t := <-n.mailbox:
					t.reply <- taskResult{err: ErrStopped}
				default:
					return
				}
			}
		case t := <-n.mailbox:
			value, err := t.fn(n.ledgers)
			t.reply <- taskResult{value: value, err: err}
		}
	}
}

// Exec submits a closure to the mailbox and waits for its result. It
// implements rpc.Executor.
func (n *Node) Exec(fn func(l *rpc.Ledgers) (interface{}, error)) (interface{}, error) {
	t := task{fn: fn, reply: make(chan taskResult, 1)}
	select {
	case <-n.ctx.Done():
		return nil, ErrStopped
	case n.mailbox <- t:
	}
	res := <-t.reply
	return res.value, res.err
}

// Start launches the periodic checkpoint timer.
func (n *Node) Start() error {
	if interval := n.cfg.Ledger.CheckpointSeconds; interval > 0 {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runCheckpointLoop(time.Duration(interval) * time.Second)
		}()
	}

	n.logger.Info().
		Bool("rpc", n.rpcServer != nil).
		Int("checkpoint_s", n.cfg.Ledger.CheckpointSeconds).
		Msg("Node started successfully")
	return nil
}

func (n *Node) runCheckpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if err := n.Checkpoint(); err != nil && !errors.Is(err, ErrStopped) {
				n.logger.Error().Err(err).Msg("Periodic checkpoint failed")
			}
		}
	}
}

// Checkpoint captures the current ledger state through the mailbox and
// writes it atomically.
func (n *Node) Checkpoint() error {
	cp, err := n.Exec(func(l *rpc.Ledgers) (interface{}, error) {
		return &store.Checkpoint{
			Fungible:   l.FT.Image(),
			MultiToken: l.MT.Snapshot(),
			NFT:        l.NFT.Image(),
		}, nil
	})
	if err != nil {
		return err
	}
	return n.store.Save(cp.(*store.Checkpoint))
}

// stopMailbox stops the mailbox goroutine and waits for it.
func (n *Node) stopMailbox() {
	n.cancel()
	n.wg.Wait()
}

// Stop performs graceful shutdown: RPC first so no new work arrives, then
// the mailbox, then a final checkpoint before the database closes.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}

	n.stopMailbox()

	// The mailbox is drained; direct ledger access is exclusive now.
	cp := &store.Checkpoint{
		Fungible:   n.ledgers.FT.Image(),
		MultiToken: n.ledgers.MT.Snapshot(),
		NFT:        n.ledgers.NFT.Image(),
	}
	if err := n.store.Save(cp); err != nil {
		n.logger.Error().Err(err).Msg("Final checkpoint failed")
	}

	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("Database close failed")
	}
	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Instance returns the ledger instance identity delegated approvals are
// bound to.
func (n *Node) Instance() types.Hash {
	return n.instance
}
