// Package store persists ledger state images in a key-value database. Each
// ledger serializes to a canonical JSON image; the store writes all three
// under their own key prefixes in one atomic batch so a checkpoint is
// either fully visible or not at all.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mintworks/tokenledger/internal/fungible"
	"github.com/mintworks/tokenledger/internal/log"
	"github.com/mintworks/tokenledger/internal/multitoken"
	"github.com/mintworks/tokenledger/internal/nft"
	"github.com/mintworks/tokenledger/internal/storage"
)

// Checkpoint keys, one per ledger.
var (
	keyFungible   = []byte("ft/state")
	keyMultiToken = []byte("mt/state")
	keyNFT        = []byte("nft/state")
)

// BatchingDB is the database surface the store needs: reads plus atomic
// batched writes.
type BatchingDB interface {
	storage.DB
	storage.Batcher
}

// Checkpoint bundles the three ledger images saved and loaded together.
type Checkpoint struct {
	Fungible   *fungible.Image
	MultiToken *multitoken.Snapshot
	NFT        *nft.Image
}

// Store reads and writes ledger checkpoints.
type Store struct {
	db     BatchingDB
	logger zerolog.Logger
}

// New creates a store over a database.
func New(db BatchingDB) *Store {
	return &Store{db: db, logger: log.Store}
}

// Save writes a checkpoint atomically, replacing any previous one.
func (s *Store) Save(cp *Checkpoint) error {
	batch := s.db.NewBatch()
	for _, entry := range []struct {
		key   []byte
		image interface{}
	}{
		{keyFungible, cp.Fungible},
		{keyMultiToken, cp.MultiToken},
		{keyNFT, cp.NFT},
	} {
		data, err := json.Marshal(entry.image)
		if err != nil {
			return fmt.Errorf("encode %s: %w", entry.key, err)
		}
		if err := batch.Put(entry.key, data); err != nil {
			return fmt.Errorf("stage %s: %w", entry.key, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	s.logger.Debug().Msg("checkpoint saved")
	return nil
}

// Load reads the last checkpoint. Returns storage.ErrNotFound if no
// checkpoint has ever been saved.
func (s *Store) Load() (*Checkpoint, error) {
	ftData, err := s.db.Get(keyFungible)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", keyFungible, err)
	}

	cp := &Checkpoint{
		Fungible:   &fungible.Image{},
		MultiToken: &multitoken.Snapshot{},
		NFT:        &nft.Image{},
	}
	if err := json.Unmarshal(ftData, cp.Fungible); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyFungible, err)
	}

	mtData, err := s.db.Get(keyMultiToken)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", keyMultiToken, err)
	}
	if err := json.Unmarshal(mtData, cp.MultiToken); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyMultiToken, err)
	}

	nftData, err := s.db.Get(keyNFT)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", keyNFT, err)
	}
	if err := json.Unmarshal(nftData, cp.NFT); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyNFT, err)
	}

	return cp, nil
}
