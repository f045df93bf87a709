package keyring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mintworks/tokenledger/pkg/crypto"
	"github.com/mintworks/tokenledger/pkg/types"
)

// keyringFile is the on-disk JSON format for an encrypted keyring.
type keyringFile struct {
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	SealedSeed []byte     `json:"sealed_seed"`
	Identities []Identity `json:"identities"`
	NextIndex  uint32     `json:"next_index"`
}

// Identity is the public metadata for one derived account.
type Identity struct {
	Index   uint32        `json:"index"`
	Name    string        `json:"name"`
	Account types.Account `json:"account"`
}

// Keyring manages encrypted keyring files in a directory, one file per
// named keyring.
type Keyring struct {
	dir string
}

// Open creates a keyring rooted at dir, creating the directory if needed.
func Open(dir string) (*Keyring, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keyring dir: %w", err)
	}
	return &Keyring{dir: dir}, nil
}

func (kr *Keyring) filePath(name string) string {
	return filepath.Join(kr.dir, name+".keys")
}

// Create writes a new keyring file sealing the given seed. Fails if a
// keyring with that name already exists.
func (kr *Keyring) Create(name string, seed, passphrase []byte, params KDFParams) error {
	path := kr.filePath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("keyring %q already exists", name)
	}

	sealed, err := SealSecret(seed, passphrase, params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}

	return kr.writeFile(path, &keyringFile{
		Version:    1,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
		Identities: []Identity{},
	})
}

// NewIdentity derives the next identity in a keyring, records its
// account, and returns it. The passphrase unlocks the sealed seed.
func (kr *Keyring) NewIdentity(name, label string, passphrase []byte) (Identity, error) {
	path := kr.filePath(name)
	kf, err := kr.readFile(path)
	if err != nil {
		return Identity{}, err
	}

	seed, err := OpenSecret(kf.SealedSeed, passphrase)
	if err != nil {
		return Identity{}, fmt.Errorf("unlock keyring: %w", err)
	}
	defer zeroKey(seed)

	index := kf.NextIndex
	account, err := deriveAccount(seed, index)
	if err != nil {
		return Identity{}, err
	}

	identity := Identity{Index: index, Name: label, Account: account}
	kf.Identities = append(kf.Identities, identity)
	kf.NextIndex++
	if err := kr.writeFile(path, kf); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// Signer unlocks a keyring and returns the signing key for the identity
// registered under the given account.
func (kr *Keyring) Signer(name string, account types.Account, passphrase []byte) (*crypto.PrivateKey, error) {
	kf, err := kr.readFile(kr.filePath(name))
	if err != nil {
		return nil, err
	}

	var identity *Identity
	for i := range kf.Identities {
		if kf.Identities[i].Account == account {
			identity = &kf.Identities[i]
			break
		}
	}
	if identity == nil {
		return nil, fmt.Errorf("account %s not in keyring %q", account.Short(), name)
	}

	seed, err := OpenSecret(kf.SealedSeed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlock keyring: %w", err)
	}
	defer zeroKey(seed)

	signer, err := deriveSigner(seed, identity.Index)
	if err != nil {
		return nil, err
	}
	if signer.Account() != account {
		return nil, fmt.Errorf("keyring %q: derivation for index %d no longer matches account %s",
			name, identity.Index, account.Short())
	}
	return signer, nil
}

// Identities returns the identities registered in a keyring.
func (kr *Keyring) Identities(name string) ([]Identity, error) {
	kf, err := kr.readFile(kr.filePath(name))
	if err != nil {
		return nil, err
	}
	return kf.Identities, nil
}

// List returns the names of all keyring files in the directory.
func (kr *Keyring) List() ([]string, error) {
	entries, err := os.ReadDir(kr.dir)
	if err != nil {
		return nil, fmt.Errorf("read keyring dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".keys" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a keyring file.
func (kr *Keyring) Delete(name string) error {
	path := kr.filePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("keyring %q not found", name)
	}
	return os.Remove(path)
}

func deriveSigner(seed []byte, index uint32) (*crypto.PrivateKey, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	key, err := master.DeriveIdentity(index)
	if err != nil {
		return nil, err
	}
	return key.Signer()
}

func deriveAccount(seed []byte, index uint32) (types.Account, error) {
	signer, err := deriveSigner(seed, index)
	if err != nil {
		return types.ZeroAccount, err
	}
	return signer.Account(), nil
}

func (kr *Keyring) writeFile(path string, kf *keyringFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keyring: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

func (kr *Keyring) readFile(path string) (*keyringFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	var kf keyringFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyring: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported keyring version: %d", kf.Version)
	}
	return &kf, nil
}
