// state/state.go
package state

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"sync"
	"time"
)

// SettlementStore records which logins have already been settled (breached
// or passed) so a restart never re-fires enforcement or notifications.
// Records are terminal; Clear is the external reset hook for re-arming an
// account after manual review.
type SettlementStore interface {
	// IsSettled reports whether a login already has a terminal record.
	IsSettled(login int64) bool
	// MarkSettled records the terminal verdict for a login.
	MarkSettled(login int64, kind string, at time.Time) error
	// Clear removes a login's settlement record.
	Clear(login int64) error
	// Logins returns every settled login.
	Logins() []int64
}

// Settlement is one persisted terminal record.
type Settlement struct {
	Login     int64     `json:"login"`
	Kind      string    `json:"kind"`
	SettledAt time.Time `json:"settled_at"`
}

// settlementFile is the top-level structure persisted to settlements.json.
type settlementFile struct {
	Settlements map[int64]Settlement `json:"settlements"`
}

// FileStore is the file-backed implementation of SettlementStore.
type FileStore struct {
	mu       sync.RWMutex
	filePath string
	state    *settlementFile
}

var _ SettlementStore = (*FileStore)(nil)

// NewFileStore loads the settlement file, creating an empty one when absent.
func NewFileStore(filePath string) (*FileStore, error) {
	fs := &FileStore{
		filePath: filePath,
		state: &settlementFile{
			Settlements: make(map[int64]Settlement),
		},
	}

	if err := fs.load(); err != nil {
		if os.IsNotExist(err) {
			// First run. Create the file now so later saves cannot surprise us.
			if err := fs.save(); err != nil {
				return nil, fmt.Errorf("failed to create initial settlement file: %w", err)
			}
			return fs, nil
		}
		return nil, fmt.Errorf("failed to load settlement state: %w", err)
	}
	if fs.state.Settlements == nil {
		fs.state.Settlements = make(map[int64]Settlement)
	}
	return fs, nil
}

// save performs an atomic write while holding the lock.
func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settlement state: %w", err)
	}

	tmpFilePath := fs.filePath + ".tmp"
	if err := ioutil.WriteFile(tmpFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary settlement file: %w", err)
	}
	return os.Rename(tmpFilePath, fs.filePath)
}

func (fs *FileStore) load() error {
	data, err := ioutil.ReadFile(fs.filePath)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, fs.state)
}

func (fs *FileStore) IsSettled(login int64) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.state.Settlements[login]
	return ok
}

func (fs *FileStore) MarkSettled(login int64, kind string, at time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.state.Settlements[login] = Settlement{Login: login, Kind: kind, SettledAt: at}
	return fs.save()
}

func (fs *FileStore) Clear(login int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.state.Settlements, login)
	return fs.save()
}

func (fs *FileStore) Logins() []int64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]int64, 0, len(fs.state.Settlements))
	for login := range fs.state.Settlements {
		out = append(out, login)
	}
	return out
}

// MemoryStore is an in-memory SettlementStore for simulation and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	settlements map[int64]Settlement
}

var _ SettlementStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settlements: make(map[int64]Settlement)}
}

func (ms *MemoryStore) IsSettled(login int64) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.settlements[login]
	return ok
}

func (ms *MemoryStore) MarkSettled(login int64, kind string, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.settlements[login] = Settlement{Login: login, Kind: kind, SettledAt: at}
	return nil
}

func (ms *MemoryStore) Clear(login int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.settlements, login)
	return nil
}

func (ms *MemoryStore) Logins() []int64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]int64, 0, len(ms.settlements))
	for login := range ms.settlements {
		out = append(out, login)
	}
	return out
}
