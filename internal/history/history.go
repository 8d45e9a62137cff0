// Package history keeps a local log of deployment attempts.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/ethereum/go-ethereum/common"
)

// ErrEntryNotFound is returned when no entry matches a lookup.
var ErrEntryNotFound = errors.New("deployment not found")

// Entry is one recorded deployment attempt.
type Entry struct {
	AttemptID   string    `json:"attempt_id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	ChainID     int64     `json:"chain_id"`
	Wallet      string    `json:"wallet"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Address     string    `json:"address,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	State       string    `json:"state"`
	MetadataURI string    `json:"metadata_uri,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolved reports whether the entry has a contract address.
func (e *Entry) Resolved() bool { return e.Address != "" }

// FromOutcome records a finished attempt. err is the error Deploy returned
// alongside out, if any.
func FromOutcome(req deploy.Request, out *deploy.Outcome, err error, chainID int64, wallet common.Address) *Entry {
	e := &Entry{
		Kind:      string(req.Kind),
		Name:      req.Name,
		Symbol:    req.Symbol,
		ChainID:   chainID,
		Wallet:    wallet.Hex(),
		CreatedAt: time.Now().UTC(),
	}
	if out != nil {
		e.AttemptID = out.AttemptID
		e.State = out.State.String()
		e.Strategy = out.Strategy
		e.MetadataURI = out.MetadataURI
		if out.TxHash != (common.Hash{}) {
			e.TxHash = out.TxHash.Hex()
		}
		if out.Address != (common.Address{}) {
			e.Address = out.Address.Hex()
		}
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Log stores entries in a JSON file, oldest first.
type Log struct {
	path    string
	entries []*Entry
}

// NewLog creates a Log backed by a JSON file.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Load reads stored entries from disk. A missing file is an empty log.
func (l *Log) Load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(l.path), err)
	}
	l.entries = entries
	return nil
}

// Save writes all entries to disk.
func (l *Log) Save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o600)
}

// Add appends e.
func (l *Log) Add(e *Entry) {
	l.entries = append(l.entries, e)
}

// Record loads the log, appends e and saves.
func (l *Log) Record(e *Entry) error {
	if err := l.Load(); err != nil {
		return err
	}
	l.Add(e)
	return l.Save()
}

// All returns entries newest first, at most limit of them (0 = no limit).
func (l *Log) All(limit int) []*Entry {
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Entry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Find returns the newest entry whose attempt id, tx hash or contract
// address matches ref (case-insensitive).
func (l *Log) Find(ref string) (*Entry, error) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if strings.EqualFold(e.AttemptID, ref) || strings.EqualFold(e.TxHash, ref) || strings.EqualFold(e.Address, ref) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, ref)
}
