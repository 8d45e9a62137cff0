package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotConnected is returned when an operation needs a connected wallet.
var ErrNotConnected = errors.New("no wallet connected")

type sessionFile struct {
	Wallet      string `json:"wallet"`
	Address     string `json:"address"`
	ConnectedAt string `json:"connected_at"`
}

// Session is the connected account. It survives between CLI invocations in
// a small JSON file and is cleared by Disconnect.
type Session struct {
	path    string
	manager *Manager

	mu     sync.RWMutex
	wallet *Wallet
}

// OpenSession loads the session stored at path. A session pointing at a
// wallet that no longer exists opens disconnected.
func OpenSession(path string, m *Manager) (*Session, error) {
	s := &Session{path: path, manager: m}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.Wallet == "" {
		return s, nil
	}
	w, err := m.Get(f.Wallet)
	if errors.Is(err, ErrWalletNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	s.wallet = w
	return s, nil
}

// Connect makes name the active account. The wallet must hold a key, and
// the key must sign for the wallet's address.
func (s *Session) Connect(name string) error {
	w, err := s.manager.Get(name)
	if err != nil {
		return err
	}
	if !w.CanSign() {
		return fmt.Errorf("%w: %s", ErrWatchOnly, name)
	}

	challenge := []byte("tokenfactory session " + w.Address)
	sig, err := SignMessage(w, s.manager.Keystore(), challenge)
	if err != nil {
		return err
	}
	got, err := VerifyMessage(challenge, sig)
	if err != nil {
		return err
	}
	if got != w.Addr() {
		return fmt.Errorf("stored key for %q signs as %s", name, got.Hex())
	}

	s.mu.Lock()
	s.wallet = w
	s.mu.Unlock()
	return s.save(sessionFile{
		Wallet:      w.Name,
		Address:     w.Address,
		ConnectedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// Disconnect clears the active account.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.wallet = nil
	s.mu.Unlock()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Connected reports whether an account is active.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet != nil
}

// Address returns the active account, or the zero address.
func (s *Session) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return common.Address{}
	}
	return s.wallet.Addr()
}

// Wallet returns the active wallet, or nil.
func (s *Session) Wallet() *Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// Signer returns a transaction signer for the active account.
func (s *Session) Signer() (*Signer, error) {
	w := s.Wallet()
	if w == nil {
		return nil, ErrNotConnected
	}
	return NewSigner(w, s.manager.Keystore()), nil
}

func (s *Session) save(f sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
