package wallet_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/tokenfactory/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) (*wallet.Session, *wallet.Manager, string) {
	t.Helper()
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := wallet.OpenSession(path, mgr)
	require.NoError(t, err)
	return s, mgr, path
}

func TestSessionStartsDisconnected(t *testing.T) {
	s, _, _ := newSession(t)
	assert.False(t, s.Connected())
	assert.Equal(t, common.Address{}, s.Address())
	_, err := s.Signer()
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestSessionConnectPersists(t *testing.T) {
	s, mgr, path := newSession(t)
	_, err := mgr.AddWithKey("main", key0)
	require.NoError(t, err)

	require.NoError(t, s.Connect("main"))
	assert.True(t, s.Connected())
	assert.Equal(t, common.HexToAddress(addr0), s.Address())

	reopened, err := wallet.OpenSession(path, mgr)
	require.NoError(t, err)
	assert.True(t, reopened.Connected())
	assert.Equal(t, "main", reopened.Wallet().Name)
}

func TestSessionConnectWatchOnlyFails(t *testing.T) {
	s, mgr, _ := newSession(t)
	_, err := mgr.AddWatchOnly("watch", addr1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Connect("watch"), wallet.ErrWatchOnly)
	assert.False(t, s.Connected())
}

func TestSessionConnectUnknownWallet(t *testing.T) {
	s, _, _ := newSession(t)
	assert.ErrorIs(t, s.Connect("ghost"), wallet.ErrWalletNotFound)
}

func TestSessionConnectRejectsForeignKey(t *testing.T) {
	s, mgr, _ := newSession(t)
	ref, err := mgr.Keystore().Store("foreign", key1)
	require.NoError(t, err)
	require.NoError(t, mgr.Add("main", &wallet.Wallet{Name: "main", Address: addr0, Type: wallet.TypeSigning, KeyRef: ref}))

	assert.Error(t, s.Connect("main"))
	assert.False(t, s.Connected())
}

func TestSessionDisconnect(t *testing.T) {
	s, mgr, path := newSession(t)
	_, err := mgr.AddWithKey("main", key0)
	require.NoError(t, err)
	require.NoError(t, s.Connect("main"))

	require.NoError(t, s.Disconnect())
	assert.False(t, s.Connected())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Disconnect(), "disconnecting twice is fine")
}

func TestSessionForgetsRemovedWallet(t *testing.T) {
	s, mgr, path := newSession(t)
	_, err := mgr.AddWithKey("main", key0)
	require.NoError(t, err)
	require.NoError(t, s.Connect("main"))
	require.NoError(t, mgr.Remove("main"))

	reopened, err := wallet.OpenSession(path, mgr)
	require.NoError(t, err)
	assert.False(t, reopened.Connected())
}

func TestSessionSignerSignsTx(t *testing.T) {
	s, mgr, _ := newSession(t)
	_, err := mgr.AddWithKey("main", key0)
	require.NoError(t, err)
	require.NoError(t, s.Connect("main"))

	signer, err := s.Signer()
	require.NoError(t, err)

	to := common.HexToAddress(addr1)
	chainID := big.NewInt(11155111)
	tx := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 3, Gas: 21000, To: &to, Value: big.NewInt(1)})
	signed, err := signer.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.NewLondonSigner(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr0), from)
}
