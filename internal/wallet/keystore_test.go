package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// The file backend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "tokenfactory-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: keyring.FixedStringPrompt("testpass"),
	})
	require.NoError(t, err)
	return &Keystore{ring: ring}
}

func TestKeystoreStoreRetrieveDelete(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("main", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "tokenfactory.main", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)
	assert.NoError(t, ks.Delete(ref), "deleting a missing key is not an error")
}

func TestManagerWithFileKeystore(t *testing.T) {
	mgr := NewManager(WithInMemoryStore(), WithKeystore(testKeystore(t)))
	w, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, w.Address)

	sig, err := SignMessage(w, mgr.Keystore(), []byte("ping"))
	require.NoError(t, err)
	addr, err := VerifyMessage([]byte("ping"), sig)
	require.NoError(t, err)
	assert.Equal(t, w.Addr(), addr)
}
