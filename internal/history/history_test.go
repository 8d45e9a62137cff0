package history_test

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/history"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wallet = common.HexToAddress("0x11")
	token  = common.HexToAddress("0x22")
	hash   = common.HexToHash("0xabc")
)

func erc20Request() deploy.Request {
	return deploy.Request{Kind: deploy.KindERC20, Name: "Test Token", Symbol: "TTK", InitialSupply: big.NewInt(1000)}
}

func TestFromOutcomeResolved(t *testing.T) {
	out := &deploy.Outcome{
		AttemptID: "a-1",
		Kind:      deploy.KindERC20,
		State:     deploy.StateAddressResolved,
		TxHash:    hash,
		Address:   token,
		Strategy:  deploy.StrategyEvent,
	}
	e := history.FromOutcome(erc20Request(), out, nil, 11155111, wallet)

	assert.Equal(t, "a-1", e.AttemptID)
	assert.Equal(t, "erc20", e.Kind)
	assert.Equal(t, hash.Hex(), e.TxHash)
	assert.Equal(t, token.Hex(), e.Address)
	assert.Equal(t, deploy.StrategyEvent, e.Strategy)
	assert.Equal(t, wallet.Hex(), e.Wallet)
	assert.True(t, e.Resolved())
	assert.Empty(t, e.Error)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestFromOutcomeUnresolved(t *testing.T) {
	out := &deploy.Outcome{AttemptID: "a-2", State: deploy.StateAddressUnresolved, TxHash: hash}
	e := history.FromOutcome(erc20Request(), out, errors.New("address unresolved"), 1, wallet)
	assert.False(t, e.Resolved())
	assert.Empty(t, e.Address)
	assert.Equal(t, hash.Hex(), e.TxHash)
	assert.Equal(t, "address unresolved", e.Error)
}

func TestFromOutcomeNilOutcome(t *testing.T) {
	e := history.FromOutcome(erc20Request(), nil, errors.New("rejected"), 1, wallet)
	assert.Empty(t, e.TxHash)
	assert.Equal(t, "rejected", e.Error)
}

func TestRecordAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.json")
	log := history.NewLog(path)

	require.NoError(t, log.Record(&history.Entry{AttemptID: "first", TxHash: "0x01"}))
	require.NoError(t, log.Record(&history.Entry{AttemptID: "second", TxHash: "0x02"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := history.NewLog(path)
	require.NoError(t, reloaded.Load())
	all := reloaded.All(0)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].AttemptID, "newest first")
	assert.Equal(t, "first", all[1].AttemptID)
}

func TestAllLimit(t *testing.T) {
	log := history.NewLog(filepath.Join(t.TempDir(), "d.json"))
	for _, id := range []string{"a", "b", "c"} {
		log.Add(&history.Entry{AttemptID: id})
	}
	got := log.All(2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].AttemptID)
	assert.Equal(t, "b", got[1].AttemptID)
}

func TestLoadMissingFile(t *testing.T) {
	log := history.NewLog(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, log.Load())
	assert.Empty(t, log.All(0))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o600))
	assert.Error(t, history.NewLog(path).Load())
}

func TestFind(t *testing.T) {
	log := history.NewLog(filepath.Join(t.TempDir(), "d.json"))
	log.Add(&history.Entry{AttemptID: "a-1", TxHash: hash.Hex(), Address: token.Hex()})

	for _, ref := range []string{"a-1", hash.Hex(), token.Hex(), "0X0000000000000000000000000000000000000022"} {
		e, err := log.Find(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "a-1", e.AttemptID)
	}

	_, err := log.Find("missing")
	assert.ErrorIs(t, err, history.ErrEntryNotFound)
}
