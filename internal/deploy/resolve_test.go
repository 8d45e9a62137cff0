package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenDeployed    = w3.MustNewEvent("TokenDeployed(address indexed token, string name, string symbol)")
	tokenDeployedRaw = w3.MustNewEvent("TokenDeployed(address token, string name, string symbol)")
	transferEvent    = w3.MustNewEvent("Transfer(address indexed from, address indexed to, uint256 value)")
)

func receiptWith(logs ...*types.Log) *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash, Logs: logs}
}

func resolveWith(t *testing.T, f Factory, caller common.Address, r *types.Receipt) (Resolution, error) {
	t.Helper()
	return NewResolver(Strategies(f, caller, nil)...).Resolve(context.Background(), r)
}

// ---------------------------------------------------------------------------
// event strategy
// ---------------------------------------------------------------------------

func TestResolveIndexedEventTopic(t *testing.T) {
	r := receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)},
		Data:    addressWord(otherAddr),
	})
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
}

func TestResolveNonIndexedEventDataWord(t *testing.T) {
	data := append(addressWord(tokenAddr), make([]byte, 64)...)
	r := receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{tokenDeployedRaw.Topic0},
		Data:    data,
	})
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployedRaw}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
}

// A factory whose deployed event does not index the address still matches the
// configured topic0; the address is then the first head word of data.
func TestResolveIndexedEventEmittedUnindexed(t *testing.T) {
	data, err := tokenDeployedRaw.Args.Pack(tokenAddr, "My Token", "MTK")
	require.NoError(t, err)
	require.Equal(t, tokenDeployed.Topic0, tokenDeployedRaw.Topic0)

	r := receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{tokenDeployed.Topic0},
		Data:    data,
	})
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
}

func TestEventAddressDeclaredIndexedWithoutTopics(t *testing.T) {
	args := abi.Arguments{
		{Name: "creator", Type: mustType(t, "address"), Indexed: true},
		{Name: "token", Type: mustType(t, "address"), Indexed: true},
	}
	log := &types.Log{Topics: []common.Hash{{}}, Data: append(addressWord(tokenAddr), addressWord(otherAddr)...)}
	addr, ok := eventAddress(args, log)
	require.True(t, ok)
	assert.Equal(t, tokenAddr, addr, "first address argument")
}

func mustType(t *testing.T, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	require.NoError(t, err)
	return typ
}

func TestResolveEventIgnoresOtherEmitters(t *testing.T) {
	r := receiptWith(
		&types.Log{Address: otherAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(otherAddr)}},
		&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)}},
	)
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
}

func TestResolveEventTakesFirstMatch(t *testing.T) {
	r := receiptWith(
		&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)}},
		&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(otherAddr)}},
	)
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
}

// ---------------------------------------------------------------------------
// last factory log strategy
// ---------------------------------------------------------------------------

func TestResolveLastFactoryLogTrailingData(t *testing.T) {
	r := receiptWith(
		&types.Log{Address: factoryAddr, Topics: []common.Hash{transferEvent.Topic0}, Data: addressWord(otherAddr)},
		&types.Log{Address: factoryAddr, Topics: []common.Hash{common.HexToHash("0x1234")}, Data: append(make([]byte, 12), tokenAddr.Bytes()...)},
	)
	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyLastFactoryLog, res.Strategy)
}

func TestResolveLastFactoryLogPrefersTopic(t *testing.T) {
	r := receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{common.HexToHash("0x99"), addressTopic(tokenAddr)},
		Data:    addressWord(otherAddr),
	})
	res, err := resolveWith(t, Factory{Address: factoryAddr}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyLastFactoryLog, res.Strategy)
}

func TestResolveLastFactoryLogShortDataMisses(t *testing.T) {
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{common.HexToHash("0x99")}, Data: []byte{1, 2, 3}})
	_, err := resolveWith(t, Factory{Address: factoryAddr}, common.Address{}, r)
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

// ---------------------------------------------------------------------------
// contract address strategy
// ---------------------------------------------------------------------------

// countingStrategy records whether the resolver got past earlier strategies.
type countingStrategy struct{ calls int }

func (c *countingStrategy) strategy() Strategy {
	return Strategy{Name: "counting", Resolve: func(context.Context, *types.Receipt) (common.Address, bool) {
		c.calls++
		return otherAddr, true
	}}
}

func TestResolveContractAddressShortCircuits(t *testing.T) {
	counter := &countingStrategy{}
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(otherAddr)}})
	r.ContractAddress = tokenAddr

	res, err := NewResolver(FromContractAddress(), FromEvent(factoryAddr, tokenDeployed), counter.strategy()).
		Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyContractAddress, res.Strategy)
	assert.Zero(t, counter.calls)
}

// ---------------------------------------------------------------------------
// registry strategy
// ---------------------------------------------------------------------------

func TestResolveRegistryLastEntryByCaller(t *testing.T) {
	reg := &fakeRegistry{deployments: []Deployment{
		{Creator: walletAddr, Token: otherAddr},
		{Creator: walletAddr, Token: tokenAddr},
		{Creator: otherAddr, Token: common.HexToAddress("0x44")},
	}}
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(otherAddr)}})

	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}, Registry: reg}, walletAddr, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyRegistry, res.Strategy)
}

func TestResolveRegistryErrorFallsThrough(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("execution reverted")}
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)}})

	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}, Registry: reg}, walletAddr, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
	assert.Equal(t, 1, reg.calls)
}

func TestResolveRegistrySkippedWithoutCaller(t *testing.T) {
	reg := &fakeRegistry{deployments: []Deployment{{Creator: walletAddr, Token: otherAddr}}}
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)}})

	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}, Registry: reg}, common.Address{}, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Zero(t, reg.calls)
}

func TestResolveRegistryNoEntryForCaller(t *testing.T) {
	reg := &fakeRegistry{deployments: []Deployment{{Creator: otherAddr, Token: otherAddr}}}
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)}})

	res, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}, Registry: reg}, walletAddr, r)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, StrategyEvent, res.Strategy)
}

// ---------------------------------------------------------------------------
// unresolved & idempotence
// ---------------------------------------------------------------------------

func TestResolveNothingToFind(t *testing.T) {
	_, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, receiptWith())
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

func TestResolveNilReceipt(t *testing.T) {
	_, err := NewResolver(FromContractAddress()).Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

func TestResolveZeroAddressTopicIsMiss(t *testing.T) {
	r := receiptWith(&types.Log{Address: factoryAddr, Topics: []common.Hash{tokenDeployed.Topic0, {}}})
	_, err := resolveWith(t, Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, r)
	assert.ErrorIs(t, err, ErrAddressUnresolved)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)},
	})
	resolver := NewResolver(Strategies(Factory{Address: factoryAddr, Events: []*w3.Event{tokenDeployed}}, common.Address{}, nil)...)

	first, err := resolver.Resolve(context.Background(), r)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents("TokenDeployed(address indexed token, string name, string symbol)", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tokenDeployed.Topic0, events[0].Topic0)

	_, err = ParseEvents("TokenDeployed(address")
	assert.Error(t, err)
}
