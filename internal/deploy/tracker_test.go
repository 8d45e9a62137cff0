package deploy

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func erc20Config() Config {
	return Config{
		ERC20: Factory{
			Address:  factoryAddr,
			Function: "createToken",
			Events:   []*w3.Event{tokenDeployed},
		},
	}
}

func erc20Request(t *testing.T) Request {
	t.Helper()
	req, err := ParseERC20("My Token", "MTK", "1000")
	require.NoError(t, err)
	return req
}

type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) observe(tr Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.transitions))
	for _, tr := range r.transitions {
		out = append(out, tr.To)
	}
	return out
}

func resolvedReceipt() *types.Receipt {
	return receiptWith(&types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{tokenDeployed.Topic0, addressTopic(tokenAddr)},
	})
}

// ---------------------------------------------------------------------------
// happy path
// ---------------------------------------------------------------------------

func TestDeployResolvesAddress(t *testing.T) {
	rec := &recorder{}
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub,
		&fakeFetcher{receipt: resolvedReceipt()}, WithObserver(rec.observe))

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, out.Address)
	assert.Equal(t, StrategyEvent, out.Strategy)
	assert.Equal(t, txHash, out.TxHash)
	assert.Equal(t, StateAddressResolved, out.State)
	assert.NotEmpty(t, out.AttemptID)
	assert.Equal(t, StateIdle, tr.State())

	assert.Equal(t, []State{StateSubmitting, StatePending, StateConfirmed, StateAddressResolved}, rec.states())
}

func TestDeploySubmitsFactoryCall(t *testing.T) {
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub, &fakeFetcher{receipt: resolvedReceipt()})

	_, err := tr.Deploy(context.Background(), erc20Request(t))
	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	call := sub.calls[0]
	assert.Equal(t, factoryAddr, call.Contract)
	assert.Equal(t, "createToken", call.Function)
	require.Len(t, call.Args, 3)
	assert.Equal(t, "My Token", call.Args[0])
	assert.Equal(t, "MTK", call.Args[1])
	assert.Equal(t, 0, call.Args[2].(*big.Int).Cmp(big.NewInt(1000)))
}

func TestDeployReachesPending(t *testing.T) {
	rec := &recorder{}
	fetcher := &fakeFetcher{receipt: resolvedReceipt(), release: make(chan struct{}), entered: make(chan struct{})}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash}, fetcher,
		WithObserver(rec.observe))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tr.Deploy(context.Background(), erc20Request(t))
	}()

	<-fetcher.entered
	assert.Equal(t, StatePending, tr.State())
	assert.Equal(t, []State{StateSubmitting, StatePending}, rec.states())

	close(fetcher.release)
	<-done
}

// ---------------------------------------------------------------------------
// failures
// ---------------------------------------------------------------------------

func TestDeployWalletNotConnected(t *testing.T) {
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{}, sub, &fakeFetcher{})

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrWalletNotConnected)
	assert.Empty(t, sub.calls)
	assert.Equal(t, StateIdle, tr.State())
}

func TestDeployInvalidInputNeverSubmits(t *testing.T) {
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub, &fakeFetcher{})

	_, err := tr.Deploy(context.Background(), Request{Kind: KindERC20, Name: "x", Symbol: "X", InitialSupply: big.NewInt(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, sub.calls)
}

func TestDeploySubmissionRejected(t *testing.T) {
	rec := &recorder{}
	sub := &fakeSubmitter{err: errors.New("user rejected the request")}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub, &fakeFetcher{}, WithObserver(rec.observe))

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Contains(t, err.Error(), "user rejected the request")
	assert.Equal(t, []State{StateSubmitting, StateFailed}, rec.states())
	assert.Equal(t, StateIdle, tr.State())
}

func TestDeployUnconfiguredFactory(t *testing.T) {
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(Config{}, &fakeSession{addr: walletAddr}, sub, &fakeFetcher{})

	_, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Empty(t, sub.calls)
}

func TestDeployReverted(t *testing.T) {
	receipt := &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash}, &fakeFetcher{receipt: receipt})

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.ErrorIs(t, err, ErrTransactionReverted)
	require.NotNil(t, out)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, txHash, out.TxHash)
	assert.Equal(t, StateIdle, tr.State())
}

func TestDeployReceiptError(t *testing.T) {
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash},
		&fakeFetcher{err: errors.New("connection reset")})

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.ErrorIs(t, err, ErrReceiptError)
	assert.Contains(t, Message(err), "connection reset")
	require.NotNil(t, out)
	assert.Equal(t, StateFailed, out.State)
}

func TestDeployReceiptContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	fetcher := &fakeFetcher{release: make(chan struct{})}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash}, fetcher)

	_, err := tr.Deploy(ctx, erc20Request(t))
	assert.ErrorIs(t, err, ErrReceiptError)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeployAddressUnresolved(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash},
		&fakeFetcher{receipt: receiptWith()}, WithObserver(rec.observe))

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.ErrorIs(t, err, ErrAddressUnresolved)
	require.NotNil(t, out)
	assert.Equal(t, StateAddressUnresolved, out.State)
	assert.Equal(t, common.Address{}, out.Address)
	assert.Equal(t, []State{StateSubmitting, StatePending, StateConfirmed, StateAddressUnresolved}, rec.states())
}

func TestDeployAttemptInProgress(t *testing.T) {
	fetcher := &fakeFetcher{receipt: resolvedReceipt(), release: make(chan struct{}), entered: make(chan struct{})}
	sub := &fakeSubmitter{hash: txHash}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub, fetcher)

	done := make(chan error, 1)
	go func() {
		_, err := tr.Deploy(context.Background(), erc20Request(t))
		done <- err
	}()
	<-fetcher.entered

	_, err := tr.Deploy(context.Background(), erc20Request(t))
	assert.ErrorIs(t, err, ErrAttemptInProgress)
	assert.Len(t, sub.calls, 1)

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, tr.State())
}

func TestDeployAgainAfterFailure(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("nope")}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, sub, &fakeFetcher{receipt: resolvedReceipt()})

	_, err := tr.Deploy(context.Background(), erc20Request(t))
	require.Error(t, err)

	sub.err, sub.hash = nil, txHash
	out, err := tr.Deploy(context.Background(), erc20Request(t))
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, out.Address)
}

func TestDeployObserverSeesAttemptID(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(erc20Config(), &fakeSession{addr: walletAddr}, &fakeSubmitter{hash: txHash},
		&fakeFetcher{receipt: resolvedReceipt()}, WithObserver(rec.observe))

	out, err := tr.Deploy(context.Background(), erc20Request(t))
	require.NoError(t, err)
	for _, x := range rec.transitions {
		assert.Equal(t, out.AttemptID, x.AttemptID)
		assert.Equal(t, KindERC20, x.Kind)
	}
	last := rec.transitions[len(rec.transitions)-1]
	assert.Equal(t, tokenAddr, last.Address)
}

func TestDirectNFTCallArgs(t *testing.T) {
	cfg := Config{NFT: Factory{Address: factoryAddr, Function: "createNFT"}}
	sub := &fakeSubmitter{hash: txHash}
	receipt := receiptWith()
	receipt.ContractAddress = tokenAddr
	tr := NewTracker(cfg, &fakeSession{addr: walletAddr}, sub, &fakeFetcher{receipt: receipt})

	req, err := ParseNFT("Apes", "APE", "ipfs://base/", "", "7")
	require.NoError(t, err)
	out, err := tr.Deploy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StrategyContractAddress, out.Strategy)

	require.Len(t, sub.calls, 1)
	args := sub.calls[0].Args
	require.Len(t, args, 4)
	assert.Equal(t, "ipfs://base/", args[2])
	assert.Equal(t, int64(7), args[3].(*big.Int).Int64())
}
