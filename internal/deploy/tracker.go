package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome summarises one finished attempt.
type Outcome struct {
	AttemptID string
	Kind      Kind
	State     State
	TxHash    common.Hash
	Receipt   *types.Receipt
	Address   common.Address
	Strategy  string
	// MetadataURI is the base URI used for an NFT collection.
	MetadataURI string
	// Polls counts status queries made for a backend deployment.
	Polls int
}

// Tracker drives one deployment attempt at a time from submission to a
// resolved contract address.
type Tracker struct {
	cfg       Config
	session   Session
	submitter Submitter
	fetcher   ReceiptFetcher
	backend   Backend
	logger    *zap.SugaredLogger
	observer  func(Transition)
	onPoll    func(poll int, status string)
	now       func() time.Time

	mu    sync.Mutex
	state State
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBackend enables the asynchronous NFT deployment path.
func WithBackend(b Backend) Option {
	return func(t *Tracker) { t.backend = b }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithObserver registers a callback invoked synchronously on every
// transition.
func WithObserver(fn func(Transition)) Option {
	return func(t *Tracker) { t.observer = fn }
}

// WithPollHook registers a callback invoked after every backend status query
// while a deployment is pending.
func WithPollHook(fn func(poll int, status string)) Option {
	return func(t *Tracker) { t.onPoll = fn }
}

// NewTracker creates a Tracker.
func NewTracker(cfg Config, session Session, submitter Submitter, fetcher ReceiptFetcher, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:       cfg,
		session:   session,
		submitter: submitter,
		fetcher:   fetcher,
		logger:    zap.NewNop().Sugar(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Deploy submits req through the wallet, waits for the receipt and resolves
// the created contract's address.
//
// The returned Outcome is non-nil once a transaction hash exists. An
// unresolved address is reported as ErrAddressUnresolved alongside an
// Outcome in StateAddressUnresolved: the transaction itself succeeded.
func (t *Tracker) Deploy(ctx context.Context, req Request) (*Outcome, error) {
	a, err := t.begin(req)
	if err != nil {
		return nil, err
	}
	defer t.finish()

	factory, err := t.cfg.factory(req.Kind)
	if err != nil {
		return nil, a.fail(newError(ErrSubmissionRejected, err))
	}

	args, err := callArgs(req)
	if err != nil {
		return nil, a.fail(newError(ErrInvalidInput, err))
	}

	hash, err := t.submitter.Submit(ctx, WriteCall{
		Contract: factory.Address,
		ABI:      factory.ABI,
		Function: factory.Function,
		Args:     args,
	})
	if err != nil {
		return nil, a.fail(newError(ErrSubmissionRejected, err))
	}
	a.out.TxHash = hash
	a.move(StatePending)

	receipt, err := t.fetcher.WaitForReceipt(ctx, hash)
	if err != nil {
		return a.out, a.fail(newError(ErrReceiptError, err))
	}
	a.out.Receipt = receipt
	if receipt.Status != types.ReceiptStatusSuccessful {
		return a.out, a.fail(newError(ErrTransactionReverted, fmt.Errorf("tx %s", hash.Hex())))
	}
	a.move(StateConfirmed)

	caller := t.session.Address()
	res, err := NewResolver(Strategies(factory, caller, t.logger)...).Resolve(ctx, receipt)
	if err != nil {
		a.move(StateAddressUnresolved)
		t.logger.Warnw("contract address unresolved", "attempt", a.out.AttemptID, "tx", hash.Hex())
		return a.out, newError(ErrAddressUnresolved, fmt.Errorf("tx %s", hash.Hex()))
	}
	a.out.Address = res.Address
	a.out.Strategy = res.Strategy
	a.move(StateAddressResolved)
	t.logger.Infow("contract address resolved",
		"attempt", a.out.AttemptID, "address", res.Address.Hex(), "strategy", res.Strategy)
	return a.out, nil
}

func callArgs(req Request) ([]any, error) {
	switch req.Kind {
	case KindERC20:
		return []any{req.Name, req.Symbol, new(big.Int).Set(req.InitialSupply)}, nil
	case KindNFT:
		if req.BaseURI == "" {
			return nil, errors.New("base URI is required for a direct collection deployment")
		}
		return []any{req.Name, req.Symbol, req.BaseURI, big.NewInt(int64(req.Royalty()))}, nil
	}
	return nil, fmt.Errorf("unknown deployment kind %q", req.Kind)
}

// --- attempt bookkeeping ---

type attempt struct {
	t   *Tracker
	out *Outcome
}

// begin runs the local checks and claims the tracker for one attempt.
func (t *Tracker) begin(req Request) (*attempt, error) {
	t.mu.Lock()
	if t.state.Busy() {
		t.mu.Unlock()
		return nil, ErrAttemptInProgress
	}
	if t.session == nil || !t.session.Connected() {
		t.mu.Unlock()
		return nil, ErrWalletNotConnected
	}
	if err := req.Validate(); err != nil {
		t.mu.Unlock()
		return nil, newError(ErrInvalidInput, err)
	}
	t.state = StateSubmitting
	t.mu.Unlock()

	a := &attempt{t: t, out: &Outcome{AttemptID: uuid.NewString(), Kind: req.Kind, State: StateSubmitting}}
	t.publish(a, StateIdle, StateSubmitting, nil)
	return a, nil
}

func (t *Tracker) finish() {
	t.mu.Lock()
	t.state = StateIdle
	t.mu.Unlock()
}

func (a *attempt) move(to State) {
	a.t.mu.Lock()
	from := a.t.state
	if from == to {
		a.t.mu.Unlock()
		return
	}
	a.t.state = to
	a.t.mu.Unlock()
	a.out.State = to
	a.t.publish(a, from, to, nil)
}

func (a *attempt) fail(err error) error {
	a.t.mu.Lock()
	from := a.t.state
	a.t.state = StateFailed
	a.t.mu.Unlock()
	a.out.State = StateFailed
	a.t.publish(a, from, StateFailed, err)
	return err
}

func (t *Tracker) publish(a *attempt, from, to State, err error) {
	fields := []any{"attempt", a.out.AttemptID, "kind", a.out.Kind, "from", from.String(), "to", to.String()}
	if a.out.TxHash != (common.Hash{}) {
		fields = append(fields, "tx", a.out.TxHash.Hex())
	}
	if a.out.Polls > 0 {
		fields = append(fields, "poll", a.out.Polls)
	}
	if err != nil {
		t.logger.Warnw("deployment failed", append(fields, "error", err)...)
	} else {
		t.logger.Debugw("deployment transition", fields...)
	}
	if t.observer != nil {
		t.observer(Transition{
			AttemptID: a.out.AttemptID,
			Kind:      a.out.Kind,
			From:      from,
			To:        to,
			TxHash:    a.out.TxHash,
			Address:   a.out.Address,
			Poll:      a.out.Polls,
			Err:       err,
			At:        t.now(),
		})
	}
}
