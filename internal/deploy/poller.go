package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/ethereum/go-ethereum/common"
)

// PollConfig tunes a status poll.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Kind is passed to the status endpoint as ?type=.
	Kind string
	// OnAttempt, if set, is called from the polling goroutine after every
	// status response.
	OnAttempt func(attempt int, status string)
}

// PollResult is the final state of a successful poll.
type PollResult struct {
	Address  common.Address
	Attempts int
}

// Poll is a running status poll. It owns its ticker and attempt counter;
// the ticker stops on every exit path.
type Poll struct {
	cancel context.CancelFunc
	done   chan struct{}

	res PollResult
	err error
}

// StartPoll queries src for hash every cfg.Interval until the deployment
// succeeds, fails, or cfg.MaxAttempts queries came back pending.
func StartPoll(ctx context.Context, src StatusSource, hash string, cfg PollConfig) *Poll {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollAttempts
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Poll{cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, src, hash, cfg)
	return p
}

// Cancel stops the poll and waits for its goroutine to exit. Safe to call
// more than once and after the poll finished.
func (p *Poll) Cancel() {
	p.cancel()
	<-p.done
}

// Done is closed once the poll has stopped.
func (p *Poll) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the poll stops and returns its result.
func (p *Poll) Wait() (PollResult, error) {
	<-p.done
	return p.res, p.err
}

func (p *Poll) run(ctx context.Context, src StatusSource, hash string, cfg PollConfig) {
	defer close(p.done)
	defer p.cancel()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.err = ctx.Err()
			return
		case <-ticker.C:
		}

		p.res.Attempts++
		st, err := src.TransactionStatus(ctx, hash, cfg.Kind)
		if err != nil {
			if ctx.Err() != nil {
				p.err = ctx.Err()
				return
			}
			p.err = newError(ErrDeploymentFailed, err)
			return
		}
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(p.res.Attempts, st.Status)
		}

		switch {
		case st.OK() && st.Status == backend.StatusSuccess:
			if common.IsHexAddress(st.ContractAddress) {
				p.res.Address = common.HexToAddress(st.ContractAddress)
			}
			return
		case st.Status == backend.StatusError:
			msg := st.Message
			if msg == "" {
				msg = "error processing transaction"
			}
			p.err = newError(ErrDeploymentFailed, errors.New(msg))
			return
		}

		if p.res.Attempts >= cfg.MaxAttempts {
			p.err = newError(ErrPollingTimeout, fmt.Errorf("still pending after %d attempts", p.res.Attempts))
			return
		}
	}
}
