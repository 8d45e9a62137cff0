package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPoll() PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: 30, Kind: "nft"}
}

func TestPollSucceedsOnThirtiethAttempt(t *testing.T) {
	statuses := make([]*backend.StatusResponse, 0, 30)
	for i := 0; i < 29; i++ {
		statuses = append(statuses, pending())
	}
	statuses = append(statuses, succeeded(tokenAddr))
	src := &fakeStatus{statuses: statuses}

	res, err := StartPoll(context.Background(), src, "0xabc", fastPoll()).Wait()
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, res.Address)
	assert.Equal(t, 30, res.Attempts)
	assert.Equal(t, 30, src.Calls())
}

func TestPollTimesOutAtCeiling(t *testing.T) {
	src := &fakeStatus{statuses: []*backend.StatusResponse{pending()}}

	p := StartPoll(context.Background(), src, "0xabc", fastPoll())
	res, err := p.Wait()
	assert.ErrorIs(t, err, ErrPollingTimeout)
	assert.Equal(t, 30, res.Attempts)

	// The ticker is gone; nothing else may be queried.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 30, src.Calls())
}

func TestPollErrorStatusStops(t *testing.T) {
	src := &fakeStatus{statuses: []*backend.StatusResponse{
		pending(),
		{Status: backend.StatusError, Message: "Transaction successful but token address not found", HTTPStatus: 500},
	}}

	res, err := StartPoll(context.Background(), src, "0xabc", fastPoll()).Wait()
	assert.ErrorIs(t, err, ErrDeploymentFailed)
	assert.Equal(t, "Transaction successful but token address not found", Message(err))
	assert.Equal(t, 2, res.Attempts)
}

func TestPollSuccessOnNonOKResponseKeepsPolling(t *testing.T) {
	src := &fakeStatus{statuses: []*backend.StatusResponse{
		{Status: backend.StatusSuccess, HTTPStatus: 500},
		succeeded(tokenAddr),
	}}

	res, err := StartPoll(context.Background(), src, "0xabc", fastPoll()).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, tokenAddr, res.Address)
}

func TestPollTransportErrorSurfaces(t *testing.T) {
	src := &fakeStatus{err: errors.New("connection refused")}

	res, err := StartPoll(context.Background(), src, "0xabc", fastPoll()).Wait()
	assert.ErrorIs(t, err, ErrDeploymentFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, res.Attempts)
}

func TestPollCancel(t *testing.T) {
	src := &fakeStatus{statuses: []*backend.StatusResponse{pending()}}
	cfg := fastPoll()
	cfg.MaxAttempts = 1_000_000

	p := StartPoll(context.Background(), src, "0xabc", cfg)
	time.Sleep(5 * time.Millisecond)
	p.Cancel()

	select {
	case <-p.Done():
	default:
		t.Fatal("poll still running after Cancel")
	}
	_, err := p.Wait()
	assert.ErrorIs(t, err, context.Canceled)

	calls := src.Calls()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, src.Calls())

	p.Cancel()
}

func TestPollContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeStatus{statuses: []*backend.StatusResponse{pending()}}
	cfg := fastPoll()
	cfg.Interval = time.Hour

	p := StartPoll(ctx, src, "0xabc", cfg)
	cancel()
	_, err := p.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.Calls())
}

func TestPollOnAttempt(t *testing.T) {
	src := &fakeStatus{statuses: []*backend.StatusResponse{pending(), pending(), succeeded(tokenAddr)}}
	var seen []string
	cfg := fastPoll()
	cfg.OnAttempt = func(n int, status string) {
		seen = append(seen, status)
		assert.Equal(t, len(seen), n)
	}

	_, err := StartPoll(context.Background(), src, "0xabc", cfg).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"pending", "pending", "success"}, seen)
}

func TestPollDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := StartPoll(ctx, &fakeStatus{statuses: []*backend.StatusResponse{pending()}}, "0xabc", PollConfig{})
	_, err := p.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}
