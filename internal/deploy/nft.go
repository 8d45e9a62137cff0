package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/ethereum/go-ethereum/common"
)

// StrategyBackend marks addresses reported by the deployment service.
const StrategyBackend = "backend"

// DeployNFT deploys an NFT collection through the backend service. When
// req.MetadataPath is set, metadata is uploaded first and the returned URI
// becomes the collection's base URI. A pending deployment is polled until it
// settles or the attempt ceiling is reached.
func (t *Tracker) DeployNFT(ctx context.Context, req Request, metadata io.Reader) (*Outcome, error) {
	if req.Kind != KindNFT {
		return nil, newError(ErrInvalidInput, fmt.Errorf("%s request on the NFT path", req.Kind))
	}
	a, err := t.begin(req)
	if err != nil {
		return nil, err
	}
	defer t.finish()

	if t.backend == nil {
		return nil, a.fail(newError(ErrSubmissionRejected, errors.New("no deployment backend configured")))
	}

	baseURI := req.BaseURI
	if req.MetadataPath != "" {
		if metadata == nil {
			return nil, a.fail(newError(ErrInvalidInput, errors.New("metadata file is not readable")))
		}
		uri, err := t.backend.UploadMetadata(ctx, filepath.Base(req.MetadataPath), metadata, req.Name, req.Symbol)
		if err != nil {
			return nil, a.fail(newError(ErrUploadFailed, err))
		}
		baseURI = uri
	}
	a.out.MetadataURI = baseURI

	resp, err := t.backend.DeployNFT(ctx, backend.DeployRequest{
		Name:              req.Name,
		Symbol:            req.Symbol,
		BaseURI:           baseURI,
		RoyaltyPercentage: req.Royalty(),
		OwnerAddress:      t.session.Address().Hex(),
	})
	if err != nil {
		return nil, a.fail(newError(ErrSubmissionRejected, err))
	}
	if resp.TxHash != "" {
		a.out.TxHash = common.HexToHash(resp.TxHash)
	}

	switch resp.Status {
	case backend.StatusSuccess:
		a.move(StateConfirmed)
		return t.settle(a, resp.ContractAddress)

	case backend.StatusPending:
		if resp.TxHash == "" {
			return a.out, a.fail(newError(ErrDeploymentFailed, errors.New("pending deployment without a transaction hash")))
		}
		a.move(StatePending)
		poll := StartPoll(ctx, t.backend, resp.TxHash, PollConfig{
			Interval:    t.cfg.pollInterval(),
			MaxAttempts: t.cfg.pollAttempts(),
			Kind:        string(KindNFT),
			OnAttempt: func(n int, status string) {
				t.logger.Debugw("deployment status", "attempt", a.out.AttemptID, "poll", n, "status", status)
				if t.onPoll != nil {
					t.onPoll(n, status)
				}
			},
		})
		res, err := poll.Wait()
		a.out.Polls = res.Attempts
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = newError(ErrReceiptError, err)
			}
			return a.out, a.fail(err)
		}
		a.move(StateConfirmed)
		return t.settle(a, res.Address.Hex())

	case backend.StatusError:
		msg := resp.Error
		if msg == "" {
			msg = "failed to deploy NFT contract"
		}
		return a.out, a.fail(newError(ErrDeploymentFailed, errors.New(msg)))
	}
	return a.out, a.fail(newError(ErrDeploymentFailed, fmt.Errorf("unexpected status %q", resp.Status)))
}

func (t *Tracker) settle(a *attempt, address string) (*Outcome, error) {
	if common.IsHexAddress(address) {
		if addr := common.HexToAddress(address); addr != (common.Address{}) {
			a.out.Address = addr
			a.out.Strategy = StrategyBackend
			a.move(StateAddressResolved)
			t.logger.Infow("contract address resolved",
				"attempt", a.out.AttemptID, "address", addr.Hex(), "strategy", StrategyBackend)
			return a.out, nil
		}
	}
	a.move(StateAddressUnresolved)
	return a.out, newError(ErrAddressUnresolved, fmt.Errorf("backend reported no contract address for tx %s", a.out.TxHash.Hex()))
}
