package deploy

import (
	"context"
	"io"
	"sync"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	factoryAddr = common.HexToAddress("0x981A4465A74D467dDd3F28308B255de98F157d72")
	walletAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	otherAddr   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	txHash      = common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
)

type fakeSession struct {
	addr common.Address
}

func (s *fakeSession) Connected() bool          { return s.addr != (common.Address{}) }
func (s *fakeSession) Address() common.Address { return s.addr }

type fakeSubmitter struct {
	hash  common.Hash
	err   error
	calls []WriteCall
}

func (f *fakeSubmitter) Submit(_ context.Context, call WriteCall) (common.Hash, error) {
	f.calls = append(f.calls, call)
	return f.hash, f.err
}

// fakeFetcher returns receipt, or blocks until release is closed when set.
type fakeFetcher struct {
	receipt *types.Receipt
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) WaitForReceipt(ctx context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.receipt, f.err
}

type fakeRegistry struct {
	deployments []Deployment
	err         error
	calls       int
}

func (f *fakeRegistry) Deployments(context.Context) ([]Deployment, error) {
	f.calls++
	return f.deployments, f.err
}

// fakeStatus replays statuses in order; the last one repeats.
type fakeStatus struct {
	mu       sync.Mutex
	statuses []*backend.StatusResponse
	err      error
	calls    int
}

func (f *fakeStatus) TransactionStatus(context.Context, string, string) (*backend.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeStatus) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBackend struct {
	*fakeStatus

	uploadURI string
	uploadErr error
	uploaded  string

	deployResp *backend.DeployResponse
	deployErr  error
	deployed   []backend.DeployRequest
}

func (f *fakeBackend) UploadMetadata(_ context.Context, filename string, content io.Reader, _, _ string) (string, error) {
	data, _ := io.ReadAll(content)
	f.uploaded = filename + ":" + string(data)
	return f.uploadURI, f.uploadErr
}

func (f *fakeBackend) DeployNFT(_ context.Context, req backend.DeployRequest) (*backend.DeployResponse, error) {
	f.deployed = append(f.deployed, req)
	return f.deployResp, f.deployErr
}

func pending() *backend.StatusResponse {
	return &backend.StatusResponse{Status: backend.StatusPending, HTTPStatus: 202}
}

func succeeded(addr common.Address) *backend.StatusResponse {
	return &backend.StatusResponse{Status: backend.StatusSuccess, ContractAddress: addr.Hex(), HTTPStatus: 200}
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(a.Bytes(), 32))
}

func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
