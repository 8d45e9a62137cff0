package deploy

import (
	"context"
	"io"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WriteCall describes a state-changing contract call.
type WriteCall struct {
	Contract common.Address
	ABI      abi.ABI
	Function string
	Args     []any
}

// Submitter signs and broadcasts a contract write, returning the transaction
// hash as soon as the node accepted it.
type Submitter interface {
	Submit(ctx context.Context, call WriteCall) (common.Hash, error)
}

// ReceiptFetcher blocks until the transaction is mined or ctx ends. A
// reverted transaction is returned as a receipt, not an error.
type ReceiptFetcher interface {
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Deployment is one entry of a factory's on-chain registry.
type Deployment struct {
	Creator common.Address
	Token   common.Address
}

// RegistryReader lists every contract a factory has created, oldest first.
type RegistryReader interface {
	Deployments(ctx context.Context) ([]Deployment, error)
}

// Session is the connected wallet.
type Session interface {
	Connected() bool
	Address() common.Address
}

// Backend is the asynchronous NFT deployment service.
type Backend interface {
	StatusSource
	UploadMetadata(ctx context.Context, filename string, content io.Reader, name, symbol string) (string, error)
	DeployNFT(ctx context.Context, req backend.DeployRequest) (*backend.DeployResponse, error)
}

// StatusSource answers transaction status queries for the poller.
type StatusSource interface {
	TransactionStatus(ctx context.Context, hash, kind string) (*backend.StatusResponse, error)
}
