package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/tokenfactory/internal/chain"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FallbackGasLimit is used when the node cannot estimate a call that is not
// known to revert.
const FallbackGasLimit = 3_000_000

// Client is the subset of the JSON-RPC client a Sender needs.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, address common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestFees(ctx context.Context) (*chain.Fees, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Sender sends write transactions to contracts.
type Sender struct {
	client Client
	signer TxSigner
	// chainID is resolved from the node on first use when nil.
	chainID *big.Int
}

// NewSender creates a Sender. A nil chainID is read from the node.
func NewSender(client Client, signer TxSigner, chainID *big.Int) *Sender {
	return &Sender{client: client, signer: signer, chainID: chainID}
}

// Submit ABI-encodes call, signs it as an EIP-1559 transaction and broadcasts
// it. Returns the transaction hash.
func (s *Sender) Submit(ctx context.Context, call deploy.WriteCall) (common.Hash, error) {
	data, err := call.ABI.Pack(call.Function, call.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding %s: %w", call.Function, err)
	}

	from := s.signer.Address()
	to := call.Contract

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	switch {
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "revert"):
		return common.Hash{}, fmt.Errorf("estimating gas: %w", err)
	case err != nil:
		gas = FallbackGasLimit
	default:
		gas = gas * 120 / 100
	}

	fees, err := s.client.SuggestFees(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting gas price: %w", err)
	}

	nonce, err := s.client.PendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting nonce: %w", err)
	}

	chainID := s.chainID
	if chainID == nil {
		if chainID, err = s.client.ChainID(ctx); err != nil {
			return common.Hash{}, fmt.Errorf("getting chain id: %w", err)
		}
		s.chainID = chainID
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: fees.TipCap,
		GasFeeCap: fees.FeeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	})

	signed, err := s.signer.SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing: %w", err)
	}

	hash, err := s.client.SendTransaction(ctx, signed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sending: %w", err)
	}
	return hash, nil
}
