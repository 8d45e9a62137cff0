package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Fees are the EIP-1559 caps for a new transaction.
type Fees struct {
	TipCap *big.Int
	FeeCap *big.Int
	// BaseFee is nil on chains without EIP-1559.
	BaseFee *big.Int
}

// BaseFee returns the base fee of the latest block, or nil when the chain
// does not report one.
func (c *EVMClient) BaseFee(ctx context.Context) (*big.Int, error) {
	var header *struct {
		BaseFeePerGas *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &header, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if header == nil || header.BaseFeePerGas == nil {
		return nil, nil
	}
	return header.BaseFeePerGas.ToInt(), nil
}

// SuggestFees prices a transaction from eth_gasPrice: the gas price is the
// tip, and the fee cap is twice the base fee plus the tip. Without a base fee
// the cap falls back to twice the gas price.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	fees := &Fees{TipCap: gp, FeeCap: new(big.Int).Mul(gp, big.NewInt(2))}

	// A missing header only loses the tighter cap.
	if bf, err := c.BaseFee(ctx); err == nil && bf != nil {
		fees.BaseFee = bf
		fees.FeeCap = new(big.Int).Add(new(big.Int).Mul(bf, big.NewInt(2)), gp)
	}
	return fees, nil
}

// WeiToGwei converts a Wei value to Gwei as float64.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}

var eth1 = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// WeiToETH converts a wei amount to an ETH decimal string.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, eth1)
	return f.Text('f', 18)
}
