package contract

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller executes read-only calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// FactoryReader reads a factory's on-chain registry of (creator, contract)
// pairs.
type FactoryReader struct {
	caller   Caller
	factory  common.Address
	abi      abi.ABI
	function string
}

// NewFactoryReader creates a reader for function on factory.
func NewFactoryReader(caller Caller, factory common.Address, parsed abi.ABI, function string) *FactoryReader {
	return &FactoryReader{caller: caller, factory: factory, abi: parsed, function: function}
}

// Deployments returns every registry entry, oldest first.
func (r *FactoryReader) Deployments(ctx context.Context) ([]deploy.Deployment, error) {
	data, err := r.abi.Pack(r.function)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", r.function, err)
	}
	to := r.factory
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", r.function, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no data; is %s a factory?", r.function, r.factory.Hex())
	}
	values, err := r.abi.Unpack(r.function, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.function, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: expected 1 return value, got %d", r.function, len(values))
	}
	return deploymentsOf(values[0])
}

// deploymentsOf reads a decoded tuple(address,address)[] positionally, so the
// component names of the registry tuple do not matter.
func deploymentsOf(v any) ([]deploy.Deployment, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("registry: expected a list, got %T", v)
	}
	addrType := reflect.TypeOf(common.Address{})
	out := make([]deploy.Deployment, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i)
		if el.Kind() != reflect.Struct || el.NumField() < 2 ||
			el.Field(0).Type() != addrType || el.Field(1).Type() != addrType {
			return nil, fmt.Errorf("registry: entry %d is not (address,address)", i)
		}
		out = append(out, deploy.Deployment{
			Creator: el.Field(0).Interface().(common.Address),
			Token:   el.Field(1).Interface().(common.Address),
		})
	}
	return out, nil
}
