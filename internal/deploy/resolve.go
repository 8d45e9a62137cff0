package deploy

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"go.uber.org/zap"
)

// Strategy names, in resolution order.
const (
	StrategyRegistry        = "registry"
	StrategyContractAddress = "contract-address"
	StrategyEvent           = "event"
	StrategyLastFactoryLog  = "last-factory-log"
)

// Strategy recovers a deployed contract address from a confirmed receipt.
// Resolve reports false when the strategy has nothing to offer.
type Strategy struct {
	Name    string
	Resolve func(ctx context.Context, receipt *types.Receipt) (common.Address, bool)
}

// Resolution is the address found and the strategy that found it.
type Resolution struct {
	Address  common.Address
	Strategy string
}

// Resolver applies strategies in order; the first hit wins.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a Resolver over the given strategies.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve runs the strategies against receipt. It returns ErrAddressUnresolved
// when none of them yields an address.
func (r *Resolver) Resolve(ctx context.Context, receipt *types.Receipt) (Resolution, error) {
	if receipt == nil {
		return Resolution{}, ErrAddressUnresolved
	}
	for _, s := range r.strategies {
		if addr, ok := s.Resolve(ctx, receipt); ok {
			return Resolution{Address: addr, Strategy: s.Name}, nil
		}
	}
	return Resolution{}, ErrAddressUnresolved
}

// Strategies returns the standard resolution order for a factory. caller is
// the connected wallet; the registry strategy is skipped when either it or
// the factory registry is missing.
func Strategies(f Factory, caller common.Address, logger *zap.SugaredLogger) []Strategy {
	var out []Strategy
	if f.Registry != nil && caller != (common.Address{}) {
		out = append(out, FromRegistry(f.Registry, caller, logger))
	}
	return append(out,
		FromContractAddress(),
		FromEvent(f.Address, f.Events...),
		FromLastFactoryLog(f.Address),
	)
}

// FromRegistry picks the most recent registry entry created by caller.
// Read errors fall through to the next strategy.
func FromRegistry(reader RegistryReader, caller common.Address, logger *zap.SugaredLogger) Strategy {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return Strategy{
		Name: StrategyRegistry,
		Resolve: func(ctx context.Context, _ *types.Receipt) (common.Address, bool) {
			deployments, err := reader.Deployments(ctx)
			if err != nil {
				logger.Warnw("registry read failed", "error", err)
				return common.Address{}, false
			}
			for i := len(deployments) - 1; i >= 0; i-- {
				d := deployments[i]
				if d.Creator == caller && d.Token != (common.Address{}) {
					return d.Token, true
				}
			}
			return common.Address{}, false
		},
	}
}

// FromContractAddress uses the receipt's contractAddress, set only for
// contract-creation transactions.
func FromContractAddress() Strategy {
	return Strategy{
		Name: StrategyContractAddress,
		Resolve: func(_ context.Context, receipt *types.Receipt) (common.Address, bool) {
			if receipt.ContractAddress == (common.Address{}) {
				return common.Address{}, false
			}
			return receipt.ContractAddress, true
		},
	}
}

// FromEvent finds the first log from factory whose topic0 matches one of
// events and reads the event's first address argument from it.
func FromEvent(factory common.Address, events ...*w3.Event) Strategy {
	return Strategy{
		Name: StrategyEvent,
		Resolve: func(_ context.Context, receipt *types.Receipt) (common.Address, bool) {
			for _, log := range receipt.Logs {
				if log == nil || log.Address != factory || len(log.Topics) == 0 {
					continue
				}
				for _, ev := range events {
					if ev == nil || log.Topics[0] != ev.Topic0 {
						continue
					}
					if addr, ok := eventAddress(ev.Args, log); ok {
						return addr, true
					}
				}
			}
			return common.Address{}, false
		},
	}
}

// FromLastFactoryLog is the salvage path for unknown or drifted event
// schemas: the last factory log, topics[1] first, else the trailing 20 bytes
// of its data.
func FromLastFactoryLog(factory common.Address) Strategy {
	return Strategy{
		Name: StrategyLastFactoryLog,
		Resolve: func(_ context.Context, receipt *types.Receipt) (common.Address, bool) {
			var last *types.Log
			for _, log := range receipt.Logs {
				if log != nil && log.Address == factory {
					last = log
				}
			}
			if last == nil {
				return common.Address{}, false
			}
			if len(last.Topics) > 1 {
				return nonZero(common.BytesToAddress(last.Topics[1].Bytes()))
			}
			if len(last.Data) >= common.AddressLength {
				return nonZero(common.BytesToAddress(last.Data[len(last.Data)-common.AddressLength:]))
			}
			return common.Address{}, false
		},
	}
}

// eventAddress locates the first address-typed argument of an event. Indexed
// arguments live in topics[1..]; the others occupy one head word each in data.
// A log carrying only topic0 has every argument in data, whatever the
// declared layout.
func eventAddress(args abi.Arguments, log *types.Log) (common.Address, bool) {
	allInData := len(log.Topics) == 1
	topic, word := 1, 0
	for _, arg := range args {
		indexed := arg.Indexed && !allInData
		if arg.Type.T == abi.AddressTy {
			if indexed {
				if topic >= len(log.Topics) {
					return common.Address{}, false
				}
				return nonZero(common.BytesToAddress(log.Topics[topic].Bytes()))
			}
			end := (word + 1) * 32
			if len(log.Data) < end {
				return common.Address{}, false
			}
			return nonZero(common.BytesToAddress(log.Data[end-common.AddressLength : end]))
		}
		if indexed {
			topic++
		} else {
			word++
		}
	}
	return common.Address{}, false
}

func nonZero(addr common.Address) (common.Address, bool) {
	return addr, addr != (common.Address{})
}
