package deploy

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

// Polling defaults for backend deployments: every 3 s, at most 30 times.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollAttempts = 30
)

// Factory describes one factory contract and how its deployments are
// recognised on chain.
type Factory struct {
	Address  common.Address
	ABI      abi.ABI
	Function string
	// Events are the deployment events the factory is known to emit.
	Events []*w3.Event
	// Registry is optional; nil skips the registry strategy.
	Registry RegistryReader
}

// Configured reports whether the factory has an address.
func (f Factory) Configured() bool {
	return f.Address != (common.Address{})
}

// Config is injected into the tracker.
type Config struct {
	ERC20        Factory
	NFT          Factory
	PollInterval time.Duration
	PollAttempts int
}

func (c Config) factory(k Kind) (Factory, error) {
	var f Factory
	switch k {
	case KindERC20:
		f = c.ERC20
	case KindNFT:
		f = c.NFT
	default:
		return Factory{}, fmt.Errorf("unknown deployment kind %q", k)
	}
	if !f.Configured() {
		return Factory{}, fmt.Errorf("no %s factory address configured", k)
	}
	return f, nil
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

func (c Config) pollAttempts() int {
	if c.PollAttempts <= 0 {
		return DefaultPollAttempts
	}
	return c.PollAttempts
}

// ParseEvents parses human-readable event signatures such as
// "TokenDeployed(address indexed token, string name, string symbol)".
func ParseEvents(signatures ...string) ([]*w3.Event, error) {
	events := make([]*w3.Event, 0, len(signatures))
	for _, sig := range signatures {
		if sig == "" {
			continue
		}
		ev, err := w3.NewEvent(sig)
		if err != nil {
			return nil, fmt.Errorf("parsing event %q: %w", sig, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
