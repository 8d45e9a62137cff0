package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Probe is the result of one health check against the RPC endpoint.
type Probe struct {
	Name   string
	OK     bool
	Detail string
}

// Health is the state of an RPC endpoint as seen by a deployment.
type Health struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     *big.Int
	Probes      []Probe
}

// Healthy reports whether every probe passed.
func (h Health) Healthy() bool {
	for _, p := range h.Probes {
		if !p.OK {
			return false
		}
	}
	return true
}

// CheckHealth pings c, compares its chain ID with want (nil skips the
// comparison) and checks that each named contract has code. The probes run
// in parallel; their order in the result is fixed.
func CheckHealth(ctx context.Context, c *EVMClient, want *big.Int, contracts map[string]common.Address) Health {
	h := Health{URL: c.URL()}
	names := sortedKeys(contracts)
	h.Probes = make([]Probe, 2+len(names))

	var wg sync.WaitGroup
	wg.Add(2 + len(names))

	go func() {
		defer wg.Done()
		latency, block, err := c.Ping(ctx)
		h.Latency, h.BlockNumber = latency, block
		if err != nil {
			h.Probes[0] = Probe{Name: "rpc", Detail: err.Error()}
			return
		}
		h.Probes[0] = Probe{Name: "rpc", OK: true, Detail: fmt.Sprintf("block %d in %s", block, latency.Round(time.Millisecond))}
	}()

	go func() {
		defer wg.Done()
		id, err := c.ChainID(ctx)
		if err != nil {
			h.Probes[1] = Probe{Name: "chain id", Detail: err.Error()}
			return
		}
		h.ChainID = id
		if want != nil && id.Cmp(want) != 0 {
			h.Probes[1] = Probe{Name: "chain id", Detail: fmt.Sprintf("node reports %s, config says %s", id, want)}
			return
		}
		h.Probes[1] = Probe{Name: "chain id", OK: true, Detail: id.String()}
	}()

	for i, name := range names {
		go func(idx int, name string, addr common.Address) {
			defer wg.Done()
			p := Probe{Name: name}
			code, err := c.CodeAt(ctx, addr)
			switch {
			case err != nil:
				p.Detail = err.Error()
			case len(code) == 0:
				p.Detail = "no contract code at " + addr.Hex()
			default:
				p.OK = true
				p.Detail = fmt.Sprintf("%s (%d bytes)", addr.Hex(), len(code))
			}
			h.Probes[idx] = p
		}(2+i, name, contracts[name])
	}

	wg.Wait()
	return h
}

func sortedKeys(m map[string]common.Address) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
