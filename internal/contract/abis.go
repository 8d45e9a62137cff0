package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BuiltinKind describes a factory contract whose ABI is embedded in the
// binary. Each factory registers itself via init() in its own
// <name>_abi.go file.
type BuiltinKind struct {
	ID          string // machine key, e.g. "erc20-factory"
	Name        string // human label
	Description string
	ABI         abi.ABI
	// Create is the function that deploys a new contract.
	Create string
	// Event is the canonical deployment event signature.
	Event string
	// Registry lists every deployment as (creator, token) pairs. Empty when
	// the factory keeps no registry.
	Registry string
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin adds a built-in factory. Call this from init().
func RegisterBuiltin(b BuiltinKind) {
	builtinRegistry[b.ID] = b
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ParseABI parses a JSON ABI.
func ParseABI(jsonABI string) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(jsonABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing ABI: %w", err)
	}
	return parsed, nil
}

func mustParseABI(jsonABI string) abi.ABI {
	parsed, err := ParseABI(jsonABI)
	if err != nil {
		panic(err)
	}
	return parsed
}
