package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Explorer builds block explorer links for an Etherscan-style site.
type Explorer struct {
	base string
}

// NewExplorer creates links rooted at base, e.g. https://sepolia.etherscan.io.
func NewExplorer(base string) Explorer {
	return Explorer{base: strings.TrimRight(base, "/")}
}

// Configured reports whether an explorer URL is set.
func (e Explorer) Configured() bool { return e.base != "" }

// TxURL links to a transaction page. Empty without a base URL.
func (e Explorer) TxURL(hash common.Hash) string {
	if e.base == "" {
		return ""
	}
	return e.base + "/tx/" + hash.Hex()
}

// AddressURL links to an address or contract page. Empty without a base URL.
func (e Explorer) AddressURL(addr common.Address) string {
	if e.base == "" {
		return ""
	}
	return e.base + "/address/" + addr.Hex()
}

// TokenURL links to a token page. Empty without a base URL.
func (e Explorer) TokenURL(addr common.Address) string {
	if e.base == "" {
		return ""
	}
	return e.base + "/token/" + addr.Hex()
}
