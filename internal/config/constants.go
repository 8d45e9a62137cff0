package config

import "time"

// Defaults for a fresh config.
const (
	DefaultRPCURL         = "https://ethereum-sepolia-rpc.publicnode.com"
	DefaultChainID        = 11155111
	DefaultExplorerURL    = "https://sepolia.etherscan.io"
	DefaultERC20Factory   = "0x981A4465A74D467dDd3F28308B255de98F157d72"
	DefaultERC20Event     = "TokenDeployed(address indexed token, string name, string symbol)"
	DefaultNFTEvent       = "NFTDeployed(address indexed nft, string name, string symbol)"
	DefaultRegistry       = "getDeployedTokens"
	DefaultBackendURL     = "http://localhost:8000"
	DefaultPollInterval   = 3
	DefaultPollAttempts   = 30
	DefaultReceiptTimeout = 300
	DefaultLogLevel       = "warn"
)

// Timeouts used by cmd.
const (
	RPCTimeout     = 15 * time.Second // single read-only RPC round trip
	SubmitTimeout  = 2 * time.Minute  // signing + broadcast, including wallet prompts
	UploadTimeout  = time.Minute      // metadata upload to the backend
	ConnectTimeout = 10 * time.Second
)
