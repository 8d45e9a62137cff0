package config

// Config holds all tokenfactory configuration.
type Config struct {
	RPCURL      string `json:"rpc_url"`
	ChainID     int64  `json:"chain_id"`
	ExplorerURL string `json:"explorer_url"`

	ERC20Factory     string `json:"erc20_factory"`
	NFTFactory       string `json:"nft_factory"`
	ERC20Event       string `json:"erc20_event"`
	NFTEvent         string `json:"nft_event"`
	RegistryFunction string `json:"registry_function"` // "" disables the registry lookup

	BackendURL     string `json:"backend_url"`
	PollInterval   int    `json:"poll_interval"`   // seconds
	PollAttempts   int    `json:"poll_attempts"`
	ReceiptTimeout int    `json:"receipt_timeout"` // seconds

	DefaultWallet string `json:"default_wallet"`
	LogLevel      string `json:"log_level"` // "debug" | "info" | "warn" | "error"

	// internal: config dir path used for Save()
	configDir string
}
