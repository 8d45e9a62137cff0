package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
	"github.com/joho/godotenv"
)

const (
	configFile   = "config.json"
	walletsFile  = "wallets.json"
	sessionFile  = "session.json"
	historyFile  = "deployments.json"
	dotEnvFile   = ".env"
	envConfigDir = "TOKENFACTORY_CONFIG_DIR"
)

// Environment overrides, applied on top of config.json.
const (
	EnvRPCURL       = "TOKENFACTORY_RPC_URL"
	EnvBackendURL   = "TOKENFACTORY_BACKEND_URL"
	EnvERC20Factory = "TOKENFACTORY_ERC20_FACTORY"
	EnvNFTFactory   = "TOKENFACTORY_NFT_FACTORY"
	EnvLogLevel     = "TOKENFACTORY_LOG_LEVEL"
)

// ErrUnknownKey is returned by Set and Get for keys outside Keys().
var ErrUnknownKey = errors.New("unknown config key")

// EnvSource looks up environment variables.
type EnvSource interface {
	Lookup(key string) (string, bool)
}

// EnvMap is an EnvSource backed by a map.
type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// FromEnviron returns the process environment layered over the variables in
// dotenv (if the file exists). Real environment variables win.
func FromEnviron(dotenv string) (EnvSource, error) {
	env := make(EnvMap)
	if dotenv != "" {
		vars, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", dotenv, err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	for _, entry := range os.Environ() {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			env[k] = v
		}
	}
	return env, nil
}

// DefaultDir resolves the config directory: $TOKENFACTORY_CONFIG_DIR, else
// ~/.tokenfactory.
func DefaultDir(env EnvSource) (string, error) {
	if env != nil {
		if dir, ok := env.Lookup(envConfigDir); ok && dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".tokenfactory"), nil
}

// Load reads config from dir (or creates defaults) and applies env overrides.
// A nil env skips overrides.
func Load(dir string, env EnvSource) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir(env)
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.configDir = dir

	if env != nil {
		cfg.applyEnv(env)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is the wallet index file.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// SessionPath is the connected-wallet session file.
func (c *Config) SessionPath() string { return filepath.Join(c.configDir, sessionFile) }

// HistoryPath is the deployment log.
func (c *Config) HistoryPath() string { return filepath.Join(c.configDir, historyFile) }

// PollEvery is the backend status poll interval.
func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// ReceiptWait bounds how long a deployment waits to be mined.
func (c *Config) ReceiptWait() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RPCURL, validation.Required, is.URL),
		validation.Field(&c.ChainID, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.ExplorerURL, is.URL),
		validation.Field(&c.ERC20Factory, validation.By(hexAddress)),
		validation.Field(&c.NFTFactory, validation.By(hexAddress)),
		validation.Field(&c.BackendURL, is.URL),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(1)),
		validation.Field(&c.PollAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.ReceiptTimeout, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// Keys lists every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses value into key and validates the result. c is left unchanged
// on error.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := *c
	if err := f.set(&next, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCURL:           DefaultRPCURL,
		ChainID:          DefaultChainID,
		ExplorerURL:      DefaultExplorerURL,
		ERC20Factory:     DefaultERC20Factory,
		ERC20Event:       DefaultERC20Event,
		NFTEvent:         DefaultNFTEvent,
		RegistryFunction: DefaultRegistry,
		BackendURL:       DefaultBackendURL,
		PollInterval:     DefaultPollInterval,
		PollAttempts:     DefaultPollAttempts,
		ReceiptTimeout:   DefaultReceiptTimeout,
		LogLevel:         DefaultLogLevel,
		configDir:        dir,
	}
}

func (c *Config) applyEnv(env EnvSource) {
	overrides := map[string]*string{
		EnvRPCURL:       &c.RPCURL,
		EnvBackendURL:   &c.BackendURL,
		EnvERC20Factory: &c.ERC20Factory,
		EnvNFTFactory:   &c.NFTFactory,
		EnvLogLevel:     &c.LogLevel,
	}
	for key, dst := range overrides {
		if v, ok := env.Lookup(key); ok && v != "" {
			*dst = v
		}
	}
}

func hexAddress(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !common.IsHexAddress(s) {
		return errors.New("must be a 0x-prefixed 20-byte hex address")
	}
	return nil
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

var fields = map[string]field{
	"rpc_url":      stringField(func(c *Config) *string { return &c.RPCURL }),
	"explorer_url": stringField(func(c *Config) *string { return &c.ExplorerURL }),
	"chain_id": {
		get: func(c *Config) string { return strconv.FormatInt(c.ChainID, 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", v)
			}
			c.ChainID = n
			return nil
		},
	},
	"erc20_factory":     stringField(func(c *Config) *string { return &c.ERC20Factory }),
	"nft_factory":       stringField(func(c *Config) *string { return &c.NFTFactory }),
	"erc20_event":       stringField(func(c *Config) *string { return &c.ERC20Event }),
	"nft_event":         stringField(func(c *Config) *string { return &c.NFTEvent }),
	"registry_function": stringField(func(c *Config) *string { return &c.RegistryFunction }),
	"backend_url":       stringField(func(c *Config) *string { return &c.BackendURL }),
	"poll_interval":     intField(func(c *Config) *int { return &c.PollInterval }),
	"poll_attempts":     intField(func(c *Config) *int { return &c.PollAttempts }),
	"receipt_timeout":   intField(func(c *Config) *int { return &c.ReceiptTimeout }),
	"default_wallet":    stringField(func(c *Config) *string { return &c.DefaultWallet }),
	"log_level":         stringField(func(c *Config) *string { return &c.LogLevel }),
}
