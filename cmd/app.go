package cmd

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tokenfactory/internal/backend"
	"github.com/Mohsinsiddi/tokenfactory/internal/chain"
	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/contract"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/Mohsinsiddi/tokenfactory/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// openKeystore is swapped in tests.
var openKeystore = func(dir string) wallet.KeyStore {
	return wallet.OpenKeystore(dir)
}

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(openKeystore(cfg.Dir())),
	)
}

func openSession(mgr *wallet.Manager) (*wallet.Session, error) {
	s, err := wallet.OpenSession(cfg.SessionPath(), mgr)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return s, nil
}

func newEVMClient() *chain.EVMClient {
	return chain.NewEVMClient(cfg.RPCURL)
}

func newBackendClient() *backend.Client {
	return backend.NewClient(cfg.BackendURL)
}

// factoryFor builds the deploy.Factory of one kind from the config and the
// embedded ABI. reader may be nil to skip the registry lookup.
func factoryFor(c *config.Config, kind deploy.Kind, reader contract.Caller) (deploy.Factory, error) {
	var (
		id, address, event string
	)
	switch kind {
	case deploy.KindERC20:
		id, address, event = contract.ERC20Factory, c.ERC20Factory, c.ERC20Event
	case deploy.KindNFT:
		id, address, event = contract.ERC721Factory, c.NFTFactory, c.NFTEvent
	default:
		return deploy.Factory{}, fmt.Errorf("unknown deployment kind %q", kind)
	}
	b, ok := contract.GetBuiltin(id)
	if !ok {
		return deploy.Factory{}, fmt.Errorf("no built-in ABI for %s", id)
	}
	if event == "" {
		event = b.Event
	}
	events, err := deploy.ParseEvents(event)
	if err != nil {
		return deploy.Factory{}, err
	}

	f := deploy.Factory{ABI: b.ABI, Function: b.Create, Events: events}
	if address != "" {
		f.Address = common.HexToAddress(address)
	}

	// registry_function names the ERC20 registry; the NFT factory's is fixed.
	registry := c.RegistryFunction
	if kind == deploy.KindNFT && registry != "" {
		registry = b.Registry
	}
	if reader != nil && registry != "" && f.Configured() {
		if _, ok := b.ABI.Methods[registry]; !ok {
			return deploy.Factory{}, fmt.Errorf("registry_function %q is not in the %s ABI", registry, b.Name)
		}
		f.Registry = contract.NewFactoryReader(reader, f.Address, b.ABI, registry)
	}
	return f, nil
}

// deployConfig assembles the tracker configuration.
func deployConfig(c *config.Config, reader contract.Caller) (deploy.Config, error) {
	erc20, err := factoryFor(c, deploy.KindERC20, reader)
	if err != nil {
		return deploy.Config{}, err
	}
	nft, err := factoryFor(c, deploy.KindNFT, reader)
	if err != nil {
		return deploy.Config{}, err
	}
	return deploy.Config{
		ERC20:        erc20,
		NFT:          nft,
		PollInterval: c.PollEvery(),
		PollAttempts: c.PollAttempts,
	}, nil
}

// submitterFor returns the transaction sender of a connected session.
func submitterFor(s *wallet.Session, client *chain.EVMClient) (deploy.Submitter, error) {
	if !s.Connected() {
		return nil, deploy.ErrWalletNotConnected
	}
	signer, err := s.Signer()
	if err != nil {
		return nil, err
	}
	return contract.NewSender(client, signer, big.NewInt(cfg.ChainID)), nil
}

func explorer() chain.Explorer {
	return chain.NewExplorer(cfg.ExplorerURL)
}

// errLine renders an error for the terminal: deployment errors get their
// user-facing message, everything else prints as is.
func errLine(err error) string {
	for _, kind := range []error{
		deploy.ErrWalletNotConnected, deploy.ErrInvalidInput, deploy.ErrSubmissionRejected,
		deploy.ErrReceiptError, deploy.ErrTransactionReverted, deploy.ErrAddressUnresolved,
		deploy.ErrUploadFailed, deploy.ErrDeploymentFailed, deploy.ErrPollingTimeout,
		deploy.ErrAttemptInProgress,
	} {
		if errors.Is(err, kind) {
			return ui.Err(deploy.Message(err))
		}
	}
	return ui.Err(err.Error())
}
