package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strconv"

	"github.com/Mohsinsiddi/tokenfactory/internal/chain"
	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/history"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	deployName    string
	deploySymbol  string
	deploySupply  string
	deployBaseURI string
	deployFile    string
	deployRoyalty string
	deployWallet  string
	deployDirect  bool
	deployYes     bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a token or NFT collection through a factory",
}

var deployERC20Cmd = &cobra.Command{
	Use:   "erc20",
	Short: "Deploy an ERC-20 token from the connected wallet",
	Long: `Deploy a fixed-supply ERC-20 token through the configured factory.

The whole supply is minted to the connected wallet. Missing fields are
prompted for.

Examples:
  tokenfactory deploy erc20 --name "Test Token" --symbol TTK --supply 1000000
  tokenfactory deploy erc20 --wallet deployer --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		name := askIfEmpty(p, deployName, "Token name", "")
		symbol := askIfEmpty(p, deploySymbol, "Symbol", "")
		supply := askIfEmpty(p, deploySupply, "Initial supply", "1000000")

		req, err := deploy.ParseERC20(name, symbol, supply)
		if err != nil {
			return err
		}
		return runDeploy(cmd, p, req, [][2]string{
			{"Name", req.Name},
			{"Symbol", req.Symbol},
			{"Supply", req.InitialSupply.String()},
			{"Factory", cfg.ERC20Factory},
		})
	},
}

var deployNFTCmd = &cobra.Command{
	Use:   "nft",
	Short: "Deploy an ERC-721 collection",
	Long: `Deploy an NFT collection with ERC-2981 royalties (0-15%).

By default the deployment backend uploads the metadata file (--file) and
deploys the collection, and the CLI polls until it is live. With --direct the
connected wallet calls the NFT factory itself; a --base-uri is then required.

Examples:
  tokenfactory deploy nft --name "My Art" --symbol ART --file metadata.json --royalty 5
  tokenfactory deploy nft --name "My Art" --symbol ART --base-uri ipfs://Qm.../ --royalty 5 --direct`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		name := askIfEmpty(p, deployName, "Collection name", "")
		symbol := askIfEmpty(p, deploySymbol, "Symbol", "")
		if deployBaseURI == "" && deployFile == "" {
			deployBaseURI = p.Input("Base URI", "")
		}
		royalty := askIfEmpty(p, deployRoyalty, "Royalty %", "0")

		req, err := deploy.ParseNFT(name, symbol, deployBaseURI, deployFile, royalty)
		if err != nil {
			return err
		}
		if deployDirect && req.BaseURI == "" {
			return fmt.Errorf("--direct needs --base-uri: metadata upload goes through the backend")
		}

		source := req.BaseURI
		if req.MetadataPath != "" {
			source = req.MetadataPath + " (upload)"
		}
		via := "backend " + cfg.BackendURL
		if deployDirect {
			via = "factory " + cfg.NFTFactory
		}
		return runDeploy(cmd, p, req, [][2]string{
			{"Name", req.Name},
			{"Symbol", req.Symbol},
			{"Metadata", source},
			{"Royalty", strconv.Itoa(req.Royalty()) + "%"},
			{"Via", via},
		})
	},
}

func askIfEmpty(p *ui.Prompter, value, label, def string) string {
	if value != "" {
		return value
	}
	return p.Input(label, def)
}

// runDeploy previews req, asks for confirmation and runs one attempt.
func runDeploy(cmd *cobra.Command, p *ui.Prompter, req deploy.Request, preview [][2]string) error {
	out := cmd.OutOrStdout()

	mgr := newWalletManager()
	session, err := openSession(mgr)
	if err != nil {
		return err
	}
	if deployWallet != "" && connectedWallet(session) != deployWallet {
		if err := session.Connect(deployWallet); err != nil {
			return err
		}
	}
	if !session.Connected() {
		fmt.Fprintln(out, ui.Hint("Connect a signing wallet with: tokenfactory wallet connect <name>"))
		return deploy.ErrWalletNotConnected
	}

	preview = append(preview, [2]string{"Wallet", session.Wallet().Name + " " + session.Address().Hex()})
	fmt.Fprintln(out, ui.KeyValueBlock("Deployment preview", preview))
	if !deployYes && !p.Confirm("Deploy?") {
		fmt.Fprintln(out, ui.Info("Cancelled."))
		return nil
	}

	var metadata io.ReadCloser
	if req.MetadataPath != "" && !deployDirect {
		f, err := os.Open(req.MetadataPath)
		if err != nil {
			return fmt.Errorf("%w: %v", deploy.ErrInvalidInput, err)
		}
		defer f.Close()
		metadata = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SubmitTimeout+cfg.ReceiptWait())
	defer cancel()

	client := newEVMClient()
	submitter, err := submitterFor(session, client)
	if err != nil {
		return err
	}
	dcfg, err := deployConfig(cfg, client)
	if err != nil {
		return err
	}

	progress := ui.NewProgress(fmt.Sprintf("Deploying %s (%s)", req.Name, req.Symbol), out, plain, cancel)
	tracker := deploy.NewTracker(dcfg, session, submitter, client,
		deploy.WithBackend(newBackendClient()),
		deploy.WithLogger(logger),
		deploy.WithObserver(progress.Observe),
		deploy.WithPollHook(progress.ObservePoll),
	)

	outcome, err := progress.Run(func() (*deploy.Outcome, error) {
		if req.Kind == deploy.KindNFT && !deployDirect {
			var r io.Reader
			if metadata != nil {
				r = metadata
			}
			return tracker.DeployNFT(ctx, req, r)
		}
		return tracker.Deploy(ctx, req)
	})

	if outcome != nil {
		entry := history.FromOutcome(req, outcome, err, cfg.ChainID, session.Address())
		entry.Wallet = session.Wallet().Name
		if herr := history.NewLog(cfg.HistoryPath()).Record(entry); herr != nil {
			logger.Warnw("recording deployment failed", "error", herr)
		}
	}
	return reportOutcome(out, req, outcome, err)
}

func reportOutcome(out io.Writer, req deploy.Request, o *deploy.Outcome, err error) error {
	ex := explorer()
	if o != nil && o.TxHash != (common.Hash{}) && ex.Configured() {
		fmt.Fprintln(out, ui.Meta("Transaction: "+ex.TxURL(o.TxHash)))
	}
	switch {
	case errors.Is(err, deploy.ErrAddressUnresolved):
		fmt.Fprintln(out, ui.Warn(deploy.Message(err)))
		return nil
	case err != nil:
		return err
	}

	what := "Token"
	if req.Kind == deploy.KindNFT {
		what = "Collection"
	}
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s %s deployed at %s", what, req.Symbol, ui.Addr(o.Address.Hex()))))
	if ex.Configured() {
		fmt.Fprintln(out, ui.Meta("Explorer:    "+ex.TokenURL(o.Address)))
	}
	if r := o.Receipt; r != nil && r.EffectiveGasPrice != nil {
		paid := new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
		fmt.Fprintln(out, ui.Meta("Fee paid:    "+chain.WeiToETH(paid)+" ETH"))
	}
	if o.MetadataURI != "" {
		fmt.Fprintln(out, ui.Meta("Base URI:    "+o.MetadataURI))
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{deployERC20Cmd, deployNFTCmd} {
		c.Flags().StringVar(&deployName, "name", "", "contract name")
		c.Flags().StringVar(&deploySymbol, "symbol", "", "ticker symbol")
		c.Flags().StringVar(&deployWallet, "wallet", "", "connect this wallet before deploying")
		c.Flags().BoolVarP(&deployYes, "yes", "y", false, "skip the confirmation prompt")
	}
	deployERC20Cmd.Flags().StringVar(&deploySupply, "supply", "", "initial supply in whole tokens")

	deployNFTCmd.Flags().StringVar(&deployBaseURI, "base-uri", "", "metadata base URI")
	deployNFTCmd.Flags().StringVar(&deployFile, "file", "", "metadata file to upload; its URI becomes the base URI")
	deployNFTCmd.Flags().StringVar(&deployRoyalty, "royalty", "", "royalty percentage (0-15)")
	deployNFTCmd.Flags().BoolVar(&deployDirect, "direct", false, "call the NFT factory from the connected wallet instead of the backend")
	deployNFTCmd.MarkFlagsMutuallyExclusive("base-uri", "file")

	deployCmd.AddCommand(deployERC20Cmd, deployNFTCmd)
}
