package cmd

import (
	"fmt"
	"os"

	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokenfactory/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
	plain   bool
	logger  = zap.NewNop().Sugar()
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "tokenfactory",
	Short: "Deploy ERC-20 tokens and ERC-721 collections through factory contracts",
	Long: `tokenfactory deploys tokens and NFT collections through on-chain factory
contracts and finds the address of the contract each deployment created.

  ERC-20 tokens are deployed directly from your connected wallet.
  NFT collections go through the deployment backend, which uploads metadata
  and reports progress until the collection is live.

Configuration lives in ~/.tokenfactory/config.json. Values from a .env file in
the working directory and TOKENFACTORY_* environment variables take precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		env, err := config.FromEnviron(".env")
		if err != nil {
			return err
		}
		cfg, err = config.Load(cfgDir, env)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		logger = logging.NewZapLogger("tokenfactory", level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $TOKENFACTORY_CONFIG_DIR or ~/.tokenfactory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print progress as plain lines instead of a live view")

	rootCmd.AddCommand(
		deployCmd,
		statusCmd,
		resolveCmd,
		eventsCmd,
		walletCmd,
		configCmd,
		historyCmd,
	)
}
