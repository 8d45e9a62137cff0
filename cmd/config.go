package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration: config.json with .env and
TOKENFACTORY_* overrides applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs := make([][2]string, 0, len(config.Keys())+1)
		for _, k := range config.Keys() {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			if v == "" {
				v = ui.Meta("(unset)")
			}
			pairs = append(pairs, [2]string{k, v})
		}
		pairs = append(pairs, [2]string{"config_dir", cfg.Dir()})
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Configuration", pairs))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to config.json.

Keys: rpc_url, chain_id, explorer_url, erc20_factory, nft_factory, erc20_event,
nft_event, registry_function, backend_url, poll_interval, poll_attempts,
receipt_timeout, default_wallet, log_level.

Examples:
  tokenfactory config set nft_factory 0x...
  tokenfactory config set poll_interval 5
  tokenfactory config set registry_function ""   # disable the registry lookup`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s → %s", args[0], args[1])))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
