package cmd

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/Mohsinsiddi/tokenfactory/internal/wallet"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag string
	walletForce   bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets and the connected session",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a signing wallet (--key) or a watch-only address",
	Long: `Add a wallet.

A signing wallet stores its private key in the OS keychain (or an encrypted
file under the config directory). The key may also come from
TOKENFACTORY_PRIVATE_KEY instead of --key.

Examples:
  tokenfactory wallet add deployer --key 0xac09...
  tokenfactory wallet add treasury 0xf39F...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		mgr := newWalletManager()

		if walletKeyFlag != "" {
			w, err := mgr.AddWithKey(name, walletKeyFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Fprintln(out, ui.Hint("Connect it with: tokenfactory wallet connect "+name))
			return nil
		}
		if len(args) < 2 {
			return errors.New("address required for a watch-only wallet\n  Usage: tokenfactory wallet add <name> <address>\n  Or for signing: tokenfactory wallet add <name> --key <private-key>")
		}
		w, err := mgr.AddWatchOnly(name, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newWalletManager().Generate(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Generated wallet %q: %s", w.Name, ui.Addr(w.Address))))
		fmt.Fprintln(out, ui.Hint("Fund it with test ETH before deploying"))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr := newWalletManager()
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: tokenfactory wallet add deployer --key <private-key>"))
			return nil
		}
		session, err := openSession(mgr)
		if err != nil {
			return err
		}
		active := connectedWallet(session)

		t := ui.NewTable(
			ui.Column{Title: "NAME", Width: 16},
			ui.Column{Title: "ADDRESS", Width: 42},
			ui.Column{Title: "TYPE", Width: 10},
			ui.Column{Title: "", Width: 10},
		)
		t.Styles = func(_, col int, value string) lipgloss.Style {
			switch {
			case col == 1:
				return ui.StyleAddress
			case col == 3 && value == "connected":
				return ui.StyleSuccess
			}
			return ui.StyleValue
		}
		for _, w := range wallets {
			mark := ""
			switch {
			case w.Name == active:
				mark = "connected"
			case w.IsDefault:
				mark = "default"
			}
			t.AddRow(w.Name, w.Address, w.Type, mark)
		}
		fmt.Fprint(out, t.Render())
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newWalletManager().SetDefault(args[0]); err != nil {
			return err
		}
		cfg.DefaultWallet = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Default wallet → "+args[0]))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		if !walletForce && !ui.NewPrompter(cmd.InOrStdin(), out).ConfirmDanger(fmt.Sprintf("Remove wallet %q and its key?", name)) {
			fmt.Fprintln(out, ui.Info("Cancelled."))
			return nil
		}
		mgr := newWalletManager()
		session, err := openSession(mgr)
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if connectedWallet(session) == name {
			if err := session.Disconnect(); err != nil {
				return err
			}
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed", name)))
		return nil
	},
}

var walletConnectCmd = &cobra.Command{
	Use:   "connect [name]",
	Short: "Connect a signing wallet for deployments",
	Long: `Connect a signing wallet. Deployments are sent from the connected wallet.

Without a name, the default wallet is used; if there is none, pick one
interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		name, err := walletToConnect(mgr, args)
		if err != nil || name == "" {
			return err
		}
		session, err := openSession(mgr)
		if err != nil {
			return err
		}
		if err := session.Connect(name); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Connected %s %s", name, ui.Addr(session.Address().Hex()))))
		if ex := explorer(); ex.Configured() {
			fmt.Fprintln(out, ui.Meta("Explorer: "+ex.AddressURL(session.Address())))
		}
		return nil
	},
}

var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the active wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(newWalletManager())
		if err != nil {
			return err
		}
		name := connectedWallet(session)
		if err := session.Disconnect(); err != nil {
			return err
		}
		if name == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("No wallet was connected."))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected "+name))
		return nil
	},
}

// walletToConnect picks the wallet named in args, else the default, else
// asks. "" means the user cancelled.
func walletToConnect(mgr *wallet.Manager, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.DefaultWallet != "" {
		return cfg.DefaultWallet, nil
	}
	if w := mgr.Default(); w != nil {
		return w.Name, nil
	}
	wallets, err := mgr.List()
	if err != nil {
		return "", err
	}
	items := make([]ui.PickerItem, 0, len(wallets))
	for _, w := range wallets {
		items = append(items, ui.PickerItem{Label: w.Name, SubLabel: w.Address, Value: w.Name, Disabled: !w.CanSign()})
	}
	name, err := ui.Pick("Connect wallet", items)
	if errors.Is(err, ui.ErrNothingToPick) {
		return "", errors.New("no wallets yet; add one with: tokenfactory wallet add <name> --key <private-key>")
	}
	return name, err
}

// connectedWallet returns the session's wallet name, or "" when disconnected.
func connectedWallet(s *wallet.Session) string {
	if w := s.Wallet(); w != nil {
		return w.Name
	}
	return ""
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key (hex) for a signing wallet")
	walletRemoveCmd.Flags().BoolVarP(&walletForce, "force", "f", false, "skip the confirmation prompt")

	walletCmd.AddCommand(
		walletAddCmd,
		walletGenerateCmd,
		walletListCmd,
		walletUseCmd,
		walletRemoveCmd,
		walletConnectCmd,
		walletDisconnectCmd,
	)
}
