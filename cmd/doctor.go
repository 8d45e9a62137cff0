package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tokenfactory/internal/chain"
	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("some checks failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the RPC endpoint, factories and wallet before deploying",
	Long: `Check that rpc_url answers, that it serves the configured chain_id, that
each configured factory has contract code, and that a signing wallet is
connected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		contracts := map[string]common.Address{}
		if cfg.ERC20Factory != "" {
			contracts["erc20_factory"] = common.HexToAddress(cfg.ERC20Factory)
		}
		if cfg.NFTFactory != "" {
			contracts["nft_factory"] = common.HexToAddress(cfg.NFTFactory)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ConnectTimeout)
		defer cancel()
		client := newEVMClient()
		h := chain.CheckHealth(ctx, client, big.NewInt(cfg.ChainID), contracts)

		t := ui.NewTable(
			ui.Column{Title: "CHECK", Width: 14},
			ui.Column{Title: "", Width: 4},
			ui.Column{Title: "DETAIL", Width: 60},
		)
		for _, p := range h.Probes {
			t.AddRow(p.Name, mark(p.OK), p.Detail)
		}

		if fees, err := client.SuggestFees(ctx); err == nil {
			t.AddRow("fees", ui.Meta("·"), fmt.Sprintf("max %.2f gwei, tip %.2f gwei", chain.WeiToGwei(fees.FeeCap), chain.WeiToGwei(fees.TipCap)))
		}

		session, err := openSession(newWalletManager())
		if err != nil {
			return err
		}
		walletOK := session.Connected()
		detail := "not connected; run: tokenfactory wallet connect <name>"
		if walletOK {
			detail = connectedWallet(session) + " " + session.Address().Hex()
		}
		t.AddRow("wallet", mark(walletOK), detail)

		fmt.Fprintln(out, ui.Banner())
		fmt.Fprintln(out, ui.Meta("RPC "+h.URL))
		fmt.Fprint(out, t.Render())

		if !h.Healthy() || !walletOK {
			return errUnhealthy
		}
		fmt.Fprintln(out, ui.Success("Ready to deploy."))
		return nil
	},
}

func mark(ok bool) string {
	if ok {
		return ui.StyleSuccess.Render("✓")
	}
	return ui.StyleError.Render("✗")
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
