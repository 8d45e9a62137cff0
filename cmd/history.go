package cmd

import (
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/tokenfactory/internal/history"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [attempt|tx|address]",
	Short: "List recorded deployments",
	Long: `List deployments made from this machine, newest first. With an argument,
show the full record of one deployment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		log := history.NewLog(cfg.HistoryPath())
		if err := log.Load(); err != nil {
			return err
		}

		if len(args) == 1 {
			e, err := log.Find(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.KeyValueBlock(e.Name+" ("+e.Symbol+")", historyDetail(e)))
			return nil
		}

		entries := log.All(historyLimit)
		if len(entries) == 0 {
			fmt.Fprintln(out, ui.Info("No deployments recorded yet."))
			fmt.Fprintln(out, ui.Hint("Deploy one with: tokenfactory deploy erc20"))
			return nil
		}

		t := ui.NewTable(
			ui.Column{Title: "WHEN", Width: 16},
			ui.Column{Title: "KIND", Width: 5},
			ui.Column{Title: "SYMBOL", Width: 8},
			ui.Column{Title: "STATE", Width: 18},
			ui.Column{Title: "ADDRESS / TX", Width: 42},
		)
		t.Styles = func(_, col int, value string) lipgloss.Style {
			if col == 3 {
				return stateStyle(value)
			}
			if col == 4 {
				return ui.StyleAddress
			}
			return ui.StyleValue
		}
		for _, e := range entries {
			ref := e.Address
			if ref == "" {
				ref = e.TxHash
			}
			t.AddRow(e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Symbol, e.State, ref)
		}
		fmt.Fprint(out, t.Render())
		return nil
	},
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "address-resolved":
		return ui.StyleSuccess
	case "failed":
		return ui.StyleError
	}
	return ui.StyleWarning
}

func historyDetail(e *history.Entry) [][2]string {
	pairs := [][2]string{
		{"Attempt", e.AttemptID},
		{"Kind", e.Kind},
		{"State", e.State},
		{"Chain", strconv.FormatInt(e.ChainID, 10)},
		{"Wallet", e.Wallet},
		{"When", e.CreatedAt.Local().Format("2006-01-02 15:04:05")},
	}
	ex := explorer()
	if e.TxHash != "" {
		pairs = append(pairs, [2]string{"Transaction", e.TxHash})
		if ex.Configured() {
			pairs = append(pairs, [2]string{"Tx explorer", ex.TxURL(common.HexToHash(e.TxHash))})
		}
	}
	if e.Address != "" {
		pairs = append(pairs, [2]string{"Address", e.Address}, [2]string{"Found by", e.Strategy})
		if ex.Configured() {
			pairs = append(pairs, [2]string{"Explorer", ex.TokenURL(common.HexToAddress(e.Address))})
		}
	}
	if e.MetadataURI != "" {
		pairs = append(pairs, [2]string{"Base URI", e.MetadataURI})
	}
	if e.Error != "" {
		pairs = append(pairs, [2]string{"Error", e.Error})
	}
	return pairs
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 = all)")
}
