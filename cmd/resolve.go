package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	resolveKind    string
	resolveCreator string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <tx-hash>",
	Short: "Find the contract address a factory transaction created",
	Long: `Fetch the receipt of a mined factory transaction and run every address
resolution strategy against it, in order. The first hit is what a deployment
would have reported.

The registry strategy needs the creator; it defaults to the connected wallet.

Examples:
  tokenfactory resolve 0xabc...
  tokenfactory resolve 0xabc... --kind nft --creator 0xf39F...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		hash := common.HexToHash(args[0])
		kind := deploy.Kind(resolveKind)

		client := newEVMClient()
		factory, err := factoryFor(cfg, kind, client)
		if err != nil {
			return err
		}
		if !factory.Configured() {
			return fmt.Errorf("no %s factory configured; set it with: tokenfactory config set %s_factory <address>", kind, kind)
		}

		creator, err := resolveCaller()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		if receipt == nil {
			return fmt.Errorf("transaction %s is not mined yet", hash.Hex())
		}

		pairs := [][2]string{
			{"Status", receiptStatus(receipt.Status)},
			{"Block", fmt.Sprint(receipt.BlockNumber)},
			{"Logs", fmt.Sprint(len(receipt.Logs))},
		}
		winner := ""
		var found common.Address
		for _, s := range deploy.Strategies(factory, creator, logger) {
			addr, ok := s.Resolve(ctx, receipt)
			result := ui.Meta("–")
			if ok {
				result = addr.Hex()
				if winner == "" {
					winner, found = s.Name, addr
					result += "  ✓"
				}
			}
			pairs = append(pairs, [2]string{s.Name, result})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Receipt "+ui.TruncateAddr(hash.Hex()), pairs))

		if winner == "" {
			return deploy.ErrAddressUnresolved
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s (via %s)", ui.Addr(found.Hex()), winner)))
		return nil
	},
}

// resolveCaller is --creator, else the connected wallet, else zero (which
// skips the registry strategy).
func resolveCaller() (common.Address, error) {
	if resolveCreator != "" {
		if !common.IsHexAddress(resolveCreator) {
			return common.Address{}, errors.New("--creator must be a 0x address")
		}
		return common.HexToAddress(resolveCreator), nil
	}
	session, err := openSession(newWalletManager())
	if err != nil {
		return common.Address{}, err
	}
	return session.Address(), nil
}

func receiptStatus(status uint64) string {
	if status == 1 {
		return ui.StyleSuccess.Render("success")
	}
	return ui.StyleError.Render("reverted")
}

func init() {
	resolveCmd.Flags().StringVar(&resolveKind, "kind", string(deploy.KindERC20), "factory kind: erc20 or nft")
	resolveCmd.Flags().StringVar(&resolveCreator, "creator", "", "address that sent the transaction")
}
