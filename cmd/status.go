package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/tokenfactory/internal/config"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/spf13/cobra"
)

var (
	statusType string
	statusOnce bool
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check a backend deployment until it settles",
	Long: `Ask the deployment backend for the status of a transaction, polling every
poll_interval seconds up to poll_attempts times.

Examples:
  tokenfactory status 0xabc... --type nft
  tokenfactory status 0xabc... --once`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		hash := args[0]
		client := newBackendClient()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if statusOnce {
			ctx, cancel := context.WithTimeout(ctx, config.RPCTimeout)
			defer cancel()
			st, err := client.TransactionStatus(ctx, hash, statusType)
			if err != nil {
				return err
			}
			pairs := [][2]string{{"Status", st.Status}, {"HTTP", fmt.Sprint(st.HTTPStatus)}}
			if st.ContractAddress != "" {
				pairs = append(pairs, [2]string{"Contract", st.ContractAddress})
			}
			if st.Message != "" {
				pairs = append(pairs, [2]string{"Message", st.Message})
			}
			fmt.Fprintln(out, ui.KeyValueBlock(ui.TruncateAddr(hash), pairs))
			return nil
		}

		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Waiting for "+ui.TruncateAddr(hash))
		spin.Start()
		poll := deploy.StartPoll(ctx, client, hash, deploy.PollConfig{
			Interval:    cfg.PollEvery(),
			MaxAttempts: cfg.PollAttempts,
			Kind:        statusType,
			OnAttempt: func(n int, status string) {
				spin.Update(fmt.Sprintf("Waiting for %s · poll %d/%d · %s", ui.TruncateAddr(hash), n, cfg.PollAttempts, status))
			},
		})
		res, err := poll.Wait()
		spin.Stop()

		switch {
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(out, ui.Info(fmt.Sprintf("Stopped after %d polls.", res.Attempts)))
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Deployed at %s after %d polls", ui.Addr(res.Address.Hex()), res.Attempts)))
		if ex := explorer(); ex.Configured() {
			fmt.Fprintln(out, ui.Meta("Explorer: "+ex.TokenURL(res.Address)))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusType, "type", string(deploy.KindNFT), "deployment type passed to the backend")
	statusCmd.Flags().BoolVar(&statusOnce, "once", false, "query once instead of polling")
}
