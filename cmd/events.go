package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/tokenfactory/internal/contract"
	"github.com/Mohsinsiddi/tokenfactory/internal/deploy"
	"github.com/Mohsinsiddi/tokenfactory/internal/ui"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/lmittmann/w3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/sha3"
)

var eventsBuiltin bool

var eventsCmd = &cobra.Command{
	Use:   "events [signature...]",
	Short: "Show topic hashes and address layout of deployment events",
	Long: `Show the topic0 hash of each deployment event and where the deployed
contract's address is read from. Without arguments the configured erc20_event
and nft_event are shown.

Examples:
  tokenfactory events
  tokenfactory events --builtin
  tokenfactory events "TokenCreated(address indexed creator, address token)"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigs := args
		switch {
		case eventsBuiltin:
			sigs = nil
			for _, b := range contract.AllBuiltins() {
				sigs = append(sigs, b.Event)
			}
		case len(sigs) == 0:
			sigs = []string{cfg.ERC20Event, cfg.NFTEvent}
		}
		sigs = nonEmpty(sigs)
		events, err := deploy.ParseEvents(sigs...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ev := range events {
			canonical := ev.Signature
			topic := computeEventTopic(canonical)
			if topic != ev.Topic0.Hex() {
				return fmt.Errorf("%s: topic mismatch %s != %s", canonical, topic, ev.Topic0.Hex())
			}
			fmt.Fprintln(out, ui.KeyValueBlock(canonical, [][2]string{
				{"topic0", topic},
				{"address from", addressSource(ev)},
			}))
		}
		return nil
	},
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// computeEventTopic is keccak256 of a canonical event signature.
func computeEventTopic(sig string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// addressSource describes where the event strategy finds the address.
func addressSource(ev *w3.Event) string {
	topic, word := 1, 0
	for _, a := range ev.Args {
		if a.Type.T == abi.AddressTy {
			if a.Indexed {
				return fmt.Sprintf("topics[%d] (%s)", topic, a.Name)
			}
			return fmt.Sprintf("data word %d (%s)", word, a.Name)
		}
		if a.Indexed {
			topic++
		} else {
			word++
		}
	}
	return ui.Warn("no address argument; only the last-factory-log fallback applies")
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsBuiltin, "builtin", false, "show the events of the embedded factory ABIs")
}
