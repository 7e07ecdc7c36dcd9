package commands

import (
	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
)

var qohCmd = &cobra.Command{
	Use:   "qoh <part-id>",
	Short: "Show the authoritative quantity on hand for a part",
	Long: `Replay the full movement ledger for the part and report the result. The
quantity stored on the part record is a cached snapshot; this command is
the ground truth and also flags a drifted snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: runQoh,
}

func init() {
	rootCmd.AddCommand(qohCmd)
}

func runQoh(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	part, err := e.repo.GetPart(ctx, args[0])
	if err != nil {
		return reportErr(err)
	}
	onHand, err := e.ledger.QuantityOnHand(ctx, part.ID)
	if err != nil {
		return reportErr(err)
	}

	printer.Printf("%s: %d on hand\n", part.ID, onHand)
	if part.Quantity != onHand {
		printer.Warning("stored snapshot says %d; run an adjustment or investigate\n", part.Quantity)
	}
	return nil
}
