package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
)

var (
	historyFrom string
	historyTo   string
)

var historyCmd = &cobra.Command{
	Use:   "history <part-id>",
	Short: "List a part's stock movements, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Only movements at or after this RFC3339 timestamp")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Only movements before this RFC3339 timestamp")
	rootCmd.AddCommand(historyCmd)
}

func parseBound(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s timestamp %q: %w", flag, value, err)
	}
	return ts, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	from, err := parseBound("from", historyFrom)
	if err != nil {
		return err
	}
	to, err := parseBound("to", historyTo)
	if err != nil {
		return err
	}

	count := 0
	total := 0
	for m, err := range e.ledger.PartMovements(ctx, args[0], from, to) {
		if err != nil {
			return reportErr(err)
		}
		count++
		total += m.Delta
		note := m.Note
		if m.ReservationID != "" {
			note = "reservation " + m.ReservationID
		}
		printer.Printf("%s  %-12s %+5d  %-12s %s\n",
			m.Timestamp.Format(time.RFC3339), m.Kind, m.Delta, m.DrawerID, note)
	}
	if count == 0 {
		printer.Info("No movements for %s in the requested range.\n", args[0])
		return nil
	}
	printer.Info("%d movement(s), net %+d\n", count, total)
	return nil
}
