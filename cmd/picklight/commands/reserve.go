package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
)

var (
	reserveNote          string
	reserveAllowNegative bool
)

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Manage part reservations",
}

var reserveOpenCmd = &cobra.Command{
	Use:   "open <part-id> <qty>",
	Short: "Earmark a quantity of a part for later picking",
	Args:  cobra.ExactArgs(2),
	RunE:  runReserveOpen,
}

var reserveFulfillCmd = &cobra.Command{
	Use:   "fulfill <reservation-id>",
	Short: "Pick the reserved quantity and close the reservation",
	Args:  cobra.ExactArgs(1),
	RunE:  runReserveFulfill,
}

var reserveCancelCmd = &cobra.Command{
	Use:   "cancel <reservation-id>",
	Short: "Withdraw an open reservation without picking",
	Args:  cobra.ExactArgs(1),
	RunE:  runReserveCancel,
}

var reserveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reservations",
	RunE:  runReserveList,
}

func init() {
	reserveOpenCmd.Flags().StringVar(&reserveNote, "note", "", "Free-text note on the reservation")
	reserveOpenCmd.Flags().BoolVar(&reserveAllowNegative, "allow-negative", false, "Permit reserving more than is available")
	reserveCmd.AddCommand(reserveOpenCmd, reserveFulfillCmd, reserveCancelCmd, reserveListCmd)
	rootCmd.AddCommand(reserveCmd)
}

func runReserveOpen(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return printer.Error("Invalid quantity", args[1]+" is not a number", nil)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}

	// The part must exist before promising its stock.
	if _, err := e.repo.GetPart(cmd.Context(), args[0]); err != nil {
		return reportErr(err)
	}
	r, err := e.ledger.OpenReservation(cmd.Context(), args[0], qty, reserveNote, reserveAllowNegative)
	if err != nil {
		return reportErr(err)
	}
	printer.Success("reserved %d × %s\n", r.Qty, r.PartID)
	printer.Info("reservation id: %s\n", r.ID)
	return nil
}

func runReserveFulfill(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	if err := e.svc.FulfillReservation(cmd.Context(), args[0]); err != nil {
		return reportErr(err)
	}
	printer.Success("reservation %s fulfilled\n", args[0])
	return nil
}

func runReserveCancel(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	if err := e.ledger.CancelReservation(cmd.Context(), args[0]); err != nil {
		return reportErr(err)
	}
	printer.Success("reservation %s cancelled\n", args[0])
	return nil
}

func runReserveList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	reservations, err := e.ledger.Reservations(cmd.Context())
	if err != nil {
		return reportErr(err)
	}
	if len(reservations) == 0 {
		printer.Info("No reservations.\n")
		return nil
	}
	for _, r := range reservations {
		printer.Printf("%-38s %-24s qty %-6d %-10s %s\n",
			r.ID, r.PartID, r.Qty, r.Status, r.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
