package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
)

var (
	stockNote string

	pickNote          string
	pickAllowNegative bool

	relocateNote string

	adjustReason string
	adjustNote   string
)

var stockCmd = &cobra.Command{
	Use:   "stock <part-id> <qty>",
	Short: "Record stock arriving in a part's drawer",
	Args:  cobra.ExactArgs(2),
	RunE:  runStock,
}

var pickCmd = &cobra.Command{
	Use:   "pick <part-id> <qty>",
	Short: "Record stock taken from a part's drawer",
	Args:  cobra.ExactArgs(2),
	RunE:  runPick,
}

var relocateCmd = &cobra.Command{
	Use:   "relocate <part-id> <drawer-id>",
	Short: "Move a part (and its stock) to another drawer",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelocate,
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <part-id> <delta>",
	Short: "Record a manual stock correction",
	Long: `Record a correction outside the normal stocking and picking flow, for
example a stocktake difference or damaged stock. The delta may be positive
or negative and a --reason is required.`,
	Args: cobra.ExactArgs(2),
	RunE: runAdjust,
}

func init() {
	stockCmd.Flags().StringVar(&stockNote, "note", "", "Free-text note on the movement")
	pickCmd.Flags().StringVar(&pickNote, "note", "", "Free-text note on the movement")
	pickCmd.Flags().BoolVar(&pickAllowNegative, "allow-negative", false, "Permit picking more than is on hand")
	relocateCmd.Flags().StringVar(&relocateNote, "note", "", "Free-text note on the movement pair")
	adjustCmd.Flags().StringVar(&adjustReason, "reason", "", "Reason code, e.g. stocktake, damage (required)")
	adjustCmd.Flags().StringVar(&adjustNote, "note", "", "Free-text note on the adjustment")
	_ = adjustCmd.MarkFlagRequired("reason")

	rootCmd.AddCommand(stockCmd, pickCmd, relocateCmd, adjustCmd)
}

func runStock(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return printer.Error("Invalid quantity", args[1]+" is not a number", nil)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}

	m, err := e.svc.StockIn(cmd.Context(), args[0], qty, stockNote)
	if err != nil {
		return reportErr(err)
	}
	printer.Success("stocked %d × %s into %s\n", qty, m.PartID, m.DrawerID)
	return nil
}

func runPick(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return printer.Error("Invalid quantity", args[1]+" is not a number", nil)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}

	m, err := e.svc.Pick(cmd.Context(), args[0], qty, pickNote, pickAllowNegative)
	if err != nil {
		return reportErr(err)
	}
	printer.Success("picked %d × %s from %s\n", qty, m.PartID, m.DrawerID)
	return nil
}

func runRelocate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	if err := e.svc.Relocate(cmd.Context(), args[0], args[1], relocateNote); err != nil {
		return reportErr(err)
	}
	printer.Success("%s now lives in %s\n", args[0], args[1])
	return nil
}

func runAdjust(cmd *cobra.Command, args []string) error {
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return printer.Error("Invalid delta", args[1]+" is not a number", nil)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}

	a, err := e.svc.Adjust(cmd.Context(), args[0], delta, adjustReason, adjustNote)
	if err != nil {
		return reportErr(err)
	}
	printer.Success("adjusted %s by %+d (%s)\n", a.PartID, a.Delta, a.Reason)
	return nil
}
