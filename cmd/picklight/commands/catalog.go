package commands

import (
	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/pkg/catalog"
)

// Maintenance commands for the master data. The data files can also be
// edited by hand; these commands run the same invariant checks the store
// applies and give earlier, friendlier errors.

var (
	rackName          string
	rackController    string
	rackPixels        int
	rackRows          int
	rackDrawersPerRow int
	rackCascade       bool

	drawerRack    string
	drawerRow     int
	drawerCol     int
	drawerLabel   string
	drawerStart   int
	drawerCount   int
	drawerCascade bool

	partName     string
	partCategory string
	partMaker    string
	partDrawer   string
	partTags     []string
	partNotes    string
	partCascade  bool
)

var rackCmd = &cobra.Command{
	Use:   "rack",
	Short: "Manage racks",
}

var rackAddCmd = &cobra.Command{
	Use:   "add <rack-id>",
	Short: "Add a rack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		rack := catalog.Rack{
			ID:            args[0],
			Name:          rackName,
			Controller:    rackController,
			PixelCount:    rackPixels,
			Rows:          rackRows,
			DrawersPerRow: rackDrawersPerRow,
		}
		if rack.Name == "" {
			rack.Name = rack.ID
		}
		if err := e.repo.CreateRack(cmd.Context(), rack); err != nil {
			return reportErr(err)
		}
		printer.Success("rack %s added\n", rack.ID)
		return nil
	},
}

var rackRmCmd = &cobra.Command{
	Use:   "rm <rack-id>",
	Short: "Delete a rack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		if err := e.repo.DeleteRack(cmd.Context(), args[0], rackCascade); err != nil {
			return reportErr(err)
		}
		printer.Success("rack %s deleted\n", args[0])
		return nil
	},
}

var drawerCmd = &cobra.Command{
	Use:   "drawer",
	Short: "Manage drawers",
}

var drawerAddCmd = &cobra.Command{
	Use:   "add <drawer-id>",
	Short: "Add a drawer with its pixel range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		drawer := catalog.Drawer{
			ID:         args[0],
			RackID:     drawerRack,
			Row:        drawerRow,
			Col:        drawerCol,
			Label:      drawerLabel,
			PixelRange: catalog.PixelRange{Start: drawerStart, Count: drawerCount},
		}
		if drawer.Label == "" {
			drawer.Label = drawer.ID
		}
		if err := e.repo.CreateDrawer(cmd.Context(), drawer); err != nil {
			return reportErr(err)
		}
		printer.Success("drawer %s added to %s (pixels %d-%d)\n",
			drawer.ID, drawer.RackID, drawer.PixelRange.Start, drawer.PixelRange.End()-1)
		return nil
	},
}

var drawerRmCmd = &cobra.Command{
	Use:   "rm <drawer-id>",
	Short: "Delete a drawer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		if err := e.repo.DeleteDrawer(cmd.Context(), args[0], drawerCascade); err != nil {
			return reportErr(err)
		}
		printer.Success("drawer %s deleted\n", args[0])
		return nil
	},
}

var partCmd = &cobra.Command{
	Use:   "part",
	Short: "Manage parts",
}

var partAddCmd = &cobra.Command{
	Use:   "add <part-id>",
	Short: "Add a part",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		part := catalog.Part{
			ID:             args[0],
			Name:           partName,
			CategoryID:     partCategory,
			ManufacturerID: partMaker,
			DrawerID:       partDrawer,
			Tags:           partTags,
			Notes:          partNotes,
		}
		if part.Name == "" {
			part.Name = part.ID
		}
		if err := e.repo.CreatePart(cmd.Context(), part); err != nil {
			return reportErr(err)
		}
		printer.Success("part %s added\n", part.ID)
		return nil
	},
}

var partRmCmd = &cobra.Command{
	Use:   "rm <part-id>",
	Short: "Delete a part",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		if err := e.repo.DeletePart(cmd.Context(), args[0], partCascade); err != nil {
			return reportErr(err)
		}
		printer.Success("part %s deleted\n", args[0])
		return nil
	},
}

func init() {
	rackAddCmd.Flags().StringVar(&rackName, "name", "", "Display name (defaults to the id)")
	rackAddCmd.Flags().StringVar(&rackController, "controller", "", "WLED endpoint, host or host:port (required)")
	rackAddCmd.Flags().IntVar(&rackPixels, "pixels", 0, "Addressable pixels on the controller (required)")
	rackAddCmd.Flags().IntVar(&rackRows, "rows", 1, "Drawer rows")
	rackAddCmd.Flags().IntVar(&rackDrawersPerRow, "drawers-per-row", 1, "Drawers per row")
	_ = rackAddCmd.MarkFlagRequired("controller")
	_ = rackAddCmd.MarkFlagRequired("pixels")
	rackRmCmd.Flags().BoolVar(&rackCascade, "cascade", false, "Also delete the rack's drawers and unassign their parts")
	rackCmd.AddCommand(rackAddCmd, rackRmCmd)

	drawerAddCmd.Flags().StringVar(&drawerRack, "rack", "", "Owning rack id (required)")
	drawerAddCmd.Flags().IntVar(&drawerRow, "row", 0, "Row position")
	drawerAddCmd.Flags().IntVar(&drawerCol, "col", 0, "Column position")
	drawerAddCmd.Flags().StringVar(&drawerLabel, "label", "", "Printed label (defaults to the id)")
	drawerAddCmd.Flags().IntVar(&drawerStart, "start", 0, "First pixel index")
	drawerAddCmd.Flags().IntVar(&drawerCount, "count", 0, "Pixel count (required)")
	_ = drawerAddCmd.MarkFlagRequired("rack")
	_ = drawerAddCmd.MarkFlagRequired("count")
	drawerRmCmd.Flags().BoolVar(&drawerCascade, "cascade", false, "Unassign parts stored in the drawer")
	drawerCmd.AddCommand(drawerAddCmd, drawerRmCmd)

	partAddCmd.Flags().StringVar(&partName, "name", "", "Display name (defaults to the id)")
	partAddCmd.Flags().StringVar(&partCategory, "category", "", "Category id (required)")
	partAddCmd.Flags().StringVar(&partMaker, "manufacturer", "", "Manufacturer id (required)")
	partAddCmd.Flags().StringVar(&partDrawer, "drawer", "", "Drawer id (optional, part starts unlocated)")
	partAddCmd.Flags().StringSliceVar(&partTags, "tag", nil, "Tag id (repeatable)")
	partAddCmd.Flags().StringVar(&partNotes, "notes", "", "Free-text notes")
	_ = partAddCmd.MarkFlagRequired("category")
	_ = partAddCmd.MarkFlagRequired("manufacturer")
	partRmCmd.Flags().BoolVar(&partCascade, "cascade", false, "Delete even when movement history references the part")
	partCmd.AddCommand(partAddCmd, partRmCmd)

	rootCmd.AddCommand(rackCmd, drawerCmd, partCmd)
}
