// Package export writes inventory reports as XLSX workbooks: one sheet of
// parts with their resolved locations and one sheet of movement history.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/movement"
)

const (
	partsSheet     = "Inventory"
	movementsSheet = "Movements"
)

// Exporter builds inventory workbooks from the master data and the ledger.
type Exporter struct {
	repo   *master.Repository
	ledger *movement.Ledger
}

// New builds an Exporter.
func New(repo *master.Repository, ledger *movement.Ledger) *Exporter {
	return &Exporter{repo: repo, ledger: ledger}
}

// WriteWorkbook writes the full inventory workbook to w.
func (e *Exporter) WriteWorkbook(ctx context.Context, w io.Writer) error {
	snap, err := e.repo.Snapshot(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), partsSheet)
	if err := e.writeParts(ctx, f, snap); err != nil {
		return err
	}
	if _, err := f.NewSheet(movementsSheet); err != nil {
		return fmt.Errorf("failed to create movements sheet: %w", err)
	}
	if err := e.writeMovements(ctx, f); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) writeParts(ctx context.Context, f *excelize.File, snap *master.Snapshot) error {
	header := []interface{}{
		"id", "name", "category", "manufacturer",
		"rack", "drawer", "tags", "quantity", "on_hand", "notes",
	}
	if err := f.SetSheetRow(partsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write parts header: %w", err)
	}

	row := 2
	for _, p := range snap.Parts {
		category := p.CategoryID
		if c, ok := snap.CategoryByID(p.CategoryID); ok {
			category = c.Name
		}
		manufacturer := p.ManufacturerID
		if m, ok := snap.ManufacturerByID(p.ManufacturerID); ok {
			manufacturer = m.Name
		}
		rackName, drawerLabel := "", ""
		if d, ok := snap.DrawerByID(p.DrawerID); ok {
			drawerLabel = d.Label
			if r, ok := snap.RackByID(d.RackID); ok {
				rackName = r.Name
			}
		}
		onHand, err := e.ledger.QuantityOnHand(ctx, p.ID)
		if err != nil {
			return err
		}

		cells := []interface{}{
			p.ID, p.Name, category, manufacturer,
			rackName, drawerLabel, strings.Join(p.Tags, ", "),
			p.Quantity, onHand, p.Notes,
		}
		if err := f.SetSheetRow(partsSheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return fmt.Errorf("failed to write part row: %w", err)
		}
		row++
	}
	return nil
}

func (e *Exporter) writeMovements(ctx context.Context, f *excelize.File) error {
	header := []interface{}{
		"timestamp", "kind", "part_id", "drawer_id", "delta", "reservation_id", "note",
	}
	if err := f.SetSheetRow(movementsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write movements header: %w", err)
	}

	row := 2
	for m, err := range e.ledger.Movements(ctx) {
		if err != nil {
			return err
		}
		cells := []interface{}{
			m.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(m.Kind), m.PartID, m.DrawerID, m.Delta, m.ReservationID, m.Note,
		}
		if err := f.SetSheetRow(movementsSheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return fmt.Errorf("failed to write movement row: %w", err)
		}
		row++
	}
	for a, err := range e.ledger.Adjustments(ctx) {
		if err != nil {
			return err
		}
		cells := []interface{}{
			a.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			"adjustment/" + a.Reason, a.PartID, a.DrawerID, a.Delta, "", a.Note,
		}
		if err := f.SetSheetRow(movementsSheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return fmt.Errorf("failed to write adjustment row: %w", err)
		}
		row++
	}
	return nil
}
