package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// Column layouts of the CSV exports. Downstream spreadsheets rely on them.
var (
	OrderColumns = []string{"pk", "name", "total_required", "available_stock", "saldo", "to_order", "used_in_assemblies", "purchase_orders_summary"}
	BuildColumns = []string{"pk", "name", "quantity", "available_stock", "verfuegbar", "to_build", "for_assembly"}
)

// WriteOrdersCSV writes the order list with OrderColumns
func WriteOrdersCSV(w io.Writer, lines []entities.OrderLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderColumns); err != nil {
		return fmt.Errorf("failed to write order header: %w", err)
	}
	for _, l := range lines {
		record := []string{
			l.PartID.String(),
			l.Name,
			qty(l.TotalRequired),
			qty(l.AvailableStock),
			qty(l.Saldo),
			qty(l.ToOrder),
			l.UsedInAssemblies,
			l.PurchaseOrdersSummary(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write order line %d: %w", l.PartID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBuildsCSV writes the build list with BuildColumns
func WriteBuildsCSV(w io.Writer, lines []entities.BuildLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BuildColumns); err != nil {
		return fmt.Errorf("failed to write build header: %w", err)
	}
	for _, l := range lines {
		record := []string{
			l.PartID.String(),
			l.Name,
			qty(l.Quantity),
			qty(l.AvailableStock),
			qty(l.Verfuegbar),
			qty(l.ToBuild),
			l.ForAssembly,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write build line %d: %w", l.PartID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func qty(q entities.Quantity) string {
	return entities.RoundDisplay(q).String()
}
