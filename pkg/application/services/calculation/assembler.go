package calculation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// AssemblyInput is everything the assembler needs to produce the result lists
type AssemblyInput struct {
	// NetTotals is the net requirement per base component
	NetTotals map[entities.PartID]entities.Quantity
	// NetRoots lists the roots that need each base component after netting
	NetRoots map[entities.PartID][]entities.PartID
	// SubTotals is the aggregated gross demand per sub-assembly
	SubTotals map[entities.PartID]entities.Quantity
	// SubRoots lists the roots that need each sub-assembly
	SubRoots map[entities.PartID][]entities.PartID

	Parts          map[entities.PartID]*entities.Part
	Available      func(*entities.Part) entities.Quantity
	Commitments    map[entities.PartID]entities.Quantity
	PurchaseOrders map[entities.PartID][]entities.PurchaseOrderRef
	BOMConsumable  map[entities.PartID]bool

	ExcludeSuppliers     []string
	ExcludeManufacturers []string
}

// Assemble nets requirements against stock and builds the order and build
// lists, both sorted by name then id
func Assemble(in AssemblyInput) ([]entities.OrderLine, []entities.BuildLine) {
	return assembleOrders(in), assembleBuilds(in)
}

func assembleOrders(in AssemblyInput) []entities.OrderLine {
	lines := make([]entities.OrderLine, 0)
	for id, total := range in.NetTotals {
		if total.IsZero() {
			continue
		}
		part := in.Parts[id]

		available := decimal.Zero
		if part != nil {
			available = in.available(part)
		}
		commitment := in.commitment(id)
		saldo := available.Sub(commitment)
		toOrder := entities.ClampZero(entities.RoundDisplay(total.Sub(saldo)))
		if !entities.AboveTolerance(toOrder) {
			continue
		}

		line := entities.OrderLine{
			PartID:           id,
			Name:             displayName(part, id),
			TotalRequired:    entities.RoundDisplay(total),
			AvailableStock:   entities.RoundDisplay(available),
			RequiredForOrder: entities.RoundDisplay(commitment),
			Saldo:            entities.RoundDisplay(saldo),
			ToOrder:          toOrder,
			UsedInAssemblies: in.rootNames(in.NetRoots[id]),
			PurchaseOrders:   append([]entities.PurchaseOrderRef{}, in.PurchaseOrders[id]...),
			IsBOMConsumable:  in.BOMConsumable[id],
		}
		if part != nil {
			line.ManufacturerName = part.ManufacturerName
			line.SupplierNames = append([]string(nil), part.SupplierNames...)
			line.IsPartConsumable = part.Consumable
			line.IsTemplate = part.IsTemplate
		}

		if in.excluded(part) {
			continue
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(a, b int) bool {
		if lines[a].Name != lines[b].Name {
			return lines[a].Name < lines[b].Name
		}
		return lines[a].PartID < lines[b].PartID
	})
	return lines
}

func assembleBuilds(in AssemblyInput) []entities.BuildLine {
	lines := make([]entities.BuildLine, 0)
	for id, demand := range in.SubTotals {
		part := in.Parts[id]

		available, building := decimal.Zero, decimal.Zero
		if part != nil {
			available = in.available(part)
			building = part.Building
		}
		commitment := in.commitment(id)
		verfuegbar := available.Sub(commitment)
		toBuild := entities.ClampZero(entities.RoundDisplay(demand.Sub(verfuegbar).Sub(building)))
		if !entities.AboveTolerance(toBuild) {
			continue
		}

		lines = append(lines, entities.BuildLine{
			PartID:           id,
			Name:             displayName(part, id),
			Quantity:         entities.RoundDisplay(demand),
			AvailableStock:   entities.RoundDisplay(available),
			RequiredForOrder: entities.RoundDisplay(commitment),
			Verfuegbar:       entities.RoundDisplay(verfuegbar),
			Building:         entities.RoundDisplay(building),
			ToBuild:          toBuild,
			ForAssembly:      in.rootNames(in.SubRoots[id]),
			RootIDs:          append([]entities.PartID(nil), in.SubRoots[id]...),
		})
	}

	sort.Slice(lines, func(a, b int) bool {
		if lines[a].Name != lines[b].Name {
			return lines[a].Name < lines[b].Name
		}
		return lines[a].PartID < lines[b].PartID
	})
	return lines
}

func (in AssemblyInput) available(p *entities.Part) entities.Quantity {
	if in.Available != nil {
		return in.Available(p)
	}
	if p.IsTemplate {
		return p.InStock.Add(p.VariantStock)
	}
	return p.InStock
}

func (in AssemblyInput) commitment(id entities.PartID) entities.Quantity {
	if q, ok := in.Commitments[id]; ok {
		return q
	}
	return decimal.Zero
}

// rootNames renders the sorted, comma separated names of roots
func (in AssemblyInput) rootNames(roots []entities.PartID) string {
	names := make([]string, 0, len(roots))
	for _, root := range roots {
		names = append(names, displayName(in.Parts[root], root))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// excluded reports whether the part is sourced from an excluded supplier or
// made by an excluded manufacturer
func (in AssemblyInput) excluded(part *entities.Part) bool {
	if part == nil {
		return false
	}
	for _, name := range in.ExcludeSuppliers {
		if strings.TrimSpace(name) != "" && part.HasSupplier(name) {
			return true
		}
	}
	for _, name := range in.ExcludeManufacturers {
		name = strings.TrimSpace(name)
		if name != "" && strings.EqualFold(strings.TrimSpace(part.ManufacturerName), name) {
			return true
		}
	}
	return false
}

func displayName(part *entities.Part, id entities.PartID) string {
	if part == nil || part.Name == "" {
		return entities.UnknownPartName(id)
	}
	return part.Name
}
