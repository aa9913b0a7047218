package calculation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/ordercalc/pkg/application/dto"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/memory"
)

const (
	partA    entities.PartID = 1
	partSubB entities.PartID = 2
	partC    entities.PartID = 3
	partD    entities.PartID = 4
)

func qty(v int64) entities.Quantity { return entities.Qty(v) }

func mustAddBOM(t *testing.T, gw *memory.Gateway, parent, sub entities.PartID, qtyPer int64, allowVariants, consumable bool) {
	t.Helper()
	line, err := entities.NewBOMLine(parent, sub, qty(qtyPer), allowVariants, consumable)
	require.NoError(t, err)
	gw.AddBOMLine(*line)
}

func mustCalculate(t *testing.T, gw *memory.Gateway, opts Options, targets ...entities.TargetRequest) *dto.CalculationResult {
	t.Helper()
	result, err := NewCalculator(gw, nil, nil).Calculate(context.Background(), targets, opts)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func target(id entities.PartID, q int64) entities.TargetRequest {
	return entities.TargetRequest{PartID: id, Quantity: qty(q)}
}

// scenarioGateway builds A -> 2x SubB (variants allowed) -> 3x BaseC
func scenarioGateway(t *testing.T, baseStock int64) *memory.Gateway {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: partA, Name: "Assembly A", IsAssembly: true})
	gw.AddPart(entities.Part{ID: partSubB, Name: "Sub B", IsAssembly: true, InStock: qty(3), VariantStock: qty(4)})
	gw.AddPart(entities.Part{ID: partC, Name: "Base C", InStock: qty(baseStock)})
	mustAddBOM(t, gw, partA, partSubB, 2, true, false)
	mustAddBOM(t, gw, partSubB, partC, 3, false, false)
	return gw
}

func findOrder(lines []entities.OrderLine, id entities.PartID) *entities.OrderLine {
	for i := range lines {
		if lines[i].PartID == id {
			return &lines[i]
		}
	}
	return nil
}

func findBuild(lines []entities.BuildLine, id entities.PartID) *entities.BuildLine {
	for i := range lines {
		if lines[i].PartID == id {
			return &lines[i]
		}
	}
	return nil
}

// summarize renders the result lists for order-sensitive comparisons
func summarize(r *dto.CalculationResult) string {
	var b strings.Builder
	for _, l := range r.OrderLines {
		fmt.Fprintf(&b, "O %d %s %s %s %s %s [%s] %s\n", l.PartID, l.Name, l.TotalRequired, l.AvailableStock,
			l.Saldo, l.ToOrder, l.UsedInAssemblies, l.PurchaseOrdersSummary())
	}
	for _, l := range r.BuildLines {
		fmt.Fprintf(&b, "B %d %s %s %s %s %s [%s]\n", l.PartID, l.Name, l.Quantity, l.AvailableStock,
			l.Verfuegbar, l.ToBuild, l.ForAssembly)
	}
	return b.String()
}

func TestCalculate_Scenario(t *testing.T) {
	result := mustCalculate(t, scenarioGateway(t, 0), DefaultOptions(), target(partA, 10))

	require.Len(t, result.BuildLines, 1)
	sub := result.BuildLines[0]
	assert.Equal(t, partSubB, sub.PartID)
	assert.Equal(t, "20", sub.Quantity.String())
	assert.Equal(t, "7", sub.AvailableStock.String())
	assert.Equal(t, "13", sub.ToBuild.String())
	assert.Equal(t, "Assembly A", sub.ForAssembly)
	assert.Equal(t, []entities.PartID{partA}, sub.RootIDs)

	require.Len(t, result.OrderLines, 1)
	base := result.OrderLines[0]
	assert.Equal(t, partC, base.PartID)
	assert.Equal(t, "39", base.TotalRequired.String())
	assert.Equal(t, "39", base.ToOrder.String())
	assert.Equal(t, "0", base.Saldo.String())
	assert.Equal(t, "Assembly A", base.UsedInAssemblies)
	assert.Empty(t, result.Warnings)
}

func TestCalculate_ScenarioWithBaseStock(t *testing.T) {
	result := mustCalculate(t, scenarioGateway(t, 50), DefaultOptions(), target(partA, 10))

	assert.Nil(t, findOrder(result.OrderLines, partC))
	require.NotNil(t, findBuild(result.BuildLines, partSubB))
	assert.Equal(t, "13", findBuild(result.BuildLines, partSubB).ToBuild.String())
}

func TestCalculate_RowsArePositive(t *testing.T) {
	gw := scenarioGateway(t, 20)
	gw.AddPart(entities.Part{ID: 10, Name: "Spare", InStock: qty(100)})
	mustAddBOM(t, gw, partA, 10, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	for _, l := range result.OrderLines {
		assert.True(t, l.ToOrder.IsPositive(), "order line %d", l.PartID)
	}
	for _, l := range result.BuildLines {
		assert.True(t, l.ToBuild.IsPositive(), "build line %d", l.PartID)
	}
	assert.Nil(t, findOrder(result.OrderLines, 10))
	assert.Equal(t, "19", findOrder(result.OrderLines, partC).ToOrder.String())
}

func TestCalculate_Idempotent(t *testing.T) {
	gw := scenarioGateway(t, 5)
	gw.AddPart(entities.Part{ID: 11, Name: "Alpha Washer"})
	gw.AddPart(entities.Part{ID: 12, Name: "Alpha Washer"})
	mustAddBOM(t, gw, partA, 12, 1, false, false)
	mustAddBOM(t, gw, partA, 11, 1, false, false)

	first := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))
	second := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	assert.Equal(t, summarize(first), summarize(second))
	require.Len(t, first.OrderLines, 3)
	// same name sorts by id
	assert.Equal(t, entities.PartID(11), first.OrderLines[0].PartID)
	assert.Equal(t, entities.PartID(12), first.OrderLines[1].PartID)
	assert.Equal(t, partC, first.OrderLines[2].PartID)
}

func TestCalculate_SharedSubAssemblyCombinesShortfall(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: partA, Name: "Assembly A", IsAssembly: true})
	gw.AddPart(entities.Part{ID: partD, Name: "Assembly D", IsAssembly: true})
	gw.AddPart(entities.Part{ID: partSubB, Name: "Sub B", IsAssembly: true, InStock: qty(6)})
	gw.AddPart(entities.Part{ID: partC, Name: "Base C"})
	mustAddBOM(t, gw, partA, partSubB, 5, false, false)
	mustAddBOM(t, gw, partD, partSubB, 5, false, false)
	mustAddBOM(t, gw, partSubB, partC, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 1), target(partD, 1))

	sub := findBuild(result.BuildLines, partSubB)
	require.NotNil(t, sub)
	assert.Equal(t, "10", sub.Quantity.String())
	assert.Equal(t, "4", sub.ToBuild.String())
	assert.Equal(t, "Assembly A, Assembly D", sub.ForAssembly)

	base := findOrder(result.OrderLines, partC)
	require.NotNil(t, base)
	assert.Equal(t, "4", base.ToOrder.String())
}

// nestedSharedGateway builds two roots that each need 5x Sub B (7 in stock).
// Sub B is made from Sub D, and Sub D from Base E, neither in stock.
func nestedSharedGateway(t *testing.T) *memory.Gateway {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root 1", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Root 2", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Sub B", IsAssembly: true, InStock: qty(7)})
	gw.AddPart(entities.Part{ID: 4, Name: "Sub D", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 5, Name: "Base E"})
	mustAddBOM(t, gw, 1, 3, 5, false, false)
	mustAddBOM(t, gw, 2, 3, 5, false, false)
	mustAddBOM(t, gw, 3, 4, 1, false, false)
	mustAddBOM(t, gw, 4, 5, 1, false, false)
	return gw
}

func TestCalculate_NestedSubAssemblyUnderSharedShortfall(t *testing.T) {
	result := mustCalculate(t, nestedSharedGateway(t), DefaultOptions(), target(1, 1), target(2, 1))

	assert.Equal(t, "O 5 Base E 3 0 0 3 [Root 1, Root 2] \n"+
		"B 3 Sub B 10 7 7 3 [Root 1, Root 2]\n"+
		"B 4 Sub D 3 0 0 3 [Root 1, Root 2]\n", summarize(result))
	assert.Empty(t, result.Warnings)
}

func TestCalculate_NestedSubAssemblyFollowsParentShortfall(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Frame", IsAssembly: true, InStock: qty(5)})
	gw.AddPart(entities.Part{ID: 3, Name: "Bracket", IsAssembly: true, InStock: qty(1)})
	gw.AddPart(entities.Part{ID: 4, Name: "Sheet"})
	mustAddBOM(t, gw, 1, 2, 1, false, false)
	mustAddBOM(t, gw, 2, 3, 2, false, false)
	mustAddBOM(t, gw, 3, 4, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 10))

	// 5 frames to build need 10 brackets, one of which is in stock
	assert.Equal(t, "5", findBuild(result.BuildLines, 2).ToBuild.String())
	bracket := findBuild(result.BuildLines, 3)
	require.NotNil(t, bracket)
	assert.Equal(t, "10", bracket.Quantity.String())
	assert.Equal(t, "9", bracket.ToBuild.String())
	assert.Equal(t, "9", findOrder(result.OrderLines, 4).ToOrder.String())
}

func TestCalculate_VariantStockIsPooledPerRun(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root 1", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Root 2", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Module", IsAssembly: true, InStock: qty(1), VariantStock: qty(2)})
	gw.AddPart(entities.Part{ID: 4, Name: "Board"})
	mustAddBOM(t, gw, 1, 3, 2, true, false)
	mustAddBOM(t, gw, 2, 3, 2, false, false)
	mustAddBOM(t, gw, 3, 4, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 1), target(2, 1))

	module := findBuild(result.BuildLines, 3)
	require.NotNil(t, module)
	assert.Equal(t, "3", module.AvailableStock.String())
	assert.Equal(t, "1", module.ToBuild.String())
	assert.Equal(t, "1", findOrder(result.OrderLines, 4).ToOrder.String())
}

func TestCalculate_SharedBaseComponentTwoLevelsDeep(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Sub 1", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Sub 2", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 4, Name: "Module 1", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 5, Name: "Module 2", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 6, Name: "Chip"})
	mustAddBOM(t, gw, 1, 2, 1, false, false)
	mustAddBOM(t, gw, 1, 3, 1, false, false)
	mustAddBOM(t, gw, 2, 4, 2, false, false)
	mustAddBOM(t, gw, 3, 5, 3, false, false)
	mustAddBOM(t, gw, 4, 6, 1, false, false)
	mustAddBOM(t, gw, 5, 6, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 1))

	chip := findOrder(result.OrderLines, 6)
	require.NotNil(t, chip)
	assert.Equal(t, "5", chip.TotalRequired.String())
	assert.Equal(t, "5", chip.ToOrder.String())

	require.Len(t, result.BuildLines, 4)
	assert.Equal(t, "2", findBuild(result.BuildLines, 4).ToBuild.String())
	assert.Equal(t, "3", findBuild(result.BuildLines, 5).ToBuild.String())
}

func TestCalculate_TemplateStockLaw(t *testing.T) {
	build := func(allowVariants bool) *memory.Gateway {
		gw := memory.NewGateway()
		gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
		gw.AddPart(entities.Part{ID: 2, Name: "Template", IsTemplate: true, InStock: qty(2), VariantStock: qty(10)})
		mustAddBOM(t, gw, 1, 2, 5, allowVariants, false)
		return gw
	}

	withVariants := mustCalculate(t, build(true), DefaultOptions(), target(1, 1))
	assert.Nil(t, findOrder(withVariants.OrderLines, 2))

	templateOnly := mustCalculate(t, build(false), DefaultOptions(), target(1, 1))
	line := findOrder(templateOnly.OrderLines, 2)
	require.NotNil(t, line)
	assert.Equal(t, "2", line.AvailableStock.String())
	assert.Equal(t, "3", line.ToOrder.String())
	assert.True(t, line.IsTemplate)
}

func TestCalculate_TemplateAssemblyWithoutVariantsIsOrdered(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Cable Set", IsAssembly: true, IsTemplate: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Wire"})
	mustAddBOM(t, gw, 1, 2, 2, false, false)
	mustAddBOM(t, gw, 2, 3, 4, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 1))

	assert.NotNil(t, findOrder(result.OrderLines, 2))
	assert.Nil(t, findOrder(result.OrderLines, 3))
	assert.Empty(t, result.BuildLines)
}

func TestCalculate_ConsumableLaw(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Glue"})
	gw.AddPart(entities.Part{ID: 3, Name: "Tape", Consumable: true})
	gw.AddPart(entities.Part{ID: 4, Name: "Screw"})
	mustAddBOM(t, gw, 1, 2, 4, false, true)
	mustAddBOM(t, gw, 1, 3, 1, false, false)
	mustAddBOM(t, gw, 1, 4, 8, false, false)

	included := mustCalculate(t, gw, DefaultOptions(), target(1, 1))
	require.Len(t, included.OrderLines, 3)
	glue := findOrder(included.OrderLines, 2)
	assert.True(t, glue.IsBOMConsumable)
	assert.Equal(t, "4", glue.ToOrder.String())
	assert.True(t, findOrder(included.OrderLines, 3).IsPartConsumable)

	opts := DefaultOptions()
	opts.IncludeConsumables = false
	excluded := mustCalculate(t, gw, opts, target(1, 1))
	require.Len(t, excluded.OrderLines, 1)
	assert.Equal(t, entities.PartID(4), excluded.OrderLines[0].PartID)
}

func TestCalculate_CommitmentsAndBuilding(t *testing.T) {
	gw := scenarioGateway(t, 10)
	gw.AddPart(entities.Part{ID: partSubB, Name: "Sub B", IsAssembly: true, InStock: qty(3), VariantStock: qty(4), Building: qty(1)})
	gw.SetRequiredForOrder(partSubB, qty(2))
	gw.SetRequiredForOrder(partC, qty(5))

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	sub := findBuild(result.BuildLines, partSubB)
	require.NotNil(t, sub)
	assert.Equal(t, "5", sub.Verfuegbar.String())
	assert.Equal(t, "1", sub.Building.String())
	assert.Equal(t, "14", sub.ToBuild.String())
	assert.Equal(t, "2", sub.RequiredForOrder.String())

	base := findOrder(result.OrderLines, partC)
	require.NotNil(t, base)
	assert.Equal(t, "42", base.TotalRequired.String())
	assert.Equal(t, "5", base.Saldo.String())
	assert.Equal(t, "37", base.ToOrder.String())
}

func TestCalculate_CommitmentFailureCountsAsZero(t *testing.T) {
	gw := scenarioGateway(t, 0)
	gw.FailOperation(memory.OpGetRequiredForOrder, errors.New("timeout"))

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	assert.Equal(t, "39", findOrder(result.OrderLines, partC).ToOrder.String())
	assert.NotEmpty(t, result.Warnings)
}

func TestCalculate_PurchaseOrdersAndExclusion(t *testing.T) {
	gw := scenarioGateway(t, 0)
	gw.AddPart(entities.Part{ID: partC, Name: "Base C", ManufacturerName: "Acme"})
	gw.AddSupplierPart(entities.SupplierPart{ID: 100, PartID: partC, Supplier: 7})
	gw.AddCompany(entities.Company{ID: 7, Name: "Mouser"})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 1, Reference: "PO-0001", Status: entities.POStatusPlaced})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 2, Reference: "PO-0002", Status: entities.POStatusPending})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 3, Reference: "PO-0003", Status: entities.POStatusComplete})
	sp := entities.SupplierPartID(100)
	legacy := 100
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 1, OrderID: 1, SupplierPart: &sp, Quantity: qty(12)})
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 2, OrderID: 2, Part: &legacy, Quantity: qty(3)})
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 3, OrderID: 3, SupplierPart: &sp, Quantity: qty(99)})

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))
	base := findOrder(result.OrderLines, partC)
	require.NotNil(t, base)
	assert.Equal(t, "PO-0001 (Placed): 12; PO-0002 (Pending): 3", base.PurchaseOrdersSummary())
	assert.Equal(t, []string{"Mouser"}, base.SupplierNames)
	assert.Equal(t, "Acme", base.ManufacturerName)
	// purchase orders annotate, they do not reduce the quantity to order
	assert.Equal(t, "39", base.ToOrder.String())

	opts := DefaultOptions()
	opts.ExcludeSuppliers = []string{"mouser"}
	assert.Nil(t, findOrder(mustCalculate(t, gw, opts, target(partA, 10)).OrderLines, partC))

	opts = DefaultOptions()
	opts.ExcludeManufacturers = []string{"ACME"}
	withoutAcme := mustCalculate(t, gw, opts, target(partA, 10))
	assert.Nil(t, findOrder(withoutAcme.OrderLines, partC))
	assert.NotNil(t, findBuild(withoutAcme.BuildLines, partSubB))
}

func TestCalculate_PurchasingFailureDegrades(t *testing.T) {
	gw := scenarioGateway(t, 0)
	gw.AddSupplierPart(entities.SupplierPart{ID: 100, PartID: partC, Supplier: 7})
	gw.FailOperation(memory.OpListPurchaseOrders, errors.New("502 bad gateway"))

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	base := findOrder(result.OrderLines, partC)
	require.NotNil(t, base)
	assert.Empty(t, base.PurchaseOrders)
}

func TestCalculate_CycleIsTolerated(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Loop A", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Loop B", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Leaf"})
	mustAddBOM(t, gw, 1, 2, 1, false, false)
	mustAddBOM(t, gw, 2, 1, 1, false, false)
	mustAddBOM(t, gw, 2, 3, 1, false, false)

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 1))

	leaf := findOrder(result.OrderLines, 3)
	require.NotNil(t, leaf)
	assert.Equal(t, "1", leaf.ToOrder.String())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], entities.ErrCycleDetected.Error())
}

func TestCalculate_DepthGuard(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 2, Name: "Level 1", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 3, Name: "Level 2", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 4, Name: "Leaf"})
	mustAddBOM(t, gw, 1, 2, 1, false, false)
	mustAddBOM(t, gw, 2, 3, 1, false, false)
	mustAddBOM(t, gw, 3, 4, 1, false, false)

	opts := DefaultOptions()
	opts.MaxDepth = 2
	result := mustCalculate(t, gw, opts, target(1, 1))

	assert.Nil(t, findOrder(result.OrderLines, 4))
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], entities.ErrDepthExceeded.Error())

	unbounded := mustCalculate(t, gw, DefaultOptions(), target(1, 1))
	assert.NotNil(t, findOrder(unbounded.OrderLines, 4))
}

func TestCalculate_InvalidTargetsYieldEmptyResult(t *testing.T) {
	gw := scenarioGateway(t, 0)

	result := mustCalculate(t, gw, DefaultOptions(),
		target(partA, 0),
		target(partA, -3),
		target(999, 1),
	)

	assert.True(t, result.Empty())
	assert.Equal(t, 0, result.Stats.Targets)
	assert.Equal(t, 3, result.Stats.SkippedTargets)
	assert.Len(t, result.Warnings, 3)
}

func TestCalculate_DuplicateTargetsAreMerged(t *testing.T) {
	result := mustCalculate(t, scenarioGateway(t, 0), DefaultOptions(), target(partA, 4), target(partA, 6))

	assert.Equal(t, 1, result.Stats.Targets)
	assert.Equal(t, "39", findOrder(result.OrderLines, partC).ToOrder.String())
}

func TestCalculate_BaseComponentRoot(t *testing.T) {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Spare Fuse", InStock: qty(2)})

	result := mustCalculate(t, gw, DefaultOptions(), target(1, 5))

	require.Len(t, result.OrderLines, 1)
	assert.Equal(t, "3", result.OrderLines[0].ToOrder.String())
	assert.Equal(t, "Spare Fuse", result.OrderLines[0].UsedInAssemblies)
}

func TestCalculate_PartFetchFailureSkipsBranch(t *testing.T) {
	gw := scenarioGateway(t, 0)
	gw.AddPart(entities.Part{ID: 20, Name: "Label"})
	mustAddBOM(t, gw, partA, 20, 1, false, false)
	gw.FailPart(partC, errors.New("connection reset"))

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	assert.Nil(t, findOrder(result.OrderLines, partC))
	assert.NotNil(t, findOrder(result.OrderLines, 20))
	assert.NotEmpty(t, result.Warnings)
}

func TestCalculate_FetchesEachPartOnce(t *testing.T) {
	gw := scenarioGateway(t, 0)

	result := mustCalculate(t, gw, DefaultOptions(), target(partA, 10))

	assert.Equal(t, 3, gw.Calls(memory.OpGetPart))
	assert.Equal(t, 2, gw.Calls(memory.OpGetBOMLines))
	assert.Greater(t, result.Stats.CacheHits, 0)
	assert.Equal(t, 3, result.Stats.PartsSeen)
}

func TestCalculate_ConfigurationError(t *testing.T) {
	_, err := NewCalculator(nil, nil, nil).Calculate(context.Background(), []entities.TargetRequest{target(1, 1)}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, entities.IsConfigurationError(err))

	opts := DefaultOptions()
	opts.MaxDepth = -1
	_, err = NewCalculator(memory.NewGateway(), nil, nil).Calculate(context.Background(), nil, opts)
	assert.True(t, entities.IsConfigurationError(err))
}

func TestCalculate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCalculator(scenarioGateway(t, 0), nil, nil).Calculate(ctx, []entities.TargetRequest{target(partA, 1)}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculate_PublishesProgress(t *testing.T) {
	store := events.NewInMemoryEventStore(nil)

	var mu sync.Mutex
	var percents []int
	require.NoError(t, store.Subscribe([]string{events.ProgressUpdatedEvent}, events.HandlerFunc(func(e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		percents = append(percents, e.Data().(events.ProgressUpdated).Percent)
		return nil
	})))

	opts := DefaultOptions()
	opts.Events = store
	opts.RunID = "run-42"
	result := mustCalculate(t, scenarioGateway(t, 0), opts, target(partA, 10))
	store.Close()

	assert.Equal(t, "run-42", result.RunID)
	mu.Lock()
	assert.Equal(t, []int{5, 40, 45, 80, 85, 90, 92, 95, 100}, percents)
	mu.Unlock()

	stream, err := store.ReadEvents("run-42", 1)
	require.NoError(t, err)
	assert.Equal(t, events.CalculationStartedEvent, stream[0].Type())
	assert.Equal(t, events.CalculationCompletedEvent, stream[len(stream)-1].Type())
}

func TestCalculate_ConcurrentRunsShareNothing(t *testing.T) {
	gw := scenarioGateway(t, 0)
	calc := NewCalculator(gw, nil, nil)

	var wg sync.WaitGroup
	results := make([]*dto.CalculationResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := calc.Calculate(context.Background(), []entities.TargetRequest{target(partA, 10)}, DefaultOptions())
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, summarize(results[0]), summarize(r))
	}
}
