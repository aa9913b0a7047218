package main

import (
	"context"
	"fmt"

	"github.com/vsinha/ordercalc/pkg/application/services/calculation"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	gateway := memory.NewGateway()
	setupCargoBikeBOM(gateway)

	store := events.NewInMemoryEventStore(nil)
	_ = store.Subscribe([]string{events.ProgressUpdatedEvent}, events.HandlerFunc(func(e events.Event) error {
		if p, ok := e.Data().(events.ProgressUpdated); ok {
			fmt.Printf("  [%3d%%] %s\n", p.Percent, p.Message)
		}
		return nil
	}))

	opts := calculation.DefaultOptions()
	opts.Events = store

	targets := []entities.TargetRequest{
		{PartID: 100, Quantity: entities.Qty(12)},
	}

	fmt.Println("🚲 Calculating orders for 12 cargo bikes...")
	result, err := calculation.NewCalculator(gateway, nil, nil).Calculate(ctx, targets, opts)
	store.Close()
	if err != nil {
		fmt.Printf("❌ Calculation failed: %v\n", err)
		return
	}
	fmt.Println()

	fmt.Println("🔧 Sub-assemblies to build:")
	for _, l := range result.BuildLines {
		fmt.Printf("  %-20s need %-4s free %-4s build %s\n", l.Name, l.Quantity, l.Verfuegbar, l.ToBuild)
	}
	fmt.Println()

	fmt.Println("🛒 Parts to order:")
	for _, l := range result.OrderLines {
		fmt.Printf("  %-20s need %-4s stock %-4s order %s", l.Name, l.TotalRequired, l.AvailableStock, l.ToOrder)
		if s := l.PurchaseOrdersSummary(); s != "" {
			fmt.Printf("  (open: %s)", s)
		}
		fmt.Println()
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
}

// setupCargoBikeBOM builds
//
//	Cargo Bike (100)
//	├── 2x Wheel (200, template, variants allowed)
//	│   ├── 36x Spoke (300)
//	│   └── 1x Rim (301)
//	├── 1x Frame (302)
//	└── 0.05x Chain Oil (303, consumable)
func setupCargoBikeBOM(gw *memory.Gateway) {
	gw.AddPart(entities.Part{ID: 100, Name: "Cargo Bike", IsAssembly: true})
	gw.AddPart(entities.Part{ID: 200, Name: "Wheel", IsAssembly: true, IsTemplate: true, InStock: entities.Qty(2), VariantStock: entities.Qty(4)})
	gw.AddPart(entities.Part{ID: 300, Name: "Spoke", InStock: entities.Qty(400)})
	gw.AddPart(entities.Part{ID: 301, Name: "Rim", InStock: entities.Qty(5)})
	gw.AddPart(entities.Part{ID: 302, Name: "Frame", InStock: entities.Qty(3), ManufacturerName: "Steelworks"})
	gw.AddPart(entities.Part{ID: 303, Name: "Chain Oil", Consumable: true})

	for _, l := range []struct {
		parent, sub   entities.PartID
		qty           entities.Quantity
		allowVariants bool
		consumable    bool
	}{
		{100, 200, entities.Qty(2), true, false},
		{200, 300, entities.Qty(36), false, false},
		{200, 301, entities.Qty(1), false, false},
		{100, 302, entities.Qty(1), false, false},
		{100, 303, entities.QtyFromFloat(0.05), false, true},
	} {
		line, err := entities.NewBOMLine(l.parent, l.sub, l.qty, l.allowVariants, l.consumable)
		if err != nil {
			panic(err)
		}
		gw.AddBOMLine(*line)
	}

	gw.AddCompany(entities.Company{ID: 1, Name: "Frame Supply GmbH"})
	gw.AddSupplierPart(entities.SupplierPart{ID: 10, PartID: 302, Supplier: 1})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 7, Reference: "PO-0007", Status: entities.POStatusPlaced})
	sp := entities.SupplierPartID(10)
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 70, OrderID: 7, SupplierPart: &sp, Quantity: entities.Qty(6)})
}
