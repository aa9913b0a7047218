package testing

import (
	"fmt"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/memory"
)

// Part ids of the robot scenario
const (
	RobotID   entities.PartID = 1
	ArmID     entities.PartID = 2
	ScrewID   entities.PartID = 3
	MotorID   entities.PartID = 4
	GreaseID  entities.PartID = 5
	GripperID entities.PartID = 6

	// TargetCategoryID holds the finished assemblies of the robot scenario
	TargetCategoryID = 191
)

// mustAddBOMLine is a helper for tests - panics on validation error
func mustAddBOMLine(gw *memory.Gateway, parent, sub entities.PartID, qtyPer entities.Quantity, allowVariants, consumable bool) {
	line, err := entities.NewBOMLine(parent, sub, qtyPer, allowVariants, consumable)
	if err != nil {
		panic(err)
	}
	gw.AddBOMLine(*line)
}

// BuildSimpleScenario is one assembly, Robot (1), made from 2x Screw M3 (3)
// with 4 screws in stock
func BuildSimpleScenario() *memory.Gateway {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: RobotID, Name: "Robot", IsAssembly: true})
	gw.AddPart(entities.Part{ID: ScrewID, Name: "Screw M3", InStock: entities.Qty(4)})
	mustAddBOMLine(gw, RobotID, ScrewID, entities.Qty(2), false, false)
	gw.AddPartToCategory(TargetCategoryID, RobotID)
	return gw
}

// BuildRobotScenario builds
//
//	Robot (1)
//	├── 2x Arm (2, 7 in stock)
//	│   ├── 3x Screw M3 (3, Würth, supplied by Würth Elektronik, PO-0042 open for 25)
//	│   └── 1x Motor (4, 10 in stock)
//	└── 1x Grease (5, consumable part)
//	Gripper (6)
//	└── 4x Screw M3 (3)
//
// Robot and Gripper sit in TargetCategoryID. The same data ships as a CSV
// snapshot for the command line tests.
func BuildRobotScenario() *memory.Gateway {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: RobotID, Name: "Robot", IsAssembly: true})
	gw.AddPart(entities.Part{ID: ArmID, Name: "Arm", IsAssembly: true, InStock: entities.Qty(7)})
	gw.AddPart(entities.Part{ID: ScrewID, Name: "Screw M3", ManufacturerName: "Würth"})
	gw.AddPart(entities.Part{ID: MotorID, Name: "Motor", InStock: entities.Qty(10), ManufacturerName: "Maxon"})
	gw.AddPart(entities.Part{ID: GreaseID, Name: "Grease", Consumable: true})
	gw.AddPart(entities.Part{ID: GripperID, Name: "Gripper", IsAssembly: true})

	mustAddBOMLine(gw, RobotID, ArmID, entities.Qty(2), false, false)
	mustAddBOMLine(gw, RobotID, GreaseID, entities.Qty(1), false, false)
	mustAddBOMLine(gw, ArmID, ScrewID, entities.Qty(3), false, false)
	mustAddBOMLine(gw, ArmID, MotorID, entities.Qty(1), false, false)
	mustAddBOMLine(gw, GripperID, ScrewID, entities.Qty(4), false, false)

	gw.AddPartToCategory(TargetCategoryID, RobotID)
	gw.AddPartToCategory(TargetCategoryID, GripperID)

	gw.AddCompany(entities.Company{ID: 10, Name: "Würth Elektronik"})
	gw.AddSupplierPart(entities.SupplierPart{ID: 100, PartID: ScrewID, Supplier: 10})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 500, Reference: "PO-0042", Status: entities.POStatusPlaced})
	gw.AddPurchaseOrder(entities.PurchaseOrder{ID: 501, Reference: "PO-0040", Status: entities.POStatusComplete})
	sp := entities.SupplierPartID(100)
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 9000, OrderID: 500, SupplierPart: &sp, Quantity: entities.Qty(25)})
	gw.AddPurchaseOrderLine(entities.PurchaseOrderLine{ID: 9001, OrderID: 501, SupplierPart: &sp, Quantity: entities.Qty(99)})

	return gw
}

// BuildDeepScenario chains depth assemblies, each needing 2 of the next, and
// ends in one base component. The root is part 1.
func BuildDeepScenario(depth int) *memory.Gateway {
	gw := memory.NewGateway()
	for level := 1; level <= depth; level++ {
		gw.AddPart(entities.Part{ID: entities.PartID(level), Name: fmt.Sprintf("Level %d", level), IsAssembly: true})
		mustAddBOMLine(gw, entities.PartID(level), entities.PartID(level+1), entities.Qty(2), false, false)
	}
	gw.AddPart(entities.Part{ID: entities.PartID(depth + 1), Name: "Base"})
	return gw
}

// BuildWideScenario builds a root (1) with assemblies sub-assemblies that all
// share the same components base parts. Sub-assemblies start at id 1000,
// base parts at 100000.
func BuildWideScenario(assemblies, components int) *memory.Gateway {
	gw := memory.NewGateway()
	gw.AddPart(entities.Part{ID: 1, Name: "Root", IsAssembly: true})

	for c := 0; c < components; c++ {
		id := entities.PartID(100000 + c)
		gw.AddPart(entities.Part{ID: id, Name: fmt.Sprintf("Component %05d", c), InStock: entities.Qty(int64(c % 7))})
	}
	for a := 0; a < assemblies; a++ {
		id := entities.PartID(1000 + a)
		gw.AddPart(entities.Part{ID: id, Name: fmt.Sprintf("Assembly %04d", a), IsAssembly: true, InStock: entities.Qty(int64(a % 3))})
		mustAddBOMLine(gw, 1, id, entities.Qty(1), false, false)
		for c := 0; c < components; c++ {
			mustAddBOMLine(gw, id, entities.PartID(100000+c), entities.Qty(int64(1+c%4)), false, false)
		}
	}
	return gw
}
