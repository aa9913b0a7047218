package entities

import "strings"

// OrderLine is one base component that has to be purchased
type OrderLine struct {
	PartID           PartID             `json:"pk"`
	Name             string             `json:"name"`
	TotalRequired    Quantity           `json:"total_required"`
	AvailableStock   Quantity           `json:"available_stock"`
	RequiredForOrder Quantity           `json:"required_for_order"`
	Saldo            Quantity           `json:"saldo"`
	ToOrder          Quantity           `json:"to_order"`
	UsedInAssemblies string             `json:"used_in_assemblies"`
	PurchaseOrders   []PurchaseOrderRef `json:"purchase_orders"`
	ManufacturerName string             `json:"manufacturer_name,omitempty"`
	SupplierNames    []string           `json:"supplier_names,omitempty"`
	IsBOMConsumable  bool               `json:"is_bom_consumable"`
	IsPartConsumable bool               `json:"is_part_consumable"`
	IsTemplate       bool               `json:"is_template"`
}

// PurchaseOrdersSummary joins the PO refs as "REF (Status): qty; ..."
func (l OrderLine) PurchaseOrdersSummary() string {
	parts := make([]string, 0, len(l.PurchaseOrders))
	for _, po := range l.PurchaseOrders {
		parts = append(parts, po.Summary())
	}
	return strings.Join(parts, "; ")
}

// BuildLine is one intermediate assembly that has to be built
type BuildLine struct {
	PartID           PartID   `json:"pk"`
	Name             string   `json:"name"`
	Quantity         Quantity `json:"quantity"`
	AvailableStock   Quantity `json:"available_stock"`
	RequiredForOrder Quantity `json:"required_for_order"`
	Verfuegbar       Quantity `json:"verfuegbar"`
	Building         Quantity `json:"building"`
	ToBuild          Quantity `json:"to_build"`
	ForAssembly      string   `json:"for_assembly"`
	RootIDs          []PartID `json:"root_ids"`
}
