package entities

import (
	"fmt"
	"strings"
)

// PartID is the inventory system's primary key for a part
type PartID int

// String renders the id the way it appears in logs and exports
func (id PartID) String() string {
	return fmt.Sprintf("%d", int(id))
}

// Part is a snapshot of one part as reported by the inventory system
type Part struct {
	ID               PartID   `json:"pk" yaml:"pk"`
	Name             string   `json:"name" yaml:"name"`
	IsAssembly       bool     `json:"assembly" yaml:"assembly"`
	IsTemplate       bool     `json:"is_template" yaml:"is_template"`
	Consumable       bool     `json:"consumable" yaml:"consumable"`
	InStock          Quantity `json:"in_stock" yaml:"in_stock"`
	VariantStock     Quantity `json:"variant_stock" yaml:"variant_stock"`
	Building         Quantity `json:"building" yaml:"building"`
	ManufacturerName string   `json:"manufacturer_name,omitempty" yaml:"manufacturer_name,omitempty"`
	SupplierNames    []string `json:"supplier_names,omitempty" yaml:"supplier_names,omitempty"`
}

// DisplayName returns the part name, or a placeholder naming the id when the
// name could not be fetched
func (p *Part) DisplayName() string {
	if p == nil {
		return "Unknown"
	}
	if p.Name == "" {
		return UnknownPartName(p.ID)
	}
	return p.Name
}

// HasSupplier reports whether name is among the part's suppliers (case-insensitive)
func (p *Part) HasSupplier(name string) bool {
	for _, s := range p.SupplierNames {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// AddSuppliers merges names into SupplierNames, skipping duplicates and blanks
func (p *Part) AddSuppliers(names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || p.HasSupplier(n) {
			continue
		}
		p.SupplierNames = append(p.SupplierNames, n)
	}
}

// PartSummary is the light listing entry used for category browsing
type PartSummary struct {
	ID   PartID `json:"pk" yaml:"pk"`
	Name string `json:"name" yaml:"name"`
}

// UnknownPartName is the placeholder used when a part's details are missing
func UnknownPartName(id PartID) string {
	return fmt.Sprintf("Unknown (ID: %d)", int(id))
}
