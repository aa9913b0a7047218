package entities

import "fmt"

// BOMLine represents a single line in an assembly's Bill of Materials
type BOMLine struct {
	ParentID      PartID   `json:"part"`
	SubPartID     PartID   `json:"sub_part"`
	QuantityPer   Quantity `json:"quantity"`
	AllowVariants bool     `json:"allow_variants"`
	Consumable    bool     `json:"consumable"`
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(parentID, subPartID PartID, quantityPer Quantity, allowVariants, consumable bool) (*BOMLine, error) {
	if parentID <= 0 {
		return nil, fmt.Errorf("parent part id must be positive, got %d", parentID)
	}
	if subPartID <= 0 {
		return nil, fmt.Errorf("sub part id must be positive, got %d", subPartID)
	}
	if parentID == subPartID {
		return nil, fmt.Errorf("parent and sub part cannot be the same: %d", parentID)
	}
	if quantityPer.IsNegative() {
		return nil, fmt.Errorf("quantity per cannot be negative, got %s", quantityPer)
	}

	return &BOMLine{
		ParentID:      parentID,
		SubPartID:     subPartID,
		QuantityPer:   quantityPer,
		AllowVariants: allowVariants,
		Consumable:    consumable,
	}, nil
}
