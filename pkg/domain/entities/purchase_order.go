package entities

import "fmt"

// POStatus is the numeric purchase order status code used by InvenTree
type POStatus int

const (
	POStatusPending   POStatus = 10
	POStatusPlaced    POStatus = 20
	POStatusOnHold    POStatus = 25
	POStatusComplete  POStatus = 30
	POStatusCancelled POStatus = 40
	POStatusLost      POStatus = 50
	POStatusReturned  POStatus = 60
)

// OpenPOStatuses lists the statuses of orders that still bring stock in
var OpenPOStatuses = []POStatus{POStatusPending, POStatusPlaced, POStatusOnHold}

// String method for POStatus enum
func (s POStatus) String() string {
	switch s {
	case POStatusPending:
		return "Pending"
	case POStatusPlaced:
		return "Placed"
	case POStatusOnHold:
		return "On Hold"
	case POStatusComplete:
		return "Complete"
	case POStatusCancelled:
		return "Cancelled"
	case POStatusLost:
		return "Lost"
	case POStatusReturned:
		return "Returned"
	default:
		return fmt.Sprintf("Unknown (%d)", int(s))
	}
}

// IsOpen reports whether the status is one of OpenPOStatuses
func (s POStatus) IsOpen() bool {
	for _, open := range OpenPOStatuses {
		if s == open {
			return true
		}
	}
	return false
}

type (
	// SupplierPartID is the pk of a supplier part record
	SupplierPartID int
	// CompanyID is the pk of a company record
	CompanyID int
	// PurchaseOrderID is the pk of a purchase order
	PurchaseOrderID int
)

// SupplierPart links a part to a supplier company
type SupplierPart struct {
	ID       SupplierPartID `json:"pk"`
	PartID   PartID         `json:"part"`
	Supplier CompanyID      `json:"supplier"`
}

// Company is a supplier or manufacturer
type Company struct {
	ID   CompanyID `json:"pk"`
	Name string    `json:"name"`
}

// PurchaseOrder is the header of a purchase order
type PurchaseOrder struct {
	ID        PurchaseOrderID `json:"pk"`
	Reference string          `json:"reference"`
	Status    POStatus        `json:"status"`
}

// PurchaseOrderLine is one line of a purchase order. SupplierPart is the
// authoritative link; Part is nil or, on some servers, holds a supplier part
// pk as well.
type PurchaseOrderLine struct {
	ID           int             `json:"pk"`
	OrderID      PurchaseOrderID `json:"order"`
	SupplierPart *SupplierPartID `json:"supplier_part"`
	Part         *int            `json:"part"`
	Quantity     Quantity        `json:"quantity"`
}

// PurchaseOrderRef annotates a part with one open order that covers it
type PurchaseOrderRef struct {
	Reference string   `json:"po_ref"`
	Status    string   `json:"po_status"`
	Quantity  Quantity `json:"po_quantity"`
}

// Summary renders the ref as "REF (Status): qty"
func (r PurchaseOrderRef) Summary() string {
	return fmt.Sprintf("%s (%s): %s", r.Reference, r.Status, RoundDisplay(r.Quantity).String())
}
