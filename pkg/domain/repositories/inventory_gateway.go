package repositories

import (
	"context"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// PartRepository provides read access to part master data and BOM structure
type PartRepository interface {
	// GetPart returns the part snapshot, or an error wrapping
	// entities.ErrPartNotFound when the id does not exist.
	GetPart(ctx context.Context, id entities.PartID) (*entities.Part, error)
	// GetBOMLines returns the direct BOM lines of an assembly. A part without
	// a BOM yields an empty slice, not an error.
	GetBOMLines(ctx context.Context, assemblyID entities.PartID) ([]entities.BOMLine, error)
	GetPartsInCategory(ctx context.Context, categoryID int) ([]entities.PartSummary, error)
	// GetRequiredForOrder returns the quantity already committed to other
	// open orders (sales and build orders).
	GetRequiredForOrder(ctx context.Context, id entities.PartID) (entities.Quantity, error)
}

// PurchasingRepository provides read access to suppliers and purchase orders
type PurchasingRepository interface {
	ListSupplierParts(ctx context.Context, partIDs []entities.PartID) ([]entities.SupplierPart, error)
	ListCompanies(ctx context.Context, ids []entities.CompanyID) ([]entities.Company, error)
	// ListPurchaseOrders returns orders whose status is in statuses.
	ListPurchaseOrders(ctx context.Context, statuses []entities.POStatus) ([]entities.PurchaseOrder, error)
	ListPurchaseOrderLines(ctx context.Context, orderIDs []entities.PurchaseOrderID) ([]entities.PurchaseOrderLine, error)
}

// InventoryGateway is everything a calculation reads from the inventory system
type InventoryGateway interface {
	PartRepository
	PurchasingRepository
}
