package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
)

// Operation names used for call counting and failure injection
const (
	OpGetPart             = "get_part"
	OpGetBOMLines         = "get_bom_lines"
	OpGetPartsInCategory  = "get_parts_in_category"
	OpGetRequiredForOrder = "get_required_for_order"
	OpListSupplierParts   = "list_supplier_parts"
	OpListCompanies       = "list_companies"
	OpListPurchaseOrders  = "list_purchase_orders"
	OpListPOLines         = "list_purchase_order_lines"
)

// Gateway is an in-memory inventory snapshot. It backs offline runs from CSV
// snapshots and the calculation tests.
type Gateway struct {
	mu sync.RWMutex

	parts         map[entities.PartID]entities.Part
	categories    map[int][]entities.PartID
	bomIndexes    map[entities.PartID][]int
	bomLines      []entities.BOMLine
	commitments   map[entities.PartID]entities.Quantity
	supplierParts []entities.SupplierPart
	companies     map[entities.CompanyID]entities.Company
	orders        []entities.PurchaseOrder
	orderLines    []entities.PurchaseOrderLine

	calls    map[string]int
	failures map[string]error
	partErrs map[entities.PartID]error
}

// NewGateway creates an empty in-memory gateway
func NewGateway() *Gateway {
	return &Gateway{
		parts:       make(map[entities.PartID]entities.Part),
		categories:  make(map[int][]entities.PartID),
		bomIndexes:  make(map[entities.PartID][]int),
		commitments: make(map[entities.PartID]entities.Quantity),
		companies:   make(map[entities.CompanyID]entities.Company),
		calls:       make(map[string]int),
		failures:    make(map[string]error),
		partErrs:    make(map[entities.PartID]error),
	}
}

// Verify interface compliance
var _ repositories.InventoryGateway = (*Gateway)(nil)

// AddPart adds or replaces a part
func (g *Gateway) AddPart(part entities.Part) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parts[part.ID] = part
}

// AddPartToCategory files an existing part under a category
func (g *Gateway) AddPartToCategory(categoryID int, id entities.PartID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.categories[categoryID] = append(g.categories[categoryID], id)
}

// AddBOMLine appends a BOM line to its parent's BOM
func (g *Gateway) AddBOMLine(line entities.BOMLine) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bomIndexes[line.ParentID] = append(g.bomIndexes[line.ParentID], len(g.bomLines))
	g.bomLines = append(g.bomLines, line)
}

// SetRequiredForOrder sets the external commitment for a part
func (g *Gateway) SetRequiredForOrder(id entities.PartID, qty entities.Quantity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commitments[id] = qty
}

// AddSupplierPart registers a supplier part
func (g *Gateway) AddSupplierPart(sp entities.SupplierPart) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.supplierParts = append(g.supplierParts, sp)
}

// AddCompany registers a company
func (g *Gateway) AddCompany(c entities.Company) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.companies[c.ID] = c
}

// AddPurchaseOrder registers a purchase order header
func (g *Gateway) AddPurchaseOrder(po entities.PurchaseOrder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, po)
}

// AddPurchaseOrderLine registers a purchase order line
func (g *Gateway) AddPurchaseOrderLine(line entities.PurchaseOrderLine) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderLines = append(g.orderLines, line)
}

// FailOperation makes every call of op return err. A nil err clears it.
func (g *Gateway) FailOperation(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// FailPart makes GetPart return err for one id
func (g *Gateway) FailPart(id entities.PartID, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partErrs[id] = err
}

// Calls returns how many times op has been invoked
func (g *Gateway) Calls(op string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.calls[op]
}

// Parts returns every part ordered by id
func (g *Gateway) Parts() []entities.Part {
	g.mu.RLock()
	defer g.mu.RUnlock()
	parts := make([]entities.Part, 0, len(g.parts))
	for _, p := range g.parts {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	return parts
}

// BOMLines returns every BOM line in insertion order
func (g *Gateway) BOMLines() []entities.BOMLine {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]entities.BOMLine(nil), g.bomLines...)
}

// begin counts the call and returns an injected failure, if any
func (g *Gateway) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	if err, ok := g.failures[op]; ok {
		return &entities.GatewayError{Operation: op, Cause: err}
	}
	return nil
}

// GetPart returns a copy of the stored part
func (g *Gateway) GetPart(ctx context.Context, id entities.PartID) (*entities.Part, error) {
	if err := g.begin(ctx, OpGetPart); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err, ok := g.partErrs[id]; ok {
		return nil, &entities.GatewayError{Operation: OpGetPart, Cause: err}
	}
	part, exists := g.parts[id]
	if !exists {
		return nil, fmt.Errorf("part %d: %w", id, entities.ErrPartNotFound)
	}
	part.SupplierNames = append([]string(nil), part.SupplierNames...)
	return &part, nil
}

// GetBOMLines returns the direct BOM lines of an assembly
func (g *Gateway) GetBOMLines(ctx context.Context, assemblyID entities.PartID) ([]entities.BOMLine, error) {
	if err := g.begin(ctx, OpGetBOMLines); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	indexes := g.bomIndexes[assemblyID]
	lines := make([]entities.BOMLine, 0, len(indexes))
	for _, idx := range indexes {
		lines = append(lines, g.bomLines[idx])
	}
	return lines, nil
}

// GetPartsInCategory lists the parts filed under a category, sorted by name
func (g *Gateway) GetPartsInCategory(ctx context.Context, categoryID int) ([]entities.PartSummary, error) {
	if err := g.begin(ctx, OpGetPartsInCategory); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	summaries := make([]entities.PartSummary, 0, len(g.categories[categoryID]))
	for _, id := range g.categories[categoryID] {
		if p, ok := g.parts[id]; ok {
			summaries = append(summaries, entities.PartSummary{ID: p.ID, Name: p.Name})
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// GetRequiredForOrder returns the stored commitment, zero when unset
func (g *Gateway) GetRequiredForOrder(ctx context.Context, id entities.PartID) (entities.Quantity, error) {
	if err := g.begin(ctx, OpGetRequiredForOrder); err != nil {
		return decimal.Zero, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.parts[id]; !ok {
		return decimal.Zero, fmt.Errorf("part %d: %w", id, entities.ErrPartNotFound)
	}
	return g.commitments[id], nil
}

// ListSupplierParts returns supplier parts whose part is in partIDs
func (g *Gateway) ListSupplierParts(ctx context.Context, partIDs []entities.PartID) ([]entities.SupplierPart, error) {
	if err := g.begin(ctx, OpListSupplierParts); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[entities.PartID]bool, len(partIDs))
	for _, id := range partIDs {
		wanted[id] = true
	}
	result := make([]entities.SupplierPart, 0)
	for _, sp := range g.supplierParts {
		if wanted[sp.PartID] {
			result = append(result, sp)
		}
	}
	return result, nil
}

// ListCompanies returns the companies with the given ids
func (g *Gateway) ListCompanies(ctx context.Context, ids []entities.CompanyID) ([]entities.Company, error) {
	if err := g.begin(ctx, OpListCompanies); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]entities.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := g.companies[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListPurchaseOrders returns orders whose status is in statuses
func (g *Gateway) ListPurchaseOrders(ctx context.Context, statuses []entities.POStatus) ([]entities.PurchaseOrder, error) {
	if err := g.begin(ctx, OpListPurchaseOrders); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]entities.PurchaseOrder, 0)
	for _, po := range g.orders {
		for _, s := range statuses {
			if po.Status == s {
				result = append(result, po)
				break
			}
		}
	}
	return result, nil
}

// ListPurchaseOrderLines returns lines belonging to any of orderIDs
func (g *Gateway) ListPurchaseOrderLines(ctx context.Context, orderIDs []entities.PurchaseOrderID) ([]entities.PurchaseOrderLine, error) {
	if err := g.begin(ctx, OpListPOLines); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[entities.PurchaseOrderID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	result := make([]entities.PurchaseOrderLine, 0)
	for _, line := range g.orderLines {
		if wanted[line.OrderID] {
			result = append(result, line)
		}
	}
	return result, nil
}
