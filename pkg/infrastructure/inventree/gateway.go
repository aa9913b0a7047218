package inventree

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
)

// Operation labels used in metrics and errors
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

// Verify interface compliance
var _ repositories.InventoryGateway = (*Client)(nil)

// GetPart fetches /api/part/{id}/
func (c *Client) GetPart(ctx context.Context, id entities.PartID) (*entities.Part, error) {
	var part entities.Part
	err := c.getJSON(ctx, OpGetPart, c.endpoint(fmt.Sprintf("api/part/%d/", id), nil), &part)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("part %d: %w", id, entities.ErrPartNotFound)
	}
	if err != nil {
		return nil, err
	}
	if part.ID == 0 {
		part.ID = id
	}
	return &part, nil
}

// GetBOMLines lists the BOM items of an assembly
func (c *Client) GetBOMLines(ctx context.Context, assemblyID entities.PartID) ([]entities.BOMLine, error) {
	query := url.Values{"part": {assemblyID.String()}}
	lines, err := fetchList[entities.BOMLine](ctx, c, OpGetBOMLines, "api/bom/", query)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return []entities.BOMLine{}, nil
		}
		return nil, err
	}

	out := make([]entities.BOMLine, 0, len(lines))
	for _, line := range lines {
		// inherited items report the template as parent
		line.ParentID = assemblyID
		if line.SubPartID <= 0 {
			c.logger.Warn("skipping bom item without sub part", zap.Int("assembly", int(assemblyID)))
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// GetPartsInCategory lists the parts of a category sorted by name. Entries
// without a pk or name are dropped.
func (c *Client) GetPartsInCategory(ctx context.Context, categoryID int) ([]entities.PartSummary, error) {
	query := url.Values{"category": {strconv.Itoa(categoryID)}}
	parts, err := fetchList[entities.PartSummary](ctx, c, OpGetPartsInCategory, "api/part/", query)
	if err != nil {
		return nil, err
	}

	out := make([]entities.PartSummary, 0, len(parts))
	for _, p := range parts {
		if p.ID <= 0 || strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// requirements is the subset of /api/part/{id}/requirements/ the calculator uses
type requirements struct {
	Required entities.Quantity `json:"required"`
}

// GetRequiredForOrder returns the "required" figure of the part requirements
func (c *Client) GetRequiredForOrder(ctx context.Context, id entities.PartID) (entities.Quantity, error) {
	var req requirements
	err := c.getJSON(ctx, OpGetRequiredForOrder, c.endpoint(fmt.Sprintf("api/part/%d/requirements/", id), nil), &req)
	if errors.Is(err, errNotFound) {
		return entities.Qty(0), fmt.Errorf("part %d: %w", id, entities.ErrPartNotFound)
	}
	if err != nil {
		return entities.Qty(0), err
	}
	return req.Required, nil
}

// ListSupplierParts lists supplier parts of partIDs. Results are filtered
// locally in case the server ignores the filter.
func (c *Client) ListSupplierParts(ctx context.Context, partIDs []entities.PartID) ([]entities.SupplierPart, error) {
	if len(partIDs) == 0 {
		return []entities.SupplierPart{}, nil
	}
	wanted := make(map[entities.PartID]bool, len(partIDs))
	for _, id := range partIDs {
		wanted[id] = true
	}

	query := url.Values{"part__in": {joinIDs(partIDs)}}
	sps, err := fetchList[entities.SupplierPart](ctx, c, OpListSupplierParts, "api/company/part/", query)
	if err != nil {
		return nil, err
	}
	out := sps[:0]
	for _, sp := range sps {
		if wanted[sp.PartID] {
			out = append(out, sp)
		}
	}
	return out, nil
}

// ListCompanies lists companies by pk
func (c *Client) ListCompanies(ctx context.Context, ids []entities.CompanyID) ([]entities.Company, error) {
	if len(ids) == 0 {
		return []entities.Company{}, nil
	}
	wanted := make(map[entities.CompanyID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	query := url.Values{"pk__in": {joinIDs(ids)}}
	companies, err := fetchList[entities.Company](ctx, c, OpListCompanies, "api/company/", query)
	if err != nil {
		return nil, err
	}
	out := companies[:0]
	for _, co := range companies {
		if wanted[co.ID] {
			out = append(out, co)
		}
	}
	return out, nil
}

// ListPurchaseOrders lists outstanding purchase orders whose status is in
// statuses
func (c *Client) ListPurchaseOrders(ctx context.Context, statuses []entities.POStatus) ([]entities.PurchaseOrder, error) {
	wanted := make(map[entities.POStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	query := url.Values{"outstanding": {"true"}}
	orders, err := fetchList[entities.PurchaseOrder](ctx, c, OpListPurchaseOrders, "api/order/po/", query)
	if err != nil {
		return nil, err
	}
	out := orders[:0]
	for _, o := range orders {
		if wanted[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

// ListPurchaseOrderLines lists the lines of the given orders
func (c *Client) ListPurchaseOrderLines(ctx context.Context, orderIDs []entities.PurchaseOrderID) ([]entities.PurchaseOrderLine, error) {
	if len(orderIDs) == 0 {
		return []entities.PurchaseOrderLine{}, nil
	}
	wanted := make(map[entities.PurchaseOrderID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}

	query := url.Values{"order__in": {joinIDs(orderIDs)}}
	lines, err := fetchList[entities.PurchaseOrderLine](ctx, c, OpListPOLines, "api/order/po-line/", query)
	if err != nil {
		return nil, err
	}
	out := lines[:0]
	for _, l := range lines {
		if wanted[l.OrderID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func joinIDs[ID ~int](ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}
