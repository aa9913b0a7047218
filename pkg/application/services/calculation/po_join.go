package calculation

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
)

// DefaultChunkSize bounds the number of ids sent in one gateway request
const DefaultChunkSize = 100

// POJoin relates open purchase order lines back to the parts they deliver
type POJoin struct {
	gateway   repositories.PurchasingRepository
	logger    *zap.Logger
	metrics   *metrics.Recorder
	chunkSize int

	// supplier parts already fetched, by part id
	known map[entities.PartID][]entities.SupplierPart
}

// NewPOJoin creates a join over gateway. chunkSize <= 0 uses DefaultChunkSize.
func NewPOJoin(gateway repositories.PurchasingRepository, logger *zap.Logger, recorder *metrics.Recorder, chunkSize int) *POJoin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &POJoin{
		gateway:   gateway,
		logger:    logger,
		metrics:   recorder,
		chunkSize: chunkSize,
		known:     make(map[entities.PartID][]entities.SupplierPart),
	}
}

// FindOpenOrders returns, per part, the open purchase orders delivering it.
// Any failing step yields an empty result; purchase order data only
// annotates the order list.
func (j *POJoin) FindOpenOrders(ctx context.Context, partIDs []entities.PartID) map[entities.PartID][]entities.PurchaseOrderRef {
	result := make(map[entities.PartID][]entities.PurchaseOrderRef)
	if len(partIDs) == 0 {
		return result
	}

	supplierToPart, err := j.supplierPartIndex(ctx, partIDs)
	if err != nil {
		j.logger.Warn("purchase order lookup skipped: supplier parts unavailable", zap.Error(err))
		return result
	}
	if len(supplierToPart) == 0 {
		return result
	}

	orders, err := j.gateway.ListPurchaseOrders(ctx, entities.OpenPOStatuses)
	if err != nil {
		j.logger.Warn("purchase order lookup skipped: orders unavailable", zap.Error(err))
		return result
	}

	open := make(map[entities.PurchaseOrderID]entities.PurchaseOrder, len(orders))
	orderIDs := make([]entities.PurchaseOrderID, 0, len(orders))
	for _, po := range orders {
		// servers do not reliably apply the status filter
		if !po.Status.IsOpen() {
			continue
		}
		if _, dup := open[po.ID]; dup {
			continue
		}
		open[po.ID] = po
		orderIDs = append(orderIDs, po.ID)
	}
	if len(orderIDs) == 0 {
		return result
	}
	sort.Slice(orderIDs, func(a, b int) bool { return orderIDs[a] < orderIDs[b] })

	var lines []entities.PurchaseOrderLine
	for start := 0; start < len(orderIDs); start += j.chunkSize {
		end := min(start+j.chunkSize, len(orderIDs))
		chunk, err := j.gateway.ListPurchaseOrderLines(ctx, orderIDs[start:end])
		if err != nil {
			j.logger.Warn("purchase order lookup skipped: order lines unavailable", zap.Error(err))
			return make(map[entities.PartID][]entities.PurchaseOrderRef)
		}
		lines = append(lines, chunk...)
	}

	for _, line := range lines {
		po, ok := open[line.OrderID]
		if !ok {
			continue
		}
		partID, ok := j.originPart(line, supplierToPart)
		if !ok {
			continue
		}
		result[partID] = append(result[partID], entities.PurchaseOrderRef{
			Reference: po.Reference,
			Status:    po.Status.String(),
			Quantity:  line.Quantity,
		})
	}

	for id := range result {
		refs := result[id]
		sort.SliceStable(refs, func(a, b int) bool { return refs[a].Reference < refs[b].Reference })
	}
	return result
}

// supplierPartIndex maps supplier part ids to their part ids
func (j *POJoin) supplierPartIndex(ctx context.Context, partIDs []entities.PartID) (map[entities.SupplierPartID]entities.PartID, error) {
	sps, err := j.supplierParts(ctx, partIDs)
	if err != nil {
		return nil, err
	}
	index := make(map[entities.SupplierPartID]entities.PartID, len(sps))
	for _, sp := range sps {
		index[sp.ID] = sp.PartID
	}
	return index, nil
}

// supplierParts fetches, in chunks, the supplier parts of partIDs not seen
// before by this join
func (j *POJoin) supplierParts(ctx context.Context, partIDs []entities.PartID) ([]entities.SupplierPart, error) {
	missing := make([]entities.PartID, 0, len(partIDs))
	for _, id := range partIDs {
		if _, ok := j.known[id]; !ok {
			missing = append(missing, id)
		}
	}

	for start := 0; start < len(missing); start += j.chunkSize {
		end := min(start+j.chunkSize, len(missing))
		chunk := missing[start:end]
		sps, err := j.gateway.ListSupplierParts(ctx, chunk)
		if err != nil {
			return nil, err
		}
		for _, id := range chunk {
			j.known[id] = nil
		}
		for _, sp := range sps {
			j.known[sp.PartID] = append(j.known[sp.PartID], sp)
		}
	}

	var out []entities.SupplierPart
	for _, id := range partIDs {
		out = append(out, j.known[id]...)
	}
	return out, nil
}

// SupplierNames resolves the supplier company names of each part. Failures
// leave the parts without supplier names.
func (j *POJoin) SupplierNames(ctx context.Context, partIDs []entities.PartID) map[entities.PartID][]string {
	names := make(map[entities.PartID][]string)
	sps, err := j.supplierParts(ctx, partIDs)
	if err != nil {
		j.logger.Warn("supplier names unavailable", zap.Error(err))
		return names
	}

	seen := make(map[entities.CompanyID]bool)
	companyIDs := make([]entities.CompanyID, 0)
	for _, sp := range sps {
		if !seen[sp.Supplier] {
			seen[sp.Supplier] = true
			companyIDs = append(companyIDs, sp.Supplier)
		}
	}
	sort.Slice(companyIDs, func(a, b int) bool { return companyIDs[a] < companyIDs[b] })

	companies := make(map[entities.CompanyID]string, len(companyIDs))
	for start := 0; start < len(companyIDs); start += j.chunkSize {
		end := min(start+j.chunkSize, len(companyIDs))
		list, err := j.gateway.ListCompanies(ctx, companyIDs[start:end])
		if err != nil {
			j.logger.Warn("supplier names unavailable", zap.Error(err))
			return names
		}
		for _, c := range list {
			companies[c.ID] = c.Name
		}
	}

	for _, sp := range sps {
		if name, ok := companies[sp.Supplier]; ok && name != "" {
			names[sp.PartID] = append(names[sp.PartID], name)
		}
	}
	return names
}

// originPart resolves the part a PO line delivers. supplier_part is
// authoritative; some servers only fill the part field, which then holds a
// supplier part id as well.
func (j *POJoin) originPart(line entities.PurchaseOrderLine, supplierToPart map[entities.SupplierPartID]entities.PartID) (entities.PartID, bool) {
	if line.SupplierPart != nil {
		if id, ok := supplierToPart[*line.SupplierPart]; ok {
			return id, true
		}
	}
	if line.Part != nil {
		if id, ok := supplierToPart[entities.SupplierPartID(*line.Part)]; ok {
			j.logger.Warn("purchase order line matched through part field",
				zap.Int("line_id", line.ID),
				zap.Int("order_id", int(line.OrderID)),
				zap.Int("part_field", *line.Part))
			j.metrics.POFallback()
			return id, true
		}
	}
	return 0, false
}
