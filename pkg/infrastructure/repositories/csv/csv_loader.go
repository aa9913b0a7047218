package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/memory"
)

// Snapshot file names inside a snapshot directory
const (
	PartsFile          = "parts.csv"
	BOMFile            = "bom.csv"
	SupplierPartsFile  = "supplier_parts.csv"
	CompaniesFile      = "companies.csv"
	PurchaseOrdersFile = "purchase_orders.csv"
	POLinesFile        = "po_lines.csv"
)

var (
	partsHeader          = []string{"pk", "name", "category", "assembly", "is_template", "in_stock", "variant_stock", "building", "consumable", "manufacturer_name", "required_for_order"}
	bomHeader            = []string{"parent", "sub_part", "quantity", "allow_variants", "consumable"}
	supplierPartsHeader  = []string{"pk", "part", "supplier"}
	companiesHeader      = []string{"pk", "name"}
	purchaseOrdersHeader = []string{"pk", "reference", "status"}
	poLinesHeader        = []string{"pk", "order", "supplier_part", "part", "quantity"}
)

// PartRecord is one row of parts.csv
type PartRecord struct {
	Part             entities.Part
	CategoryID       int
	RequiredForOrder entities.Quantity
}

// Loader reads inventory snapshots exported as CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadGateway reads every snapshot file in dir into an in-memory gateway.
// parts.csv and bom.csv are required, the purchasing files are optional.
func (l *Loader) LoadGateway(dir string) (*memory.Gateway, error) {
	parts, err := l.LoadParts(filepath.Join(dir, PartsFile))
	if err != nil {
		return nil, err
	}
	bom, err := l.LoadBOM(filepath.Join(dir, BOMFile))
	if err != nil {
		return nil, err
	}

	gw := memory.NewGateway()
	for _, rec := range parts {
		gw.AddPart(rec.Part)
		if rec.CategoryID > 0 {
			gw.AddPartToCategory(rec.CategoryID, rec.Part.ID)
		}
		if !rec.RequiredForOrder.IsZero() {
			gw.SetRequiredForOrder(rec.Part.ID, rec.RequiredForOrder)
		}
	}
	for _, line := range bom {
		gw.AddBOMLine(*line)
	}

	sps, err := l.LoadSupplierParts(filepath.Join(dir, SupplierPartsFile))
	if err != nil {
		return nil, err
	}
	for _, sp := range sps {
		gw.AddSupplierPart(sp)
	}
	companies, err := l.LoadCompanies(filepath.Join(dir, CompaniesFile))
	if err != nil {
		return nil, err
	}
	for _, c := range companies {
		gw.AddCompany(c)
	}
	orders, err := l.LoadPurchaseOrders(filepath.Join(dir, PurchaseOrdersFile))
	if err != nil {
		return nil, err
	}
	for _, po := range orders {
		gw.AddPurchaseOrder(po)
	}
	lines, err := l.LoadPurchaseOrderLines(filepath.Join(dir, POLinesFile))
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		gw.AddPurchaseOrderLine(line)
	}

	return gw, nil
}

// LoadParts loads parts from a CSV file
func (l *Loader) LoadParts(filename string) ([]PartRecord, error) {
	records, err := readRecords(filename, "parts", partsHeader, false)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parts CSV must have header and at least one data row")
	}

	parts := make([]PartRecord, 0, len(records))
	seen := make(map[entities.PartID]bool, len(records))
	for i, record := range records {
		rec, err := parsePart(record)
		if err != nil {
			return nil, fmt.Errorf("parts CSV row %d: %w", i+2, err)
		}
		if seen[rec.Part.ID] {
			return nil, fmt.Errorf("parts CSV row %d: duplicate pk %d", i+2, rec.Part.ID)
		}
		seen[rec.Part.ID] = true
		parts = append(parts, rec)
	}
	return parts, nil
}

// LoadBOM loads BOM lines from a CSV file
func (l *Loader) LoadBOM(filename string) ([]*entities.BOMLine, error) {
	records, err := readRecords(filename, "BOM", bomHeader, false)
	if err != nil {
		return nil, err
	}

	bomLines := make([]*entities.BOMLine, 0, len(records))
	for i, record := range records {
		bomLine, err := parseBOMLine(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		bomLines = append(bomLines, bomLine)
	}
	return bomLines, nil
}

// LoadSupplierParts loads supplier parts. A missing file yields no rows.
func (l *Loader) LoadSupplierParts(filename string) ([]entities.SupplierPart, error) {
	records, err := readRecords(filename, "supplier parts", supplierPartsHeader, true)
	if err != nil {
		return nil, err
	}

	sps := make([]entities.SupplierPart, 0, len(records))
	for i, record := range records {
		ids, err := parseInts(record, "pk", "part", "supplier")
		if err != nil {
			return nil, fmt.Errorf("supplier parts CSV row %d: %w", i+2, err)
		}
		sps = append(sps, entities.SupplierPart{
			ID:       entities.SupplierPartID(ids[0]),
			PartID:   entities.PartID(ids[1]),
			Supplier: entities.CompanyID(ids[2]),
		})
	}
	return sps, nil
}

// LoadCompanies loads companies. A missing file yields no rows.
func (l *Loader) LoadCompanies(filename string) ([]entities.Company, error) {
	records, err := readRecords(filename, "companies", companiesHeader, true)
	if err != nil {
		return nil, err
	}

	companies := make([]entities.Company, 0, len(records))
	for i, record := range records {
		ids, err := parseInts(record[:1], "pk")
		if err != nil {
			return nil, fmt.Errorf("companies CSV row %d: %w", i+2, err)
		}
		companies = append(companies, entities.Company{ID: entities.CompanyID(ids[0]), Name: strings.TrimSpace(record[1])})
	}
	return companies, nil
}

// LoadPurchaseOrders loads purchase order headers. A missing file yields no rows.
func (l *Loader) LoadPurchaseOrders(filename string) ([]entities.PurchaseOrder, error) {
	records, err := readRecords(filename, "purchase orders", purchaseOrdersHeader, true)
	if err != nil {
		return nil, err
	}

	orders := make([]entities.PurchaseOrder, 0, len(records))
	for i, record := range records {
		pk, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: invalid pk: %s", i+2, record[0])
		}
		status, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: invalid status: %s", i+2, record[2])
		}
		orders = append(orders, entities.PurchaseOrder{
			ID:        entities.PurchaseOrderID(pk),
			Reference: strings.TrimSpace(record[1]),
			Status:    entities.POStatus(status),
		})
	}
	return orders, nil
}

// LoadPurchaseOrderLines loads purchase order lines. supplier_part and part
// may be empty. A missing file yields no rows.
func (l *Loader) LoadPurchaseOrderLines(filename string) ([]entities.PurchaseOrderLine, error) {
	records, err := readRecords(filename, "purchase order lines", poLinesHeader, true)
	if err != nil {
		return nil, err
	}

	lines := make([]entities.PurchaseOrderLine, 0, len(records))
	for i, record := range records {
		line, err := parsePOLine(record)
		if err != nil {
			return nil, fmt.Errorf("purchase order lines CSV row %d: %w", i+2, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Helper functions for parsing CSV records

// readRecords returns the data rows of filename after checking the header
// and column count. When optional is set a missing file yields no rows.
func readRecords(filename, kind string, expectedHeader []string, optional bool) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s CSV is empty, expected header %v", kind, expectedHeader)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		name := strings.ToLower(strings.TrimSpace(actual[i]))
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name != col {
			return false
		}
	}

	return true
}

func parsePart(record []string) (PartRecord, error) {
	pk, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil || pk <= 0 {
		return PartRecord{}, fmt.Errorf("invalid pk: %s", record[0])
	}

	var category int
	if s := strings.TrimSpace(record[2]); s != "" {
		if category, err = strconv.Atoi(s); err != nil {
			return PartRecord{}, fmt.Errorf("invalid category: %s", record[2])
		}
	}

	flags := make([]bool, 0, 3)
	for _, col := range []int{3, 4, 8} {
		b, err := parseBool(record[col], false)
		if err != nil {
			return PartRecord{}, fmt.Errorf("invalid %s: %s", partsHeader[col], record[col])
		}
		flags = append(flags, b)
	}

	quantities := make([]entities.Quantity, 0, 4)
	for _, col := range []int{5, 6, 7, 10} {
		q, err := entities.ParseQty(strings.TrimSpace(record[col]))
		if err != nil {
			return PartRecord{}, fmt.Errorf("invalid %s: %s", partsHeader[col], record[col])
		}
		quantities = append(quantities, q)
	}

	return PartRecord{
		Part: entities.Part{
			ID:               entities.PartID(pk),
			Name:             strings.TrimSpace(record[1]),
			IsAssembly:       flags[0],
			IsTemplate:       flags[1],
			Consumable:       flags[2],
			InStock:          quantities[0],
			VariantStock:     quantities[1],
			Building:         quantities[2],
			ManufacturerName: strings.TrimSpace(record[9]),
		},
		CategoryID:       category,
		RequiredForOrder: quantities[3],
	}, nil
}

func parseBOMLine(record []string) (*entities.BOMLine, error) {
	ids, err := parseInts(record[:2], "parent", "sub_part")
	if err != nil {
		return nil, err
	}

	qtyPer, err := entities.ParseQty(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %s", record[2])
	}

	// missing allow_variants means variants are allowed
	allowVariants, err := parseBool(record[3], true)
	if err != nil {
		return nil, fmt.Errorf("invalid allow_variants: %s", record[3])
	}
	consumable, err := parseBool(record[4], false)
	if err != nil {
		return nil, fmt.Errorf("invalid consumable: %s", record[4])
	}

	return entities.NewBOMLine(entities.PartID(ids[0]), entities.PartID(ids[1]), qtyPer, allowVariants, consumable)
}

func parsePOLine(record []string) (entities.PurchaseOrderLine, error) {
	ids, err := parseInts(record[:2], "pk", "order")
	if err != nil {
		return entities.PurchaseOrderLine{}, err
	}
	line := entities.PurchaseOrderLine{ID: ids[0], OrderID: entities.PurchaseOrderID(ids[1])}

	if s := strings.TrimSpace(record[2]); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return entities.PurchaseOrderLine{}, fmt.Errorf("invalid supplier_part: %s", record[2])
		}
		sp := entities.SupplierPartID(v)
		line.SupplierPart = &sp
	}
	if s := strings.TrimSpace(record[3]); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return entities.PurchaseOrderLine{}, fmt.Errorf("invalid part: %s", record[3])
		}
		line.Part = &v
	}

	line.Quantity, err = entities.ParseQty(strings.TrimSpace(record[4]))
	if err != nil {
		return entities.PurchaseOrderLine{}, fmt.Errorf("invalid quantity: %s", record[4])
	}
	return line, nil
}

func parseInts(record []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(strings.TrimSpace(record[i]))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", name, record[i])
		}
		out[i] = v
	}
	return out, nil
}

func parseBool(s string, empty bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return empty, nil
	case "true", "yes", "1", "y":
		return true, nil
	case "false", "no", "0", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s", s)
	}
}
