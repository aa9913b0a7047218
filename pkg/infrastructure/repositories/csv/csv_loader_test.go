package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, PartsFile, `pk,name,category,assembly,is_template,in_stock,variant_stock,building,consumable,manufacturer_name,required_for_order
1,Robot,10,true,false,0,0,0,false,,0
2,Arm,,yes,false,3,0,1,false,,2
3,Screw,20,false,true,100,25.5,0,true,Würth,0
`)
	writeFile(t, dir, BOMFile, `parent,sub_part,quantity,allow_variants,consumable
1,2,2,,false
2,3,0.25,false,true
`)
	return dir
}

func TestLoadGateway(t *testing.T) {
	dir := writeSnapshot(t)
	writeFile(t, dir, SupplierPartsFile, "pk,part,supplier\n100,3,5\n")
	writeFile(t, dir, CompaniesFile, "pk,name\n5,Mouser\n")
	writeFile(t, dir, PurchaseOrdersFile, "pk,reference,status\n7,PO-0007,20\n")
	writeFile(t, dir, POLinesFile, "pk,order,supplier_part,part,quantity\n1,7,100,,12\n2,7,,100,3\n")

	gw, err := NewLoader().LoadGateway(dir)
	require.NoError(t, err)
	ctx := context.Background()

	screw, err := gw.GetPart(ctx, 3)
	require.NoError(t, err)
	assert.True(t, screw.IsTemplate)
	assert.True(t, screw.Consumable)
	assert.Equal(t, "25.5", screw.VariantStock.String())
	assert.Equal(t, "Würth", screw.ManufacturerName)

	lines, err := gw.GetBOMLines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].AllowVariants, "empty allow_variants defaults to true")

	lines, err = gw.GetBOMLines(ctx, 2)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.False(t, lines[0].AllowVariants)
	assert.True(t, lines[0].Consumable)
	assert.Equal(t, "0.25", lines[0].QuantityPer.String())

	required, err := gw.GetRequiredForOrder(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "2", required.String())

	summaries, err := gw.GetPartsInCategory(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []entities.PartSummary{{ID: 1, Name: "Robot"}}, summaries)

	orderLines, err := gw.ListPurchaseOrderLines(ctx, []entities.PurchaseOrderID{7})
	require.NoError(t, err)
	require.Len(t, orderLines, 2)
	require.NotNil(t, orderLines[0].SupplierPart)
	assert.Nil(t, orderLines[0].Part)
	assert.Nil(t, orderLines[1].SupplierPart)
	assert.Equal(t, 100, *orderLines[1].Part)
}

func TestLoadGateway_PurchasingFilesOptional(t *testing.T) {
	gw, err := NewLoader().LoadGateway(writeSnapshot(t))
	require.NoError(t, err)

	orders, err := gw.ListPurchaseOrders(context.Background(), entities.OpenPOStatuses)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestLoadParts_Errors(t *testing.T) {
	header := "pk,name,category,assembly,is_template,in_stock,variant_stock,building,consumable,manufacturer_name,required_for_order\n"
	cases := map[string]struct {
		content string
		want    string
	}{
		"wrong header":  {"id,name\n1,x\n", "header mismatch"},
		"no rows":       {header, "at least one data row"},
		"bad pk":        {header + "x,A,,false,false,0,0,0,false,,0\n", "invalid pk"},
		"bad bool":      {header + "1,A,,maybe,false,0,0,0,false,,0\n", "invalid assembly"},
		"bad quantity":  {header + "1,A,,false,false,lots,0,0,false,,0\n", "invalid in_stock"},
		"short row":     {header + "1,A\n", "expected 11 columns"},
		"duplicate pk":  {header + "1,A,,false,false,0,0,0,false,,0\n1,B,,false,false,0,0,0,false,,0\n", "duplicate pk 1"},
		"bad category":  {header + "1,A,x,false,false,0,0,0,false,,0\n", "invalid category"},
		"bad committed": {header + "1,A,,false,false,0,0,0,false,,?\n", "invalid required_for_order"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, PartsFile, tc.content)
			_, err := NewLoader().LoadParts(filepath.Join(dir, PartsFile))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadBOM_Errors(t *testing.T) {
	header := "parent,sub_part,quantity,allow_variants,consumable\n"
	cases := map[string]struct {
		content string
		want    string
	}{
		"self reference":    {header + "1,1,1,true,false\n", "cannot be the same"},
		"negative quantity": {header + "1,2,-1,true,false\n", "cannot be negative"},
		"bad quantity":      {header + "1,2,two,true,false\n", "invalid quantity"},
		"bad parent":        {header + "a,2,1,true,false\n", "invalid parent"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, BOMFile, tc.content)
			_, err := NewLoader().LoadBOM(filepath.Join(dir, BOMFile))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadGateway_MissingRequiredFile(t *testing.T) {
	_, err := NewLoader().LoadGateway(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open parts file")
}

func TestValidateHeader_ToleratesByteOrderMark(t *testing.T) {
	assert.True(t, validateHeader([]string{"\ufeffpk", " Name "}, []string{"pk", "name"}))
	assert.False(t, validateHeader([]string{"pk"}, []string{"pk", "name"}))
}
