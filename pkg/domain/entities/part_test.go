package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPart_Suppliers(t *testing.T) {
	p := &Part{ID: 7, Name: "Resistor"}
	p.AddSuppliers("Mouser", " mouser ", "", "Digikey")

	assert.Equal(t, []string{"Mouser", "Digikey"}, p.SupplierNames)
	assert.True(t, p.HasSupplier("MOUSER"))
	assert.False(t, p.HasSupplier("Farnell"))
}

func TestPart_DisplayName(t *testing.T) {
	var missing *Part
	assert.Equal(t, "Unknown", missing.DisplayName())
	assert.Equal(t, "Unknown (ID: 9)", (&Part{ID: 9}).DisplayName())
	assert.Equal(t, "Cap", (&Part{ID: 9, Name: "Cap"}).DisplayName())
}

func TestPOStatus_String(t *testing.T) {
	cases := map[POStatus]string{
		POStatusPending:   "Pending",
		POStatusPlaced:    "Placed",
		POStatusOnHold:    "On Hold",
		POStatusComplete:  "Complete",
		POStatusCancelled: "Cancelled",
		POStatusLost:      "Lost",
		POStatusReturned:  "Returned",
		POStatus(70):      "Unknown (70)",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.String())
	}

	assert.True(t, POStatusOnHold.IsOpen())
	assert.False(t, POStatusComplete.IsOpen())
}

func TestRequirementMap_Add(t *testing.T) {
	m := NewRequirementMap()
	m.Add(1, 10, Qty(2))
	m.Add(1, 10, QtyFromFloat(0.5))
	m.Add(2, 10, Qty(1))

	assert.Equal(t, "2.5", m.Get(1, 10).String())
	assert.True(t, m.Get(3, 10).IsZero())
	assert.Equal(t, []PartID{1, 2}, m.Roots())
}

func TestTargetRequest_Validate(t *testing.T) {
	require.NoError(t, TargetRequest{PartID: 1, Quantity: Qty(1)}.Validate())

	err := TargetRequest{PartID: 1, Quantity: Qty(0)}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTarget))

	err = TargetRequest{PartID: -2, Quantity: Qty(1)}.Validate()
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestGatewayError_Temporary(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, (&GatewayError{Operation: "get_part", Cause: cause}).Temporary())
	assert.True(t, (&GatewayError{Operation: "get_part", StatusCode: 503, Cause: cause}).Temporary())
	assert.False(t, (&GatewayError{Operation: "get_part", StatusCode: 404, Cause: cause}).Temporary())
	assert.ErrorIs(t, &GatewayError{Operation: "x", Cause: ErrPartNotFound}, ErrPartNotFound)

	assert.True(t, IsConfigurationError(&ConfigurationError{Field: "url", Message: "missing"}))
}

func TestOrderLine_PurchaseOrdersSummary(t *testing.T) {
	line := OrderLine{PurchaseOrders: []PurchaseOrderRef{
		{Reference: "PO-1", Status: "Placed", Quantity: Qty(5)},
		{Reference: "PO-2", Status: "Pending", Quantity: QtyFromFloat(1.25)},
	}}
	assert.Equal(t, "PO-1 (Placed): 5; PO-2 (Pending): 1.25", line.PurchaseOrdersSummary())
}
