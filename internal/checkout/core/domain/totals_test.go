package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestComputeTotals_DigitalOnly(t *testing.T) {
	// One digital book at ₦2,000: no shipping, 7.5% tax.
	c := digitalOnlyCart()
	tot := ComputeTotals(c, nil)

	assert.Equal(t, 2000.0, tot.Subtotal)
	assert.Equal(t, 0.0, tot.ShippingCost)
	assert.Equal(t, 150.0, tot.Tax)
	assert.Equal(t, 2150.0, tot.Total)
}

func TestComputeTotals_DigitalOnlyIgnoresMethod(t *testing.T) {
	// A stale method selection from a previous mixed cart must not charge
	// shipping on a digital-only cart.
	method := &ShippingMethod{ID: "std", BaseCost: 1500}
	tot := ComputeTotals(digitalOnlyCart(), method)
	assert.Equal(t, 0.0, tot.ShippingCost)
}

func TestComputeTotals_PhysicalWithMethod(t *testing.T) {
	// One physical book at ₦5,000, base cost ₦1,500, no per-item cost.
	c := physicalCart()
	method := &ShippingMethod{ID: "std", Name: "Standard", BaseCost: 1500}
	tot := ComputeTotals(c, method)

	assert.Equal(t, 5000.0, tot.Subtotal)
	assert.Equal(t, 1500.0, tot.ShippingCost)
	assert.Equal(t, 375.0, tot.Tax)
	assert.Equal(t, 6875.0, tot.Total)
}

func TestComputeTotals_PerItemCost(t *testing.T) {
	c := Classify([]CartItem{{BookID: "p", Quantity: 3, UnitPrice: 1000, Format: FormatPhysical}})
	method := &ShippingMethod{ID: "std", BaseCost: 500, CostPerItem: 200}
	tot := ComputeTotals(c, method)
	assert.Equal(t, 1100.0, tot.ShippingCost)
}

func TestComputeTotals_FreeShippingThreshold(t *testing.T) {
	method := &ShippingMethod{ID: "std", BaseCost: 1500, FreeThreshold: ptr(10000.0)}

	below := Classify([]CartItem{{BookID: "p", Quantity: 1, UnitPrice: 5000, Format: FormatPhysical}})
	at := Classify([]CartItem{{BookID: "p", Quantity: 2, UnitPrice: 5000, Format: FormatPhysical}})

	assert.Equal(t, 1500.0, ComputeTotals(below, method).ShippingCost)
	assert.Equal(t, 5000.0, ComputeTotals(below, method).FreeShippingRemaining)
	assert.Equal(t, 0.0, ComputeTotals(at, method).ShippingCost)
	assert.Equal(t, 0.0, ComputeTotals(at, method).FreeShippingRemaining)
}

func TestComputeTotals_Idempotent(t *testing.T) {
	c := mixedCart()
	method := &ShippingMethod{ID: "exp", BaseCost: 2500, CostPerItem: 100}
	assert.Equal(t, ComputeTotals(c, method), ComputeTotals(c, method))
}

func TestComputeTotals_MethodChangeOnlyAffectsShipping(t *testing.T) {
	c := physicalCart()
	cheap := &ShippingMethod{ID: "std", BaseCost: 1500}
	fast := &ShippingMethod{ID: "exp", BaseCost: 4000}

	a := ComputeTotals(c, cheap)
	b := ComputeTotals(c, fast)

	assert.Equal(t, a.Subtotal, b.Subtotal)
	assert.Equal(t, a.Tax, b.Tax)
	assert.NotEqual(t, a.ShippingCost, b.ShippingCost)
	assert.NotEqual(t, a.Total, b.Total)
}
