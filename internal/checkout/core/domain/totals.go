package domain

import "math"

// TaxRate is the flat VAT applied to the cart subtotal. Tax is computed
// in exactly one place — ComputeTotals — so every surface (step summary,
// final review, order request) shows the same figure.
const TaxRate = 0.075

// ShippingMethod is a delivery option from the shipping-rate service.
// FreeThreshold, when non-nil, waives the shipping cost for orders whose
// subtotal reaches it.
type ShippingMethod struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	BaseCost      float64  `json:"base_cost"`
	CostPerItem   float64  `json:"cost_per_item"`
	FreeThreshold *float64 `json:"free_threshold,omitempty"`
	EstDaysMin    int      `json:"est_days_min"`
	EstDaysMax    int      `json:"est_days_max"`
}

// CostFor returns the shipping cost this method charges for a cart with
// the given subtotal and item count.
func (m ShippingMethod) CostFor(subtotal float64, itemCount int) float64 {
	if m.FreeThreshold != nil && subtotal >= *m.FreeThreshold {
		return 0
	}
	return round2(m.BaseCost + m.CostPerItem*float64(itemCount))
}

// Totals is the order price breakdown. Derived, never persisted:
// recomputing on an unchanged cart and method yields identical values.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shipping_cost"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`

	// FreeShippingRemaining is how much more the buyer must add to the
	// cart before the selected method ships free. Zero when already free,
	// no threshold applies, or the cart is digital-only.
	FreeShippingRemaining float64 `json:"free_shipping_remaining"`
}

// ComputeTotals derives the full price breakdown. method may be nil: a
// digital-only cart never has one, and a physical cart without a selected
// method yet shows zero shipping until the shipping-method step fixes it.
func ComputeTotals(c Classification, method *ShippingMethod) Totals {
	t := Totals{Subtotal: c.Subtotal}
	if !c.DigitalOnly && method != nil {
		t.ShippingCost = method.CostFor(c.Subtotal, c.ItemCount)
		if method.FreeThreshold != nil && c.Subtotal < *method.FreeThreshold {
			t.FreeShippingRemaining = round2(*method.FreeThreshold - c.Subtotal)
		}
	}
	t.Tax = round2(c.Subtotal * TaxRate)
	t.Total = round2(t.Subtotal + t.ShippingCost + t.Tax)
	return t
}

// round2 rounds to 2 decimal places. Prices are handled as float64 with
// rounding at computation boundaries; the order service is the final
// price authority.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
