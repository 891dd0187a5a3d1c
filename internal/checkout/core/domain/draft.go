package domain

// Address is a delivery or billing address. State must be one of the
// administrative regions in Regions (see validate.go).
type Address struct {
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CustomerInfo identifies the person placing the order.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Draft is the in-progress order: everything the buyer has entered across
// the checkout steps so far. It is mutated field by field, persisted to
// the draft store after every mutation, and cleared only on confirmed
// submission or explicit abandonment.
//
// ShippingMethodID and the shipping address may hold stale values from an
// earlier mixed-cart session; validation ignores them on a digital-only
// cart instead of deleting them.
type Draft struct {
	Customer              CustomerInfo `json:"customer"`
	ShippingAddress       Address      `json:"shipping_address"`
	BillingSameAsShipping bool         `json:"billing_same_as_shipping"`
	BillingAddress        Address      `json:"billing_address"`
	ShippingMethodID      string       `json:"shipping_method_id"`
	GatewayID             string       `json:"gateway_id"`
	Notes                 string       `json:"notes"`
}

// Profile is the slice of an authenticated account used to pre-fill the
// customer-info step. Supplied by the auth service.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   *Address
}

// EmptyDraft returns the zero draft a new checkout starts from.
func EmptyDraft() Draft {
	return Draft{BillingSameAsShipping: true, ShippingAddress: Address{Country: "Nigeria"}}
}

// PrefilledDraft builds a starting draft from an authenticated profile.
// Only empty draft fields would be candidates for pre-fill, but this is
// called before any user input exists so it fills unconditionally.
func PrefilledDraft(p Profile) Draft {
	d := EmptyDraft()
	d.Customer = CustomerInfo{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
	d.ShippingAddress.Phone = p.Phone
	if p.Address != nil {
		d.ShippingAddress = *p.Address
		if d.ShippingAddress.Country == "" {
			d.ShippingAddress.Country = "Nigeria"
		}
		d.ShippingAddress.Phone = p.Phone
	}
	return d
}
