package domain

import (
	"regexp"
	"strings"
)

// ValidationError flags a single draft field. Field is the draft path
// ("customer.email", "shipping_address.state", ...), Message is ready for
// display.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Regions is the fixed list of administrative regions a shipping address
// may name: the 36 Nigerian states plus the Federal Capital Territory.
var Regions = []string{
	"Abia", "Adamawa", "Akwa Ibom", "Anambra", "Bauchi", "Bayelsa",
	"Benue", "Borno", "Cross River", "Delta", "Ebonyi", "Edo", "Ekiti",
	"Enugu", "Gombe", "Imo", "Jigawa", "Kaduna", "Kano", "Katsina",
	"Kebbi", "Kogi", "Kwara", "Lagos", "Nasarawa", "Niger", "Ogun",
	"Ondo", "Osun", "Oyo", "Plateau", "Rivers", "Sokoto", "Taraba",
	"Yobe", "Zamfara", "FCT",
}

func validRegion(s string) bool {
	for _, r := range Regions {
		if strings.EqualFold(r, s) {
			return true
		}
	}
	return false
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationContext carries the cart classification and the option sets
// the draft may reference. Selection fields are validated against what is
// currently offered, not against what was offered when the draft was
// written.
type ValidationContext struct {
	Classification Classification
	MethodIDs      []string
	GatewayIDs     []string
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// fieldRule is one row of the validation table: which field it guards,
// when it applies, which step it belongs to, and the check itself.
// Expressing the shipping exemption as an appliesWhen predicate keeps the
// digital-only policy in one place instead of scattered conditionals.
type fieldRule struct {
	field       string
	step        StepID
	appliesWhen func(Classification) bool
	check       func(d Draft, vc ValidationContext) string
}

func always(Classification) bool      { return true }
func shippable(c Classification) bool { return !c.DigitalOnly }

func requireStr(v, msg string) string {
	if strings.TrimSpace(v) == "" {
		return msg
	}
	return ""
}

var rules = []fieldRule{
	{"customer.first_name", StepCustomerInfo, always, func(d Draft, _ ValidationContext) string {
		return requireStr(d.Customer.FirstName, "First name is required")
	}},
	{"customer.last_name", StepCustomerInfo, always, func(d Draft, _ ValidationContext) string {
		return requireStr(d.Customer.LastName, "Last name is required")
	}},
	{"customer.email", StepCustomerInfo, always, func(d Draft, _ ValidationContext) string {
		if msg := requireStr(d.Customer.Email, "Email is required"); msg != "" {
			return msg
		}
		if !emailRe.MatchString(d.Customer.Email) {
			return "Enter a valid email address"
		}
		return ""
	}},
	{"shipping_address.phone", StepShippingAddress, shippable, func(d Draft, _ ValidationContext) string {
		return requireStr(d.ShippingAddress.Phone, "Phone number is required")
	}},
	{"shipping_address.street", StepShippingAddress, shippable, func(d Draft, _ ValidationContext) string {
		return requireStr(d.ShippingAddress.Street, "Street address is required")
	}},
	{"shipping_address.city", StepShippingAddress, shippable, func(d Draft, _ ValidationContext) string {
		return requireStr(d.ShippingAddress.City, "City is required")
	}},
	{"shipping_address.state", StepShippingAddress, shippable, func(d Draft, _ ValidationContext) string {
		if msg := requireStr(d.ShippingAddress.State, "State is required"); msg != "" {
			return msg
		}
		if !validRegion(d.ShippingAddress.State) {
			return "Select a valid state"
		}
		return ""
	}},
	{"shipping_address.postal_code", StepShippingAddress, shippable, func(d Draft, _ ValidationContext) string {
		return requireStr(d.ShippingAddress.PostalCode, "Postal code is required")
	}},
	{"shipping_method_id", StepShippingMethod, shippable, func(d Draft, vc ValidationContext) string {
		if msg := requireStr(d.ShippingMethodID, "Select a shipping method"); msg != "" {
			return msg
		}
		if len(vc.MethodIDs) > 0 && !contains(vc.MethodIDs, d.ShippingMethodID) {
			return "The selected shipping method is no longer available"
		}
		return ""
	}},
	{"gateway_id", StepPayment, always, func(d Draft, vc ValidationContext) string {
		if msg := requireStr(d.GatewayID, "Select a payment method"); msg != "" {
			return msg
		}
		if !contains(vc.GatewayIDs, d.GatewayID) {
			return "The selected payment method is not available"
		}
		return ""
	}},
}

// ValidateField runs the single rule guarding the given field path.
// Returns nil when the field is valid, unknown, or exempt for the current
// cart classification.
func ValidateField(field string, d Draft, vc ValidationContext) *ValidationError {
	for _, r := range rules {
		if r.field != field {
			continue
		}
		if !r.appliesWhen(vc.Classification) {
			return nil
		}
		if msg := r.check(d, vc); msg != "" {
			return &ValidationError{Field: field, Message: msg}
		}
		return nil
	}
	return nil
}

// ValidateStep runs every applicable rule belonging to one step.
func ValidateStep(step StepID, d Draft, vc ValidationContext) []ValidationError {
	var errs []ValidationError
	for _, r := range rules {
		if r.step != step || !r.appliesWhen(vc.Classification) {
			continue
		}
		if msg := r.check(d, vc); msg != "" {
			errs = append(errs, ValidationError{Field: r.field, Message: msg})
		}
	}
	return errs
}

// ValidateAll runs the whole table. On a digital-only cart the shipping
// rows never fire, whatever stale values the draft still holds.
func ValidateAll(d Draft, vc ValidationContext) []ValidationError {
	var errs []ValidationError
	for _, r := range rules {
		if !r.appliesWhen(vc.Classification) {
			continue
		}
		if msg := r.check(d, vc); msg != "" {
			errs = append(errs, ValidationError{Field: r.field, Message: msg})
		}
	}
	return errs
}
