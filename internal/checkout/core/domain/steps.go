package domain

// StepID is the stable logical identifier of a checkout step. Other
// components always refer to steps by StepID, never by ordinal position:
// ordinals shift depending on cart composition (a digital-only cart has
// no shipping steps at all).
type StepID string

const (
	StepCustomerInfo    StepID = "customer_info"
	StepShippingAddress StepID = "shipping_address"
	StepShippingMethod  StepID = "shipping_method"
	StepPayment         StepID = "payment"
)

// Step is one screen in the checkout sequence. Ordinal is assigned after
// filtering and exists purely for display and navigation.
type Step struct {
	ID      StepID `json:"id"`
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
}

// BuildSteps computes the ordered step list for a cart classification.
// Customer info always comes first and payment always last; the two
// shipping steps are present only when something in the cart needs to be
// shipped. The result is a fresh slice on every call — step lists are
// never mutated in place.
func BuildSteps(c Classification) []Step {
	ids := []StepID{StepCustomerInfo}
	if !c.DigitalOnly && !c.Empty() {
		ids = append(ids, StepShippingAddress, StepShippingMethod)
	}
	ids = append(ids, StepPayment)

	steps := make([]Step, len(ids))
	for i, id := range ids {
		steps[i] = Step{ID: id, Ordinal: i, Title: stepTitle(id)}
	}
	return steps
}

func stepTitle(id StepID) string {
	switch id {
	case StepCustomerInfo:
		return "Customer Information"
	case StepShippingAddress:
		return "Shipping Address"
	case StepShippingMethod:
		return "Shipping Method"
	case StepPayment:
		return "Payment"
	default:
		return string(id)
	}
}

// StepIndex returns the ordinal of the step with the given ID in steps,
// or -1 when the step is not part of the sequence.
func StepIndex(steps []Step, id StepID) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ClampStep maps a previously persisted step ID onto the current step
// list. When the cart changed while the draft was parked (for example a
// physical item was removed during an auth redirect) the restored step may
// no longer exist; in that case the nearest earlier step that still exists
// is returned, falling back to the first step.
func ClampStep(steps []Step, id StepID) StepID {
	if len(steps) == 0 {
		return StepCustomerInfo
	}
	if StepIndex(steps, id) >= 0 {
		return id
	}
	// Walk the canonical order backwards from the vanished step.
	order := []StepID{StepCustomerInfo, StepShippingAddress, StepShippingMethod, StepPayment}
	pos := 0
	for i, cand := range order {
		if cand == id {
			pos = i
			break
		}
	}
	for i := pos; i >= 0; i-- {
		if StepIndex(steps, order[i]) >= 0 {
			return order[i]
		}
	}
	return steps[0].ID
}
