package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digitalOnlyCart() Classification {
	return Classify([]CartItem{{BookID: "d", Quantity: 1, UnitPrice: 2000, Format: FormatDigital}})
}

func physicalCart() Classification {
	return Classify([]CartItem{{BookID: "p", Quantity: 1, UnitPrice: 5000, Format: FormatPhysical}})
}

func mixedCart() Classification {
	return Classify([]CartItem{
		{BookID: "d", Quantity: 1, UnitPrice: 2000, Format: FormatDigital},
		{BookID: "p", Quantity: 1, UnitPrice: 5000, Format: FormatPhysical},
	})
}

func stepIDs(steps []Step) []StepID {
	ids := make([]StepID, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

func TestBuildSteps_DigitalOnlySkipsShipping(t *testing.T) {
	steps := BuildSteps(digitalOnlyCart())
	assert.Equal(t, []StepID{StepCustomerInfo, StepPayment}, stepIDs(steps))
}

func TestBuildSteps_PhysicalIncludesShipping(t *testing.T) {
	for _, c := range []Classification{physicalCart(), mixedCart()} {
		steps := BuildSteps(c)
		assert.Equal(t,
			[]StepID{StepCustomerInfo, StepShippingAddress, StepShippingMethod, StepPayment},
			stepIDs(steps))
	}
}

func TestBuildSteps_OrdinalsAreSequential(t *testing.T) {
	for _, c := range []Classification{digitalOnlyCart(), physicalCart()} {
		steps := BuildSteps(c)
		for i, s := range steps {
			assert.Equal(t, i, s.Ordinal)
		}
	}
}

func TestBuildSteps_PaymentOrdinalDependsOnCart(t *testing.T) {
	// The same logical step sits at different ordinals depending on the
	// cart, which is why components refer to steps by ID.
	digital := BuildSteps(digitalOnlyCart())
	physical := BuildSteps(physicalCart())

	require.GreaterOrEqual(t, StepIndex(digital, StepPayment), 0)
	assert.Equal(t, 1, StepIndex(digital, StepPayment))
	assert.Equal(t, 3, StepIndex(physical, StepPayment))
}

func TestClampStep(t *testing.T) {
	digital := BuildSteps(digitalOnlyCart())
	physical := BuildSteps(physicalCart())

	tests := []struct {
		name  string
		steps []Step
		in    StepID
		want  StepID
	}{
		{"existing step is kept", physical, StepShippingMethod, StepShippingMethod},
		{"vanished shipping step falls back to customer info", digital, StepShippingAddress, StepCustomerInfo},
		{"vanished method step falls back to customer info", digital, StepShippingMethod, StepCustomerInfo},
		{"payment survives reclassification", digital, StepPayment, StepPayment},
		{"unknown id falls back to first step", physical, StepID("bogus"), StepCustomerInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampStep(tt.steps, tt.in))
		})
	}
}
