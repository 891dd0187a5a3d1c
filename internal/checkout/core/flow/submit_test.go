package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readcity/checkout/internal/checkout/attemptlog"
	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

// memAttempts is an in-memory attemptlog.Repository.
type memAttempts struct {
	mu      sync.Mutex
	entries []attemptlog.Entry
}

func (m *memAttempts) Save(ctx context.Context, e *attemptlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAttempts) all() []attemptlog.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attemptlog.Entry(nil), m.entries...)
}

// readySession drives an authenticated physical-cart session to the
// payment step with a gateway selected, ready to submit.
func readySession(t *testing.T, f *fixture) (sessionID, token string) {
	t.Helper()
	ctx := context.Background()

	f.cart.Put("acct-1", physicalItems())
	token = f.auth.Register("acct-1", domain.Profile{})

	state, err := f.engine.Start(ctx, "", "acct-1", token)
	require.NoError(t, err)
	walkToPayment(t, f.engine, state.SessionID)
	_, err = f.engine.SetField(ctx, state.SessionID, "gateway_id", "paystack")
	require.NoError(t, err)
	return state.SessionID, token
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture()
	attempts := &memAttempts{}
	f.engine = New(f.cart, f.rates, f.gws, f.orders, f.auth, f.store, attempts)
	id, token := readySession(t, f)
	ctx := context.Background()

	result, err := f.engine.Submit(ctx, id, token)
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, 6875.0, result.TotalAmount)
	assert.Equal(t, "redirect", result.Payment.Type)

	// Confirmed success clears the persisted draft, the cart, and the
	// session itself.
	d, err := f.store.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyDraft(), d)

	items, err := f.cart.Items(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.engine.State(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// One STARTED row and one terminal row.
	entries := attempts.all()
	require.Len(t, entries, 2)
	assert.Equal(t, attemptlog.StatusStarted, entries[0].Status)
	assert.Equal(t, attemptlog.StatusSucceeded, entries[1].Status)
	assert.Equal(t, result.OrderID, entries[1].OrderID)
	assert.Equal(t, entries[0].IdempotencyKey, entries[1].IdempotencyKey)
}

func TestSubmit_RequestShape(t *testing.T) {
	f := newFixture()
	id, token := readySession(t, f)

	_, err := f.engine.Submit(context.Background(), id, token)
	require.NoError(t, err)

	require.Len(t, f.orders.Requests, 1)
	req := f.orders.Requests[0]

	assert.Equal(t, "acct-1", req.CustomerID)
	assert.Equal(t, "paystack", req.GatewayID)
	assert.Equal(t, "NG", req.ShippingAddr.CountryCode, "country name normalized to ISO code")
	assert.Equal(t, req.ShippingAddr, req.BillingAddr, "billing defaults to shipping")

	require.Len(t, req.Items, 1)
	assert.Equal(t, "b-phy", req.Items[0].BookID)
	assert.Equal(t, 5000.0, req.Items[0].UnitPrice, "displayed price is attached as-is")

	require.NotNil(t, req.ShippingMethod)
	assert.Equal(t, "standard", req.ShippingMethod.ID)
	assert.Equal(t, 1500.0, req.ShippingMethod.BaseCost, "method snapshot copied by value")

	assert.Equal(t, 5000.0, req.Subtotal)
	assert.Equal(t, 1500.0, req.ShippingCost)
	assert.Equal(t, 375.0, req.Tax)
	assert.Equal(t, 6875.0, req.Total)
}

func TestSubmit_DigitalOnlySendsEmptyShippingFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.cart.Put("acct-1", digitalItems())
	token := f.auth.Register("acct-1", domain.Profile{})

	state, err := f.engine.Start(ctx, "", "acct-1", token)
	require.NoError(t, err)
	fillCustomerInfo(t, f.engine, state.SessionID)
	_, err = f.engine.Next(ctx, state.SessionID)
	require.NoError(t, err)
	_, err = f.engine.SetField(ctx, state.SessionID, "gateway_id", "paystack")
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, state.SessionID, token)
	require.NoError(t, err)

	require.Len(t, f.orders.Requests, 1)
	req := f.orders.Requests[0]
	assert.Equal(t, ports.OrderAddress{}, req.ShippingAddr, "empty, not omitted")
	assert.Nil(t, req.ShippingMethod)
	assert.Equal(t, 0.0, req.ShippingCost)
}

func TestSubmit_IncompleteDraftFailsWithoutNetworkCall(t *testing.T) {
	f := newFixture()
	id, token := readySession(t, f)
	ctx := context.Background()

	// Blank out the email behind the validator's back.
	_, err := f.engine.SetField(ctx, id, "customer.email", "")
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, id, token)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 0, f.orders.CallCount(), "validation failures never reach the network")
}

func TestSubmit_TransportFailurePreservesDraftAndRetrySucceeds(t *testing.T) {
	f := newFixture()
	attempts := &memAttempts{}
	f.engine = New(f.cart, f.rates, f.gws, f.orders, f.auth, f.store, attempts)
	id, token := readySession(t, f)
	ctx := context.Background()

	before, err := f.engine.State(ctx, id)
	require.NoError(t, err)

	f.orders.Err = domain.NewNetworkFailure(errors.New("connection refused"))
	_, err = f.engine.Submit(ctx, id, token)
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))

	// Draft and step are untouched after the failure.
	after, err := f.engine.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Draft, after.Draft)
	assert.Equal(t, before.CurrentStep, after.CurrentStep)

	// Connectivity restored: the retry goes through with the same
	// idempotency key.
	f.orders.Err = nil
	result, err := f.engine.Submit(ctx, id, token)
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)

	entries := attempts.all()
	require.Len(t, entries, 4) // started, failed, started, succeeded
	assert.Equal(t, attemptlog.StatusFailed, entries[1].Status)
	assert.Equal(t, string(domain.KindNetwork), entries[1].FailureKind)
	assert.Equal(t, entries[0].IdempotencyKey, entries[2].IdempotencyKey,
		"retries reuse the session's idempotency key")
}

func TestSubmit_ServerRejectionSurfacesMessage(t *testing.T) {
	f := newFixture()
	id, token := readySession(t, f)

	f.orders.Err = domain.NewServerFailure("Things Fall Apart is out of stock", nil)
	_, err := f.engine.Submit(context.Background(), id, token)
	require.Error(t, err)

	var fe *domain.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.KindServer, fe.Kind)
	assert.Equal(t, "Things Fall Apart is out of stock", fe.Message)
}

func TestSubmit_GuestIsGated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.cart.Put("guest-1", physicalItems())
	state, err := f.engine.Start(ctx, "", "guest-1", "")
	require.NoError(t, err)
	walkToPayment(t, f.engine, state.SessionID)
	_, err = f.engine.SetField(ctx, state.SessionID, "gateway_id", "paystack")
	require.NoError(t, err)

	_, err = f.engine.Submit(ctx, state.SessionID, "")
	require.Error(t, err)
	assert.True(t, domain.IsAuth(err))
	assert.Equal(t, 0, f.orders.CallCount())

	// The draft survived the gate for the post-login resume.
	d, err := f.store.LoadDraft(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", d.Customer.FirstName)
}

// gatedOrders blocks CreateOrder until released, to hold a submission
// in flight.
type gatedOrders struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedOrders) CreateOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	close(g.started)
	<-g.release
	return &ports.OrderResult{OrderID: "ord-1", TotalAmount: req.Total}, nil
}

func TestSubmit_SecondSubmitWhileInFlightRejected(t *testing.T) {
	f := newFixture()
	gated := &gatedOrders{started: make(chan struct{}), release: make(chan struct{})}
	f.engine = New(f.cart, f.rates, f.gws, gated, f.auth, f.store, nil)
	id, token := readySession(t, f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Submit(ctx, id, token)
		done <- err
	}()

	select {
	case <-gated.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first submit never reached the order service")
	}

	_, err := f.engine.Submit(ctx, id, token)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(gated.release)
	require.NoError(t, <-done)
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nigeria", "NG"},
		{"nigeria", "NG"},
		{" Ghana ", "GH"},
		{"United Kingdom", "GB"},
		{"ng", "NG"},
		{"GB", "GB"},
		{"Wakanda", "NG"},
		{"", "NG"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCountry(tt.in), "input %q", tt.in)
	}
}
