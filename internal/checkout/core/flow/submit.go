package flow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/readcity/checkout/internal/checkout/attemptlog"
	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

var tracer = otel.Tracer("checkout/flow")

// Submit runs the final step: re-validates the whole draft, enforces the
// auth gate, computes totals one last time, builds the order request and
// calls the order service.
//
// Idempotency: a second Submit while one is awaiting the order service
// returns ErrSubmitInFlight, and the idempotency key is fixed per session
// so a retry after a transport failure cannot double-create. The draft is
// cleared only after the order service confirms success; on any failure
// it is preserved unchanged for retry.
func (e *Engine) Submit(ctx context.Context, sessionID, sessionToken string) (*ports.OrderResult, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.inflight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight = false
		s.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "checkout.submit")
	defer span.End()

	// Prepare the request under the session lock, then release it for
	// the order call itself: the in-flight flag is what rejects
	// concurrent submits, and field edits must not block behind a slow
	// order service.
	s.mu.Lock()
	items, c, draft, err := e.loadAll(ctx, s)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	// The payment step always requires an authenticated identity. The
	// draft and step are already persisted, so after login the session
	// resumes exactly where it stopped.
	if s.accountID == "" {
		if accountID, ok := e.authenticate(ctx, sessionToken); ok {
			s.accountID = accountID
		} else {
			s.mu.Unlock()
			return nil, domain.NewAuthFailure("")
		}
	}

	// Defensive re-check: the step flow validated already, but Submit is
	// the last gate before the network.
	vc := e.validationContext(s, c)
	if errs := domain.ValidateAll(draft, vc); len(errs) > 0 {
		for _, ve := range errs {
			s.touched[ve.Field] = true
		}
		s.mu.Unlock()
		return nil, domain.NewValidationFailure(errs)
	}

	method := e.selectedMethod(s, draft)
	totals := domain.ComputeTotals(c, method)
	req := buildOrderRequest(s, draft, items, c, method, totals)
	ownerID := s.ownerID
	s.mu.Unlock()

	e.logAttempt(ctx, attemptlog.NewEntry(ctx, s.id, s.idempotencyKey, attemptlog.StatusStarted), totals.Total)

	result, err := e.orders.CreateOrder(ctx, req)
	if err != nil {
		kind := domain.KindOf(err)
		entry := attemptlog.NewEntry(ctx, s.id, s.idempotencyKey, attemptlog.StatusFailed)
		entry.FailureKind = string(kind)
		entry.ErrorMessage = err.Error()
		e.logAttempt(ctx, entry, totals.Total)

		slog.ErrorContext(ctx, "order submission failed",
			"session_id", s.id, "kind", kind, "error", err)
		return nil, err
	}

	entry := attemptlog.NewEntry(ctx, s.id, s.idempotencyKey, attemptlog.StatusSucceeded)
	entry.OrderID = result.OrderID
	e.logAttempt(ctx, entry, totals.Total)

	// Confirmed success: clear the persisted draft and the cart. A
	// failure clearing either is logged but does not fail the order —
	// the buyer already owns it.
	if err := e.store.Clear(ctx, s.id); err != nil {
		slog.ErrorContext(ctx, "failed to clear draft after order creation",
			"session_id", s.id, "order_id", result.OrderID, "error", err)
	}
	if err := e.cart.Clear(ctx, ownerID); err != nil {
		slog.ErrorContext(ctx, "failed to clear cart after order creation",
			"session_id", s.id, "order_id", result.OrderID, "error", err)
	}
	e.mu.Lock()
	delete(e.sessions, s.id)
	e.mu.Unlock()

	slog.InfoContext(ctx, "order created",
		"session_id", s.id, "order_id", result.OrderID,
		"order_number", result.OrderNumber, "total", result.TotalAmount)

	return result, nil
}

// buildOrderRequest maps the draft onto the order service's schema.
// Line items carry the currently displayed price — the order service is
// the final price authority. The shipping method is snapshotted by value
// so a later rate change cannot alter the submitted totals. On a
// digital-only cart the shipping fields are sent empty, not omitted,
// keeping the request shape stable for the backend.
func buildOrderRequest(
	s *session,
	draft domain.Draft,
	items []domain.CartItem,
	c domain.Classification,
	method *domain.ShippingMethod,
	totals domain.Totals,
) ports.OrderRequest {
	lines := make([]ports.OrderLine, len(items))
	for i, it := range items {
		lines[i] = ports.OrderLine{BookID: it.BookID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	req := ports.OrderRequest{
		IdempotencyKey: s.idempotencyKey,
		CustomerID:     s.accountID,
		Customer:       draft.Customer,
		Items:          lines,
		GatewayID:      draft.GatewayID,
		Subtotal:       totals.Subtotal,
		ShippingCost:   totals.ShippingCost,
		Tax:            totals.Tax,
		Total:          totals.Total,
		Notes:          draft.Notes,
	}

	if !c.DigitalOnly {
		req.ShippingAddr = toOrderAddress(draft.ShippingAddress)
		if method != nil {
			snapshot := *method
			req.ShippingMethod = &snapshot
		}
	}

	if draft.BillingSameAsShipping {
		req.BillingAddr = req.ShippingAddr
	} else {
		req.BillingAddr = toOrderAddress(draft.BillingAddress)
	}

	return req
}

func toOrderAddress(a domain.Address) ports.OrderAddress {
	return ports.OrderAddress{
		Phone:       a.Phone,
		Street:      a.Street,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: normalizeCountry(a.Country),
	}
}

// logAttempt writes an audit row. Audit failures never block checkout.
func (e *Engine) logAttempt(ctx context.Context, entry *attemptlog.Entry, total float64) {
	if e.attempts == nil {
		return
	}
	entry.Total = total
	if err := e.attempts.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to record submission attempt",
			"session_id", entry.SessionID, "error", fmt.Errorf("attemptlog: %w", err))
	}
}
