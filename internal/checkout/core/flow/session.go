// Package flow implements the checkout session engine: the state machine
// that turns a cart into a submitted order.
//
// A session is single-writer by construction: every operation locks the
// session for its duration, so field edits, step navigation and submission
// never interleave. Derived state (classification, step list, totals) is
// recomputed from the current cart snapshot on every operation; only the
// draft and the current step are persisted, under separate namespaced
// keys, so a page reload or an authentication redirect restores both.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/readcity/checkout/internal/checkout/attemptlog"
	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

// ErrEmptyCart is returned by Start when the cart has no items. The
// caller must redirect to the cart view instead of rendering any step.
var ErrEmptyCart = errors.New("flow: cart is empty, checkout not enterable")

// ErrSessionNotFound is returned when an operation names an unknown or
// expired session.
var ErrSessionNotFound = errors.New("flow: session not found")

// ErrStepUnreachable is returned by Goto for steps beyond the furthest
// validated step.
var ErrStepUnreachable = errors.New("flow: step not reachable yet")

// ErrSubmitInFlight is returned when a submit arrives while another one
// for the same session is still awaiting the order service.
var ErrSubmitInFlight = errors.New("flow: a submission is already in progress")

// session is the in-memory, ephemeral side of a checkout session. The
// durable side (draft + current step) lives in the DraftStore. Losing
// this struct on restart is acceptable: touched flags and the furthest
// validated step are re-derived from the persisted draft on re-entry.
type session struct {
	mu sync.Mutex

	id        string
	ownerID   string // cart owner: guest token until transfer, then account ID
	guestID   string // original guest token, kept for the cart transfer
	accountID string // empty while unauthenticated

	idempotencyKey string

	// Option sets loaded at flow start, tagged with the classification
	// fingerprint they were fetched for so stale responses are discarded.
	methods    []domain.ShippingMethod
	gateways   []ports.PaymentGateway
	methodsTag string // classification the current methods were fetched for
	cartTag    string // classification of the most recent cart snapshot

	touched     map[string]bool
	furthest    domain.StepID // furthest step whose predecessors all validated
	current     domain.StepID
	inflight    bool
	transferred bool // guest cart transfer already performed this session
}

// Engine orchestrates checkout sessions against the collaborator ports.
type Engine struct {
	cart     ports.CartService
	rates    ports.ShippingRateService
	gateways ports.GatewayDirectory
	orders   ports.OrderService
	auth     ports.AuthService
	store    ports.DraftStore
	attempts attemptlog.Repository // nil-safe: logging skipped if nil

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds an Engine. attempts may be nil, in which case submission
// attempts are not audited.
func New(
	cart ports.CartService,
	rates ports.ShippingRateService,
	gateways ports.GatewayDirectory,
	orders ports.OrderService,
	auth ports.AuthService,
	store ports.DraftStore,
	attempts attemptlog.Repository,
) *Engine {
	return &Engine{
		cart:     cart,
		rates:    rates,
		gateways: gateways,
		orders:   orders,
		auth:     auth,
		store:    store,
		attempts: attempts,
		sessions: make(map[string]*session),
	}
}

// State is the full session snapshot handed to the presentation layer.
type State struct {
	SessionID      string                   `json:"session_id"`
	Authenticated  bool                     `json:"authenticated"`
	Classification domain.Classification    `json:"classification"`
	Items          []domain.CartItem        `json:"items"`
	Steps          []domain.Step            `json:"steps"`
	CurrentStep    domain.StepID            `json:"current_step"`
	FurthestStep   domain.StepID            `json:"furthest_step"`
	Draft          domain.Draft             `json:"draft"`
	Totals         domain.Totals            `json:"totals"`
	Methods        []domain.ShippingMethod  `json:"shipping_methods"`
	Gateways       []ports.PaymentGateway   `json:"gateways"`
	Errors         []domain.ValidationError `json:"errors"`
}

// Start enters checkout: classifies the cart, builds the step list,
// restores any persisted draft and step, loads shipping methods and
// enabled gateways, and pre-fills customer info for authenticated buyers.
//
// sessionID may name an existing session (page reload); an empty ID
// starts a fresh one. ownerID identifies the cart (guest token or account
// ID); sessionToken is the opaque auth credential, empty for guests.
func (e *Engine) Start(ctx context.Context, sessionID, ownerID, sessionToken string) (*State, error) {
	items, err := e.cart.Items(ctx, ownerID)
	if err != nil {
		return nil, domain.NewNetworkFailure(fmt.Errorf("flow: load cart: %w", err))
	}
	c := domain.Classify(items)
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	s := e.getOrCreate(sessionID, ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID, authed := e.authenticate(ctx, sessionToken)
	if authed {
		s.accountID = accountID
	}

	draft, err := e.store.LoadDraft(ctx, s.id)
	if err != nil {
		// Corrupted persisted state is recovered silently: reinitialize
		// rather than block checkout.
		slog.WarnContext(ctx, "discarding unreadable draft", "session_id", s.id, "error", err)
		draft = domain.EmptyDraft()
	}
	if draft == domain.EmptyDraft() && authed {
		if profile, perr := e.auth.CurrentProfile(ctx, accountID); perr == nil && profile != nil {
			draft = domain.PrefilledDraft(*profile)
		}
	}

	if err := e.loadOptions(ctx, s, c); err != nil {
		return nil, err
	}

	steps := domain.BuildSteps(c)
	step, err := e.store.LoadStep(ctx, s.id)
	if err != nil || step == "" {
		step = steps[0].ID
	}
	s.current = domain.ClampStep(steps, step)
	s.rederiveFurthest(draft, steps, e.validationContext(s, c))

	if err := e.store.SaveDraft(ctx, s.id, draft); err != nil {
		return nil, fmt.Errorf("flow: persist draft: %w", err)
	}
	if err := e.store.SaveStep(ctx, s.id, s.current); err != nil {
		return nil, fmt.Errorf("flow: persist step: %w", err)
	}

	slog.InfoContext(ctx, "checkout started",
		"session_id", s.id, "cart", c.Fingerprint(), "items", c.ItemCount, "authenticated", authed)

	return e.snapshotLocked(ctx, s, items, c, draft), nil
}

// State returns the current session snapshot, reclassifying the cart and
// clamping the step in case the cart changed since the last operation.
func (e *Engine) State(ctx context.Context, sessionID string) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.refreshLocked(ctx, s)
}

// SetField mutates one draft field by path, persists the draft
// synchronously, marks the field touched, and returns the refreshed
// state. Unknown paths are rejected.
func (e *Engine) SetField(ctx context.Context, sessionID, field, value string) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := e.loadDraft(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := setDraftField(&draft, field, value); err != nil {
		return nil, err
	}
	// Persistence is synchronous relative to the mutation: no debounce,
	// so immediate navigation away cannot lose the edit.
	if err := e.store.SaveDraft(ctx, s.id, draft); err != nil {
		return nil, fmt.Errorf("flow: persist draft: %w", err)
	}
	s.touched[field] = true

	return e.refreshLocked(ctx, s)
}

// SelectShippingMethod records the chosen method by ID. The method must
// be one of the currently offered set.
func (e *Engine) SelectShippingMethod(ctx context.Context, sessionID, methodID string) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	found := false
	for _, m := range s.methods {
		if m.ID == methodID {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return nil, domain.NewValidationFailure([]domain.ValidationError{
			{Field: "shipping_method_id", Message: "The selected shipping method is no longer available"},
		})
	}
	return e.SetField(ctx, sessionID, "shipping_method_id", methodID)
}

// Next validates the current step and advances to the following one.
// Reaching the payment step as a guest is allowed; completing it is not
// (see Submit).
func (e *Engine) Next(ctx context.Context, sessionID string) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, c, draft, err := e.loadAll(ctx, s)
	if err != nil {
		return nil, err
	}
	steps := domain.BuildSteps(c)
	s.current = domain.ClampStep(steps, s.current)

	vc := e.validationContext(s, c)
	if errs := domain.ValidateStep(s.current, draft, vc); len(errs) > 0 {
		s.touchStep(s.current)
		return nil, domain.NewValidationFailure(errs)
	}

	idx := domain.StepIndex(steps, s.current)
	if idx < len(steps)-1 {
		s.current = steps[idx+1].ID
	}
	s.advanceFurthest(steps, s.current)
	if err := e.store.SaveStep(ctx, s.id, s.current); err != nil {
		return nil, fmt.Errorf("flow: persist step: %w", err)
	}
	return e.snapshotLocked(ctx, s, items, c, draft), nil
}

// Previous steps back without validating.
func (e *Engine) Previous(ctx context.Context, sessionID string) (*State, error) {
	return e.navigate(ctx, sessionID, func(steps []domain.Step, s *session) (domain.StepID, error) {
		idx := domain.StepIndex(steps, s.current)
		if idx > 0 {
			return steps[idx-1].ID, nil
		}
		return s.current, nil
	})
}

// Goto navigates directly to a step. Navigation beyond the furthest
// validated step is rejected.
func (e *Engine) Goto(ctx context.Context, sessionID string, target domain.StepID) (*State, error) {
	return e.navigate(ctx, sessionID, func(steps []domain.Step, s *session) (domain.StepID, error) {
		ti := domain.StepIndex(steps, target)
		if ti < 0 {
			return "", fmt.Errorf("%w: %s", ErrStepUnreachable, target)
		}
		fi := domain.StepIndex(steps, domain.ClampStep(steps, s.furthest))
		if ti > fi {
			return "", fmt.Errorf("%w: %s", ErrStepUnreachable, target)
		}
		return target, nil
	})
}

// Cancel abandons the flow: the persisted draft and step are cleared and
// the session forgotten. The caller returns the buyer to the cart view.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	s, err := e.get(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := e.store.Clear(ctx, s.id); err != nil {
		return fmt.Errorf("flow: clear draft: %w", err)
	}
	e.mu.Lock()
	delete(e.sessions, s.id)
	e.mu.Unlock()

	slog.InfoContext(ctx, "checkout abandoned", "session_id", s.id)
	return nil
}

// navigate applies a pure step-picking function under the session lock,
// persists the resulting step, and returns the refreshed state.
func (e *Engine) navigate(ctx context.Context, sessionID string, pick func([]domain.Step, *session) (domain.StepID, error)) (*State, error) {
	s, err := e.get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, c, draft, err := e.loadAll(ctx, s)
	if err != nil {
		return nil, err
	}
	steps := domain.BuildSteps(c)
	s.current = domain.ClampStep(steps, s.current)

	next, err := pick(steps, s)
	if err != nil {
		return nil, err
	}
	s.current = next
	if err := e.store.SaveStep(ctx, s.id, s.current); err != nil {
		return nil, fmt.Errorf("flow: persist step: %w", err)
	}
	return e.snapshotLocked(ctx, s, items, c, draft), nil
}

// ── session bookkeeping ────────────────────────────────────────────────

func (e *Engine) getOrCreate(sessionID, ownerID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sessionID != "" {
		if s, ok := e.sessions[sessionID]; ok {
			return s
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s := &session{
		id:             sessionID,
		ownerID:        ownerID,
		guestID:        ownerID,
		idempotencyKey: uuid.NewString(),
		touched:        make(map[string]bool),
		current:        domain.StepCustomerInfo,
		furthest:       domain.StepCustomerInfo,
	}
	e.sessions[sessionID] = s
	return s
}

func (e *Engine) get(sessionID string) (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *Engine) authenticate(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	accountID, ok, err := e.auth.IsAuthenticated(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "auth check failed, treating caller as guest", "error", err)
		return "", false
	}
	return accountID, ok
}

// loadOptions fetches shipping methods and enabled gateways. Each rate
// fetch is tagged with the classification it was issued for; applyMethods
// drops responses whose tag no longer matches the cart, so a late answer
// for a cart shape the session has left behind cannot resurface.
func (e *Engine) loadOptions(ctx context.Context, s *session, c domain.Classification) error {
	tag := c.Fingerprint()
	s.cartTag = tag

	if !c.DigitalOnly {
		methods, err := e.rates.ListMethods(ctx)
		if err != nil {
			return domain.NewNetworkFailure(fmt.Errorf("flow: list shipping methods: %w", err))
		}
		s.applyMethods(tag, methods)
	} else {
		s.methods = nil
		s.methodsTag = tag
	}

	gws, err := e.gateways.ListEnabledGateways(ctx)
	if err != nil {
		return domain.NewNetworkFailure(fmt.Errorf("flow: list gateways: %w", err))
	}
	s.gateways = gws
	return nil
}

// applyMethods installs a rate-fetch response only if it was issued for
// the cart classification the session currently has. Must be called with
// s.mu held.
func (s *session) applyMethods(issuedFor string, methods []domain.ShippingMethod) {
	if issuedFor != s.cartTag {
		return // stale response, discard
	}
	s.methods = methods
	s.methodsTag = issuedFor
}

func (e *Engine) loadDraft(ctx context.Context, s *session) (domain.Draft, error) {
	draft, err := e.store.LoadDraft(ctx, s.id)
	if err != nil {
		slog.WarnContext(ctx, "discarding unreadable draft", "session_id", s.id, "error", err)
		return domain.EmptyDraft(), nil
	}
	return draft, nil
}

func (e *Engine) loadAll(ctx context.Context, s *session) ([]domain.CartItem, domain.Classification, domain.Draft, error) {
	items, err := e.cart.Items(ctx, s.ownerID)
	if err != nil {
		return nil, domain.Classification{}, domain.Draft{}, domain.NewNetworkFailure(fmt.Errorf("flow: load cart: %w", err))
	}
	c := domain.Classify(items)
	if c.Empty() {
		return nil, domain.Classification{}, domain.Draft{}, ErrEmptyCart
	}
	draft, err := e.loadDraft(ctx, s)
	if err != nil {
		return nil, domain.Classification{}, domain.Draft{}, err
	}
	// Refresh rate options when the cart shape changed underneath us.
	if s.methodsTag != c.Fingerprint() {
		if err := e.loadOptions(ctx, s, c); err != nil {
			return nil, domain.Classification{}, domain.Draft{}, err
		}
	}
	return items, c, draft, nil
}

func (e *Engine) refreshLocked(ctx context.Context, s *session) (*State, error) {
	items, c, draft, err := e.loadAll(ctx, s)
	if err != nil {
		return nil, err
	}
	steps := domain.BuildSteps(c)
	s.current = domain.ClampStep(steps, s.current)
	return e.snapshotLocked(ctx, s, items, c, draft), nil
}

func (e *Engine) validationContext(s *session, c domain.Classification) domain.ValidationContext {
	vc := domain.ValidationContext{Classification: c}
	for _, m := range s.methods {
		vc.MethodIDs = append(vc.MethodIDs, m.ID)
	}
	for _, g := range s.gateways {
		vc.GatewayIDs = append(vc.GatewayIDs, g.ID)
	}
	return vc
}

// snapshotLocked renders the State. Validation errors are reported only
// for touched fields so the buyer is not shouted at before first
// interaction.
func (e *Engine) snapshotLocked(ctx context.Context, s *session, items []domain.CartItem, c domain.Classification, draft domain.Draft) *State {
	steps := domain.BuildSteps(c)
	vc := e.validationContext(s, c)

	var errs []domain.ValidationError
	for _, err := range domain.ValidateAll(draft, vc) {
		if s.touched[err.Field] {
			errs = append(errs, err)
		}
	}

	return &State{
		SessionID:      s.id,
		Authenticated:  s.accountID != "",
		Classification: c,
		Items:          items,
		Steps:          steps,
		CurrentStep:    domain.ClampStep(steps, s.current),
		FurthestStep:   domain.ClampStep(steps, s.furthest),
		Draft:          draft,
		Totals:         domain.ComputeTotals(c, e.selectedMethod(s, draft)),
		Methods:        s.methods,
		Gateways:       s.gateways,
		Errors:         errs,
	}
}

func (e *Engine) selectedMethod(s *session, draft domain.Draft) *domain.ShippingMethod {
	for i := range s.methods {
		if s.methods[i].ID == draft.ShippingMethodID {
			m := s.methods[i] // copy by value: a later rate change must not alter totals
			return &m
		}
	}
	return nil
}

// touchStep marks every field belonging to a step as touched so its
// errors become visible after a failed Next.
func (s *session) touchStep(step domain.StepID) {
	for _, f := range stepFields(step) {
		s.touched[f] = true
	}
}

func stepFields(step domain.StepID) []string {
	switch step {
	case domain.StepCustomerInfo:
		return []string{"customer.first_name", "customer.last_name", "customer.email"}
	case domain.StepShippingAddress:
		return []string{
			"shipping_address.phone", "shipping_address.street",
			"shipping_address.city", "shipping_address.state",
			"shipping_address.postal_code",
		}
	case domain.StepShippingMethod:
		return []string{"shipping_method_id"}
	case domain.StepPayment:
		return []string{"gateway_id"}
	}
	return nil
}

// advanceFurthest pushes the furthest-validated marker forward, never
// backward.
func (s *session) advanceFurthest(steps []domain.Step, reached domain.StepID) {
	ri := domain.StepIndex(steps, reached)
	fi := domain.StepIndex(steps, domain.ClampStep(steps, s.furthest))
	if ri > fi {
		s.furthest = reached
	}
}

// rederiveFurthest recomputes the reachable frontier after a restore:
// steps validate in order until the first failing one, which becomes the
// frontier. This is what lets a reload (or auth redirect) resume at the
// persisted step without reopening navigation beyond validated data.
func (s *session) rederiveFurthest(draft domain.Draft, steps []domain.Step, vc domain.ValidationContext) {
	s.furthest = steps[0].ID
	for _, st := range steps {
		s.furthest = st.ID
		if len(domain.ValidateStep(st.ID, draft, vc)) > 0 {
			break
		}
	}
	// Never park the frontier before the restored current step's
	// predecessor chain allows; current itself was reached legitimately.
	ci := domain.StepIndex(steps, s.current)
	fi := domain.StepIndex(steps, s.furthest)
	if ci > fi {
		s.current = s.furthest
	}
}

// setDraftField routes a field path to the draft struct. Values arrive
// as strings from the form layer; the two non-string fields parse here.
func setDraftField(d *domain.Draft, field, value string) error {
	switch field {
	case "customer.first_name":
		d.Customer.FirstName = value
	case "customer.last_name":
		d.Customer.LastName = value
	case "customer.email":
		d.Customer.Email = strings.TrimSpace(value)
	case "shipping_address.phone":
		d.ShippingAddress.Phone = value
	case "shipping_address.street":
		d.ShippingAddress.Street = value
	case "shipping_address.city":
		d.ShippingAddress.City = value
	case "shipping_address.state":
		d.ShippingAddress.State = value
	case "shipping_address.postal_code":
		d.ShippingAddress.PostalCode = value
	case "shipping_address.country":
		d.ShippingAddress.Country = value
	case "billing_same_as_shipping":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("flow: field %q: %w", field, err)
		}
		d.BillingSameAsShipping = b
	case "billing_address.phone":
		d.BillingAddress.Phone = value
	case "billing_address.street":
		d.BillingAddress.Street = value
	case "billing_address.city":
		d.BillingAddress.City = value
	case "billing_address.state":
		d.BillingAddress.State = value
	case "billing_address.postal_code":
		d.BillingAddress.PostalCode = value
	case "billing_address.country":
		d.BillingAddress.Country = value
	case "shipping_method_id":
		d.ShippingMethodID = value
	case "gateway_id":
		d.GatewayID = value
	case "notes":
		d.Notes = value
	default:
		return fmt.Errorf("flow: unknown draft field %q", field)
	}
	return nil
}
