// Package fake provides in-memory implementations of the collaborator
// ports, intended for local development and tests only. Do NOT use in
// production.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

// CartService is an in-memory cart keyed by owner ID.
type CartService struct {
	mu    sync.Mutex
	carts map[string][]domain.CartItem
}

var _ ports.CartService = (*CartService)(nil)

func NewCartService() *CartService {
	return &CartService{carts: make(map[string][]domain.CartItem)}
}

// Put replaces the owner's cart snapshot. Test/dev seeding hook.
func (c *CartService) Put(ownerID string, items []domain.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[ownerID] = items
}

func (c *CartService) Items(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CartItem(nil), c.carts[ownerID]...), nil
}

func (c *CartService) TransferGuestCart(ctx context.Context, guestID, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	guest := c.carts[guestID]
	if len(guest) == 0 {
		return nil // nothing to merge; idempotent
	}
	c.carts[accountID] = append(c.carts[accountID], guest...)
	delete(c.carts, guestID)
	return nil
}

func (c *CartService) Clear(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, ownerID)
	return nil
}

// ShippingRateService returns a fixed method list.
type ShippingRateService struct {
	Methods []domain.ShippingMethod
	Err     error
}

var _ ports.ShippingRateService = (*ShippingRateService)(nil)

func threshold(v float64) *float64 { return &v }

// NewShippingRateService seeds the standard dev methods.
func NewShippingRateService() *ShippingRateService {
	return &ShippingRateService{Methods: []domain.ShippingMethod{
		{ID: "standard", Name: "Standard Delivery", BaseCost: 1500, EstDaysMin: 3, EstDaysMax: 7, FreeThreshold: threshold(25000)},
		{ID: "express", Name: "Express Delivery", BaseCost: 4000, CostPerItem: 200, EstDaysMin: 1, EstDaysMax: 2},
	}}
}

func (s *ShippingRateService) ListMethods(ctx context.Context) ([]domain.ShippingMethod, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.ShippingMethod(nil), s.Methods...), nil
}

// GatewayDirectory returns a fixed gateway list.
type GatewayDirectory struct {
	Gateways []ports.PaymentGateway
	Err      error
}

var _ ports.GatewayDirectory = (*GatewayDirectory)(nil)

func NewGatewayDirectory() *GatewayDirectory {
	return &GatewayDirectory{Gateways: []ports.PaymentGateway{
		{ID: "paystack", Name: "Paystack", Description: "Pay with card or bank", TestMode: true},
		{ID: "bank_transfer", Name: "Bank Transfer", Description: "Manual transfer with reference"},
	}}
}

func (g *GatewayDirectory) ListEnabledGateways(ctx context.Context) ([]ports.PaymentGateway, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]ports.PaymentGateway(nil), g.Gateways...), nil
}

// AuthService authenticates a fixed token -> account mapping.
type AuthService struct {
	mu       sync.Mutex
	accounts map[string]string // session token -> account ID
	profiles map[string]domain.Profile
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService() *AuthService {
	return &AuthService{
		accounts: make(map[string]string),
		profiles: make(map[string]domain.Profile),
	}
}

// Register adds an authenticated identity and returns its session token.
func (a *AuthService) Register(accountID string, profile domain.Profile) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	token := uuid.NewString()
	a.accounts[token] = accountID
	a.profiles[accountID] = profile
	return token
}

func (a *AuthService) IsAuthenticated(ctx context.Context, sessionToken string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.accounts[sessionToken]
	return id, ok, nil
}

func (a *AuthService) CurrentProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.profiles[accountID]
	if !ok {
		return nil, fmt.Errorf("fake: no profile for account %q", accountID)
	}
	return &p, nil
}

// OrderService records requests and returns canned results or errors.
type OrderService struct {
	mu       sync.Mutex
	Requests []ports.OrderRequest
	Err      error // returned verbatim when set
}

var _ ports.OrderService = (*OrderService)(nil)

func NewOrderService() *OrderService {
	return &OrderService{}
}

func (o *OrderService) CreateOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	o.Requests = append(o.Requests, req)
	return &ports.OrderResult{
		OrderID:     uuid.NewString(),
		OrderNumber: fmt.Sprintf("RC-%04d", 1000+len(o.Requests)),
		TotalAmount: req.Total,
		Payment: ports.PaymentDirective{
			Type:        "redirect",
			RedirectURL: "https://pay.example.test/" + req.IdempotencyKey,
			Reference:   req.IdempotencyKey,
		},
	}, nil
}

// CallCount returns how many orders were actually created.
func (o *OrderService) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Requests)
}
