// Package ports declares the interfaces the checkout engine depends on.
// The engine only ever sees these abstractions; concrete adapters (HTTP
// clients, Redis, in-memory fakes) live under internal/checkout/adapters.
package ports

import (
	"context"

	"github.com/readcity/checkout/internal/checkout/core/domain"
)

// CartService owns the shopping cart. The engine reads snapshots, merges
// a guest cart into an account after authentication, and clears the cart
// once an order is confirmed.
type CartService interface {
	// Items returns the current cart snapshot for a cart owner (guest
	// token or account ID).
	Items(ctx context.Context, ownerID string) ([]domain.CartItem, error)

	// TransferGuestCart merges the guest cart into the account's cart.
	// Idempotent: transferring an already-transferred (or empty) guest
	// cart is a no-op.
	TransferGuestCart(ctx context.Context, guestID, accountID string) error

	// Clear empties the owner's cart. Called only after the order
	// service has confirmed creation.
	Clear(ctx context.Context, ownerID string) error
}

// ShippingRateService lists the delivery options offered at flow start.
type ShippingRateService interface {
	ListMethods(ctx context.Context) ([]domain.ShippingMethod, error)
}

// PaymentGateway is one enabled payment option from the directory.
type PaymentGateway struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TestMode    bool   `json:"test_mode"`
}

// GatewayDirectory lists the payment gateways currently enabled.
type GatewayDirectory interface {
	ListEnabledGateways(ctx context.Context) ([]PaymentGateway, error)
}

// OrderRequest is the normalized order-creation payload. Shipping fields
// are present but empty on digital-only orders so the request shape stays
// stable for the backend.
type OrderRequest struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	CustomerID     string                 `json:"customer_id"`
	Customer       domain.CustomerInfo    `json:"customer"`
	ShippingAddr   OrderAddress           `json:"shipping_address"`
	BillingAddr    OrderAddress           `json:"billing_address"`
	Items          []OrderLine            `json:"items"`
	ShippingMethod *domain.ShippingMethod `json:"shipping_method,omitempty"`
	GatewayID      string                 `json:"gateway_id"`
	Subtotal       float64                `json:"subtotal"`
	ShippingCost   float64                `json:"shipping_cost"`
	Tax            float64                `json:"tax"`
	Total          float64                `json:"total"`
	Notes          string                 `json:"notes,omitempty"`
}

// OrderAddress is the order service's address schema. CountryCode is the
// ISO 3166-1 alpha-2 code, normalized from the full country name the
// draft stores.
type OrderAddress struct {
	Phone       string `json:"phone"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// OrderLine carries the displayed price, not a server-trusted one: the
// order service is the final price authority and re-prices on its side.
type OrderLine struct {
	BookID    string  `json:"book_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// PaymentDirective tells the hosting page how to start payment after the
// order exists: redirect to a gateway, render an inline widget, or show
// bank-transfer instructions. Exactly one of the three shapes is set.
type PaymentDirective struct {
	Type         string            `json:"type"` // "redirect" | "inline" | "bank_transfer"
	RedirectURL  string            `json:"redirect_url,omitempty"`
	InlineParams map[string]string `json:"inline_params,omitempty"`
	BankAccount  string            `json:"bank_account,omitempty"`
	BankName     string            `json:"bank_name,omitempty"`
	Reference    string            `json:"reference,omitempty"`
}

// OrderResult is the order service's confirmation.
type OrderResult struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	TotalAmount float64          `json:"total_amount"`
	Payment     PaymentDirective `json:"payment"`
}

// OrderService creates orders. The sole source of truth for final
// pricing and order persistence.
type OrderService interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// AuthService tells the engine whether the caller is authenticated and
// supplies profile data for pre-filling the customer-info step.
type AuthService interface {
	IsAuthenticated(ctx context.Context, sessionToken string) (accountID string, ok bool, err error)
	CurrentProfile(ctx context.Context, accountID string) (*domain.Profile, error)
}

// DraftStore persists the in-progress draft and the current step under
// separate, checkout-namespaced keys. Load must fall back to the empty
// default when the stored value cannot be parsed: a corrupted draft must
// never block checkout.
type DraftStore interface {
	LoadDraft(ctx context.Context, sessionID string) (domain.Draft, error)
	SaveDraft(ctx context.Context, sessionID string, d domain.Draft) error
	LoadStep(ctx context.Context, sessionID string) (domain.StepID, error)
	SaveStep(ctx context.Context, sessionID string, step domain.StepID) error
	Clear(ctx context.Context, sessionID string) error
}
