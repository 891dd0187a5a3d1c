package httpx

import "github.com/readcity/checkout/internal/checkout/core/domain"

type StartSessionRequest struct {
	// SessionID resumes an existing session (page reload); empty starts
	// a fresh one.
	SessionID string `json:"session_id"`
	// OwnerID identifies the cart: a guest token or an account ID.
	OwnerID string `json:"owner_id" validate:"required"`
}

type SetFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

type GotoStepRequest struct {
	Step string `json:"step" validate:"required"`
}

type SelectMethodRequest struct {
	MethodID string `json:"method_id" validate:"required"`
}

type SubmitResponse struct {
	OrderID     string              `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	TotalAmount float64             `json:"total_amount"`
	Payment     paymentDirectiveDTO `json:"payment"`
	RedirectTo  string              `json:"redirect_to"`
}

type paymentDirectiveDTO struct {
	Type         string            `json:"type"`
	RedirectURL  string            `json:"redirect_url,omitempty"`
	InlineParams map[string]string `json:"inline_params,omitempty"`
	BankAccount  string            `json:"bank_account,omitempty"`
	BankName     string            `json:"bank_name,omitempty"`
	Reference    string            `json:"reference,omitempty"`
}

type CancelResponse struct {
	RedirectTo string `json:"redirect_to"`
}

type ErrorResponse struct {
	Error      string                   `json:"error"`
	Message    string                   `json:"message,omitempty"`
	Fields     []domain.ValidationError `json:"fields,omitempty"`
	RedirectTo string                   `json:"redirect_to,omitempty"`
}
