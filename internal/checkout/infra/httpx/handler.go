package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/flow"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

const headerSessionToken = "X-Session-Token"

// Handler exposes the checkout engine to the hosting storefront. The
// engine owns all state; the handler only decodes requests, relays them,
// and maps the failure taxonomy onto HTTP statuses.
type Handler struct {
	engine   *flow.Engine
	validate *validator.Validate

	// Return targets handed to the front end in redirect responses.
	cartURL  string
	loginURL string
}

// NewHandler builds the HTTP handler around an engine.
func NewHandler(engine *flow.Engine, cartURL, loginURL string) *Handler {
	return &Handler{
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cartURL:  cartURL,
		loginURL: loginURL,
	}
}

// StartSession enters checkout (or resumes one on page reload).
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := h.engine.Start(r.Context(), req.SessionID, req.OwnerID, r.Header.Get(headerSessionToken))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// GetState returns the current session snapshot.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SetField mutates one draft field.
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	var req SetFieldRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := h.engine.SetField(r.Context(), chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// NextStep validates the current step and advances.
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.Next(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// PreviousStep steps back without validating.
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.Previous(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GotoStep navigates directly to a reachable step.
func (h *Handler) GotoStep(w http.ResponseWriter, r *http.Request) {
	var req GotoStepRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := h.engine.Goto(r.Context(), chi.URLParam(r, "id"), domain.StepID(req.Step))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SelectShippingMethod records the chosen delivery option.
func (h *Handler) SelectShippingMethod(w http.ResponseWriter, r *http.Request) {
	var req SelectMethodRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := h.engine.SelectShippingMethod(r.Context(), chi.URLParam(r, "id"), req.MethodID)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Submit places the order. On success the response carries the payment
// directive and the confirmation target; the engine has already cleared
// the draft and the cart.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	result, err := h.engine.Submit(r.Context(), sessionID, r.Header.Get(headerSessionToken))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderResult(result))
}

// Cancel abandons the flow and sends the buyer back to the cart.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{RedirectTo: h.cartURL})
}

// Resume continues a parked session after authentication.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.Resume(r.Context(), chi.URLParam(r, "id"), r.Header.Get(headerSessionToken))
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// decode unmarshals and shape-validates a request body. Returns false
// after writing the error response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// writeFlowError maps engine errors onto HTTP responses. Every failure
// is surfaced; the draft survives all of them.
func (h *Handler) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, flow.ErrEmptyCart):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "empty_cart", Message: "Your cart is empty", RedirectTo: h.cartURL,
		})
	case errors.Is(err, flow.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "")
	case errors.Is(err, flow.ErrStepUnreachable):
		writeError(w, http.StatusConflict, "step_unreachable", "Complete the earlier steps first")
	case errors.Is(err, flow.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, "submit_in_flight", "Your order is already being placed")
	default:
		h.writeClassified(w, r, err)
	}
}

func (h *Handler) writeClassified(w http.ResponseWriter, r *http.Request, err error) {
	var fe *domain.FlowError
	if !errors.As(err, &fe) {
		slog.ErrorContext(r.Context(), "unclassified checkout error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	switch fe.Kind {
	case domain.KindValidation:
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation_failed", Message: fe.Message, Fields: fe.Fields,
		})
	case domain.KindAuth:
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "auth_required", Message: fe.Message, RedirectTo: h.loginURL,
		})
	case domain.KindNetwork:
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error: "network_failure", Message: fe.Message,
		})
	default:
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error: "order_service_error", Message: fe.Message,
		})
	}
}

func mapOrderResult(result *ports.OrderResult) SubmitResponse {
	return SubmitResponse{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		TotalAmount: result.TotalAmount,
		Payment: paymentDirectiveDTO{
			Type:         result.Payment.Type,
			RedirectURL:  result.Payment.RedirectURL,
			InlineParams: result.Payment.InlineParams,
			BankAccount:  result.Payment.BankAccount,
			BankName:     result.Payment.BankName,
			Reference:    result.Payment.Reference,
		},
		RedirectTo: "/orders/" + result.OrderID + "/confirmation",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
