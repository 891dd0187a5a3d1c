package orderapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

func testRequest() ports.OrderRequest {
	return ports.OrderRequest{
		IdempotencyKey: "idem-1",
		CustomerID:     "acct-1",
		Customer:       domain.CustomerInfo{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com"},
		Items:          []ports.OrderLine{{BookID: "b1", Quantity: 1, UnitPrice: 5000}},
		GatewayID:      "paystack",
		Subtotal:       5000, ShippingCost: 1500, Tax: 375, Total: 6875,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	var gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		gotIdem = r.Header.Get("X-Idempotency-Key")

		var req ports.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "NG", req.ShippingAddr.CountryCode, "zero address still carries the stable shape")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ports.OrderResult{
			OrderID:     "ord-1",
			OrderNumber: "RC-1001",
			TotalAmount: 6875,
			Payment:     ports.PaymentDirective{Type: "redirect", RedirectURL: "https://pay.example/x"},
		})
	}))
	defer srv.Close()

	req := testRequest()
	req.ShippingAddr.CountryCode = "NG"
	result, err := New(srv.URL).CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, "RC-1001", result.OrderNumber)
	assert.Equal(t, "redirect", result.Payment.Type)
	assert.Equal(t, "idem-1", gotIdem)
}

func TestCreateOrder_TransportErrorIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := New(srv.URL).CreateOrder(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, domain.IsNetwork(err))
}

func TestCreateOrder_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.FailureKind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, "", domain.KindAuth, ""},
		{"forbidden", http.StatusForbidden, "", domain.KindAuth, ""},
		{"internal error", http.StatusInternalServerError, "", domain.KindServer, ""},
		{"bad gateway", http.StatusBadGateway, "", domain.KindServer, ""},
		{
			"business rejection surfaces its message",
			http.StatusConflict,
			`{"error":"out_of_stock","message":"Things Fall Apart is out of stock"}`,
			domain.KindServer,
			"Things Fall Apart is out of stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).CreateOrder(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))

			if tt.msg != "" {
				var fe *domain.FlowError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.msg, fe.Message)
			}
		})
	}
}

func TestCreateOrder_MalformedSuccessBodyIsServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateOrder(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, domain.KindServer, domain.KindOf(err))
}
