package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/config"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.GatewayConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func baseRequest() ChargeRequest {
	return ChargeRequest{
		Terminal:    "shop-terminal",
		Token:       "tok-single-use",
		OrderNumber: 1042,
		Amount:      decimal.NewFromInt(369),
		Currency:    "usd",
		Buyer:       Buyer{Name: "Dana Levi", Email: "dana@example.com"},
		Items: []ChargeItem{
			{Name: "Pro Plan", Quantity: 1, UnitPrice: decimal.NewFromInt(369)},
		},
	}
}

func TestChargeSuccess(t *testing.T) {
	var captured chargePayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/credit_card/create" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		resp := chargeResponse{Status: StatusOK, TransactionID: "txn-1", AuthNumber: "0012345"}
		resp.Receipt.DocID = "doc-9"
		resp.Receipt.Number = "R-9"
		resp.Receipt.URL = "https://receipts.example/doc-9"
		_ = json.NewEncoder(w).Encode(resp)
	})

	result, err := client.Charge(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if result.PaymentID != "txn-1" || result.AuthNumber != "0012345" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ReceiptURL != "https://receipts.example/doc-9" {
		t.Fatalf("unexpected receipt url %q", result.ReceiptURL)
	}
	if captured.CardToken != "tok-single-use" {
		t.Fatalf("token not forwarded")
	}
	if captured.TxnCurrency != "USD" {
		t.Fatalf("currency should be uppercased, got %q", captured.TxnCurrency)
	}
	if captured.Amount != "369.00" {
		t.Fatalf("amount = %q", captured.Amount)
	}
}

func TestChargeDeclineMapsToPaymentDeclined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chargeResponse{
			Status:           4,
			UserMessage:      "Card declined by issuer",
			TechnicalDetails: "issuer code 05",
		})
	})

	_, err := client.Charge(context.Background(), baseRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentDeclined {
		t.Fatalf("expected PAYMENT_DECLINED, got %v", err)
	}
	if typed.Message() != "Card declined by issuer" {
		t.Fatalf("gateway user message lost: %q", typed.Message())
	}
}

func TestChargeTransportFailureIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Charge(context.Background(), baseRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
}

func TestChargeValidatesInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	})

	req := baseRequest()
	req.Token = ""
	_, err := client.Charge(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	req = baseRequest()
	req.Amount = decimal.Zero
	_, err = client.Charge(context.Background(), req)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for zero amount, got %v", err)
	}
}
