package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/internal/orders"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

type stubOrderService struct {
	result *orders.CreateOrderResult
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
	return s.result, nil
}

func (s *stubOrderService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	panic("unimplemented")
}

func (s *stubOrderService) SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error {
	panic("unimplemented")
}

func (s *stubOrderService) MarkAwaitingPayment(ctx context.Context, orderID uuid.UUID) error {
	panic("unimplemented")
}

func TestCreateOrderResponseCarriesStatusAndStringNumber(t *testing.T) {
	svc := &stubOrderService{result: &orders.CreateOrderResult{
		OrderID:         uuid.New(),
		Number:          1042,
		Subtotal:        decimal.NewFromInt(369),
		Total:           decimal.NewFromInt(369),
		Currency:        enums.CurrencyUSD,
		FinancialStatus: enums.FinancialStatusPending,
	}}
	handler := CreateOrder(svc, logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard}))

	body := `{"email":"buyer@example.com","first_name":"Dana","last_name":"Levi","phone":"0501234567","currency":"USD","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := string(envelope.Data["order_number"]); got != `"1042"` {
		t.Fatalf("order_number = %s, must be a numeric string", got)
	}
	if got := string(envelope.Data["status"]); got != `"pending"` {
		t.Fatalf("status = %s, want pending", got)
	}
	if got := string(envelope.Data["subtotal"]); got != `"369"` {
		t.Fatalf("subtotal = %s, want 369", got)
	}
}
