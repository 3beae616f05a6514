// Package gateway talks to the tokenizing card gateway over HTTPS. The
// browser turns raw card data into a single-use token against the tenant's
// public terminal; this client spends that token server-side. Tokens are
// never logged.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/config"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

// StatusOK is the gateway's success code; any other status is a decline or
// processing failure described by UserMessage/TechnicalDetails.
const StatusOK = 0

var errBaseURLRequired = errors.New("gateway base url is required")

// Client is the HTTP client for the card gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sandboxURL string
	logg       *logger.Logger
}

// Charger is the settlement-facing surface.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeItem is one order line forwarded to the gateway receipt.
type ChargeItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"units_number"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Buyer identifies the cardholder on the receipt.
type Buyer struct {
	Name  string `json:"contact"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ChargeRequest spends a single-use token against a terminal.
type ChargeRequest struct {
	Terminal    string
	Sandbox     bool
	Token       string
	OrderNumber int64
	Amount      decimal.Decimal
	Currency    string
	Buyer       Buyer
	Items       []ChargeItem
}

// ChargeResult is the gateway's view of a settled payment.
type ChargeResult struct {
	PaymentID     string `json:"payment_id"`
	AuthNumber    string `json:"auth_number"`
	ReceiptDocID  string `json:"receipt_doc_id"`
	ReceiptNumber string `json:"receipt_number"`
	ReceiptURL    string `json:"receipt_url"`
}

type chargePayload struct {
	TerminalName string       `json:"terminal_name"`
	TxnCurrency  string       `json:"txn_currency_code"`
	TxnType      string       `json:"txn_type"`
	CardToken    string       `json:"card_token"`
	OrderNumber  int64        `json:"order_number"`
	Amount       string       `json:"amount"`
	Buyer        Buyer        `json:"client"`
	Items        []ChargeItem `json:"items"`
}

type chargeResponse struct {
	Status           int    `json:"error_code"`
	UserMessage      string `json:"user_message"`
	TechnicalDetails string `json:"technical_details"`
	TransactionID    string `json:"transaction_id"`
	AuthNumber       string `json:"auth_number"`
	Receipt          struct {
		DocID  string `json:"doc_id"`
		Number string `json:"doc_number"`
		URL    string `json:"doc_url"`
	} `json:"receipt"`
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	sandbox := strings.TrimSpace(cfg.SandboxBaseURL)
	if sandbox == "" {
		sandbox = base
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(base, "/"),
		sandboxURL: strings.TrimRight(sandbox, "/"),
		logg:       logg,
	}, nil
}

// Charge spends the single-use token. A non-zero gateway status maps to
// PAYMENT_DECLINED carrying the gateway's user-facing message; transport
// failures map to DEPENDENCY_ERROR.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.Terminal) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway terminal is required")
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}
	if req.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	payload := chargePayload{
		TerminalName: req.Terminal,
		TxnCurrency:  strings.ToUpper(req.Currency),
		TxnType:      "debit",
		CardToken:    req.Token,
		OrderNumber:  req.OrderNumber,
		Amount:       req.Amount.StringFixed(2),
		Buyer:        req.Buyer,
		Items:        req.Items,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding charge request")
	}

	url := c.chargeURL(req.Sandbox)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building charge request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.logg != nil {
		c.logg.Info(ctx, fmt.Sprintf("gateway charge order=%d terminal=%s amount=%s %s",
			req.OrderNumber, req.Terminal, payload.Amount, payload.TxnCurrency))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling card gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("card gateway returned http %d", resp.StatusCode))
	}

	var decoded chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}

	if decoded.Status != StatusOK {
		return nil, declineError(decoded)
	}

	return &ChargeResult{
		PaymentID:     decoded.TransactionID,
		AuthNumber:    decoded.AuthNumber,
		ReceiptDocID:  decoded.Receipt.DocID,
		ReceiptNumber: decoded.Receipt.Number,
		ReceiptURL:    decoded.Receipt.URL,
	}, nil
}

func (c *Client) chargeURL(sandbox bool) string {
	base := c.baseURL
	if sandbox {
		base = c.sandboxURL
	}
	return base + "/v1/transaction/credit_card/create"
}

func declineError(resp chargeResponse) error {
	msg := strings.TrimSpace(resp.UserMessage)
	if msg == "" {
		msg = "payment was declined"
	}
	err := pkgerrors.New(pkgerrors.CodePaymentDeclined, msg)
	if details := strings.TrimSpace(resp.TechnicalDetails); details != "" {
		err = err.WithDetails(map[string]any{
			"gateway_status":  resp.Status,
			"gateway_details": details,
		})
	}
	return err
}
