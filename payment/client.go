package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"wingo/models"
)

// ErrUnavailable is returned when the provider cannot be reached or refuses the request.
// No money has moved when it is returned.
var ErrUnavailable = errors.New("payment provider unavailable")

const apiVersion = "2023-08-01"

// Config holds the provider credentials
type Config struct {
	BaseURL      string
	AppID        string
	Secret       string
	ReturnURL    string
	CurrencyCode string
	Timeout      time.Duration
}

// Client creates deposit orders with the payment provider
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a provider client whose every call is bounded by cfg.Timeout
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
}

type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
	PaymentLink      string `json:"payment_link"`
}

// CreateOrder registers a charge for order and returns what the player needs to pay it
func (c *Client) CreateOrder(ctx context.Context, order *models.PaymentOrder, customerMobile string) (*models.Checkout, error) {
	payload, err := json.Marshal(createOrderRequest{
		OrderID:       order.OrderID,
		OrderAmount:   order.Amount.InexactFloat64(),
		OrderCurrency: c.cfg.CurrencyCode,
		CustomerDetails: customerDetails{
			CustomerID:    strconv.FormatInt(order.AccountID, 10),
			CustomerPhone: customerMobile,
		},
		OrderMeta: orderMeta{ReturnURL: c.cfg.ReturnURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.cfg.AppID)
	req.Header.Set("x-client-secret", c.cfg.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(log.Fields{
			"orderID": order.OrderID,
			"status":  resp.StatusCode,
			"body":    string(body),
		}).Warn("Payment provider refused order")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	if out.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: response has no payment session", ErrUnavailable)
	}

	return &models.Checkout{
		OrderID:          order.OrderID,
		PaymentSessionID: out.PaymentSessionID,
		PaymentLink:      out.PaymentLink,
	}, nil
}
