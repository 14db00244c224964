package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wingo/models"
)

// Notification is the provider's order status callback
type Notification struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     decimal.Decimal `json:"order_amount"`
	OrderStatus     string          `json:"order_status"`
	CustomerDetails struct {
		CustomerID string `json:"customer_id"`
	} `json:"customer_details"`
}

// Status returns the normalized order status
func (n *Notification) Status() models.OrderStatus {
	return models.NormalizeOrderStatus(n.OrderStatus)
}

// ParseNotification decodes and sanity checks a callback body
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	if n.OrderID == "" {
		return nil, errors.New("notification has no order_id")
	}
	if n.OrderStatus == "" {
		return nil, errors.New("notification has no order_status")
	}
	return &n, nil
}
