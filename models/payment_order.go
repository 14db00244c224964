package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the payment provider's order states
type OrderStatus string

const (
	OrderStatusActive   OrderStatus = "ACTIVE"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
)

// NormalizeOrderStatus upper-cases a provider status string
func NormalizeOrderStatus(s string) OrderStatus {
	return OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// PaymentOrder is a deposit charge created with the payment provider
type PaymentOrder struct {
	OrderID   string          `db:"order_id" json:"order_id"`
	AccountID int64           `db:"account_id" json:"account_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    OrderStatus     `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Checkout is what a player needs to complete a deposit with the provider
type Checkout struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	PaymentLink      string `json:"payment_link,omitempty"`
}
