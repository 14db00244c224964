package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
	"wingo/observability"
	"wingo/payment"
)

type paymentService struct {
	uowFactory UnitOfWorkFactory
	provider   PaymentProvider
	secret     string
}

// NewPaymentService creates the payment reconciliation service. secret is the shared key
// the provider signs notifications with.
func NewPaymentService(uowFactory UnitOfWorkFactory, provider PaymentProvider, secret string) PaymentService {
	return &paymentService{
		uowFactory: uowFactory,
		provider:   provider,
		secret:     secret,
	}
}

// CreateOrder records a deposit order and opens it with the provider. A provider failure
// leaves the balance untouched and the order marked failed.
func (s *paymentService) CreateOrder(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Checkout, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.IsBlocked() {
		return nil, ErrAccountBlocked
	}

	order := &models.PaymentOrder{
		OrderID:   "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AccountID: accountID,
		Amount:    amount,
		Status:    models.OrderStatusActive,
	}
	if err := uow.PaymentOrderRepository().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store payment order: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	checkout, err := s.provider.CreateOrder(ctx, order, account.Mobile)
	if err != nil {
		log.WithError(err).WithField("orderID", order.OrderID).Warn("Payment provider order failed")
		s.setOrderStatus(context.WithoutCancel(ctx), order.OrderID, models.OrderStatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	log.WithFields(log.Fields{
		"orderID":   order.OrderID,
		"accountID": accountID,
		"amount":    amount.StringFixed(2),
	}).Info("Payment order created")
	return checkout, nil
}

// HandleWebhook applies a signed provider notification. Replays of an already credited
// order succeed without crediting again.
func (s *paymentService) HandleWebhook(ctx context.Context, signature, timestamp string, body []byte) error {
	metrics := observability.GetMetrics()

	if !payment.Verify(s.secret, signature, timestamp, body) {
		metrics.RecordWebhook(observability.WebhookRejected)
		log.Warn("Rejected payment notification with invalid signature")
		return ErrInvalidSignature
	}

	notification, err := payment.ParseNotification(body)
	if err != nil {
		metrics.RecordWebhook(observability.WebhookFailed)
		return err
	}

	logger := log.WithFields(log.Fields{
		"orderID": notification.OrderID,
		"status":  notification.Status(),
	})

	switch status := notification.Status(); status {
	case models.OrderStatusPaid:
		err := s.creditDeposit(ctx, notification)
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			metrics.RecordWebhook(observability.WebhookDuplicate)
			logger.Info("Ignoring duplicate payment notification")
			return nil
		case err != nil:
			metrics.RecordWebhook(observability.WebhookFailed)
			return err
		}
		metrics.RecordWebhook(observability.WebhookCredited)
		return nil

	case models.OrderStatusFailed, models.OrderStatusRefunded:
		// no balance reversal; an operator reconciles these by hand
		s.setOrderStatus(ctx, notification.OrderID, status)
		metrics.RecordWebhook(observability.WebhookIgnored)
		logger.Warn("Payment not completed, balance unchanged")
		return nil

	default:
		s.setOrderStatus(ctx, notification.OrderID, status)
		metrics.RecordWebhook(observability.WebhookIgnored)
		logger.Debug("Payment notification recorded")
		return nil
	}
}

func (s *paymentService) creditDeposit(ctx context.Context, n *payment.Notification) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	order, err := uow.PaymentOrderRepository().GetByID(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get payment order: %w", err)
	}

	if order == nil {
		// orders opened outside this service are attributed through the customer id
		order, err = s.adoptOrder(ctx, uow, n)
		if err != nil {
			return err
		}
	} else if !n.OrderAmount.IsZero() && !n.OrderAmount.Equal(order.Amount) {
		log.WithFields(log.Fields{
			"orderID":        n.OrderID,
			"orderAmount":    order.Amount.StringFixed(2),
			"notifiedAmount": n.OrderAmount.StringFixed(2),
		}).Warn("Notified amount differs from order, crediting the order amount")
	}

	if _, err := uow.PaymentOrderRepository().UpdateStatus(ctx, order.OrderID, models.OrderStatusPaid); err != nil {
		return fmt.Errorf("failed to update payment order: %w", err)
	}

	entry, err := CreditAccount(ctx, uow, LedgerRequest{
		AccountID:     order.AccountID,
		Amount:        order.Amount,
		Kind:          models.EntryKindDeposit,
		Description:   "deposit",
		CorrelationID: &order.OrderID,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return err
		}
		return fmt.Errorf("failed to credit deposit: %w", err)
	}

	uow.EventBus().Publish(events.DepositCreditedEvent{
		EntryID:    entry.ID,
		AccountID:  order.AccountID,
		OrderID:    order.OrderID,
		Amount:     order.Amount,
		NewBalance: entry.BalanceAfter,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"orderID":   order.OrderID,
		"accountID": order.AccountID,
		"amount":    order.Amount.StringFixed(2),
	}).Info("Deposit credited")
	return nil
}

func (s *paymentService) adoptOrder(ctx context.Context, uow UnitOfWork, n *payment.Notification) (*models.PaymentOrder, error) {
	accountID, err := strconv.ParseInt(n.CustomerDetails.CustomerID, 10, 64)
	if err != nil || !n.OrderAmount.IsPositive() {
		return nil, ErrUnknownOrder
	}

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrUnknownOrder
	}

	order := &models.PaymentOrder{
		OrderID:   n.OrderID,
		AccountID: accountID,
		Amount:    n.OrderAmount.Round(2),
		Status:    models.OrderStatusActive,
	}
	if err := uow.PaymentOrderRepository().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store payment order: %w", err)
	}
	return order, nil
}

// setOrderStatus is best effort; the notification is acknowledged either way
func (s *paymentService) setOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin transaction for order status")
		return
	}
	defer uow.Rollback()

	changed, err := uow.PaymentOrderRepository().UpdateStatus(ctx, orderID, status)
	if err != nil {
		log.WithError(err).WithField("orderID", orderID).Error("Failed to update payment order status")
		return
	}
	if !changed {
		log.WithFields(log.Fields{
			"orderID": orderID,
			"status":  status,
		}).Debug("Payment order status left unchanged")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("orderID", orderID).Error("Failed to commit order status")
	}
}
