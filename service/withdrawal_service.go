package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
)

type withdrawalService struct {
	uowFactory UnitOfWorkFactory
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory) WithdrawalService {
	return &withdrawalService{
		uowFactory: uowFactory,
	}
}

// Request debits amount and records a pending payout in one transaction. A request the
// balance cannot cover is refused before anything is written.
func (s *withdrawalService) Request(ctx context.Context, accountID int64, amount decimal.Decimal, payoutAddress string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return nil, ErrInvalidAmount
	}
	payoutAddress = strings.TrimSpace(payoutAddress)
	if payoutAddress == "" {
		return nil, ErrPayoutAddressMissing
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
	if account.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	request := &models.WithdrawalRequest{
		AccountID:     accountID,
		Amount:        amount,
		PayoutAddress: payoutAddress,
	}
	if err := uow.WithdrawalRepository().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	correlationID := withdrawalCorrelationID(request.ID)
	if _, err := DebitAccount(ctx, uow, LedgerRequest{
		AccountID:     accountID,
		Amount:        amount,
		Kind:          models.EntryKindWithdrawalRequest,
		Description:   "withdrawal requested",
		CorrelationID: &correlationID,
	}); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalRequestedEvent{
		RequestID:     request.ID,
		AccountID:     accountID,
		Amount:        amount,
		PayoutAddress: payoutAddress,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID": request.ID,
		"accountID": accountID,
		"amount":    amount.StringFixed(2),
	}).Info("Withdrawal requested")
	return request, nil
}

// Approve marks a pending request paid out. The amount was debited at request time, so
// only an audit entry is written.
func (s *withdrawalService) Approve(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return s.process(ctx, id, models.WithdrawalStatusApproved, func(uow UnitOfWork, request *models.WithdrawalRequest, correlationID string) error {
		_, err := AnnotateAccount(ctx, uow, request.AccountID, models.EntryKindWithdrawalApproved,
			fmt.Sprintf("withdrawal of %s approved", request.Amount.StringFixed(2)), &correlationID)
		return err
	})
}

// Reject refunds a pending request
func (s *withdrawalService) Reject(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return s.process(ctx, id, models.WithdrawalStatusRejected, func(uow UnitOfWork, request *models.WithdrawalRequest, correlationID string) error {
		_, err := CreditAccount(ctx, uow, LedgerRequest{
			AccountID:     request.AccountID,
			Amount:        request.Amount,
			Kind:          models.EntryKindWithdrawalRefund,
			Description:   "withdrawal rejected",
			CorrelationID: &correlationID,
		})
		return err
	})
}

func (s *withdrawalService) process(ctx context.Context, id int64, to models.WithdrawalStatus, apply func(UnitOfWork, *models.WithdrawalRequest, string) error) (*models.WithdrawalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.WithdrawalRepository().GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	if request == nil {
		return nil, ErrWithdrawalNotFound
	}
	if request.Status != models.WithdrawalStatusPending {
		return nil, ErrWithdrawalProcessed
	}

	moved, err := uow.WithdrawalRepository().Transition(ctx, id, models.WithdrawalStatusPending, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	if !moved {
		return nil, ErrWithdrawalProcessed
	}

	if err := apply(uow, request, withdrawalCorrelationID(id)); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal decision: %w", err)
	}

	uow.EventBus().Publish(events.WithdrawalProcessedEvent{
		RequestID: id,
		AccountID: request.AccountID,
		Amount:    request.Amount,
		Status:    to,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	request.Status = to
	log.WithFields(log.Fields{
		"requestID": id,
		"status":    to,
	}).Info("Withdrawal processed")
	return request, nil
}

func (s *withdrawalService) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests, err := uow.WithdrawalRepository().List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return requests, nil
}

func withdrawalCorrelationID(id int64) string {
	return "withdrawal:" + strconv.FormatInt(id, 10)
}
