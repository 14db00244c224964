package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"wingo/models"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

type accountService struct {
	uowFactory UnitOfWorkFactory
	hashCost   int
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		hashCost:   bcrypt.DefaultCost,
	}
}

// Register creates an active account with a zero balance
func (s *accountService) Register(ctx context.Context, mobile, password string) (*models.Account, error) {
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.AccountRepository().GetByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to check mobile: %w", err)
	}
	if existing != nil {
		return nil, ErrMobileTaken
	}

	account, err := uow.AccountRepository().Create(ctx, mobile, string(hash))
	if err != nil {
		if errors.Is(err, ErrMobileTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("accountID", account.ID).Info("Account registered")
	return account, nil
}

// Authenticate checks credentials and refuses blocked accounts
func (s *accountService) Authenticate(ctx context.Context, mobile, password string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if account.IsBlocked() {
		return nil, ErrAccountBlocked
	}

	return account, nil
}

// GetAccount returns an account or ErrAccountNotFound
func (s *accountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// ToggleStatus flips an account between active and blocked
func (s *accountService) ToggleStatus(ctx context.Context, id int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	next := models.AccountStatusBlocked
	if account.IsBlocked() {
		next = models.AccountStatusActive
	}
	if err := uow.AccountRepository().SetStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("failed to set account status: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	account.Status = next
	log.WithFields(log.Fields{
		"accountID": id,
		"status":    next,
	}).Info("Account status changed")
	return account, nil
}

// AddBonus credits the non-withdrawable bonus wallet
func (s *accountService) AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bonus, err := uow.AccountRepository().AddBonus(ctx, id, amount.Round(2))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("failed to add bonus: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bonus, nil
}

func (s *accountService) LedgerHistory(ctx context.Context, id int64, limit int) ([]*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.LedgerRepository().ListByAccount(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

func (s *accountService) BetHistory(ctx context.Context, id int64, limit int) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListByAccount(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet history: %w", err)
	}
	return bets, nil
}
