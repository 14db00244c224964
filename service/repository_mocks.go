package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"wingo/events"
	"wingo/models"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByMobile(ctx context.Context, mobile string) (*models.Account, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, mobile, passwordHash string) (*models.Account, error) {
	args := m.Called(ctx, mobile, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) SetStatus(ctx context.Context, id int64, status models.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) DepositExists(ctx context.Context, correlationID string) (bool, error) {
	args := m.Called(ctx, correlationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) Create(ctx context.Context, round *models.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id string) (*models.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *MockRoundRepository) UpdatePhase(ctx context.Context, id string, phase models.Phase) error {
	args := m.Called(ctx, id, phase)
	return args.Error(0)
}

func (m *MockRoundRepository) Resolve(ctx context.Context, id string, result string) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockRoundRepository) ListResolved(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	args := m.Called(ctx, gameKind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Round), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetOpenByAccount(ctx context.Context, accountID int64, roundID string) (*models.Bet, error) {
	args := m.Called(ctx, accountID, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListOpenByRound(ctx context.Context, roundID string) ([]*models.Bet, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListLive(ctx context.Context, roundID string) ([]*models.LiveBet, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LiveBet), args.Error(1)
}

func (m *MockBetRepository) SumOpenStakesByColor(ctx context.Context, roundID string) (map[models.Color]decimal.Decimal, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Color]decimal.Decimal), args.Error(1)
}

func (m *MockBetRepository) CancelOpen(ctx context.Context, accountID int64, roundID string) (*models.Bet, error) {
	args := m.Called(ctx, accountID, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) MarkCashedOut(ctx context.Context, betID int64, multiplier, payout decimal.Decimal) (bool, error) {
	args := m.Called(ctx, betID, multiplier, payout)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) MarkWon(ctx context.Context, betID int64, payout decimal.Decimal) (bool, error) {
	args := m.Called(ctx, betID, payout)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) MarkOpenLost(ctx context.Context, roundID string) (int64, error) {
	args := m.Called(ctx, roundID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) MarkRefunded(ctx context.Context, betID int64) (bool, error) {
	args := m.Called(ctx, betID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) ListUnresolvedRoundIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) Transition(ctx context.Context, id int64, from, to models.WithdrawalStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WithdrawalRequest), args.Error(1)
}

// MockPresetOutcomeRepository is a mock implementation of PresetOutcomeRepository
type MockPresetOutcomeRepository struct {
	mock.Mock
}

func (m *MockPresetOutcomeRepository) Enqueue(ctx context.Context, preset *models.PresetOutcome) error {
	args := m.Called(ctx, preset)
	return args.Error(0)
}

func (m *MockPresetOutcomeRepository) ConsumeNext(ctx context.Context, gameKind models.GameKind) (*models.PresetOutcome, error) {
	args := m.Called(ctx, gameKind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PresetOutcome), args.Error(1)
}

func (m *MockPresetOutcomeRepository) ListPending(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error) {
	args := m.Called(ctx, gameKind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PresetOutcome), args.Error(1)
}

// MockPaymentOrderRepository is a mock implementation of PaymentOrderRepository
type MockPaymentOrderRepository struct {
	mock.Mock
}

func (m *MockPaymentOrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPaymentOrderRepository) GetByID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentOrder), args.Error(1)
}

func (m *MockPaymentOrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, status)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are wired with
// SetRepositories; transaction calls go through the mock.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo      AccountRepository
	ledgerRepo       LedgerRepository
	roundRepo        RoundRepository
	betRepo          BetRepository
	withdrawalRepo   WithdrawalRepository
	presetRepo       PresetOutcomeRepository
	paymentOrderRepo PaymentOrderRepository
	eventBus         EventPublisher
}

// MockRepositories bundles the repositories handed to a MockUnitOfWork
type MockRepositories struct {
	Accounts      *MockAccountRepository
	Ledger        *MockLedgerRepository
	Rounds        *MockRoundRepository
	Bets          *MockBetRepository
	Withdrawals   *MockWithdrawalRepository
	Presets       *MockPresetOutcomeRepository
	PaymentOrders *MockPaymentOrderRepository
	Events        *MockEventPublisher
}

// NewMockRepositories creates a fresh mock for every repository
func NewMockRepositories() *MockRepositories {
	return &MockRepositories{
		Accounts:      new(MockAccountRepository),
		Ledger:        new(MockLedgerRepository),
		Rounds:        new(MockRoundRepository),
		Bets:          new(MockBetRepository),
		Withdrawals:   new(MockWithdrawalRepository),
		Presets:       new(MockPresetOutcomeRepository),
		PaymentOrders: new(MockPaymentOrderRepository),
		Events:        new(MockEventPublisher),
	}
}

// SetRepositories wires the unit of work to repos
func (m *MockUnitOfWork) SetRepositories(repos *MockRepositories) {
	m.accountRepo = repos.Accounts
	m.ledgerRepo = repos.Ledger
	m.roundRepo = repos.Rounds
	m.betRepo = repos.Bets
	m.withdrawalRepo = repos.Withdrawals
	m.presetRepo = repos.Presets
	m.paymentOrderRepo = repos.PaymentOrders
	m.eventBus = repos.Events
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository             { return m.accountRepo }
func (m *MockUnitOfWork) LedgerRepository() LedgerRepository               { return m.ledgerRepo }
func (m *MockUnitOfWork) RoundRepository() RoundRepository                 { return m.roundRepo }
func (m *MockUnitOfWork) BetRepository() BetRepository                     { return m.betRepo }
func (m *MockUnitOfWork) WithdrawalRepository() WithdrawalRepository       { return m.withdrawalRepo }
func (m *MockUnitOfWork) PresetOutcomeRepository() PresetOutcomeRepository { return m.presetRepo }
func (m *MockUnitOfWork) PaymentOrderRepository() PaymentOrderRepository   { return m.paymentOrderRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                         { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockPaymentProvider is a mock implementation of PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateOrder(ctx context.Context, order *models.PaymentOrder, customerMobile string) (*models.Checkout, error) {
	args := m.Called(ctx, order, customerMobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Checkout), args.Error(1)
}

// MockResultCache is a mock implementation of ResultCache
type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Push(ctx context.Context, round *models.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockResultCache) Recent(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	args := m.Called(ctx, gameKind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Round), args.Error(1)
}

// MockBroadcaster is a mock implementation of Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(event string, payload any) {
	m.Called(event, payload)
}

func (m *MockBroadcaster) SendToAccount(accountID int64, event string, payload any) {
	m.Called(accountID, event, payload)
}
