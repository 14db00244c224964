package service

import (
	"context"

	"github.com/shopspring/decimal"

	"wingo/events"
	"wingo/models"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByMobile retrieves an account by its mobile handle
	GetByMobile(ctx context.Context, mobile string) (*models.Account, error)

	// Create inserts an active account with a zero balance
	Create(ctx context.Context, mobile, passwordHash string) (*models.Account, error)

	// AddBalance atomically increments the balance and returns the new value
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// DeductBalance atomically decrements the balance, failing with ErrInsufficientFunds
	// instead of going negative
	DeductBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// AddBonus increments the non-withdrawable bonus wallet
	AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// SetStatus changes the account status
	SetStatus(ctx context.Context, id int64, status models.AccountStatus) error

	// List returns accounts, newest first
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Append stores an entry. A deposit whose correlation id was already recorded
	// returns ErrAlreadyProcessed.
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// DepositExists reports whether a deposit with the correlation id was recorded
	DepositExists(ctx context.Context, correlationID string) (bool, error)

	// ListByAccount returns the newest entries for an account
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error)

	// SumByAccount returns the sum of all deltas recorded for an account
	SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// RoundRepository defines the interface for round history
type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	GetByID(ctx context.Context, id string) (*models.Round, error)
	UpdatePhase(ctx context.Context, id string, phase models.Phase) error

	// Resolve stores the result of a round once; later calls are ignored
	Resolve(ctx context.Context, id string, result string) error

	// ListResolved returns the newest resolved rounds of a game
	ListResolved(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts an open bet. A second open crash bet for the same account and
	// round returns ErrDuplicateBet.
	Create(ctx context.Context, bet *models.Bet) error

	GetOpenByAccount(ctx context.Context, accountID int64, roundID string) (*models.Bet, error)
	ListOpenByRound(ctx context.Context, roundID string) ([]*models.Bet, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error)

	// ListLive returns the anonymized bets of a round for observers
	ListLive(ctx context.Context, roundID string) ([]*models.LiveBet, error)

	// SumOpenStakesByColor totals the open color stakes of a round
	SumOpenStakesByColor(ctx context.Context, roundID string) (map[models.Color]decimal.Decimal, error)

	// CancelOpen marks the caller's open bet canceled and returns it, or nil if none
	CancelOpen(ctx context.Context, accountID int64, roundID string) (*models.Bet, error)

	// MarkCashedOut settles an open bet as cashed out; false if it was no longer open
	MarkCashedOut(ctx context.Context, betID int64, multiplier, payout decimal.Decimal) (bool, error)

	// MarkWon settles an open bet as won; false if it was no longer open
	MarkWon(ctx context.Context, betID int64, payout decimal.Decimal) (bool, error)

	// MarkOpenLost settles every remaining open bet of a round as lost
	MarkOpenLost(ctx context.Context, roundID string) (int64, error)

	// MarkRefunded settles an open bet as refunded; false if it was no longer open
	MarkRefunded(ctx context.Context, betID int64) (bool, error)

	// ListUnresolvedRoundIDs returns rounds without a result that still hold open bets
	ListUnresolvedRoundIDs(ctx context.Context) ([]string, error)
}

// WithdrawalRepository defines the interface for withdrawal requests
type WithdrawalRepository interface {
	Create(ctx context.Context, request *models.WithdrawalRequest) error

	// GetForUpdate loads and row-locks a request for the rest of the transaction
	GetForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error)

	// Transition moves a request between statuses; false if it was not in the from status
	Transition(ctx context.Context, id int64, from, to models.WithdrawalStatus) (bool, error)

	List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error)
}

// PresetOutcomeRepository defines the interface for operator overrides
type PresetOutcomeRepository interface {
	Enqueue(ctx context.Context, preset *models.PresetOutcome) error

	// ConsumeNext marks the oldest unconsumed preset of a game consumed and returns it,
	// or nil when the queue is empty
	ConsumeNext(ctx context.Context, gameKind models.GameKind) (*models.PresetOutcome, error)

	ListPending(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error)
}

// PaymentOrderRepository defines the interface for provider deposit orders
type PaymentOrderRepository interface {
	Create(ctx context.Context, order *models.PaymentOrder) error
	GetByID(ctx context.Context, orderID string) (*models.PaymentOrder, error)

	// UpdateStatus changes the order status; false if the order was already in it or
	// has settled (PAID only moves to REFUNDED, REFUNDED is final)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (bool, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and discards queued events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository
	RoundRepository() RoundRepository
	BetRepository() BetRepository
	WithdrawalRepository() WithdrawalRepository
	PresetOutcomeRepository() PresetOutcomeRepository
	PaymentOrderRepository() PaymentOrderRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Broadcaster delivers realtime messages to connected observers. Implementations must
// never block the caller.
type Broadcaster interface {
	Broadcast(event string, payload any)
	SendToAccount(accountID int64, event string, payload any)
}

// ColorGate exposes the betting window of the current color round
type ColorGate interface {
	// WithOpenRound runs fn while the current round accepts bets and the phase cannot
	// advance. It returns false without calling fn when betting is closed.
	WithOpenRound(fn func(roundID string) error) (bool, error)
	CurrentRoundID() string
}

// CrashGate exposes the phases of the current crash round
type CrashGate interface {
	// WithWaitingRound runs fn while the current round is waiting for bets
	WithWaitingRound(fn func(roundID string) error) (bool, error)

	// WithFlyingRound runs fn with the multiplier shown at this instant while the round
	// is flying; the round cannot crash until fn returns
	WithFlyingRound(fn func(roundID string, multiplier decimal.Decimal) error) (bool, error)

	CurrentRoundID() string
}

// ResultCache keeps the most recent round results of each game
type ResultCache interface {
	Push(ctx context.Context, round *models.Round) error
	Recent(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error)
}

// AccountService defines registration, authentication and account administration
type AccountService interface {
	Register(ctx context.Context, mobile, password string) (*models.Account, error)
	Authenticate(ctx context.Context, mobile, password string) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Account, error)
	AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
	LedgerHistory(ctx context.Context, id int64, limit int) ([]*models.LedgerEntry, error)
	BetHistory(ctx context.Context, id int64, limit int) ([]*models.Bet, error)
}

// BetService is the bet registry for both games
type BetService interface {
	PlaceColorBet(ctx context.Context, accountID int64, stake decimal.Decimal, color models.Color) (*models.BetReceipt, error)
	PlaceCrashBet(ctx context.Context, accountID int64, stake decimal.Decimal) (*models.BetReceipt, error)
	CancelCrashBet(ctx context.Context, accountID int64) (*models.BetReceipt, error)
	CashOut(ctx context.Context, accountID int64) (*models.BetReceipt, error)
	LiveBets(ctx context.Context, gameKind models.GameKind) ([]*models.LiveBet, error)
}

// OutcomeService picks round results, consulting the preset queue first
type OutcomeService interface {
	NextColor(ctx context.Context, roundID string) (models.Color, error)
	NextCrashPoint(ctx context.Context) (decimal.Decimal, error)
	AddPreset(ctx context.Context, gameKind models.GameKind, value string) (*models.PresetOutcome, error)
	ListPresets(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error)
}

// SettlementService pays out resolved rounds and returns the stakes of rounds that
// never resolved
type SettlementService interface {
	SettleColorRound(ctx context.Context, roundID string, result models.Color) (int, error)
	SettleCrashRound(ctx context.Context, roundID string, crashPoint decimal.Decimal) (int64, error)
	RefundRound(ctx context.Context, roundID string) (int, error)
	RefundStaleRounds(ctx context.Context) (int, error)
}

// RoundService persists the round lifecycle driven by the clocks
type RoundService interface {
	OpenRound(ctx context.Context, gameKind models.GameKind, roundID string, phase models.Phase) error
	AdvancePhase(ctx context.Context, roundID string, phase models.Phase) error
	RecentResults(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error)
}

// WithdrawalService handles payout requests and their review
type WithdrawalService interface {
	Request(ctx context.Context, accountID int64, amount decimal.Decimal, payoutAddress string) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error)
}

// PaymentProvider is the external payment gateway
type PaymentProvider interface {
	CreateOrder(ctx context.Context, order *models.PaymentOrder, customerMobile string) (*models.Checkout, error)
}

// PaymentService reconciles provider notifications with the ledger
type PaymentService interface {
	CreateOrder(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Checkout, error)
	HandleWebhook(ctx context.Context, signature, timestamp string, body []byte) error
}
