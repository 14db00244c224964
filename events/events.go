package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeDepositCredited     EventType = "deposit_credited"
	EventTypeBetPlaced           EventType = "bet_placed"
	EventTypeRoundResolved       EventType = "round_resolved"
	EventTypeWithdrawalRequested EventType = "withdrawal_requested"
	EventTypeWithdrawalProcessed EventType = "withdrawal_processed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a committed ledger entry. EntryID grows with commit
// order for a given account.
type BalanceChangeEvent struct {
	EntryID     int64            `json:"entry_id"`
	AccountID   int64            `json:"account_id"`
	OldBalance  decimal.Decimal  `json:"old_balance"`
	NewBalance  decimal.Decimal  `json:"new_balance"`
	Kind        models.EntryKind `json:"kind"`
	Delta       decimal.Decimal  `json:"delta"`
	Description string           `json:"description"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// DepositCreditedEvent represents a provider payment applied to a wallet
type DepositCreditedEvent struct {
	EntryID    int64           `json:"entry_id"`
	AccountID  int64           `json:"account_id"`
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func (e DepositCreditedEvent) Type() EventType {
	return EventTypeDepositCredited
}

// BetPlacedEvent represents a stake accepted into a round
type BetPlacedEvent struct {
	GameKind  models.GameKind `json:"game_kind"`
	RoundID   string          `json:"round_id"`
	BetID     int64           `json:"bet_id"`
	AccountID int64           `json:"account_id"`
	Stake     decimal.Decimal `json:"stake"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// RoundResolvedEvent represents a round whose result has been persisted
type RoundResolvedEvent struct {
	GameKind   models.GameKind `json:"game_kind"`
	RoundID    string          `json:"round_id"`
	Result     string          `json:"result"`
	Winners    int             `json:"winners"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

func (e RoundResolvedEvent) Type() EventType {
	return EventTypeRoundResolved
}

// WithdrawalRequestedEvent represents a new payout awaiting review
type WithdrawalRequestedEvent struct {
	RequestID     int64           `json:"request_id"`
	AccountID     int64           `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	PayoutAddress string          `json:"payout_address"`
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalProcessedEvent represents an operator decision on a withdrawal
type WithdrawalProcessedEvent struct {
	RequestID int64                   `json:"request_id"`
	AccountID int64                   `json:"account_id"`
	Amount    decimal.Decimal         `json:"amount"`
	Status    models.WithdrawalStatus `json:"status"`
}

func (e WithdrawalProcessedEvent) Type() EventType {
	return EventTypeWithdrawalProcessed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds one handler for every listed event type
func (b *Bus) SubscribeAll(handler Handler, eventTypes ...EventType) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run on their own
// goroutines so a slow handler never blocks the emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits. Flush forwards them to the real bus; Discard drops them.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event until commit")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Handlers outlive the request that committed the transaction
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
