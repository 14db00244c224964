package infrastructure

import (
	"fmt"

	"wingo/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "wingo.ledger.balance_changed"
	case events.EventTypeDepositCredited:
		return "wingo.payments.deposit_credited"
	case events.EventTypeBetPlaced:
		return "wingo.bets.placed"
	case events.EventTypeRoundResolved:
		return "wingo.rounds.resolved"
	case events.EventTypeWithdrawalRequested:
		return "wingo.withdrawals.requested"
	case events.EventTypeWithdrawalProcessed:
		return "wingo.withdrawals.processed"
	default:
		return fmt.Sprintf("wingo.unknown.%s", event.Type())
	}
}

// PublishedTypes returns every event type forwarded to NATS
func (m *EventSubjectMapper) PublishedTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeBalanceChange,
		events.EventTypeDepositCredited,
		events.EventTypeBetPlaced,
		events.EventTypeRoundResolved,
		events.EventTypeWithdrawalRequested,
		events.EventTypeWithdrawalProcessed,
	}
}

// StreamSubjects returns the subjects the event stream captures
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{"wingo.>"}
}
