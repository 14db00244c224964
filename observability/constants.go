package observability

// Metric name prefixes
const (
	MetricPrefix = "wingo"
)

// Metric names
const (
	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"

	// Round metrics
	BetsPlacedTotal      = MetricPrefix + ".bets.placed_total"
	CashoutsTotal        = MetricPrefix + ".bets.cashouts_total"
	RoundsCompletedTotal = MetricPrefix + ".rounds.completed_total"
	SettlementDuration   = MetricPrefix + ".rounds.settlement_duration"

	// Payment metrics
	WebhooksTotal = MetricPrefix + ".payments.webhooks_total"

	// Realtime metrics
	ConnectionsActive          = MetricPrefix + ".realtime.connections_active"
	BroadcastDroppedTotal      = MetricPrefix + ".realtime.dropped_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelGame      = "game"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
)

// Webhook outcomes
const (
	WebhookCredited  = "credited"
	WebhookDuplicate = "duplicate"
	WebhookRejected  = "rejected"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "failed"
)
