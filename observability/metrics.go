package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"wingo/config"
)

// MetricsProvider manages OpenTelemetry metrics for the game server. Every Record method
// is safe to call on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	ledgerEntriesCounter    metric.Int64Counter
	betsPlacedCounter       metric.Int64Counter
	cashoutsCounter         metric.Int64Counter
	roundsCompletedCounter  metric.Int64Counter
	settlementDurationHist  metric.Float64Histogram
	webhooksCounter         metric.Int64Counter
	connectionsGauge        metric.Int64UpDownCounter
	broadcastDroppedCounter metric.Int64Counter
	natsPublishedCounter    metric.Int64Counter
}

// newResource describes this service. The semconv import must match the schema of the
// sdk's default resource or the merge fails.
func newResource(cfg *config.Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.OTelServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := newResource(mp.config)
	if err != nil {
		return err
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("wingo")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerEntriesCounter, LedgerEntriesTotal, "Total number of ledger entries appended"},
		{&mp.betsPlacedCounter, BetsPlacedTotal, "Total number of bets accepted"},
		{&mp.cashoutsCounter, CashoutsTotal, "Total number of crash cashouts"},
		{&mp.roundsCompletedCounter, RoundsCompletedTotal, "Total number of rounds settled"},
		{&mp.webhooksCounter, WebhooksTotal, "Total number of payment notifications by outcome"},
		{&mp.broadcastDroppedCounter, BroadcastDroppedTotal, "Realtime messages dropped for slow observers"},
		{&mp.natsPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
	}
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	mp.connectionsGauge, err = mp.meter.Int64UpDownCounter(
		ConnectionsActive,
		metric.WithDescription("Current number of realtime connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create connections gauge: %w", err)
	}

	mp.settlementDurationHist, err = mp.meter.Float64Histogram(
		SettlementDuration,
		metric.WithDescription("Time spent settling a round in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordLedgerEntry counts an appended ledger entry
func (mp *MetricsProvider) RecordLedgerEntry(kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.ledgerEntriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, kind)))
}

// RecordBetPlaced counts an accepted bet
func (mp *MetricsProvider) RecordBetPlaced(game string) {
	if !mp.isEnabled() {
		return
	}
	mp.betsPlacedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelGame, game)))
}

// RecordCashout counts a crash cashout
func (mp *MetricsProvider) RecordCashout() {
	if !mp.isEnabled() {
		return
	}
	mp.cashoutsCounter.Add(context.Background(), 1)
}

// RecordRoundSettled counts a settled round and how long settlement took
func (mp *MetricsProvider) RecordRoundSettled(game string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelGame, game))
	mp.roundsCompletedCounter.Add(context.Background(), 1, attrs)
	mp.settlementDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordWebhook counts a payment notification by outcome
func (mp *MetricsProvider) RecordWebhook(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.webhooksCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
}

// UpdateConnections adjusts the live connection count
func (mp *MetricsProvider) UpdateConnections(delta int64) {
	if !mp.isEnabled() {
		return
	}
	mp.connectionsGauge.Add(context.Background(), delta)
}

// RecordBroadcastDropped counts a realtime message dropped for a slow observer
func (mp *MetricsProvider) RecordBroadcastDropped(event string) {
	if !mp.isEnabled() {
		return
	}
	mp.broadcastDroppedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, event)))
}

// RecordNATSMessagePublished counts an event mirrored to NATS
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)))
}

// isEnabled reports whether instruments exist to record into
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, or nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
