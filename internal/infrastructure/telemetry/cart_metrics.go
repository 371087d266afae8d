package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Promo outcome labels
const (
	PromoOutcomeApplied  = "applied"
	PromoOutcomeRejected = "rejected"
)

// SessionCounter reports how many carts are currently stored.
type SessionCounter interface {
	CountSessions(ctx context.Context) (int64, error)
}

// CartMetrics records cart activity. All Record methods are safe on a nil receiver.
type CartMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	mutationsTotal     *Counter
	promoAttemptsTotal *Counter
	checkoutTotal      *Counter
	checkoutValue      *Histogram
	checkoutUnits      *Histogram

	activeSessions *Gauge
	sessionCounter SessionCounter

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// CartMetricsConfig holds configuration for cart metrics.
type CartMetricsConfig struct {
	Meter          metric.Meter
	Logger         *zap.Logger
	SessionCounter SessionCounter
}

// NewCartMetrics creates the cart instruments.
func NewCartMetrics(cfg CartMetricsConfig) (*CartMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CartMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		sessionCounter: cfg.SessionCounter,
		stopChan:       make(chan struct{}),
	}

	var err error
	cm.mutationsTotal, err = NewCounter(cfg.Meter,
		"storefront_cart_mutations_total",
		"Total number of cart mutations by operation",
		"{mutations}",
	)
	if err != nil {
		return nil, err
	}

	cm.promoAttemptsTotal, err = NewCounter(cfg.Meter,
		"storefront_promo_attempts_total",
		"Total number of promo code applications by outcome",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	cm.checkoutTotal, err = NewCounter(cfg.Meter,
		"storefront_checkout_quotes_total",
		"Total number of checkout quotes issued",
		"{quotes}",
	)
	if err != nil {
		return nil, err
	}

	cm.checkoutValue, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storefront_checkout_value",
		Description: "Checkout quote totals",
		Unit:        "{currency}",
		Boundaries:  CartValueBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.checkoutUnits, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storefront_checkout_units",
		Description: "Units per checkout quote",
		Unit:        "{units}",
		Boundaries:  CartSizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.activeSessions, err = NewGauge(cfg.Meter,
		"storefront_cart_sessions_active",
		"Number of stored cart sessions",
		"{sessions}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordMutation counts a successful cart mutation.
func (cm *CartMetrics) RecordMutation(ctx context.Context, operation string) {
	if cm == nil {
		return
	}
	cm.mutationsTotal.Inc(ctx, AttrCartOperation.String(operation))
}

// RecordPromoAttempt counts a promo code application.
func (cm *CartMetrics) RecordPromoAttempt(ctx context.Context, code, outcome string) {
	if cm == nil {
		return
	}
	cm.promoAttemptsTotal.Inc(ctx,
		AttrPromoCode.String(code),
		AttrPromoOutcome.String(outcome),
	)
}

// RecordCheckout records a checkout quote's value and size.
func (cm *CartMetrics) RecordCheckout(ctx context.Context, total decimal.Decimal, units int) {
	if cm == nil {
		return
	}
	cm.checkoutTotal.Inc(ctx)
	cm.checkoutValue.Record(ctx, total.InexactFloat64())
	cm.checkoutUnits.Record(ctx, float64(units))
}

// StartPeriodicCollection samples the active session gauge every interval
// (default: 1 minute) until Stop is called or ctx is done.
func (cm *CartMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if cm == nil || cm.sessionCounter == nil {
		return
	}
	cm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go cm.runPeriodicCollection(ctx, interval)
	})
}

func (cm *CartMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cm.collectSessions(ctx)

	for {
		select {
		case <-cm.stopChan:
			cm.logger.Info("Stopping periodic cart metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cm.collectSessions(ctx)
		}
	}
}

func (cm *CartMetrics) collectSessions(ctx context.Context) {
	n, err := cm.sessionCounter.CountSessions(ctx)
	if err != nil {
		cm.logger.Warn("Failed to count cart sessions", zap.Error(err))
		return
	}
	cm.activeSessions.Record(ctx, n)
}

// Stop stops the periodic collection.
func (cm *CartMetrics) Stop() {
	if cm == nil {
		return
	}
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCartMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
