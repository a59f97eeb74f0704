package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector aggregates the Prometheus instruments for the
// marketplace: order lifecycle, payments, stock movement, notification
// fan-out and delivery transports, plus the usual HTTP and runtime
// gauges.
type MetricsCollector struct {
	orderPlacementTotal    *prometheus.CounterVec
	orderTransitionTotal   *prometheus.CounterVec
	orderCancellationTotal *prometheus.CounterVec
	orderPlacementDuration *prometheus.HistogramVec

	stockReservationTotal *prometheus.CounterVec
	lowStockAlertTotal    *prometheus.CounterVec

	paymentRecordTotal *prometheus.CounterVec

	notificationFanoutTotal   *prometheus.CounterVec
	notificationDeliveryTotal *prometheus.CounterVec
	deliveryPrimaryHealthy    prometheus.Gauge
	deliveryPollFallbackTotal prometheus.Counter

	loginTotal        *prometheus.CounterVec
	registrationTotal *prometheus.CounterVec

	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge

	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcDuration     prometheus.Gauge
}

// NewMetricsCollector registers all instruments against the default registry.
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{}
	mc.initMetrics()
	return mc
}

func (mc *MetricsCollector) initMetrics() {
	mc.orderPlacementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_placement_total",
			Help: "Total number of order placement attempts",
		},
		[]string{"status"},
	)

	mc.orderTransitionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transition_total",
			Help: "Total number of order status transitions",
		},
		[]string{"target", "status"},
	)

	mc.orderCancellationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_cancellation_total",
			Help: "Total number of order cancellations",
		},
		[]string{"initiator", "status"},
	)

	mc.orderPlacementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_placement_duration_seconds",
			Help:    "Duration of order placement including stock reservation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	mc.stockReservationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reservation_total",
			Help: "Total number of stock reservations and releases",
		},
		[]string{"operation", "status"},
	)

	mc.lowStockAlertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "low_stock_alert_total",
			Help: "Total number of low stock alerts raised",
		},
		[]string{"status"},
	)

	mc.paymentRecordTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_record_total",
			Help: "Total number of payment ledger updates",
		},
		[]string{"method", "status"},
	)

	mc.notificationFanoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_fanout_total",
			Help: "Total number of notifications fanned out",
		},
		[]string{"type", "status"},
	)

	mc.notificationDeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_total",
			Help: "Total number of notifications delivered per transport",
		},
		[]string{"transport"},
	)

	mc.deliveryPrimaryHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_primary_healthy",
			Help: "Whether the primary delivery transport is passing health checks",
		},
	)

	mc.deliveryPollFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_poll_fallback_total",
			Help: "Total number of polling fallback sweeps executed",
		},
	)

	mc.loginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"},
	)

	mc.registrationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_registration_total",
			Help: "Total number of profile registrations",
		},
		[]string{"role", "status"},
	)

	mc.httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	mc.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	mc.dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	mc.dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	mc.memoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	mc.goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "goroutine_count",
			Help: "Number of goroutines",
		},
	)

	mc.gcDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gc_duration_seconds",
			Help: "Cumulative garbage collection pause time",
		},
	)
}

// RecordOrderPlacement records an order placement attempt.
func (mc *MetricsCollector) RecordOrderPlacement(status string, duration time.Duration) {
	mc.orderPlacementTotal.WithLabelValues(status).Inc()
	mc.orderPlacementDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordOrderTransition records a status transition attempt.
func (mc *MetricsCollector) RecordOrderTransition(target, status string) {
	mc.orderTransitionTotal.WithLabelValues(target, status).Inc()
}

// RecordOrderCancellation records a cancellation. The initiator is
// "buyer", "farmer" or "system".
func (mc *MetricsCollector) RecordOrderCancellation(initiator, status string) {
	mc.orderCancellationTotal.WithLabelValues(initiator, status).Inc()
}

// RecordStockReservation records a stock movement. The operation is
// "reserve" or "release".
func (mc *MetricsCollector) RecordStockReservation(operation, status string) {
	mc.stockReservationTotal.WithLabelValues(operation, status).Inc()
}

// RecordLowStockAlert records a low stock alert.
func (mc *MetricsCollector) RecordLowStockAlert(status string) {
	mc.lowStockAlertTotal.WithLabelValues(status).Inc()
}

// RecordPayment records a payment ledger update.
func (mc *MetricsCollector) RecordPayment(method, status string) {
	mc.paymentRecordTotal.WithLabelValues(method, status).Inc()
}

// RecordNotificationFanout records a notification persisted and broadcast.
func (mc *MetricsCollector) RecordNotificationFanout(notificationType, status string) {
	mc.notificationFanoutTotal.WithLabelValues(notificationType, status).Inc()
}

// RecordNotificationDelivery records a notification emitted to a subscriber.
func (mc *MetricsCollector) RecordNotificationDelivery(transport string) {
	mc.notificationDeliveryTotal.WithLabelValues(transport).Inc()
}

// SetDeliveryPrimaryHealthy flips the primary transport health gauge.
func (mc *MetricsCollector) SetDeliveryPrimaryHealthy(healthy bool) {
	if healthy {
		mc.deliveryPrimaryHealthy.Set(1)
	} else {
		mc.deliveryPrimaryHealthy.Set(0)
	}
}

// RecordPollFallback records a polling fallback sweep.
func (mc *MetricsCollector) RecordPollFallback() {
	mc.deliveryPollFallbackTotal.Inc()
}

// RecordLogin records a login attempt.
func (mc *MetricsCollector) RecordLogin(status string) {
	mc.loginTotal.WithLabelValues(status).Inc()
}

// RecordRegistration records a profile registration.
func (mc *MetricsCollector) RecordRegistration(role, status string) {
	mc.registrationTotal.WithLabelValues(role, status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (mc *MetricsCollector) RecordHTTPRequest(method, path, status string) {
	mc.httpRequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request latency.
func (mc *MetricsCollector) RecordHTTPDuration(method, path string, duration time.Duration) {
	mc.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateDBConnections updates the connection pool gauges.
func (mc *MetricsCollector) UpdateDBConnections(active, idle int) {
	mc.dbConnectionsActive.Set(float64(active))
	mc.dbConnectionsIdle.Set(float64(idle))
}

// UpdateSystemMetrics samples the Go runtime.
func (mc *MetricsCollector) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mc.memoryUsage.Set(float64(m.Alloc))
	mc.goroutineCount.Set(float64(runtime.NumGoroutine()))
	mc.gcDuration.Set(float64(m.PauseTotalNs) / 1e9)
}

// StartSystemMetricsCollection samples runtime metrics until the
// context is cancelled.
func (mc *MetricsCollector) StartSystemMetricsCollection(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.UpdateSystemMetrics()
		}
	}
}
