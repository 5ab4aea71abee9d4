// Package metrics exposes the Prometheus sink for the pipeline: every
// structured outcome (flip detected, order placed, fill verified,
// cancellation, exit reason, persistence failure) is surfaced here rather
// than swallowed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Латентность пайплайна ============

// BookToDetectLatency - время от применения обновления стакана до решения детектора
var BookToDetectLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "book_to_detect_latency_ms",
		Help:      "Latency from order-book update to detector decision, in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
	},
	[]string{"venue", "stage"},
)

// DetectToOrderLatency - время от обнаружения возможности до отправки ордера
var DetectToOrderLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "detect_to_order_latency_ms",
		Help:      "Latency from opportunity detection to order submission, in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
	},
	[]string{"kind"},
)

// OrderExecutionLatency - время исполнения ордера на venue
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "order_execution_latency_ms",
		Help:      "Time to execute an order on a venue, in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"venue", "side"},
)

// ============ Счётчики исходов ============

// FlipsDetected - обнаруженные арбитражные возможности (spread или cross-venue)
var FlipsDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "flips_detected_total",
		Help:      "Number of arbitrage opportunities detected",
	},
	[]string{"kind"}, // spread_arb, cross_venue_arb
)

// OrdersPlaced - размещённые ордера по venue/side
var OrdersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "orders_placed_total",
		Help:      "Number of orders placed",
	},
	[]string{"venue", "side"},
)

// VerifiedFills - подтверждённые (полные или частичные) исполнения
var VerifiedFills = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "verified_fills_total",
		Help:      "Number of verified order fills",
	},
	[]string{"venue", "filled"}, // filled: full, partial
)

// Cancelled - отменённые ордера (истёк cancel_timeout)
var Cancelled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "cancelled_total",
		Help:      "Number of orders cancelled after the cancel timeout",
	},
	[]string{"venue"},
)

// ExitsByReason - исходы закрытия плана исполнения
var ExitsByReason = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "exits_by_reason_total",
		Help:      "Execution plan outcomes by exit reason",
	},
	[]string{"reason"}, // filled, no_fill, rebalance_needed, stale_quote, exposure_rejected, cooldown_active, failed
)

// DBErrors - ошибки персистентности по операции
var DBErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "db_errors_total",
		Help:      "Number of persistence errors by operation",
	},
	[]string{"operation"},
)

// RebalancesTriggered - число сработавших ребалансировок после частичного филла
var RebalancesTriggered = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "rebalances_triggered_total",
		Help:      "Number of rebalance sells triggered by one-sided fills",
	},
)

// ============ Метрики состояния ============

// ActiveMarkets - количество активных рынков в реестре по venue
var ActiveMarkets = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "predictarb",
		Subsystem: "registry",
		Name:      "active_markets",
		Help:      "Number of active markets tracked per venue",
	},
	[]string{"venue"},
)

// VenueConnectionStatus - статус подключения к venue (1=connected, 0=disconnected)
var VenueConnectionStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "predictarb",
		Subsystem: "venue",
		Name:      "connection_status",
		Help:      "Venue websocket connection status (1=connected, 0=disconnected)",
	},
	[]string{"venue"},
)

// BufferOverflows - переполнения внутренних каналов (события отброшены)
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"}, // orderbook_shard, notification, websocket_broadcast
)

// SpreadObserved - наблюдаемые спреды YES+NO
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "predictarb",
		Subsystem: "pipeline",
		Name:      "spread_observed",
		Help:      "Observed YES+NO spread values",
		Buckets:   []float64{0.90, 0.95, 0.98, 1.0, 1.02, 1.05, 1.10, 1.20},
	},
	[]string{"kind"},
)

// ============ Вспомогательные функции ============

// RecordFlipDetected учитывает обнаруженную возможность заданного вида.
func RecordFlipDetected(kind string) {
	FlipsDetected.WithLabelValues(kind).Inc()
}

// RecordOrderPlaced учитывает размещённый ордер.
func RecordOrderPlaced(venue, side string) {
	OrdersPlaced.WithLabelValues(venue, side).Inc()
}

// RecordVerifiedFill учитывает подтверждённое исполнение (полное или частичное).
func RecordVerifiedFill(venue string, partial bool) {
	filled := "full"
	if partial {
		filled = "partial"
	}
	VerifiedFills.WithLabelValues(venue, filled).Inc()
}

// RecordCancelled учитывает отменённый ордер.
func RecordCancelled(venue string) {
	Cancelled.WithLabelValues(venue).Inc()
}

// RecordExit учитывает исход плана исполнения по причине.
func RecordExit(reason string) {
	ExitsByReason.WithLabelValues(reason).Inc()
}

// RecordDBError учитывает ошибку персистентности для операции.
func RecordDBError(operation string) {
	DBErrors.WithLabelValues(operation).Inc()
}

// RecordRebalance учитывает сработавшую ребалансировку.
func RecordRebalance() {
	RebalancesTriggered.Inc()
}

// SetActiveMarkets обновляет gauge активных рынков для venue.
func SetActiveMarkets(venue string, count int) {
	ActiveMarkets.WithLabelValues(venue).Set(float64(count))
}

// SetVenueConnected обновляет статус подключения venue.
func SetVenueConnected(venue string, connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	VenueConnectionStatus.WithLabelValues(venue).Set(value)
}

// RecordBufferOverflow учитывает переполнение именованного буфера.
func RecordBufferOverflow(buffer string) {
	BufferOverflows.WithLabelValues(buffer).Inc()
}
