// Package metrics содержит счётчики Prometheus для приёма вебхуков, сверки и повторной обработки намерений.
// Метрики отдаются обработчиком promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "music_billing"

// Результаты обработки для меток result.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultRetry     = "retry"
	ResultDiscarded = "discarded"
	ResultFailed    = "failed"
)

// WebhooksReceived: принятые вебхуки по типу события и результату.
var WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "webhook",
	Name:      "received_total",
	Help:      "Number of provider webhooks received",
}, []string{"type", "result"})

// EventsProcessed: события, обработанные воркером сверки.
var EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "worker",
	Name:      "events_processed_total",
	Help:      "Number of billing events processed by the worker",
}, []string{"kind", "result"})

// IntentsSwept: намерения, которые подобрал sweeper.
var IntentsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "sweeper",
	Name:      "intents_swept_total",
	Help:      "Number of pending billing intents resumed by the sweeper",
}, []string{"result"})

// IntentsExhausted: намерения, исчерпавшие попытки и ждущие ручной сверки.
var IntentsExhausted = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "sweeper",
	Name:      "intents_exhausted",
	Help:      "Number of billing intents that ran out of attempts",
})
