package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for the workflow sync engine.
type Observer interface {
	RecordMessage(kind string)
	RecordParseFailure()
	RecordFold()
	RecordReconnect()
	RecordFallbackSend(err error)
	SetOnline(online bool)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) RecordMessage(string)     {}
func (NopObserver) RecordParseFailure()      {}
func (NopObserver) RecordFold()              {}
func (NopObserver) RecordReconnect()         {}
func (NopObserver) RecordFallbackSend(error) {}
func (NopObserver) SetOnline(bool)           {}

// OrNop returns the observer when non-nil, otherwise a no-op observer.
func OrNop(observer Observer) Observer {
	if observer == nil {
		return NopObserver{}
	}
	return observer
}

// PrometheusObserver exports engine metrics to Prometheus.
type PrometheusObserver struct {
	messagesTotal   *prometheus.CounterVec
	parseFailures   prometheus.Counter
	foldsTotal      prometheus.Counter
	reconnectsTotal prometheus.Counter
	fallbackSends   *prometheus.CounterVec
	backendOnline   prometheus.Gauge
}

// NewPrometheusObserver registers workflow engine metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "campsync"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Count of inbound workflow messages by classified kind.",
		}, []string{"kind"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Count of inbound payloads dropped as unparseable.",
		}),
		foldsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_folds_total",
			Help:      "Count of campaign state updates applied.",
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Count of websocket reconnect attempts.",
		}),
		fallbackSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_sends_total",
			Help:      "Count of outbound commands delivered over the HTTP fallback.",
		}, []string{"outcome"}),
		backendOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_online",
			Help:      "Whether the workflow backend liveness probe currently succeeds.",
		}),
	}
	collectors := []prometheus.Collector{
		observer.messagesTotal,
		observer.parseFailures,
		observer.foldsTotal,
		observer.reconnectsTotal,
		observer.fallbackSends,
		observer.backendOnline,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register engine metric: %w", err)
		}
	}
	return observer, nil
}

func (o *PrometheusObserver) RecordMessage(kind string) {
	o.messagesTotal.WithLabelValues(kind).Inc()
}

func (o *PrometheusObserver) RecordParseFailure() {
	o.parseFailures.Inc()
}

func (o *PrometheusObserver) RecordFold() {
	o.foldsTotal.Inc()
}

func (o *PrometheusObserver) RecordReconnect() {
	o.reconnectsTotal.Inc()
}

func (o *PrometheusObserver) RecordFallbackSend(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.fallbackSends.WithLabelValues(outcome).Inc()
}

func (o *PrometheusObserver) SetOnline(online bool) {
	if online {
		o.backendOnline.Set(1)
	} else {
		o.backendOnline.Set(0)
	}
}
