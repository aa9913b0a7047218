package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the Prometheus collectors of the calculator. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	// CalculationsTotal counts calculation runs by outcome.
	CalculationsTotal *prometheus.CounterVec
	// CalculationDuration records wall time of a calculation run in seconds.
	CalculationDuration prometheus.Histogram
	// GatewayCallsTotal counts remote InvenTree calls by operation and outcome.
	// Only the REST client records it; each call is counted once after retries.
	GatewayCallsTotal *prometheus.CounterVec
	// CacheLookupsTotal counts part/BOM cache lookups by layer and result.
	CacheLookupsTotal *prometheus.CounterVec
	// POFallbackTotal counts purchase order lines matched through the part field.
	POFallbackTotal prometheus.Counter
	// ResultLines records the size of the produced lists.
	ResultLines *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg. A nil reg
// uses the default registerer. Collectors already registered under the same
// name are reused.
func NewRecorder(namespace string, reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Count of order calculations by outcome.",
		}, []string{"result"}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Duration of order calculations.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		GatewayCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Count of InvenTree API calls by operation and outcome.",
		}, []string{"operation", "result"}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Count of part and BOM cache lookups.",
		}, []string{"layer", "result"}),
		POFallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "po_line_fallback_total",
			Help:      "Purchase order lines mapped through the part field instead of supplier_part.",
		}),
		ResultLines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_result_lines",
			Help:      "Number of lines in the most recent calculation result.",
		}, []string{"list"}),
	}

	r.CalculationsTotal = register(reg, r.CalculationsTotal)
	r.CalculationDuration = register(reg, r.CalculationDuration)
	r.GatewayCallsTotal = register(reg, r.GatewayCallsTotal)
	r.CacheLookupsTotal = register(reg, r.CacheLookupsTotal)
	r.POFallbackTotal = register(reg, r.POFallbackTotal)
	r.ResultLines = register(reg, r.ResultLines)

	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveCalculation records one finished run
func (r *Recorder) ObserveCalculation(err error, elapsed time.Duration, orderLines, buildLines int) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.CalculationsTotal.WithLabelValues(result).Inc()
	r.CalculationDuration.Observe(elapsed.Seconds())
	if err == nil {
		r.ResultLines.WithLabelValues("order").Set(float64(orderLines))
		r.ResultLines.WithLabelValues("build").Set(float64(buildLines))
	}
}

// GatewayCall records one gateway call
func (r *Recorder) GatewayCall(operation string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.GatewayCallsTotal.WithLabelValues(operation, result).Inc()
}

// CacheLookup records a cache hit or miss in the named layer
func (r *Recorder) CacheLookup(layer string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookupsTotal.WithLabelValues(layer, result).Inc()
}

// POFallback records a purchase order line matched through the fallback field
func (r *Recorder) POFallback() {
	if r == nil {
		return
	}
	r.POFallbackTotal.Inc()
}
