// Package metrics counts cache operations by outcome. Until InitMetrics is called the
// counting functions are NOPs. The counts are written out once at the end of a run in
// the Prometheus text format, for pickup by a node exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	Saved    = "saved"
	Restored = "restored"
	Exists   = "exists"
	Missed   = "missed"
	Failed   = "failed"
)

var IncRootSaves withLabel = func(string) {}
var IncLayerSaves withLabel = func(string) {}
var IncRootRestores withLabel = func(string) {}
var IncLayerRestores withLabel = func(string) {}

type withLabel func(string)

const (
	root_saves_total     = "root_saves_total"
	layer_saves_total    = "layer_saves_total"
	root_restores_total  = "root_restores_total"
	layer_restores_total = "layer_restores_total"
	outcome_label        = "outcome"
	namespace            = "layercache"
)

// registry is separate from the default registry so the written file only has the
// layer cache metrics
var registry *prometheus.Registry

// InitMetrics creates the counters and points the package functions at them
func InitMetrics() {
	registry = prometheus.NewRegistry()
	factory := promauto.With(registry)
	IncRootSaves = counterFunc(factory, root_saves_total, "Root cache entry saves by outcome")
	IncLayerSaves = counterFunc(factory, layer_saves_total, "Layer cache entry saves by outcome")
	IncRootRestores = counterFunc(factory, root_restores_total, "Root cache entry restores by outcome")
	IncLayerRestores = counterFunc(factory, layer_restores_total, "Layer cache entry restores by outcome")
}

func counterFunc(factory promauto.Factory, name string, help string) withLabel {
	vec := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:      name,
			Namespace: namespace,
			Help:      help,
		},
		[]string{outcome_label},
	)
	return func(outcome string) {
		vec.With(prometheus.Labels{outcome_label: outcome}).Add(1)
	}
}

// WriteMetrics writes the counters to 'file'. If metrics were never initialized it
// does nothing.
func WriteMetrics(file string) error {
	if registry == nil || file == "" {
		return nil
	}
	return prometheus.WriteToTextfile(file, registry)
}
