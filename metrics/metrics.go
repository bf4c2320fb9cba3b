package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the fuzzer's Prometheus instruments. The engine
// updates IterationsTotal, TCLScore and CorpusSize; BugsTotal is
// registered but nothing in this repository increments it. They're
// registered against the default registry so the /metrics handler wired
// up by Start exposes them alongside Go runtime metrics.
type Collectors struct {
	IterationsTotal prometheus.Counter
	BugsTotal       *prometheus.CounterVec
	TCLScore        prometheus.Gauge
	CorpusSize      prometheus.Gauge
}

// NewCollectors builds and registers the fuzzer's collectors against
// prometheus.DefaultRegisterer.
func NewCollectors() *Collectors {
	c := &Collectors{
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apiprowl_iterations_total",
			Help: "Total number of fuzzing loop iterations executed.",
		}),
		BugsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apiprowl_bugs_total",
			Help: "Total number of bugs recorded, by category.",
		}, []string{"category"}),
		TCLScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apiprowl_tcl_score",
			Help: "Current cumulative test coverage level score, in [0, 6].",
		}),
		CorpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apiprowl_corpus_size",
			Help: "Current number of entries in the fuzzing corpus.",
		}),
	}
	prometheus.MustRegister(c.IterationsTotal, c.BugsTotal, c.TCLScore, c.CorpusSize)
	return c
}
