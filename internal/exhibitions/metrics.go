package exhibitions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "exhibition_transitions_total",
	Help: "Lifecycle transition attempts by operation and outcome.",
}, []string{"op", "result"})

func observeTransition(op string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	transitionsTotal.WithLabelValues(op, result).Inc()
}
