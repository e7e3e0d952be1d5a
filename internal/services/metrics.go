package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentservice_mutations_total",
		Help: "Comment and reaction mutations by operation and outcome",
	}, []string{"op", "result"})

	persistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commentservice_persist_duration_seconds",
		Help:    "Time spent writing a mutation through to storage, retries included",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"op"})

	fullTreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commentservice_fulltree_nodes",
		Help:    "Comments returned per full tree request",
		Buckets: []float64{1, 10, 100, 1000, 10000},
	})

	countSyncRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentservice_count_sync_rows_total",
		Help: "Aggregate count rows written behind, by outcome",
	}, []string{"result"})

	countSyncDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentservice_count_sync_dropped_total",
		Help: "Count sync requests dropped because the queue was full",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
