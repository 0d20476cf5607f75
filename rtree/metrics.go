package rtree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const queryKindLabel = "query_kind"

var (
	elementCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skuggi_elements",
		Help: "The number of elements currently stored in the index.",
	})

	insertTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skuggi_inserts",
		Help: "The number of elements inserted into the index.",
	})

	removeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skuggi_removes",
		Help: "The number of elements removed from the index.",
	})

	rebuildTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skuggi_rebuilds",
		Help: "The number of full index rebuilds.",
	})

	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skuggi_queries",
		Help: "The number of index queries by kind.",
	}, []string{
		queryKindLabel,
	})

	queryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "skuggi_query_latency",
		Help: "The time to answer an index query.",
	}, []string{
		queryKindLabel,
	})
)

func instrumentInsert() {
	insertTotal.Inc()
}

func instrumentRemove() {
	removeTotal.Inc()
}

func instrumentRebuild() {
	rebuildTotal.Inc()
}

func instrumentElementCount(count int) {
	elementCount.Set(float64(count))
}

func instrumentQuery(kind string, start time.Time) {
	queryTotal.With(prometheus.Labels{
		queryKindLabel: kind,
	}).Inc()

	queryLatency.With(prometheus.Labels{
		queryKindLabel: kind,
	}).Observe(time.Since(start).Seconds())
}
