package local

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seqtest"

type metrics struct {
	blocks      prometheus.Counter
	executed    prometheus.Counter
	rejected    prometheus.Counter
	submitted   *prometheus.CounterVec
	mempoolSize prometheus.Gauge
	height      prometheus.Gauge
	blockTime   prometheus.Histogram
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_produced",
			Help:      "number of blocks produced",
		}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_executed",
			Help:      "number of transactions executed",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_rejected",
			Help:      "number of transactions rejected during execution",
		}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_submitted",
			Help:      "number of transactions accepted into the mempool",
		}, []string{"kind"}),
		mempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_size",
			Help:      "number of transactions waiting for a block",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_height",
			Help:      "height of the last produced block",
		}),
		blockTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_execution_seconds",
			Help:      "time spent executing and committing a block",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if r == nil {
		return m, nil
	}
	err := errors.Join(
		r.Register(m.blocks),
		r.Register(m.executed),
		r.Register(m.rejected),
		r.Register(m.submitted),
		r.Register(m.mempoolSize),
		r.Register(m.height),
		r.Register(m.blockTime),
	)
	return m, err
}
