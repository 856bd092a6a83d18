package evm

import (
	"hash/maphash"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rpcTimeMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "rpc",
	Name:      "request_duration_seconds",
	Help:      "JSON-RPC round trips to the node",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 10},
}, []string{"method", "result"})

func observe(method string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rpcTimeMetric.WithLabelValues(method, result).Observe(time.Since(start).Seconds())
}

func hashAddress(seed maphash.Seed, a common.Address) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(a[:])
	return h.Sum64()
}
