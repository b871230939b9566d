package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the record store connection pool as
// Prometheus gauges under the deploystack namespace.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	gauge := func(name, help string, value func(s *pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "deploystack",
			Subsystem:   "db_pool",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"pool": "core"},
		}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}

	prometheus.MustRegister(
		gauge("acquired_conns", "Connections currently checked out for record store queries",
			func(s *pgxpool.Stat) int32 { return s.AcquiredConns() }),
		gauge("idle_conns", "Open connections waiting for work",
			func(s *pgxpool.Stat) int32 { return s.IdleConns() }),
		gauge("total_conns", "All connections the pool currently holds",
			func(s *pgxpool.Stat) int32 { return s.TotalConns() }),
		gauge("max_conns", "Upper bound on pool size",
			func(s *pgxpool.Stat) int32 { return s.MaxConns() }),
	)
}
