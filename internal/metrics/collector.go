// Package metrics exports engine activity as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

const namespace = "drops"

// Collector counts settled operations, events and minted units. It is the
// ledger's Observer.
type Collector struct {
	ops        *prometheus.CounterVec
	rejections *prometheus.CounterVec
	events     *prometheus.CounterVec
	minted     *prometheus.CounterVec
}

var _ ledger.Observer = (*Collector)(nil)

// NewCollector registers the counters with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		ops: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Settled ledger operations by outcome",
			},
			[]string{"op", "result"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejected operations by failure kind",
			},
			[]string{"op", "kind"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Committed events by name",
			},
			[]string{"name"},
		),
		minted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "units_minted_total",
				Help:      "Units minted per sale path",
			},
			[]string{"path"},
		),
	}
}

func (c *Collector) Committed(op string, envs []events.Envelope) {
	c.ops.WithLabelValues(op, "committed").Inc()
	for _, e := range envs {
		c.events.WithLabelValues(e.Name).Inc()
		switch p := e.Payload.(type) {
		case events.TokenMinted:
			c.minted.WithLabelValues(ledger.MintPublic.String()).Add(float64(p.Quantity))
		case events.PersonalizedMint:
			c.minted.WithLabelValues(ledger.MintVoucher.String()).Add(float64(p.Quantity))
		}
	}
}

func (c *Collector) Rejected(op string, err error) {
	c.ops.WithLabelValues(op, "rejected").Inc()
	c.rejections.WithLabelValues(op, ledger.Kind(err)).Inc()
}
