package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"poolMinter/internal/events"
)

const namespace = "minter"

// Recorder turns engine events into Prometheus series. It is an events.Emitter
// so it can sit next to the log sink in a MultiEmitter.
type Recorder struct {
	events          *prometheus.CounterVec
	failures        *prometheus.CounterVec
	mints           prometheus.Counter
	mintedSerials   prometheus.Counter
	refunds         prometheus.Counter
	refundedSerials prometheus.Counter
	slotsSold       prometheus.Counter
	poolRemaining   prometheus.Gauge
}

func New(registerer prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of committed events by type",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Number of rejected operations by error kind",
		}, []string{"kind"}),
		mints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mints_total",
			Help:      "Number of successful mint calls",
		}),
		mintedSerials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "minted_serials_total",
			Help:      "Number of serials allocated by mints",
		}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Number of successful refund calls",
		}),
		refundedSerials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunded_serials_total",
			Help:      "Number of serials returned to the pool by refunds",
		}),
		slotsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whitelist_slots_sold_total",
			Help:      "Number of whitelist slots bought by accounts",
		}),
		poolRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_remaining",
			Help:      "Available pool serials as of the last mint",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.events, r.failures, r.mints, r.mintedSerials,
		r.refunds, r.refundedSerials, r.slotsSold, r.poolRemaining,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Emit(ev events.Event) {
	if ev == nil {
		return
	}
	r.events.WithLabelValues(ev.EventType()).Inc()
	switch e := ev.(type) {
	case events.MintAllocated:
		r.mints.Inc()
		r.mintedSerials.Add(float64(len(e.Serials)))
		r.poolRemaining.Set(float64(e.Remaining))
	case events.Refunded:
		r.refunds.Inc()
		r.refundedSerials.Add(float64(len(e.Serials)))
		r.poolRemaining.Add(float64(len(e.Serials)))
	case events.PoolRegistered:
		r.poolRemaining.Add(float64(len(e.Serials)))
	case events.PoolWithdrawn:
		r.poolRemaining.Sub(float64(len(e.Serials)))
	case events.WhitelistPurchased:
		r.slotsSold.Add(float64(e.Count))
	}
}

// SetPoolRemaining seeds the pool gauge, usually from the stored state at startup.
func (r *Recorder) SetPoolRemaining(n int) {
	r.poolRemaining.Set(float64(n))
}

// ObserveFailure counts a rejected operation under its error kind.
func (r *Recorder) ObserveFailure(kind string) {
	if kind == "" {
		return
	}
	r.failures.WithLabelValues(kind).Inc()
}

var _ events.Emitter = (*Recorder)(nil)
