// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Swing outcome labels for metrics.
const (
	outcomeHit     = "hit"
	outcomeMiss    = "miss"
	outcomeAborted = "aborted"
)

// Metrics contains the engine's Prometheus metrics.
type Metrics struct {
	SwingsTotal       *prometheus.CounterVec
	DamageTotal       prometheus.Counter
	DeathsTotal       prometheus.Counter
	EngagementsActive prometheus.Gauge
	EventsDropped     prometheus.Counter
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SwingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duskmire_combat_swings_total",
				Help: "Total resolved swing attempts by outcome",
			},
			[]string{"outcome"},
		),
		DamageTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duskmire_combat_damage_points_total",
				Help: "Total damage points applied to actors",
			},
		),
		DeathsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duskmire_combat_deaths_total",
				Help: "Total completed death handoffs",
			},
		),
		EngagementsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "duskmire_combat_engagements_active",
				Help: "Attack loops currently engaged with a target",
			},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duskmire_combat_events_dropped_total",
				Help: "Combat events dropped because a subscriber buffer was full",
			},
		),
	}
	reg.MustRegister(m.SwingsTotal, m.DamageTotal, m.DeathsTotal, m.EngagementsActive, m.EventsDropped)
	return m
}

func (m *Metrics) swing(outcome string) {
	if m == nil {
		return
	}
	m.SwingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) damage(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.DamageTotal.Add(float64(amount))
}

func (m *Metrics) death() {
	if m == nil {
		return
	}
	m.DeathsTotal.Inc()
}

func (m *Metrics) engagement(delta float64) {
	if m == nil {
		return
	}
	m.EngagementsActive.Add(delta)
}

func (m *Metrics) eventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
