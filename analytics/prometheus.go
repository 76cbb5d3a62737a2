package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"loyaltykit/core"
)

// AwardsGranted tracks granted awards by action.
var AwardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyaltykit",
	Subsystem: "awards",
	Name:      "granted_total",
	Help:      "Total awards granted by action.",
}, []string{"action"})

// PointsAwarded tracks points credited by action, milestone bonuses included.
var PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyaltykit",
	Subsystem: "awards",
	Name:      "points_total",
	Help:      "Total points credited by action.",
}, []string{"action"})

// AwardsSuppressed tracks awards dropped by the cooldown guard.
var AwardsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyaltykit",
	Subsystem: "awards",
	Name:      "suppressed_total",
	Help:      "Total awards suppressed as duplicates within a cooldown window.",
}, []string{"action"})

// LevelUps tracks level crossings by destination level.
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyaltykit",
	Subsystem: "levels",
	Name:      "ups_total",
	Help:      "Total level-up events by destination level.",
}, []string{"level"})

// MilestonesUnlocked tracks milestone bonuses granted by bonus action.
var MilestonesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyaltykit",
	Subsystem: "milestones",
	Name:      "unlocked_total",
	Help:      "Total milestone bonuses granted by bonus action.",
}, []string{"bonus"})

// PrometheusHook exports loyalty events as Prometheus counters. Register it on
// the event bus next to the in-process aggregators.
type PrometheusHook struct{}

func NewPrometheusHook() *PrometheusHook { return &PrometheusHook{} }

func (PrometheusHook) OnEvent(e core.Event) {
	switch e.Type {
	case core.EventPointsAwarded:
		AwardsGranted.WithLabelValues(string(e.Action)).Inc()
		if e.Delta > 0 {
			PointsAwarded.WithLabelValues(string(e.Action)).Add(float64(e.Delta))
		}
	case core.EventAwardSuppressed:
		AwardsSuppressed.WithLabelValues(string(e.Action)).Inc()
	case core.EventLevelUp:
		LevelUps.WithLabelValues(e.Level).Inc()
	case core.EventMilestoneUnlocked:
		MilestonesUnlocked.WithLabelValues(string(e.Action)).Inc()
		if e.Delta > 0 {
			PointsAwarded.WithLabelValues(string(e.Action)).Add(float64(e.Delta))
		}
	}
}
