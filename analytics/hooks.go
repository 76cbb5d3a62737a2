package analytics

import (
	"fmt"
	"sync"
	"time"

	"loyaltykit/core"
)

// Hook receives loyalty events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DAU tracks daily active accounts: any account that triggered an event on a
// given day counts as active, suppressed awards included.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.AccountID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.AccountID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.AccountID]struct{}{}
		d.days[day] = m
	}
	m[e.Account] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// EngagementMetrics aggregates award activity for reporting dashboards.
type EngagementMetrics struct {
	mu sync.RWMutex

	dailyActive   map[string]map[core.AccountID]struct{}
	weeklyActive  map[string]map[core.AccountID]struct{}
	monthlyActive map[string]map[core.AccountID]struct{}

	pointsByDay    map[string]int64
	pointsByAction map[core.ActionID]int64

	suppressedByAction map[core.ActionID]int64

	levelUpsByDay   map[string]int64
	levelUpsByLevel map[string]int64

	milestonesByBonus map[core.ActionID]int64
}

func NewEngagementMetrics() *EngagementMetrics {
	return &EngagementMetrics{
		dailyActive:        make(map[string]map[core.AccountID]struct{}),
		weeklyActive:       make(map[string]map[core.AccountID]struct{}),
		monthlyActive:      make(map[string]map[core.AccountID]struct{}),
		pointsByDay:        make(map[string]int64),
		pointsByAction:     make(map[core.ActionID]int64),
		suppressedByAction: make(map[core.ActionID]int64),
		levelUpsByDay:      make(map[string]int64),
		levelUpsByLevel:    make(map[string]int64),
		milestonesByBonus:  make(map[core.ActionID]int64),
	}
}

func (m *EngagementMetrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")
	m.trackActive(e.Account, e.Time)

	switch e.Type {
	case core.EventPointsAwarded:
		if e.Delta > 0 {
			m.pointsByDay[day] += e.Delta
			m.pointsByAction[e.Action] += e.Delta
		}
	case core.EventAwardSuppressed:
		m.suppressedByAction[e.Action]++
	case core.EventLevelUp:
		m.levelUpsByDay[day]++
		m.levelUpsByLevel[e.Level]++
	case core.EventMilestoneUnlocked:
		m.milestonesByBonus[e.Action]++
		if e.Delta > 0 {
			m.pointsByDay[day] += e.Delta
			m.pointsByAction[e.Action] += e.Delta
		}
	}
}

func (m *EngagementMetrics) trackActive(account core.AccountID, at time.Time) {
	day := at.UTC().Format("2006-01-02")
	week := weekKey(at)
	month := at.UTC().Format("2006-01")

	if m.dailyActive[day] == nil {
		m.dailyActive[day] = make(map[core.AccountID]struct{})
	}
	m.dailyActive[day][account] = struct{}{}

	if m.weeklyActive[week] == nil {
		m.weeklyActive[week] = make(map[core.AccountID]struct{})
	}
	m.weeklyActive[week][account] = struct{}{}

	if m.monthlyActive[month] == nil {
		m.monthlyActive[month] = make(map[core.AccountID]struct{})
	}
	m.monthlyActive[month][account] = struct{}{}
}

// ActiveAccounts returns daily, weekly, and monthly active account counts for
// the period containing t.
func (m *EngagementMetrics) ActiveAccounts(t time.Time) (daily, weekly, monthly int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	daily = len(m.dailyActive[t.UTC().Format("2006-01-02")])
	weekly = len(m.weeklyActive[weekKey(t)])
	monthly = len(m.monthlyActive[t.UTC().Format("2006-01")])
	return daily, weekly, monthly
}

func (m *EngagementMetrics) PointsByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsByDay[day]
}

func (m *EngagementMetrics) PointsByAction(action core.ActionID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsByAction[action]
}

func (m *EngagementMetrics) SuppressedByAction(action core.ActionID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.suppressedByAction[action]
}

func (m *EngagementMetrics) LevelUps(level string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.levelUpsByLevel[level]
}

func (m *EngagementMetrics) MilestoneUnlocks(bonus core.ActionID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.milestonesByBonus[bonus]
}

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
