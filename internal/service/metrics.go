package service

import (
	"sort"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// MetricsCollector collects engine metrics across analyses.
type MetricsCollector struct {
	analyses AnalysisMetrics
	roles    map[string]*RoleMetrics
	mu       sync.RWMutex
}

// AnalysisMetrics holds totals over every analysis run by the process.
type AnalysisMetrics struct {
	Started          int                         `json:"started"`
	Completed        int                         `json:"completed"`
	Rejected         int                         `json:"rejected"`
	ConsensusReached int                         `json:"consensus_reached"`
	LowConfidence    int                         `json:"low_confidence"`
	RoundsTotal      int                         `json:"rounds_total"`
	DiscussionRounds int                         `json:"discussion_rounds"`
	TotalDuration    time.Duration               `json:"total_duration"`
	AvgDuration      time.Duration               `json:"avg_duration"`
	BySentiment      map[core.Sentiment]int      `json:"by_sentiment"`
	ByAgreement      map[core.AgreementLevel]int `json:"by_agreement"`
}

// RoleMetrics holds per-role call metrics.
type RoleMetrics struct {
	Role          string        `json:"role"`
	Invocations   int           `json:"invocations"`
	Attempts      int           `json:"attempts"`
	Failures      int           `json:"failures"`
	Degraded      int           `json:"degraded"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// MetricsSnapshot is a point-in-time copy of the collector.
type MetricsSnapshot struct {
	Analyses AnalysisMetrics `json:"analyses"`
	Roles    []RoleMetrics   `json:"roles"`
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		analyses: AnalysisMetrics{
			BySentiment: make(map[core.Sentiment]int),
			ByAgreement: make(map[core.AgreementLevel]int),
		},
		roles: make(map[string]*RoleMetrics),
	}
}

// StartAnalysis records the start of an analysis.
func (m *MetricsCollector) StartAnalysis() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses.Started++
}

// RejectAnalysis records an analysis refused during validation.
func (m *MetricsCollector) RejectAnalysis() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses.Rejected++
}

// EndAnalysis records a finished analysis.
func (m *MetricsCollector) EndAnalysis(report *core.ConsensusReport, duration time.Duration) {
	if m == nil || report == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &m.analyses
	a.Completed++
	a.RoundsTotal += len(report.Rounds)
	a.DiscussionRounds += report.DiscussionRounds()
	a.TotalDuration += duration
	a.AvgDuration = a.TotalDuration / time.Duration(a.Completed)
	a.BySentiment[report.FinalSentiment]++
	a.ByAgreement[report.AgreementLevel]++
	if report.ConsensusReached {
		a.ConsensusReached++
	}
	if report.LowConfidence {
		a.LowConfidence++
	}
}

// RecordCall records one specialist call: its attempts, the failed ones
// among them and whether it ended degraded.
func (m *MetricsCollector) RecordCall(role string, attempts, failures int, degraded bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.roles[role]
	if !ok {
		rm = &RoleMetrics{Role: role}
		m.roles[role] = rm
	}
	rm.Invocations++
	rm.Attempts += attempts
	rm.Failures += failures
	if degraded {
		rm.Degraded++
	}
	rm.TotalDuration += duration
	rm.AvgDuration = rm.TotalDuration / time.Duration(rm.Invocations)
}

// Role returns the metrics for one role.
func (m *MetricsCollector) Role(role string) (RoleMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rm, ok := m.roles[role]
	if !ok {
		return RoleMetrics{}, false
	}
	return *rm, true
}

// Snapshot returns a copy of all metrics, roles sorted by name.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{Analyses: m.analyses, Roles: make([]RoleMetrics, 0, len(m.roles))}
	snap.Analyses.BySentiment = make(map[core.Sentiment]int, len(m.analyses.BySentiment))
	for k, v := range m.analyses.BySentiment {
		snap.Analyses.BySentiment[k] = v
	}
	snap.Analyses.ByAgreement = make(map[core.AgreementLevel]int, len(m.analyses.ByAgreement))
	for k, v := range m.analyses.ByAgreement {
		snap.Analyses.ByAgreement[k] = v
	}
	for _, rm := range m.roles {
		snap.Roles = append(snap.Roles, *rm)
	}
	sort.Slice(snap.Roles, func(i, j int) bool { return snap.Roles[i].Role < snap.Roles[j].Role })
	return snap
}
