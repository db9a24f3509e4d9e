package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KanavDutta/cmdcooldown/core"
)

// Metrics tracks cooldown evaluation statistics
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	cooldownHits    atomic.Int64
	blockedRequests atomic.Int64
	suppressed      atomic.Int64

	// Per-subject stats, keyed by guild/command/user
	mu          sync.RWMutex
	clientStats map[string]*ClientStats
	startTime   time.Time

	evaluations *prometheus.CounterVec
	notices     *prometheus.CounterVec
	guilds      prometheus.Gauge
}

// ClientStats tracks statistics for one user of one command in one guild
type ClientStats struct {
	GuildID         string    `json:"guild_id"`
	Command         string    `json:"command"`
	UserID          string    `json:"user_id"`
	TotalRequests   int64     `json:"total_requests"`
	AllowedRequests int64     `json:"allowed_requests"`
	BlockedRequests int64     `json:"blocked_requests"` // cooldown hits and permanent blocks
	LastRequestAt   time.Time `json:"last_request_at"`
	FirstRequestAt  time.Time `json:"first_request_at"`
}

// NewMetrics creates a new metrics tracker and registers its collectors
// with reg. Pass prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		clientStats: make(map[string]*ClientStats),
		startTime:   time.Now(),
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cmdcooldown_evaluations_total",
			Help: "Cooldown evaluations by command and outcome",
		}, []string{"command", "outcome"}),
		notices: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cmdcooldown_denial_notices_total",
			Help: "Denial notices sent or suppressed because the user already tried again",
		}, []string{"state"}),
		guilds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cmdcooldown_guilds_configured",
			Help: "Guilds with a cooldown config in the registry",
		}),
	}
}

// RecordEvaluation records one evaluation result
func (m *Metrics) RecordEvaluation(guildID, command, userID string, res core.Result) {
	m.totalRequests.Add(1)

	outcome := res.Outcome()
	switch outcome {
	case core.OutcomeAllowed:
		m.allowedRequests.Add(1)
	case core.OutcomeCooldown:
		m.cooldownHits.Add(1)
	case core.OutcomeBlocked:
		m.blockedRequests.Add(1)
	}
	m.evaluations.WithLabelValues(command, outcome).Inc()

	key := guildID + "/" + command + "/" + userID
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.clientStats[key]
	if !exists {
		stats = &ClientStats{
			GuildID:        guildID,
			Command:        command,
			UserID:         userID,
			FirstRequestAt: now,
		}
		m.clientStats[key] = stats
	}

	stats.TotalRequests++
	if res.Allowed() {
		stats.AllowedRequests++
	} else {
		stats.BlockedRequests++
	}
	stats.LastRequestAt = now
}

// RecordNotice records whether a denial notice went out
func (m *Metrics) RecordNotice(sent bool) {
	state := "sent"
	if !sent {
		state = "suppressed"
		m.suppressed.Add(1)
	}
	m.notices.WithLabelValues(state).Inc()
}

// SetGuilds sets the configured guild gauge
func (m *Metrics) SetGuilds(n int) {
	m.guilds.Set(float64(n))
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	topClients := make([]*ClientStats, 0, len(m.clientStats))
	for _, stats := range m.clientStats {
		copied := *stats
		topClients = append(topClients, &copied)
	}

	// Top 10 by total requests
	sort.SliceStable(topClients, func(i, j int) bool {
		return topClients[i].TotalRequests > topClients[j].TotalRequests
	})
	if len(topClients) > 10 {
		topClients = topClients[:10]
	}

	return &Snapshot{
		TotalRequests:     m.totalRequests.Load(),
		AllowedRequests:   m.allowedRequests.Load(),
		CooldownHits:      m.cooldownHits.Load(),
		BlockedRequests:   m.blockedRequests.Load(),
		SuppressedNotices: m.suppressed.Load(),
		UniqueClients:     int64(len(m.clientStats)),
		TopClients:        topClients,
		UptimeSeconds:     int64(time.Since(m.startTime).Seconds()),
		StartTime:         m.startTime,
	}
}

// Snapshot represents a point-in-time view of metrics
type Snapshot struct {
	TotalRequests     int64          `json:"total_requests"`
	AllowedRequests   int64          `json:"allowed_requests"`
	CooldownHits      int64          `json:"cooldown_hits"`
	BlockedRequests   int64          `json:"blocked_requests"`
	SuppressedNotices int64          `json:"suppressed_notices"`
	UniqueClients     int64          `json:"unique_clients"`
	TopClients        []*ClientStats `json:"top_clients"`
	UptimeSeconds     int64          `json:"uptime_seconds"`
	StartTime         time.Time      `json:"start_time"`
}
