package resolvemonitor

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	StageCache = "cache"
	StageModel = "model"

	StatusOK    = "ok"
	StatusEmpty = "empty" // model answered but nothing mapped to a filter
	StatusError = "error"
)

type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Shop         string    `json:"shop"`
	Query        string    `json:"query"`
	Stage        string    `json:"stage"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Model        string    `json:"model,omitempty"`
	Filters      int       `json:"filters"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	CostUSD      float64   `json:"cost_usd,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
}

type Stats struct {
	TotalQueries      int64   `json:"total_queries"`
	TotalCacheHits    int64   `json:"total_cache_hits"`
	TotalModelCalls   int64   `json:"total_model_calls"`
	TotalEmpty        int64   `json:"total_empty"`
	TotalErrors       int64   `json:"total_errors"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	CacheHitRatio     float64 `json:"cache_hit_ratio"`
	RecentEvents      []Event `json:"recent_events"`
}

// Monitor keeps running totals plus a ring of the most recent resolutions.
type Monitor struct {
	mu     sync.Mutex
	events []Event
	idx    int
	count  int
	ttl    time.Duration
	now    func() time.Time
	totals Stats
}

func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Timestamp = m.now().UTC()

	m.totals.TotalQueries++
	switch e.Stage {
	case StageCache:
		m.totals.TotalCacheHits++
	case StageModel:
		m.totals.TotalModelCalls++
		m.totals.TotalInputTokens += int64(e.InputTokens)
		m.totals.TotalOutputTokens += int64(e.OutputTokens)
		m.totals.TotalCostUSD += e.CostUSD
	}
	switch e.Status {
	case StatusEmpty:
		m.totals.TotalEmpty++
	case StatusError:
		m.totals.TotalErrors++
	}

	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
}

// GetStats returns the totals and the retained events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}

	recent := make([]Event, 0, m.count)
	start := (m.idx - m.count + len(m.events)) % len(m.events)
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		recent = append(recent, e)
	}

	stats := m.totals
	if stats.TotalQueries > 0 {
		stats.CacheHitRatio = float64(stats.TotalCacheHits) / float64(stats.TotalQueries)
	}
	stats.RecentEvents = recent
	return stats
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}

var defaultMonitor = New(envInt("RESOLVE_MONITOR_BUFFER", 200), envDuration("RESOLVE_MONITOR_TTL", 0))

func Record(e Event) {
	defaultMonitor.Record(e)
}

func GetStats() Stats {
	return defaultMonitor.GetStats()
}
