package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker reports unhealthy once any registered loop misses its heartbeat window.
type HealthTracker struct {
	mu    sync.Mutex
	loops map[string]*Heartbeat
	now   func() time.Time
}

// Heartbeat is the handle a background loop uses to signal liveness.
type Heartbeat struct {
	tracker  *HealthTracker
	name     string
	interval time.Duration
	last     time.Time
}

// HealthReport is the /healthz payload.
type HealthReport struct {
	Status string       `json:"status"`
	Checks []LoopStatus `json:"checks,omitempty"`
}

// LoopStatus describes one tracked loop.
type LoopStatus struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	LastBeat string `json:"lastBeat,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		loops: make(map[string]*Heartbeat),
		now:   time.Now,
	}
}

// Register tracks a loop that must beat at least once per interval.
// A loop is unhealthy until its first beat.
func (h *HealthTracker) Register(name string, interval time.Duration) *Heartbeat {
	h.mu.Lock()
	defer h.mu.Unlock()
	beat := &Heartbeat{tracker: h, name: name, interval: interval}
	h.loops[name] = beat
	return beat
}

// Unregister stops tracking a loop.
func (h *HealthTracker) Unregister(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.loops, name)
}

func (b *Heartbeat) Beat() {
	if b == nil || b.tracker == nil {
		return
	}
	b.tracker.mu.Lock()
	defer b.tracker.mu.Unlock()
	b.last = b.tracker.now()
}

func (h *HealthTracker) Report() HealthReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	report := HealthReport{Status: "ok"}
	for _, beat := range h.loops {
		healthy := !beat.last.IsZero() && now.Sub(beat.last) <= beat.interval
		status := LoopStatus{Name: beat.name, Healthy: healthy}
		if !beat.last.IsZero() {
			status.LastBeat = beat.last.UTC().Format(time.RFC3339Nano)
		}
		if !healthy {
			report.Status = "unhealthy"
		}
		report.Checks = append(report.Checks, status)
	}
	sort.Slice(report.Checks, func(i, j int) bool { return report.Checks[i].Name < report.Checks[j].Name })
	return report
}
