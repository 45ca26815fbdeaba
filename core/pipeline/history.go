package pipeline

import (
	"sync"
	"time"

	"github.com/averix/groundling/model"
)

// RunSummary is the compact per-run record kept in History. It carries
// no passage content, only what a dashboard or audit view needs.
type RunSummary struct {
	Timestamp  time.Time     `json:"timestamp"`
	Query      string        `json:"query"`
	State      State         `json:"state"`
	FinalScore float64       `json:"final_score"`
	Stages     int           `json:"stages"`
	Duration   time.Duration `json:"duration"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// History is a bounded in-memory ring of recent run summaries. The
// orchestrator itself keeps no state across runs; History is an opt-in
// collaborator the caller owns. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []RunSummary
	next    int
	filled  bool
}

// NewHistory creates a history keeping at most capacity runs.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]RunSummary, capacity)}
}

// Record stores a summary of the finished run, evicting the oldest
// entry once the ring is full.
func (h *History) Record(query string, state State, result *model.PipelineResult, duration time.Duration) {
	summary := RunSummary{
		Timestamp:  time.Now(),
		Query:      query,
		State:      state,
		FinalScore: result.Confidence.FinalScore,
		Stages:     len(result.ExecutionLog),
		Duration:   duration,
		Warnings:   result.Warnings,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = summary
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.filled = true
	}
}

// Recent returns up to n summaries, newest first.
func (h *History) Recent(n int) []RunSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.filled {
		size = len(h.entries)
	}
	if n > size {
		n = size
	}

	out := make([]RunSummary, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Len reports how many runs are currently stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.filled {
		return len(h.entries)
	}
	return h.next
}
