package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
)

// HooksRecorder keeps every aggregate write outcome so tests can assert on
// which payment, subscription or user a write touched.
type HooksRecorder struct {
	mu sync.Mutex

	Writes           []WriteOutcome
	ConflictedWrites []aggregates.Write
	RetryableWrites  []aggregates.Write
}

type WriteOutcome struct {
	aggregates.Write
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) Finished(w aggregates.Write, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Writes = append(h.Writes, WriteOutcome{Write: w, Status: status, Duration: dur})
}

func (h *HooksRecorder) Conflicted(w aggregates.Write) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ConflictedWrites = append(h.ConflictedWrites, w)
}

func (h *HooksRecorder) Retryable(w aggregates.Write) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RetryableWrites = append(h.RetryableWrites, w)
}

// Statuses lists the outcomes recorded for one entity key, oldest first.
func (h *HooksRecorder) Statuses(entity aggregates.Entity, key string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, w := range h.Writes {
		if w.Entity == entity && w.Key == key {
			out = append(out, w.Status)
		}
	}
	return out
}

// Contended counts conflicted plus retryable writes against one key.
func (h *HooksRecorder) Contended(entity aggregates.Entity, key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, list := range [][]aggregates.Write{h.ConflictedWrites, h.RetryableWrites} {
		for _, w := range list {
			if w.Entity == entity && w.Key == key {
				n++
			}
		}
	}
	return n
}
