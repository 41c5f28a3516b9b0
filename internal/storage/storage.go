package storage

import (
	"sync"
	"time"

	"github.com/eugenenazirov/health-alarm/internal/health"
)

// Snapshot is the outcome of the latest check round.
type Snapshot struct {
	CheckedAt time.Time        `json:"checkedAt"`
	Findings  []health.Finding `json:"findings"`
	// AlertsDispatched counts notification attempts; failed deliveries are included.
	AlertsDispatched int `json:"alertsDispatched"`
}

// Storage provides access to the latest check round.
type Storage interface {
	health.Recorder
	Latest() Snapshot
}

// MemoryStorage keeps the latest round in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu               sync.RWMutex
	checkedAt        time.Time
	findings         []health.Finding
	alertsDispatched int
}

// NewMemoryStorage initialises an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		findings: []health.Finding{},
	}
}

// Record replaces the stored round with a copy of findings.
func (s *MemoryStorage) Record(checkedAt time.Time, findings []health.Finding) {
	cp := cloneFindings(findings)

	s.mu.Lock()
	s.checkedAt = checkedAt
	s.findings = cp
	s.mu.Unlock()
}

// MarkAlertDispatched counts one notification attempt.
func (s *MemoryStorage) MarkAlertDispatched() {
	s.mu.Lock()
	s.alertsDispatched++
	s.mu.Unlock()
}

// Latest returns a defensive copy of the stored round.
func (s *MemoryStorage) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		CheckedAt:        s.checkedAt,
		Findings:         cloneFindings(s.findings),
		AlertsDispatched: s.alertsDispatched,
	}
}

func cloneFindings(src []health.Finding) []health.Finding {
	if len(src) == 0 {
		return []health.Finding{}
	}

	out := make([]health.Finding, len(src))
	copy(out, src)
	return out
}
