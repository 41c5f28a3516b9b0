package health

import "time"

// Finding statuses.
const (
	StatusUnreachable = "unreachable"
	StatusUnhealthy   = "unhealthy"
)

// Finding describes one detected anomaly of a monitored service.
type Finding struct {
	ID         string    `json:"id"`
	Service    string    `json:"service"`
	API        string    `json:"api"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// Notifier delivers a batch of findings. Implementations must not fail the caller.
type Notifier interface {
	Notify(events []Finding)
}

// Recorder keeps the outcome of the latest check round.
type Recorder interface {
	Record(checkedAt time.Time, findings []Finding)
	// MarkAlertDispatched counts a Notify call. Delivery is best effort, so
	// this counts attempts, not delivered mail.
	MarkAlertDispatched()
}
