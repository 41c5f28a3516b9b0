package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/health-alarm/internal/config"
)

const defaultCheckTimeout = 10 * time.Second

// Checker checks a service API with a single HTTP GET.
type Checker struct {
	client *http.Client
	clock  func() time.Time
	newID  func() string
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient overrides the HTTP client used for checks.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.client = client
	}
}

// WithCheckerClock overrides the time source, primarily for tests.
func WithCheckerClock(clock func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.clock = clock
	}
}

// NewChecker builds a Checker whose requests give up after timeout.
func NewChecker(timeout time.Duration, opts ...CheckerOption) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	c := &Checker{
		client: &http.Client{Timeout: timeout},
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check requests svc.API. It returns a Finding and true when the service is
// unreachable or answers with a status of 400 or above.
func (c *Checker) Check(ctx context.Context, svc config.ServiceConfig) (Finding, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.API, nil)
	if err != nil {
		return c.finding(svc, StatusUnreachable, 0, fmt.Sprintf("build request: %v", err)), true
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.finding(svc, StatusUnreachable, 0, err.Error()), true
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusBadRequest {
		return c.finding(svc, StatusUnhealthy, resp.StatusCode, fmt.Sprintf("health endpoint returned %s", resp.Status)), true
	}
	return Finding{}, false
}

func (c *Checker) finding(svc config.ServiceConfig, status string, code int, msg string) Finding {
	return Finding{
		ID:         c.newID(),
		Service:    svc.Name,
		API:        svc.API,
		Status:     status,
		StatusCode: code,
		Message:    msg,
		DetectedAt: c.clock(),
	}
}
