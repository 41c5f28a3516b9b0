// Package api serves the agent's read-only status endpoints: liveness, the
// monitored service list, and the findings of the latest check round.
package api
