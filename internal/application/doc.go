// Package application provides application initialization and dependency wiring.
// It encapsulates the creation of the alert notifier, finding store, health
// collector, status router and HTTP server, keeping the main package focused
// on CLI parsing and orchestration.
package application
