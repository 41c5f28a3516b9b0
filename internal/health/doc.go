// Package health checks the configured downstream services over HTTP and
// turns failed checks into Findings. The Collector runs the checks on a fixed
// interval, records each round and hands non-empty rounds to a Notifier.
package health
