// Package config resolves the agent configuration through a two-stage profile
// cascade: application.yml names the active profile, application-<profile>.yml
// carries the settings, and SMTP credentials are finally overridden from
// environment variables. It exposes strongly typed settings to the rest of
// the application.
package config
