package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// EnvironmentFile names the active profile.
	EnvironmentFile = "application.yml"

	defaultMonitorInterval = 60 * time.Second
	defaultMonitorTimeout  = 10 * time.Second

	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// EnvironmentSelector is the content of application.yml.
type EnvironmentSelector struct {
	Profiles Profiles `yaml:"profiles"`
}

// Profiles holds the active profile name.
type Profiles struct {
	Active string `yaml:"active" validate:"required"`
}

// ApplicationConfig is the content of application-<profile>.yml.
type ApplicationConfig struct {
	Server   ServerConfig    `yaml:"server"`
	Services []ServiceConfig `yaml:"services" validate:"required,dive"`
	Mail     MailConfig      `yaml:"smtp"`
	Monitor  MonitorConfig   `yaml:"monitor"`
}

// ServerConfig describes the status API listener.
type ServerConfig struct {
	Addr      string          `yaml:"addr" validate:"required"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig sizes the per-client token bucket of the status API.
// Zero values take the defaults; a negative RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Enabled reports whether requests should be limited at all.
func (r RateLimitConfig) Enabled() bool {
	return r.RPS > 0 && r.Burst > 0
}

// ServiceConfig describes one monitored downstream service.
type ServiceConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	API  string `yaml:"api" json:"api" validate:"required"`
}

// MailConfig carries the SMTP submission settings. Every field may be
// overridden from the environment, see ResolveSecrets.
type MailConfig struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Domain   string `yaml:"domain"`
}

// MonitorConfig controls the health check loop.
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProfileFile returns the file name holding the settings of profile.
func ProfileFile(profile string) string {
	return fmt.Sprintf("application-%s.yml", profile)
}

// Loader resolves the profile cascade from files in a single directory.
type Loader struct {
	dir    string
	lookup LookupFunc
	logger *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLookup overrides the environment lookup, primarily for tests.
func WithLookup(lookup LookupFunc) LoaderOption {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// NewLoader creates a Loader reading files from dir.
func NewLoader(dir string, logger *zap.Logger, opts ...LoaderOption) *Loader {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		dir:    dir,
		lookup: os.LookupEnv,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DiscoverActiveProfile reads application.yml.
func (l *Loader) DiscoverActiveProfile() (*EnvironmentSelector, bool, error) {
	return loadFile[EnvironmentSelector](filepath.Join(l.dir, EnvironmentFile), l.logger)
}

// LoadProfile reads application-<active>.yml and fills monitor and rate
// limit defaults. active must not contain a path separator.
func (l *Loader) LoadProfile(active string) (*ApplicationConfig, bool, error) {
	if err := checkProfileName(active); err != nil {
		return nil, false, err
	}
	cfg, ok, err := loadFile[ApplicationConfig](filepath.Join(l.dir, ProfileFile(active)), l.logger)
	if err != nil || !ok {
		return nil, ok, err
	}
	applyMonitorDefaults(&cfg.Monitor)
	applyRateLimitDefaults(&cfg.Server.RateLimit)
	return cfg, true, nil
}

func checkProfileName(active string) error {
	if strings.ContainsAny(active, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, active)
	}
	return nil
}

// Load runs the full cascade: discover the profile, load its file, then
// resolve SMTP secrets from the environment. A missing or unparsable file at
// either stage yields (nil, false, nil); no partial config is returned.
func (l *Loader) Load() (*ApplicationConfig, bool, error) {
	env, ok, err := l.DiscoverActiveProfile()
	if err != nil || !ok {
		return nil, false, err
	}

	cfg, ok, err := l.LoadProfile(env.Profiles.Active)
	if err != nil || !ok {
		return nil, false, err
	}

	cfg.Mail = ResolveSecrets(cfg.Mail, l.lookup)
	if err := validateMail(cfg.Mail); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrSchemaMismatch, ProfileFile(env.Profiles.Active), err)
	}

	l.logger.Info("configuration loaded",
		zap.String("profile", env.Profiles.Active),
		zap.String("addr", cfg.Server.Addr),
		zap.Int("services", len(cfg.Services)),
	)
	return cfg, true, nil
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.Interval <= 0 {
		m.Interval = defaultMonitorInterval
	}
	if m.Timeout <= 0 {
		m.Timeout = defaultMonitorTimeout
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.RPS < 0 {
		return
	}
	if r.RPS == 0 {
		r.RPS = defaultRateLimitRPS
	}
	if r.Burst <= 0 {
		r.Burst = defaultRateLimitBurst
	}
}
