package config

import (
	"errors"
	"fmt"
	"strings"
)

// Environment variables overriding MailConfig fields.
const (
	EnvMailFrom     = "SMTP_FROM"
	EnvMailTo       = "SMTP_TO"
	EnvMailUsername = "SMTP_USERNAME"
	EnvMailPassword = "SMTP_PASSWORD"
	EnvMailDomain   = "SMTP_DOMAIN"
)

// ErrInvalidMail indicates a mail section with unset fields after secret resolution.
var ErrInvalidMail = errors.New("incomplete smtp settings")

// LookupFunc resolves an environment variable. It has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ResolveSecrets returns mail with every field replaced by its environment
// variable when that variable is set. A variable set to the empty string
// still replaces the file value.
func ResolveSecrets(mail MailConfig, lookup LookupFunc) MailConfig {
	if lookup == nil {
		return mail
	}
	override := func(key string, fallback string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return fallback
	}
	return MailConfig{
		From:     override(EnvMailFrom, mail.From),
		To:       override(EnvMailTo, mail.To),
		Username: override(EnvMailUsername, mail.Username),
		Password: override(EnvMailPassword, mail.Password),
		Domain:   override(EnvMailDomain, mail.Domain),
	}
}

// MapLookup adapts a map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func validateMail(mail MailConfig) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"smtp.from", mail.From},
		{"smtp.to", mail.To},
		{"smtp.username", mail.Username},
		{"smtp.password", mail.Password},
		{"smtp.domain", mail.Domain},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidMail, strings.Join(missing, ", "))
	}
	return nil
}
