package config

import (
	"errors"
	"testing"
)

func TestResolveSecrets(t *testing.T) {
	file := MailConfig{
		From:     "file-from@example.com",
		To:       "file-to@example.com",
		Username: "file-user",
		Password: "file-pass",
		Domain:   "smtp.file.example.com",
	}

	tests := []struct {
		name string
		env  map[string]string
		want MailConfig
	}{
		{
			name: "no variables",
			want: file,
		},
		{
			name: "all variables",
			env: map[string]string{
				EnvMailFrom:     "env-from@example.com",
				EnvMailTo:       "env-to@example.com",
				EnvMailUsername: "env-user",
				EnvMailPassword: "env-pass",
				EnvMailDomain:   "smtp.env.example.com",
			},
			want: MailConfig{
				From:     "env-from@example.com",
				To:       "env-to@example.com",
				Username: "env-user",
				Password: "env-pass",
				Domain:   "smtp.env.example.com",
			},
		},
		{
			name: "password only",
			env:  map[string]string{EnvMailPassword: "rotated"},
			want: MailConfig{
				From:     file.From,
				To:       file.To,
				Username: file.Username,
				Password: "rotated",
				Domain:   file.Domain,
			},
		},
		{
			name: "empty value still overrides",
			env:  map[string]string{EnvMailTo: ""},
			want: MailConfig{
				From:     file.From,
				Username: file.Username,
				Password: file.Password,
				Domain:   file.Domain,
			},
		},
		{
			name: "unrelated variables ignored",
			env:  map[string]string{"MAIL_USERNAME": "nobody"},
			want: file,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveSecrets(file, MapLookup(tc.env))
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestResolveSecretsRoundTrip(t *testing.T) {
	file := MailConfig{Username: "alice"}
	env := map[string]string{}

	env[EnvMailUsername] = "bob"
	if got := ResolveSecrets(file, MapLookup(env)).Username; got != "bob" {
		t.Fatalf("expected override, got %q", got)
	}

	delete(env, EnvMailUsername)
	if got := ResolveSecrets(file, MapLookup(env)).Username; got != "alice" {
		t.Fatalf("expected file value after clearing, got %q", got)
	}
}

func TestResolveSecretsNilLookup(t *testing.T) {
	file := MailConfig{Domain: "smtp.example.com"}
	if got := ResolveSecrets(file, nil); got != file {
		t.Fatalf("expected input unchanged, got %+v", got)
	}
}

func TestValidateMail(t *testing.T) {
	if err := validateMail(MailConfig{From: "a", To: "b", Username: "c", Password: "d", Domain: "e"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := validateMail(MailConfig{From: "a", To: "b"})
	if !errors.Is(err, ErrInvalidMail) {
		t.Fatalf("expected ErrInvalidMail, got %v", err)
	}
}
