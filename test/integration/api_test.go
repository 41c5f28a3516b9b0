package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/health-alarm/internal/alarm"
	"github.com/eugenenazirov/health-alarm/internal/application"
	"github.com/eugenenazirov/health-alarm/internal/config"
)

type failingSender struct {
	attempts int
}

func (f *failingSender) DialAndSend(...*mail.Msg) error {
	f.attempts++
	return errors.New("relay unreachable")
}

func writeConfig(t *testing.T, serviceURL string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		config.EnvironmentFile: "profiles:\n  active: prod\n",
		config.ProfileFile("prod"): fmt.Sprintf(`
server:
  addr: "127.0.0.1:0"
services:
  - name: billing
    api: %q
smtp:
  from: "alerts@example.com"
  to: "ops@example.com"
  username: "alice"
  password: "file-secret"
  domain: "smtp.example.com"
monitor:
  interval: 1m
  timeout: 1s
`, serviceURL),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func performRequest(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	lookup := config.MapLookup(map[string]string{config.EnvMailUsername: "bob"})
	cfg, ok, err := config.NewLoader(writeConfig(t, down.URL), logger, config.WithLookup(lookup)).Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if cfg.Mail.Username != "bob" {
		t.Fatalf("expected env override, got %q", cfg.Mail.Username)
	}

	sender := &failingSender{}
	app, err := application.New(*cfg, logger, alarm.WithSender(sender))
	if err != nil {
		t.Fatalf("application.New returned error: %v", err)
	}

	findings := app.Collector().RunOnce(context.Background())
	if len(findings) != 1 || findings[0].Service != "billing" {
		t.Fatalf("unexpected findings %+v", findings)
	}
	if sender.attempts != 1 {
		t.Fatalf("expected one delivery attempt, got %d", sender.attempts)
	}
	if logs.FilterMessage("could not send email").Len() != 1 {
		t.Fatalf("expected delivery failure to be logged")
	}
	if logs.FilterMessage("unsent mail").Len() != 1 {
		t.Fatalf("expected undelivered body to be logged")
	}

	rec := performRequest(t, app.Router(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, app.Router(), "/api/findings")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from findings, got %d", rec.Code)
	}
	var response struct {
		Findings []struct {
			Service    string `json:"service"`
			StatusCode int    `json:"status_code"`
		} `json:"findings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Findings) != 1 || response.Findings[0].StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected findings response %+v", response.Findings)
	}
}
