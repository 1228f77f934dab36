package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mcleblanc711/ResortFees/internal/config"
)

func newTestAgent(t *testing.T, robotsBody string, cfg config.RobotsConfig) (*Agent, *httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			w.Write([]byte(robotsBody))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return NewAgent(cfg, srv.Client()), srv, &hits
}

func TestAllowedHonoursDisallow(t *testing.T) {
	body := "User-agent: *\nDisallow: /private/\n"
	agent, srv, _ := newTestAgent(t, body, config.RobotsConfig{Respect: true, UserAgent: "resortfees-bot/1.0"})

	if !agent.Allowed(context.Background(), srv.URL+"/policies") {
		t.Error("open path should be allowed")
	}
	if agent.Allowed(context.Background(), srv.URL+"/private/fees") {
		t.Error("disallowed path should be blocked")
	}
}

func TestAllowedCachesRules(t *testing.T) {
	body := "User-agent: *\nDisallow:\n"
	agent, srv, hits := newTestAgent(t, body, config.RobotsConfig{Respect: true, UserAgent: "resortfees-bot/1.0"})

	for i := 0; i < 3; i++ {
		agent.Allowed(context.Background(), srv.URL+"/policies")
	}
	if hits.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", hits.Load())
	}
}

func TestAllowedOverrideSkipsRobots(t *testing.T) {
	body := "User-agent: *\nDisallow: /\n"
	agent, srv, hits := newTestAgent(t, body, config.RobotsConfig{Respect: true, UserAgent: "resortfees-bot/1.0"})

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	agent.overrides[strings.ToLower(u.Hostname())] = struct{}{}

	if !agent.Allowed(context.Background(), srv.URL+"/anything") {
		t.Error("override host should bypass robots rules")
	}
	if hits.Load() != 0 {
		t.Error("override host should not fetch robots.txt")
	}
}

func TestAllowedFailsOpenOnFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	agent := NewAgent(config.RobotsConfig{Respect: true, UserAgent: "resortfees-bot/1.0"}, srv.Client())
	if !agent.Allowed(context.Background(), srv.URL+"/policies") {
		t.Error("robots fetch errors should fail open")
	}
}

func TestAllowedRespectDisabled(t *testing.T) {
	body := "User-agent: *\nDisallow: /\n"
	agent, srv, hits := newTestAgent(t, body, config.RobotsConfig{Respect: false})

	if !agent.Allowed(context.Background(), srv.URL+"/anything") {
		t.Error("disabled agent should allow everything")
	}
	if hits.Load() != 0 {
		t.Error("disabled agent should not fetch robots.txt")
	}
}
