package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/logmule/logmule/internal/config"
	"github.com/logmule/logmule/internal/netmon"
)

func TestNewRoot_Subcommands(t *testing.T) {
	root := NewRoot()
	want := map[string]bool{"run": false, "flush": false, "status": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestBuildNetmon_Exporter(t *testing.T) {
	prober, source, err := buildNetmon(config.NetmonConfig{
		Source:      "exporter",
		ExporterURL: "http://127.0.0.1:9101/metrics",
	})
	if err != nil {
		t.Fatalf("buildNetmon() error: %v", err)
	}
	if _, ok := prober.(*netmon.ExporterProber); !ok {
		t.Errorf("prober is %T, want *netmon.ExporterProber", prober)
	}
	if _, ok := source.(*netmon.Watcher); !ok {
		t.Errorf("source is %T, want *netmon.Watcher", source)
	}
}

func TestBuildNetmon_FeedServesBothRoles(t *testing.T) {
	prober, source, err := buildNetmon(config.NetmonConfig{
		Source:  "feed",
		FeedURL: "ws://127.0.0.1:9102/events",
	})
	if err != nil {
		t.Fatalf("buildNetmon() error: %v", err)
	}
	feed, ok := prober.(*netmon.Feed)
	if !ok {
		t.Fatalf("prober is %T, want *netmon.Feed", prober)
	}
	if source.(*netmon.Feed) != feed {
		t.Error("feed mode should use one Feed as both prober and source")
	}
}

func TestBuildNetmon_UnknownSource(t *testing.T) {
	if _, _, err := buildNetmon(config.NetmonConfig{Source: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestIntakeTarget_DefaultWithoutConfig(t *testing.T) {
	base, header, key := intakeTarget(filepath.Join(t.TempDir(), "missing.yaml"))
	if base != "http://"+config.DefaultListen {
		t.Errorf("base: got %q", base)
	}
	if header != "" || key != "" {
		t.Errorf("auth without config: got header=%q key=%q", header, key)
	}
}

func TestIntakeTarget_FromConfig(t *testing.T) {
	t.Setenv("LOGMULE_CMD_TEST_KEY", "s3cret")
	path := writeConfig(t, `
sink:
  endpoint: "https://ingest.example.com"
netmon:
  exporter_url: "http://127.0.0.1:9101/metrics"
intake:
  listen: "127.0.0.1:9999"
  auth:
    mode: apikey
    header: X-API-Key
    key_env: LOGMULE_CMD_TEST_KEY
`)

	base, header, key := intakeTarget(path)
	if base != "http://127.0.0.1:9999" {
		t.Errorf("base: got %q", base)
	}
	if header != "X-API-Key" || key != "s3cret" {
		t.Errorf("auth: got header=%q key=%q", header, key)
	}
}

func TestIntakeTarget_EnvOverridesURL(t *testing.T) {
	t.Setenv("LOGMULE_API", "http://10.0.0.5:8640")
	base, _, _ := intakeTarget(filepath.Join(t.TempDir(), "missing.yaml"))
	if base != "http://10.0.0.5:8640" {
		t.Errorf("base: got %q", base)
	}
}

func TestCallDaemon_DecodesAndAuthenticates(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sent": 5, "cleared": true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	t.Setenv("LOGMULE_API", srv.URL)
	t.Setenv("LOGMULE_CMD_TEST_KEY", "s3cret")
	path := writeConfig(t, `
sink:
  endpoint: "https://ingest.example.com"
netmon:
  exporter_url: "http://127.0.0.1:9101/metrics"
intake:
  auth:
    mode: apikey
    header: X-API-Key
    key_env: LOGMULE_CMD_TEST_KEY
`)

	var out struct {
		Sent    int  `json:"sent"`
		Cleared bool `json:"cleared"`
	}
	if err := callDaemon(context.Background(), http.MethodPost, path, "/v1/flush", &out); err != nil {
		t.Fatalf("callDaemon() error: %v", err)
	}
	if out.Sent != 5 || !out.Cleared {
		t.Errorf("decoded %+v", out)
	}
	if gotKey != "s3cret" {
		t.Errorf("api key header: got %q", gotKey)
	}
}

func TestCallDaemon_SurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": "sink: 503"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	t.Setenv("LOGMULE_API", srv.URL)
	err := callDaemon(context.Background(), http.MethodPost, filepath.Join(t.TempDir(), "missing.yaml"), "/v1/flush", nil)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if got := err.Error(); got != "daemon: sink: 503 (HTTP 502)" {
		t.Errorf("error message: got %q", got)
	}
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logmule.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
