package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("", envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != "8082" || cfg.HistoryBackend != "file" || cfg.HistoryCapacity != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheTTL != 30*time.Minute || cfg.RateLimit != 2 || cfg.RateBurst != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seo.yaml")
	yamlDoc := strings.Join([]string{
		"port: \"9000\"",
		"history_backend: sqlite",
		"history_capacity: 25",
		"fetch_timeout: 5s",
		"www_equivalent: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path, envMap(map[string]string{
		"PORT":           "9100",
		"CACHE_TTL":      "1m",
		"DEV_MODE":       "true",
		"MAX_PAGE_BYTES": "2048",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("environment should override the file, port = %q", cfg.Port)
	}
	if cfg.HistoryBackend != "sqlite" || cfg.HistoryCapacity != 25 {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.FetchTimeout != 5*time.Second || cfg.CacheTTL != time.Minute {
		t.Errorf("durations = %v, %v", cfg.FetchTimeout, cfg.CacheTTL)
	}
	if !cfg.WWWEquivalent || !cfg.DevMode || cfg.MaxPageBytes != 2048 {
		t.Errorf("unexpected values: %+v", cfg)
	}
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml"), nil},
		{"bad duration", "", map[string]string{"FETCH_TIMEOUT": "soon"}},
		{"bad capacity", "", map[string]string{"HISTORY_CAPACITY": "ten"}},
		{"unknown backend", "", map[string]string{"HISTORY_BACKEND": "redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(tt.path, envMap(tt.env)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
