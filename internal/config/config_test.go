// internal/config/config_test.go
package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dsablic/weathertop/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Endpoints.Stats != config.Default().Endpoints.Stats {
		t.Errorf("expected defaults, got %+v", cfg.Endpoints)
	}
}

func TestSaveLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	partial := `{"endpoints":{"coverage":"s3://bucket/prefix"},"req_per_sec":2}`
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoints.Coverage != "s3://bucket/prefix" || cfg.ReqPerSec != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Endpoints.Stats != config.Default().Endpoints.Stats || cfg.TimeoutSeconds != 30 {
		t.Errorf("defaults not kept: %+v", cfg)
	}

	cfg.AWS.Subnets = []string{"subnet-1"}
	out := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := config.Save(out, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	again, err := config.Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !slices.Equal(again.AWS.Subnets, []string{"subnet-1"}) || again.Endpoints.Coverage != cfg.Endpoints.Coverage {
		t.Errorf("round trip mismatch: %+v", again)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WEATHERTOP_STATS_URL", "http://localhost:9000/stats")
	t.Setenv("WEATHERTOP_SUBNETS", "subnet-a, subnet-b,")
	t.Setenv("WEATHERTOP_REQ_PER_SEC", "1.5")
	t.Setenv("WEATHERTOP_TIMEOUT_SECONDS", "bogus")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg := config.Default()
	cfg.ApplyEnv()

	if cfg.Endpoints.Stats != "http://localhost:9000/stats" {
		t.Errorf("stats url not overridden: %s", cfg.Endpoints.Stats)
	}
	if !slices.Equal(cfg.AWS.Subnets, []string{"subnet-a", "subnet-b"}) {
		t.Errorf("unexpected subnets: %v", cfg.AWS.Subnets)
	}
	if cfg.ReqPerSec != 1.5 {
		t.Errorf("expected 1.5 req/s, got %v", cfg.ReqPerSec)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("expected default timeout kept, got %d", cfg.TimeoutSeconds)
	}
	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("expected eu-west-1, got %s", cfg.AWS.Region)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"relative stats url", func(c *config.Config) { c.Endpoints.Stats = "/stats" }},
		{"s3 stats url", func(c *config.Config) { c.Endpoints.Stats = "s3://bucket/stats" }},
		{"empty coverage", func(c *config.Config) { c.Endpoints.Coverage = "" }},
		{"zero rate", func(c *config.Config) { c.ReqPerSec = 0 }},
		{"zero timeout", func(c *config.Config) { c.TimeoutSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Endpoints.Coverage = "s3://bucket/coverage"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected s3 coverage location to be valid: %v", err)
	}
}
