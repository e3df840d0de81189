// Package config loads the endpoint and AWS settings used by every command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Defaults for the task scheduling form.
const (
	DefaultTaskDefinitionArn = "arn:aws:ecs:us-east-1:814548047983:task-definition/WeathertopJava:18"
	DefaultClusterName       = "MyJavaWeathertopCluster"
	DefaultCron              = "cron(59 23 ? * FRI *)"
	DefaultRulePrefix        = "ecs-java-schedule"
)

// Endpoints are the base URLs of the dashboard backends.
type Endpoints struct {
	Stats     string `json:"stats"`
	NoTests   string `json:"no_tests"`
	Subscribe string `json:"subscribe"`
	Schedule  string `json:"schedule"`
	TaskInfo  string `json:"task_info"`
	// Coverage is an https:// base URL or an s3://bucket/prefix location
	// holding summary.json, <service>.coverage.json and kotlinref.json.
	Coverage string `json:"coverage"`
}

// AWSConfig holds the settings for calls made directly through the SDK.
type AWSConfig struct {
	Region            string   `json:"region"`
	TopicArn          string   `json:"topic_arn,omitempty"`
	RuleRoleArn       string   `json:"rule_role_arn,omitempty"`
	TaskDefinitionArn string   `json:"task_definition_arn"`
	ClusterName       string   `json:"cluster_name"`
	Cron              string   `json:"cron"`
	RulePrefix        string   `json:"rule_prefix"`
	Subnets           []string `json:"subnets,omitempty"`
	SecurityGroups    []string `json:"security_groups,omitempty"`
	AssignPublicIP    bool     `json:"assign_public_ip,omitempty"`
}

type Config struct {
	Endpoints      Endpoints `json:"endpoints"`
	AWS            AWSConfig `json:"aws"`
	ListenAddr     string    `json:"listen_addr"`
	ReqPerSec      float64   `json:"req_per_sec"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

// Default returns the configuration of the hosted dashboard.
func Default() Config {
	return Config{
		Endpoints: Endpoints{
			Stats:     "https://7mzatujfx8.execute-api.us-east-1.amazonaws.com/prod/stats",
			NoTests:   "https://pab1amebbb.execute-api.us-east-1.amazonaws.com/prod/stats",
			Subscribe: "https://cevri06wc6.execute-api.us-east-1.amazonaws.com/prod/sns",
			Schedule:  "https://l6ptsgo6rh.execute-api.us-east-1.amazonaws.com/prod/stats",
			TaskInfo:  "https://bkuj0vm303.execute-api.us-east-1.amazonaws.com/prod/stats",
			Coverage:  "http://localhost:3000",
		},
		AWS: AWSConfig{
			Region:            "us-east-1",
			TaskDefinitionArn: DefaultTaskDefinitionArn,
			ClusterName:       DefaultClusterName,
			Cron:              DefaultCron,
			RulePrefix:        DefaultRulePrefix,
		},
		ListenAddr:     ":8080",
		ReqPerSec:      5,
		TimeoutSeconds: 30,
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "weathertop", "config.json")
}

// Load reads the config file at path over the defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from WEATHERTOP_* environment variables.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("WEATHERTOP_STATS_URL", &c.Endpoints.Stats)
	setString("WEATHERTOP_NO_TESTS_URL", &c.Endpoints.NoTests)
	setString("WEATHERTOP_SUBSCRIBE_URL", &c.Endpoints.Subscribe)
	setString("WEATHERTOP_SCHEDULE_URL", &c.Endpoints.Schedule)
	setString("WEATHERTOP_TASK_INFO_URL", &c.Endpoints.TaskInfo)
	setString("WEATHERTOP_COVERAGE_URL", &c.Endpoints.Coverage)
	setString("WEATHERTOP_LISTEN_ADDR", &c.ListenAddr)
	setString("WEATHERTOP_TOPIC_ARN", &c.AWS.TopicArn)
	setString("WEATHERTOP_RULE_ROLE_ARN", &c.AWS.RuleRoleArn)
	setString("WEATHERTOP_TASK_DEFINITION_ARN", &c.AWS.TaskDefinitionArn)
	setString("WEATHERTOP_CLUSTER", &c.AWS.ClusterName)

	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	setString("WEATHERTOP_REGION", &c.AWS.Region)

	if v := os.Getenv("WEATHERTOP_SUBNETS"); v != "" {
		c.AWS.Subnets = splitList(v)
	}
	if v := os.Getenv("WEATHERTOP_SECURITY_GROUPS"); v != "" {
		c.AWS.SecurityGroups = splitList(v)
	}
	if v, err := strconv.ParseFloat(os.Getenv("WEATHERTOP_REQ_PER_SEC"), 64); err == nil {
		c.ReqPerSec = v
	}
	if v, err := strconv.Atoi(os.Getenv("WEATHERTOP_TIMEOUT_SECONDS")); err == nil {
		c.TimeoutSeconds = v
	}
}

// Validate checks that every endpoint is an absolute URL and that the
// rate and timeout are usable.
func (c Config) Validate() error {
	endpoints := []struct {
		name, value string
	}{
		{"stats", c.Endpoints.Stats},
		{"no-tests", c.Endpoints.NoTests},
		{"subscribe", c.Endpoints.Subscribe},
		{"schedule", c.Endpoints.Schedule},
		{"task info", c.Endpoints.TaskInfo},
	}
	for _, e := range endpoints {
		if err := checkURL(e.value, "http", "https"); err != nil {
			return fmt.Errorf("%s endpoint: %w", e.name, err)
		}
	}
	if err := checkURL(c.Endpoints.Coverage, "http", "https", "s3"); err != nil {
		return fmt.Errorf("coverage location: %w", err)
	}

	if c.ReqPerSec <= 0 {
		return fmt.Errorf("req_per_sec must be positive")
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1")
	}
	return nil
}

// Timeout returns the HTTP client timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("url %q must use one of %s", raw, strings.Join(schemes, ", "))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
