// Package config resolves runtime settings from .env, an optional YAML file
// and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY not found in environment variables")

const (
	BackendMemory   = "memory"
	BackendDisk     = "disk"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	APIKey   string         `yaml:"api_key"`
	Port     string         `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Clone    CloneConfig    `yaml:"clone"`
	LLM      LLMConfig      `yaml:"llm"`
	Artifact ArtifactConfig `yaml:"artifact"`

	// AllowedOrigins lists browser origins the HTTP API and progress
	// websocket accept cross-origin requests from. "*" allows any origin
	// without credentials.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type CloneConfig struct {
	Dir     string        `yaml:"dir"`
	Depth   int           `yaml:"depth"`
	Timeout time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	// Model pins a model name and skips catalog selection.
	Model      string        `yaml:"model"`
	Marker     string        `yaml:"marker"`
	Timeout    time.Duration `yaml:"timeout"`
	Sequential bool          `yaml:"sequential"`
	// BaseURL overrides the Gemini API endpoint, e.g. for a proxy.
	BaseURL string `yaml:"base_url"`
}

type ArtifactConfig struct {
	Backend     string   `yaml:"backend"`
	DiskRoot    string   `yaml:"disk_root"`
	DatabaseURL string   `yaml:"database_url"`
	Cache       bool     `yaml:"cache"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func Default() Config {
	return Config{
		Port:     ":8080",
		LogLevel: "info",
		Clone: CloneConfig{
			Dir: "./temp_legacy_app",
		},
		LLM: LLMConfig{
			Marker:  "1.5-flash",
			Timeout: 2 * time.Minute,
		},
		Artifact: ArtifactConfig{
			Backend:  BackendMemory,
			DiskRoot: "./legacylift_out",
			Cache:    true,
			S3: S3Config{
				Region: "us-east-1",
				Bucket: "legacylift-artifacts",
				UseSSL: true,
			},
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then overrides from the environment. It does not check the API key; call
// Validate for that.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if p := strings.TrimSpace(path); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", p, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Port = normalizePort(cfg.Port)
	cfg.Artifact.Backend = strings.ToLower(strings.TrimSpace(cfg.Artifact.Backend))
	return &cfg, nil
}

// Validate reports settings that make a migration impossible. Artifact
// backend settings are checked when the store is opened, since only the
// server uses one.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Clone.Depth < 0 {
		return fmt.Errorf("clone depth must be >= 0, got %d", c.Clone.Depth)
	}
	return nil
}

func applyEnv(c *Config) error {
	setString(&c.APIKey, "GOOGLE_API_KEY")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setList(&c.AllowedOrigins, "CORS_ALLOWED_ORIGINS")

	setString(&c.Clone.Dir, "LEGACYLIFT_CLONE_DIR")
	if err := setInt(&c.Clone.Depth, "LEGACYLIFT_CLONE_DEPTH"); err != nil {
		return err
	}
	if err := setDuration(&c.Clone.Timeout, "LEGACYLIFT_CLONE_TIMEOUT"); err != nil {
		return err
	}

	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.Marker, "LLM_MODEL_MARKER")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	if err := setDuration(&c.LLM.Timeout, "LLM_TIMEOUT"); err != nil {
		return err
	}
	if err := setBool(&c.LLM.Sequential, "LLM_SEQUENTIAL"); err != nil {
		return err
	}

	setString(&c.Artifact.Backend, "ARTIFACT_STORE")
	setString(&c.Artifact.DiskRoot, "ARTIFACT_DISK_ROOT")
	setString(&c.Artifact.DatabaseURL, "DATABASE_URL")
	if err := setBool(&c.Artifact.Cache, "ARTIFACT_CACHE"); err != nil {
		return err
	}
	setString(&c.Artifact.S3.Endpoint, "ARTIFACT_S3_ENDPOINT")
	setString(&c.Artifact.S3.Region, "ARTIFACT_S3_REGION")
	setString(&c.Artifact.S3.AccessKey, "ARTIFACT_S3_ACCESS_KEY", "MINIO_ROOT_USER")
	setString(&c.Artifact.S3.SecretKey, "ARTIFACT_S3_SECRET_KEY", "MINIO_ROOT_PASSWORD")
	setString(&c.Artifact.S3.Bucket, "ARTIFACT_S3_BUCKET")
	return setBool(&c.Artifact.S3.UseSSL, "ARTIFACT_S3_USE_SSL")
}

// lookup returns the first non-empty value among keys.
func lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v, true
		}
	}
	return "", false
}

func setString(dst *string, keys ...string) {
	if v, ok := lookup(keys...); ok {
		*dst = v
	}
}

// setList splits a comma-separated value, dropping empty entries.
func setList(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
