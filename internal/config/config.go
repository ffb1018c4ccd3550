package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the shared Postgres store.
type Store struct {
	PostgresDSN string `toml:"postgres_dsn" env:"CLAPPER_POSTGRES_DSN"`
	MaxConns    int32  `toml:"max_conns"`
}

// CDN contains configuration for signed media URL generation.
type CDN struct {
	BaseURL       string `toml:"base_url"`
	SigningSecret string `toml:"signing_secret" env:"CLAPPER_CDN_SECRET"`
	TokenTTL      int    `toml:"token_ttl"`
}

// Probe contains configuration for the external media inspection tool.
type Probe struct {
	Binary  string `toml:"binary"`
	Timeout int    `toml:"timeout"`
}

// Broadcast contains configuration for real-time event delivery.
type Broadcast struct {
	Transport      string `toml:"transport"`
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token" env:"CLAPPER_BROADCAST_TOKEN"`
	RequestTimeout int    `toml:"request_timeout"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password" env:"CLAPPER_REDIS_PASSWORD"`
	RedisChannel   string `toml:"redis_channel"`
}

// Worker contains configuration for the job-claim loop.
type Worker struct {
	Name               string `toml:"name"`
	JobType            string `toml:"job_type"`
	PollInterval       int    `toml:"poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	HeartbeatInterval  int    `toml:"heartbeat_interval"`
	HeartbeatTimeout   int    `toml:"heartbeat_timeout"`
}

// API contains configuration for the local status API.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token" env:"CLAPPER_API_TOKEN"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clapper.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: Postgres connection for jobs and media records
//   - CDN: signed URL base and shared HMAC secret
//   - Probe: ffprobe binary and invocation timeout
//   - Broadcast: real-time event transport (HTTP, Redis pub/sub, or off)
//   - Worker: claim-loop identity and intervals
//   - API: local status endpoint bind and token
//   - Logging: log format and level
//
// Secrets and connection strings can be supplied via environment variables;
// environment values take precedence over the TOML file.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Store     Store     `toml:"store"`
	CDN       CDN       `toml:"cdn"`
	Probe     Probe     `toml:"probe"`
	Broadcast Broadcast `toml:"broadcast"`
	Worker    Worker    `toml:"worker"`
	API       API       `toml:"api"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clapper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized, and environment
// overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clapper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the flock path guarding this worker identity.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, c.Worker.Name+".lock")
}

// LogPath returns the daemon log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "clapperd.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
