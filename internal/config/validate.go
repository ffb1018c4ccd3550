package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Failures here are startup
// errors; the worker refuses to run rather than failing per job.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCDN(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateBroadcast(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.PostgresDSN == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clapper/config.toml"
		}
		return fmt.Errorf("store.postgres_dsn is required. Set CLAPPER_POSTGRES_DSN env var or edit %s (create with 'clapper config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateCDN() error {
	if c.CDN.SigningSecret == "" {
		return errors.New("cdn.signing_secret is required. Set CLAPPER_CDN_SECRET env var; the worker will not start without it")
	}
	if c.CDN.BaseURL == "" {
		return errors.New("cdn.base_url must be set")
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.Binary == "" {
		return errors.New("probe.binary must be set")
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("probe.timeout must be positive")
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	switch c.Broadcast.Transport {
	case "off":
		return nil
	case "http":
		if c.Broadcast.Endpoint == "" {
			return errors.New("broadcast.endpoint must be set when broadcast.transport is \"http\"")
		}
	case "redis":
		if c.Broadcast.RedisAddr == "" {
			return errors.New("broadcast.redis_addr must be set when broadcast.transport is \"redis\"")
		}
	default:
		return fmt.Errorf("broadcast.transport must be one of \"http\", \"redis\", \"off\"; got %q", c.Broadcast.Transport)
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.PollInterval <= 0 {
		return errors.New("worker.poll_interval must be positive")
	}
	if c.Worker.ErrorRetryInterval <= 0 {
		return errors.New("worker.error_retry_interval must be positive")
	}
	if c.Worker.HeartbeatInterval <= 0 {
		return errors.New("worker.heartbeat_interval must be positive")
	}
	if c.Worker.HeartbeatTimeout <= c.Worker.HeartbeatInterval {
		return errors.New("worker.heartbeat_timeout must exceed worker.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\"; got %q", c.Logging.Format)
	}
	return nil
}
