package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize expands paths, trims string fields, and fills derived defaults.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Store.PostgresDSN = strings.TrimSpace(c.Store.PostgresDSN)
	if c.Store.MaxConns <= 0 {
		c.Store.MaxConns = defaultStoreMaxConns
	}

	c.CDN.BaseURL = strings.TrimRight(strings.TrimSpace(c.CDN.BaseURL), "/")
	c.CDN.SigningSecret = strings.TrimSpace(c.CDN.SigningSecret)
	if c.CDN.TokenTTL <= 0 {
		c.CDN.TokenTTL = defaultTokenTTL
	}

	c.Probe.Binary = strings.TrimSpace(c.Probe.Binary)
	if c.Probe.Binary == "" {
		c.Probe.Binary = defaultProbeBinary
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = defaultProbeTimeout
	}

	c.Broadcast.Transport = strings.ToLower(strings.TrimSpace(c.Broadcast.Transport))
	if c.Broadcast.Transport == "" {
		c.Broadcast.Transport = defaultBroadcastTransport
	}
	c.Broadcast.Endpoint = strings.TrimSpace(c.Broadcast.Endpoint)
	c.Broadcast.RedisAddr = strings.TrimSpace(c.Broadcast.RedisAddr)
	if c.Broadcast.RequestTimeout <= 0 {
		c.Broadcast.RequestTimeout = defaultBroadcastTimeout
	}
	if strings.TrimSpace(c.Broadcast.RedisChannel) == "" {
		c.Broadcast.RedisChannel = defaultRedisChannel
	}

	c.Worker.Name = strings.TrimSpace(c.Worker.Name)
	if c.Worker.Name == "" {
		c.Worker.Name = defaultWorkerName()
	}
	c.Worker.JobType = strings.TrimSpace(c.Worker.JobType)
	if c.Worker.JobType == "" {
		c.Worker.JobType = defaultJobType
	}

	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}

// defaultWorkerName derives a claim identity unique to this host and process.
func defaultWorkerName() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "clapper"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
