package config

const (
	defaultDataDir            = "~/.local/share/clapper"
	defaultLogDir             = "~/.local/share/clapper/logs"
	defaultStoreMaxConns      = 4
	defaultTokenTTL           = 900
	defaultProbeBinary        = "ffprobe"
	defaultProbeTimeout       = 60
	defaultBroadcastTransport = "http"
	defaultBroadcastTimeout   = 10
	defaultRedisChannel       = "realtime:media"
	defaultJobType            = "duration"
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultAPIBind            = "127.0.0.1:7462"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			MaxConns: defaultStoreMaxConns,
		},
		CDN: CDN{
			TokenTTL: defaultTokenTTL,
		},
		Probe: Probe{
			Binary:  defaultProbeBinary,
			Timeout: defaultProbeTimeout,
		},
		Broadcast: Broadcast{
			Transport:      defaultBroadcastTransport,
			RequestTimeout: defaultBroadcastTimeout,
			RedisChannel:   defaultRedisChannel,
		},
		Worker: Worker{
			JobType:            defaultJobType,
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
