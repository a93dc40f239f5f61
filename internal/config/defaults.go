package config

const (
	defaultRunDir                   = "/tmp/ore_miner"
	defaultLogDir                   = "/tmp/ore_miner/logs"
	defaultMinerBinary              = "ore"
	defaultMinerCores               = 1
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 14
	defaultMetricsRetentionDays     = 30
	defaultRestartBackoffSeconds    = 5
	defaultMaxRestartBackoffSeconds = 300
	defaultMaxRestarts              = 0 // unlimited
	defaultStopGraceSeconds         = 10
	defaultHealthIntervalSeconds    = 60
	defaultNotifyRequestTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunDir: defaultRunDir,
			LogDir: defaultLogDir,
		},
		Miner: Miner{
			Binary: defaultMinerBinary,
			Cores:  defaultMinerCores,
		},
		Supervisor: Supervisor{
			RestartBackoffSeconds:    defaultRestartBackoffSeconds,
			MaxRestartBackoffSeconds: defaultMaxRestartBackoffSeconds,
			MaxRestarts:              defaultMaxRestarts,
			StopGraceSeconds:         defaultStopGraceSeconds,
			HealthIntervalSeconds:    defaultHealthIntervalSeconds,
		},
		Metrics: Metrics{
			Enabled:       true,
			RetentionDays: defaultMetricsRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
