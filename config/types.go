package config

type Config struct {
	DataDirectory     string    `yaml:"data_directory" mapstructure:"data_directory"`
	LogFile           string    `yaml:"log_file" mapstructure:"log_file"`
	FallbackSecret    string    `yaml:"fallback_secret" mapstructure:"fallback_secret"`
	DefaultQuotaBytes int64     `yaml:"default_quota_bytes" mapstructure:"default_quota_bytes"`
	ReconcileInterval int64     `yaml:"reconcile_interval" mapstructure:"reconcile_interval"`
	APICfg            APIConfig `yaml:"api_config" mapstructure:"api_config"`

	// ProfilingListen enables a pprof server when set, e.g. "localhost:6060".
	ProfilingListen string `yaml:"profiling_listen" mapstructure:"profiling_listen"`
}

type APIConfig struct {
	Port int64 `yaml:"port" mapstructure:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDirectory:     "$HOME/.file-vault/data",
		LogFile:           "",
		FallbackSecret:    "",
		DefaultQuotaBytes: 5 << 30, // 5 gib per owner
		ReconcileInterval: 300,
		APICfg: APIConfig{
			Port: 3333,
		},
		ProfilingListen: "",
	}
}
