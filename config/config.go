package config

import (
	"errors"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

func (c Config) Validate() error {
	if c.DataDirectory == "" {
		return errors.New("invalid data directory")
	}
	if c.FallbackSecret == "" {
		return errors.New("fallback_secret must be set; objects uploaded without a passphrase are keyed from it")
	}
	if c.DefaultQuotaBytes <= 0 {
		return errors.New("default_quota_bytes must be positive")
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("reconcile_interval must be positive")
	}
	if c.APICfg.Port <= 0 || c.APICfg.Port > 65535 {
		return errors.New("invalid api port")
	}
	return nil
}

// ReadConfig parses data and returns Config.
// Error during parsing or an invalid configuration in the Config will return an error.
func ReadConfig(data []byte) (*Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	config.DataDirectory = os.ExpandEnv(config.DataDirectory)

	return config, config.Validate()
}

// Export converts the config to yaml format
func (c Config) Export() ([]byte, error) {
	sb := strings.Builder{}
	sb.WriteString("#########################\n")
	sb.WriteString("### File Vault Config ###\n")
	sb.WriteString("#########################\n\n")

	d, err := yaml.Marshal(&c)
	if err != nil {
		return nil, err
	}

	sb.Write(d)

	sb.WriteString("\n#########################\n")

	return []byte(sb.String()), nil
}
