package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ConfigName     = "config"
	ConfigType     = "yaml"
	ConfigFileName = ConfigName + "." + ConfigType
)

// Creates necessary directory and file if they do not exist
// Returns false if the file exists and true if the file does not exist
// If an error occurs, it returns false and the error
func createIfNotExists(directory string, fileName string, contents []byte) (bool, error) {
	err := os.MkdirAll(directory, 0o755)
	if err != nil {
		return false, err
	}

	filePath := path.Join(directory, fileName)
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(filePath)
		if err != nil {
			return false, err
		}
		defer f.Close()

		_, err = f.Write(contents)
		if err != nil {
			return false, err
		}

		return true, nil
	}

	return false, nil
}

// createFiles writes a default config on first run. The fallback secret is
// minted here, once, and persisted; regenerating it would orphan every object
// stored without a passphrase.
func createFiles(directory string) error {
	cfg := DefaultConfig()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cfg.FallbackSecret = hex.EncodeToString(secret)

	config, err := cfg.Export()
	if err != nil {
		return err
	}
	_, err = createIfNotExists(directory, ConfigFileName, config)
	return err
}

// Init loads the config from the home directory, creating a default config
// file on first run.
func Init(home string) (*Config, error) {
	directory := os.ExpandEnv(home)

	err := os.MkdirAll(directory, os.ModePerm)
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(ConfigName)
	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(directory)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err := createFiles(directory)
			if err != nil {
				return nil, err
			}
			if err := viper.ReadInConfig(); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	config := DefaultConfig()

	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	config.DataDirectory = os.ExpandEnv(config.DataDirectory)

	// setup logger to use log file
	if config.LogFile != "" {
		path := os.ExpandEnv(config.LogFile)
		_, err := createIfNotExists(filepath.Dir(path), filepath.Base(path), []byte{})
		if err != nil {
			return nil, errors.Join(errors.New("could not create log file"), err)
		}
	}

	log.Debug().Str("data_directory", config.DataDirectory).Msg("config loaded")

	return config, config.Validate()
}
