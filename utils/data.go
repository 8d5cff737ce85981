package utils

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/logger"
)

func OpenBadger(dataDir string) (*badger.DB, error) {
	options := badger.DefaultOptions(dataDir)
	options = options.WithBlockCacheSize(256 << 22).WithMaxLevels(8)
	options.Logger = &logger.VaultLogger{}

	badgerLogLevel := badger.INFO
	switch log.Logger.GetLevel() {
	case zerolog.DebugLevel:
		badgerLogLevel = badger.DEBUG
	case zerolog.InfoLevel:
		badgerLogLevel = badger.INFO
	case zerolog.WarnLevel:
		badgerLogLevel = badger.WARNING
	case zerolog.ErrorLevel:
		badgerLogLevel = badger.ERROR
	}

	options = options.WithLoggingLevel(badgerLogLevel)

	db, err := badger.Open(options)
	if err != nil {
		log.Error().Err(err).Msg("Error opening database")
		return nil, err
	}
	log.Info().Str("data_dir", dataDir).Msg("Opened database")

	return db, nil
}
