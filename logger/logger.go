package logger

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// VaultLogger adapts badger's Logger interface onto zerolog.
type VaultLogger struct{}

func (v *VaultLogger) Errorf(format string, i ...any) {
	if len(i) == 0 {
		log.Error().Msg(format)
		return
	}
	log.Error().Msg(fmt.Sprintf(format, i...))
}

func (v *VaultLogger) Warningf(format string, i ...any) {
	if len(i) == 0 {
		log.Warn().Msg(format)
		return
	}
	log.Warn().Msg(fmt.Sprintf(format, i...))
}

func (v *VaultLogger) Infof(format string, i ...any) {
	if len(i) == 0 {
		log.Info().Msg(format)
		return
	}
	log.Info().Msg(fmt.Sprintf(format, i...))
}

func (v *VaultLogger) Debugf(format string, i ...any) {
	if len(i) == 0 {
		log.Debug().Msg(format)
		return
	}
	log.Debug().Msg(fmt.Sprintf(format, i...))
}
