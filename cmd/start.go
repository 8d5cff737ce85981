package cmd

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Arctic1879/file-vault/cmd/types"
	"github.com/Arctic1879/file-vault/core"
)

func StartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Starts the vault",
		Run: func(cmd *cobra.Command, args []string) {
			home, err := cmd.Flags().GetString(types.FlagHome)
			if err != nil {
				panic(err)
			}

			logLevel, err := cmd.Flags().GetString(types.FlagLogLevel)
			if err != nil {
				panic(err)
			}

			if logLevel == "info" {
				log.Logger = log.Level(zerolog.InfoLevel)
			} else if logLevel == "debug" {
				log.Logger = log.Level(zerolog.DebugLevel)
			} else if logLevel == "error" {
				log.Logger = log.Level(zerolog.ErrorLevel)
			}

			app, err := core.NewApp(home)
			if err != nil {
				panic(err)
			}

			err = app.Start()
			if err != nil {
				panic(err)
			}
		},
	}
}
