package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arctic1879/file-vault/cmd/types"
	"github.com/Arctic1879/file-vault/config"
)

func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the home directory and a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := cmd.Flags().GetString(types.FlagHome)
			if err != nil {
				return err
			}

			cfg, err := config.Init(home)
			if err != nil {
				return err
			}

			data, err := cfg.Export()
			if err != nil {
				return err
			}

			fmt.Print(string(data))
			return nil
		},
	}
}
