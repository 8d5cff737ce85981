package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arctic1879/file-vault/config"
)

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vault version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s (%s)\n", config.Version(), config.Commit())
		},
	}
}
