package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cmdConfig "github.com/Arctic1879/file-vault/cmd/config"
	"github.com/Arctic1879/file-vault/cmd/types"
)

func RootCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "vault",
		Short: "File Vault is an encrypted object store with a hierarchical namespace.",
	}

	r.AddCommand(StartCmd(), InitCmd(), VersionCmd(), cmdConfig.ConfigCmd())

	r.PersistentFlags().String(types.FlagHome, types.DefaultHome, "the home directory for the vault")
	r.PersistentFlags().String(types.FlagLogLevel, types.DefaultLogLevel, "log level (info|debug|error)")

	return r
}

func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
