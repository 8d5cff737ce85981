package main

import (
	"github.com/Arctic1879/file-vault/cmd"
)

func main() {
	cmd.Execute(cmd.RootCmd())
}
