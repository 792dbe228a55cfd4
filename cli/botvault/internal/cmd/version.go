package cmd

import (
	"github.com/botvault-sys/botvault-go/cli"
)

var versionCmd = cli.NewVersionCommand("botvault")

func init() {
	RootCmd.AddCommand(versionCmd)
}
