// Package cmd implements the CLI commands for a BotVault server.
package cmd

import (
	"github.com/botvault-sys/botvault-go/cli"
)

// RootCmd represents the base "botvault" command when called without any subcommands.
var RootCmd = cli.NewRootCommand("botvault",
	"BotVault bot review and secure custody server",
	`
 _______  _______  _______  __   __  _______  __   __  ___      _______
|  _    ||       ||       ||  | |  ||   _   ||  | |  ||   |    |       |
| |_|   ||   _   ||_     _||  |_|  ||  |_|  ||  | |  ||   |    |_     _|
|       ||  | |  |  |   |  |       ||       ||  |_|  ||   |      |   |
|  _   | |  |_|  |  |   |  |       ||       ||       ||   |___   |   |
| |_|   ||       |  |   |   |     | |   _   ||       ||       |  |   |
|_______||_______|  |___|    |___|  |__| |__||_______||_______|  |___|
`)
