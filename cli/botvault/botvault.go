// Executable BotVault server. See README for
// usage instructions.
package main

import (
	"github.com/botvault-sys/botvault-go/cli"
	"github.com/botvault-sys/botvault-go/cli/botvault/internal/cmd"
)

func main() {
	cli.ExecuteRoot(cmd.RootCmd)
}
