// Package internal holds values shared by the BotVault executables.
package internal

// Version is the current release of the BotVault tools.
const Version = "0.1.0"
