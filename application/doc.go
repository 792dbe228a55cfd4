// Package application is a library for building BotVault executables.
// It provides the common application-level building blocks: the config
// abstraction and its encodings, the logger, request/response message
// encoding, email notifications and the generic server base that
// listens for and dispatches client requests.
package application
