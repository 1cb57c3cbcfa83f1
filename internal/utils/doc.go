// Package utils exposes the configuration loader, logger factory, and command
// context helpers shared by the CLI commands.
package utils
