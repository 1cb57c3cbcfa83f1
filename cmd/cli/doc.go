// Package cli builds the offboard command-line interface. It loads layered
// configuration, exports an optional dotenv file, creates the zap logger, and
// registers the find command.
package cli
