// Package commands defines the treegroup CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create the engine's signing identity
//   - fingerprint  Print the identity fingerprint
//   - demo         Run a create/add/message/remove walkthrough against a fresh group
//   - groups       List groups with recorded epochs
//   - history      Print the recorded epochs of one group
//
// # Implementation
//
// The root command resolves configuration from flags and the environment and
// builds the app (identity service, epoch log, logger) before any subcommand
// runs. Group state lives in memory for the lifetime of one command; only the
// public epoch records outlive it.
package commands
