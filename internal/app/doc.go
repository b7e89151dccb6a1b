// Package app wires application dependencies for the CLI.
//
// It builds the identity service and the epoch log from Config, and on
// request the in-memory group engine (store, group and message services)
// signed by a chosen identity.
package app
