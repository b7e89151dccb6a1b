// Package store provides the in-memory group state store and file-based
// persistence for the engine's signing identity.
//
// GroupStore keeps every live group behind its own mutex so operations on
// different groups never contend, while operations on one group are applied
// one at a time. Superseded and evicted states are destroyed, wiping their
// epoch secrets.
//
// IdentityFileStore seals the identity with a passphrase-derived key and
// writes it atomically under the configured home directory.
package store
