// Package identity manages creation, encryption and loading of the engine's
// signing identity.
//
// It enforces passphrase policy, generates the Ed25519 key pair that signs
// commits and welcomes, and persists it via the domain.IdentityStore.
package identity
