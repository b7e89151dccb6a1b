// Package crypto exposes the primitives used by treegroup.
//
// Contents
//
//   - HPKE (DHKEM-X25519, HKDF-SHA256, ChaCha20-Poly1305) key derivation,
//     single-shot sealing and opening (DeriveKeyPair, Seal, Open)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519) and a Signer over an Identity
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Private keys are returned as fixed-size array types defined in
// internal/domain. Callers own them and should Wipe them when done.
package crypto
