// Package keyschedule derives epoch secrets, per-sender message keys and
// confirmation tags from the previous epoch secret and the transcript of the
// change that produced the new epoch.
//
// Every function is deterministic and performs no I/O. All secrets are
// SecretSize bytes; wrong-length inputs fail with domain.ErrDerivation.
//
// Derivation for epoch n+1 from epoch n:
//
//	init   = DeriveSecret(epoch_n, "init")
//	joiner = ExpandWithLabel(Extract(init, commit_secret), "joiner", ctx)
//	epoch  = ExpandWithLabel(Extract(joiner, 0), "epoch", ctx)
//
// where ctx is the encoded transcript without the commit secret. Knowing
// epoch n+1 reveals nothing about epoch n.
package keyschedule
