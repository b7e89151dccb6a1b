// Package member is the client side of a group: it publishes key packages,
// joins from a welcome, follows commits and exchanges application messages
// using only its own private keys.
//
// A Member tracks exactly one epoch. Processing a commit derives the next
// epoch secret, checks the committer's confirmation tag and wipes the
// previous secret; a member that falls behind or is removed can no longer
// read new traffic.
//
// Concurrency: a Member is NOT safe for concurrent use.
package member
