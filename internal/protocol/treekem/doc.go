// Package treekem implements the ratchet tree: a left-balanced binary tree
// stored as an array whose leaves are members and whose internal nodes carry
// HPKE public keys shared by the members below them.
//
// Leaves sit at even node indices. The leaf count only grows; removing a
// member blanks its leaf and direct path, and later adds reuse the leftmost
// blank leaf.
//
// A committer re-keys a leaf's direct path with GeneratePath. Every other
// member recovers the new secrets it is entitled to with ApplyPath, using
// only the private keys in its own Keyring.
//
// Concurrency: Tree and Keyring are NOT safe for concurrent use.
package treekem
