// Package message encrypts and decrypts application messages on behalf of
// group members.
//
// Messages are sealed with the sender's key for the group's current epoch.
// A message from any other epoch is rejected as stale rather than retried
// under an older key.
package message
