// Package codec frames and protects application messages and encodes the
// group handshake messages (commits, welcomes, key packages).
//
// An application message is a protobuf wire-format record:
//
//	1: group id   (bytes)
//	2: epoch      (varint)
//	3: sender     (varint, leaf index)
//	4: nonce      (bytes, 24)
//	5: ciphertext (bytes, XChaCha20-Poly1305 sealed payload)
//
// Fields 1 to 4 are authenticated as associated data. The key is the
// sender's message key for the named epoch; Open never tries any other
// epoch's key.
package codec
