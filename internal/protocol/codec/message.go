package codec

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"google.golang.org/protobuf/encoding/protowire"

	"treegroup/internal/domain"
	"treegroup/internal/protocol/keyschedule"
	"treegroup/internal/util/memzero"
)

const (
	fieldGroupID protowire.Number = 1 + iota
	fieldEpoch
	fieldSender
	fieldNonce
	fieldCiphertext
)

// MaxMessageSize bounds an encoded application message.
const MaxMessageSize = 1 << 20

// ErrMalformed is returned for messages that do not parse. It matches
// domain.ErrAuthentication.
var ErrMalformed = fmt.Errorf("%w: malformed message", domain.ErrAuthentication)

// EpochContext is what a codec needs to know about one epoch of a group.
type EpochContext struct {
	GroupID domain.GroupID
	Epoch   domain.Epoch
	Secret  []byte
}

// Header is the cleartext part of an application message.
type Header struct {
	GroupID domain.GroupID
	Epoch   domain.Epoch
	Sender  domain.LeafIndex
	Nonce   []byte
}

// AAD is the canonical encoding of h, authenticated by the AEAD.
func (h Header) AAD() []byte {
	b := protowire.AppendTag(nil, fieldGroupID, protowire.BytesType)
	b = protowire.AppendBytes(b, h.GroupID.Bytes())
	b = protowire.AppendTag(b, fieldEpoch, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Epoch))
	b = protowire.AppendTag(b, fieldSender, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Sender))
	b = protowire.AppendTag(b, fieldNonce, protowire.BytesType)
	b = protowire.AppendBytes(b, h.Nonce)
	return b
}

// Seal encrypts plaintext from sender under ec.
func Seal(r io.Reader, ec EpochContext, sender domain.LeafIndex, plaintext []byte) ([]byte, error) {
	key, err := keyschedule.DeriveMessageKey(ec.Secret, sender)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	h := Header{GroupID: ec.GroupID, Epoch: ec.Epoch, Sender: sender, Nonce: make([]byte, aead.NonceSize())}
	if _, err := io.ReadFull(r, h.Nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	out := h.AAD()
	ct := aead.Seal(nil, h.Nonce, plaintext, out)
	out = protowire.AppendTag(out, fieldCiphertext, protowire.BytesType)
	return protowire.AppendBytes(out, ct), nil
}

// Open authenticates and decrypts data under ec. isMember reports whether a
// leaf is occupied in ec's epoch.
//
// Errors: ErrMalformed and domain.ErrAuthentication for anything that does
// not verify, *domain.StaleEpochError when the message names another epoch.
func Open(ec EpochContext, isMember func(domain.LeafIndex) bool, data []byte) (domain.DecryptedMessage, error) {
	h, ct, err := Parse(data)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	if h.GroupID != ec.GroupID {
		return domain.DecryptedMessage{}, fmt.Errorf("%w: message for another group", domain.ErrAuthentication)
	}
	if h.Epoch != ec.Epoch {
		return domain.DecryptedMessage{}, &domain.StaleEpochError{Got: h.Epoch, Want: ec.Epoch}
	}
	if !isMember(h.Sender) {
		return domain.DecryptedMessage{}, fmt.Errorf("%w: unknown sender %d", domain.ErrAuthentication, h.Sender)
	}

	key, err := keyschedule.DeriveMessageKey(ec.Secret, h.Sender)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	pt, err := aead.Open(nil, h.Nonce, ct, h.AAD())
	if err != nil {
		return domain.DecryptedMessage{}, fmt.Errorf("%w: bad tag", domain.ErrAuthentication)
	}
	return domain.DecryptedMessage{GroupID: h.GroupID, Epoch: h.Epoch, Sender: h.Sender, Plaintext: pt}, nil
}

// Parse splits data into its header and sealed payload without verifying
// anything. Fields must appear once each, in order.
func Parse(data []byte) (Header, []byte, error) {
	if len(data) > MaxMessageSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	var (
		h  Header
		ct []byte
	)
	b := data
	for want := fieldGroupID; want <= fieldCiphertext; want++ {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		if num != want {
			return Header{}, nil, fmt.Errorf("%w: field %d, want %d", ErrMalformed, num, want)
		}
		b = b[n:]
		switch want {
		case fieldGroupID, fieldNonce, fieldCiphertext:
			if typ != protowire.BytesType {
				return Header{}, nil, fmt.Errorf("%w: field %d type", ErrMalformed, num)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			switch want {
			case fieldGroupID:
				h.GroupID = domain.GroupID(v)
			case fieldNonce:
				h.Nonce = v
			default:
				ct = v
			}
		default:
			if typ != protowire.VarintType {
				return Header{}, nil, fmt.Errorf("%w: field %d type", ErrMalformed, num)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			if want == fieldEpoch {
				h.Epoch = domain.Epoch(v)
			} else {
				if v > uint64(^uint32(0)) {
					return Header{}, nil, fmt.Errorf("%w: sender out of range", ErrMalformed)
				}
				h.Sender = domain.LeafIndex(v)
			}
		}
	}
	if len(b) != 0 {
		return Header{}, nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(b))
	}
	if len(h.GroupID) == 0 || len(h.Nonce) != chacha20poly1305.NonceSizeX || len(ct) < chacha20poly1305.Overhead {
		return Header{}, nil, ErrMalformed
	}
	return h, ct, nil
}

// IsMalformed reports whether err came from parsing rather than verification.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformed) }
