package message

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	"treegroup/internal/domain"
	"treegroup/internal/group"
	"treegroup/internal/protocol/codec"
	"treegroup/internal/store"
)

// Service seals and opens application messages against the current epoch
// of each group held in a GroupStore.
type Service struct {
	groups *store.GroupStore
	rand   io.Reader
	logger *slog.Logger
}

// New returns a message service. A nil reader means crypto/rand and a nil
// logger means slog.Default().
func New(groups *store.GroupStore, r io.Reader, logger *slog.Logger) *Service {
	if r == nil {
		r = rand.Reader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{groups: groups, rand: r, logger: logger}
}

// Encrypt seals plaintext from sender under the current epoch of id.
func (s *Service) Encrypt(id domain.GroupID, sender domain.LeafIndex, plaintext []byte) ([]byte, error) {
	var out []byte
	err := s.groups.View(id, func(st *group.State) error {
		if !st.IsMember(sender) {
			return fmt.Errorf("%w: leaf %d", domain.ErrNotMember, sender)
		}
		var err error
		out, err = codec.Seal(s.rand, st.EpochContext(), sender, plaintext)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decrypt opens data, which must name group id and its current epoch.
func (s *Service) Decrypt(id domain.GroupID, data []byte) (domain.DecryptedMessage, error) {
	var msg domain.DecryptedMessage
	err := s.groups.View(id, func(st *group.State) error {
		var err error
		msg, err = codec.Open(st.EpochContext(), st.IsMember, data)
		return err
	})
	if err != nil {
		s.logger.Debug("message rejected", "group", id.String(), "malformed", codec.IsMalformed(err), "error", err)
		return domain.DecryptedMessage{}, err
	}
	return msg, nil
}

var _ domain.MessageService = (*Service)(nil)
