package group

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"treegroup/internal/domain"
	"treegroup/internal/group"
	"treegroup/internal/protocol/keyschedule"
	"treegroup/internal/store"
	"treegroup/internal/util/memzero"
)

// GroupIDSize is the length of generated group identifiers.
const GroupIDSize = 16

const defaultRecordTimeout = 5 * time.Second

// Config wires a Service.
type Config struct {
	Store  *store.GroupStore
	Signer domain.Signer
	// Recorder receives the public record of every epoch. Optional.
	Recorder      domain.EpochRecorder
	RecordTimeout time.Duration
	Rand          io.Reader
	Logger        *slog.Logger
	Now           func() time.Time
}

// Service creates groups and commits proposals.
type Service struct {
	store         *store.GroupStore
	signer        domain.Signer
	recorder      domain.EpochRecorder
	recordTimeout time.Duration
	rand          io.Reader
	logger        *slog.Logger
	now           func() time.Time
}

// New returns a group service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("group service: store is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("group service: signer is required")
	}
	s := &Service{
		store:         cfg.Store,
		signer:        cfg.Signer,
		recorder:      cfg.Recorder,
		recordTimeout: cfg.RecordTimeout,
		rand:          cfg.Rand,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	if s.recordTimeout <= 0 {
		s.recordTimeout = defaultRecordTimeout
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// SignerKey returns the public key members verify commits against.
func (s *Service) SignerKey() domain.Ed25519Public { return s.signer.PublicKey() }

// CreateGroup creates a group with a random identifier.
func (s *Service) CreateGroup(ctx context.Context) (domain.GroupInfo, error) {
	raw := make([]byte, GroupIDSize)
	if _, err := io.ReadFull(s.rand, raw); err != nil {
		return domain.GroupInfo{}, fmt.Errorf("group id: %w", err)
	}
	return s.CreateGroupWithID(ctx, domain.GroupID(raw))
}

// CreateGroupWithID creates an empty group at the initial epoch.
func (s *Service) CreateGroupWithID(ctx context.Context, id domain.GroupID) (domain.GroupInfo, error) {
	st, err := group.New(s.rand, id)
	if err != nil {
		return domain.GroupInfo{}, err
	}
	info := st.Info()
	if err := s.store.Create(st); err != nil {
		st.Destroy()
		return domain.GroupInfo{}, err
	}
	if err := s.record(ctx, st); err != nil {
		_ = s.store.Delete(id)
		return domain.GroupInfo{}, err
	}
	s.logger.Info("group created", "group", id.String(), "epoch", info.Epoch)
	return info, nil
}

// ProposeAdd validates kp against the current epoch of id.
func (s *Service) ProposeAdd(id domain.GroupID, kp domain.KeyPackage) (domain.Proposal, error) {
	if err := group.VerifyKeyPackage(kp); err != nil {
		return domain.Proposal{}, err
	}
	var p domain.Proposal
	err := s.store.View(id, func(st *group.State) error {
		if _, dup := st.FindMember(kp.Credential.Identity); dup {
			return fmt.Errorf("%w: identity already a member", domain.ErrInvalidProposal)
		}
		p = domain.Proposal{Kind: domain.ProposalAdd, GroupID: id, Epoch: st.Epoch(), KeyPackage: &kp}
		return nil
	})
	return p, err
}

// ProposeRemove validates removing leaf from id.
func (s *Service) ProposeRemove(id domain.GroupID, leaf domain.LeafIndex) (domain.Proposal, error) {
	var p domain.Proposal
	err := s.store.View(id, func(st *group.State) error {
		if !st.IsMember(leaf) {
			return fmt.Errorf("%w: leaf %d", domain.ErrNotMember, leaf)
		}
		p = domain.Proposal{Kind: domain.ProposalRemove, GroupID: id, Epoch: st.Epoch(), Leaf: leaf}
		return nil
	})
	return p, err
}

// ProposeUpdate validates a key update for leaf. seed is the member's fresh
// leaf secret; the proposal keeps its own copy.
func (s *Service) ProposeUpdate(id domain.GroupID, leaf domain.LeafIndex, seed []byte) (domain.Proposal, error) {
	if len(seed) != keyschedule.SecretSize {
		return domain.Proposal{}, fmt.Errorf("%w: update seed is %d bytes", domain.ErrInvalidProposal, len(seed))
	}
	var p domain.Proposal
	err := s.store.View(id, func(st *group.State) error {
		if !st.IsMember(leaf) {
			return fmt.Errorf("%w: leaf %d", domain.ErrNotMember, leaf)
		}
		p = domain.Proposal{
			Kind:    domain.ProposalUpdate,
			GroupID: id,
			Epoch:   st.Epoch(),
			Leaf:    leaf,
			Seed:    bytes.Clone(seed),
		}
		return nil
	})
	return p, err
}

// Commit applies p to group id and advances it by one epoch. An update's
// seed is wiped once the commit lands.
func (s *Service) Commit(ctx context.Context, id domain.GroupID, p domain.Proposal) (domain.CommitResult, error) {
	var res domain.CommitResult
	destroyed, err := s.store.Commit(id, func(cur *group.State) (*group.State, error) {
		next, out, err := cur.Apply(s.rand, s.signer, p)
		if err != nil {
			return nil, err
		}
		if err := s.record(ctx, next); err != nil {
			next.Destroy()
			return nil, err
		}
		res = domain.CommitResult{Info: next.Info(), Commit: out.Commit, Welcome: out.Welcome}
		return next, nil
	})
	if err != nil {
		s.logger.Warn("commit rejected",
			"group", id.String(), "kind", p.Kind.String(), "proposal_epoch", p.Epoch, "error", err)
		return domain.CommitResult{}, err
	}
	res.Destroyed = destroyed
	if p.Kind == domain.ProposalUpdate {
		memzero.Zero(p.Seed)
	}
	s.logger.Info("commit applied",
		"group", id.String(), "epoch", res.Info.Epoch, "kind", p.Kind.String(), "members", res.Info.MemberCount)
	if destroyed {
		s.logger.Info("group destroyed", "group", id.String())
	}
	return res, nil
}

// GroupInfo returns the public summary of id.
func (s *Service) GroupInfo(id domain.GroupID) (domain.GroupInfo, error) {
	var info domain.GroupInfo
	err := s.store.View(id, func(st *group.State) error {
		info = st.Info()
		return nil
	})
	return info, err
}

func (s *Service) record(ctx context.Context, st *group.State) error {
	if s.recorder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()
	rec := domain.EpochRecord{
		GroupID:     st.ID(),
		Epoch:       st.Epoch(),
		TreeHash:    st.TreeHash(),
		MemberCount: st.MemberCount(),
		Change:      st.Change(),
		CommittedAt: s.now().UTC(),
	}
	if err := s.recorder.RecordEpoch(ctx, rec); err != nil {
		return fmt.Errorf("record epoch %d: %w", rec.Epoch, err)
	}
	return nil
}

var _ domain.GroupService = (*Service)(nil)
