package group_test

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/member"
	groupsvc "treegroup/internal/services/group"
	"treegroup/internal/storage/sqlite"
	"treegroup/internal/store"
)

type flakyRecorder struct {
	mu   sync.Mutex
	fail error
	recs []domain.EpochRecord
}

func (r *flakyRecorder) RecordEpoch(_ context.Context, rec domain.EpochRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.recs = append(r.recs, rec)
	return nil
}

func newService(t *testing.T, rec domain.EpochRecorder) *groupsvc.Service {
	t.Helper()
	gs, err := store.NewGroupStore(16, nil)
	require.NoError(t, err)
	signer, err := crypto.NewEphemeralSigner()
	require.NoError(t, err)
	svc, err := groupsvc.New(groupsvc.Config{
		Store:    gs,
		Signer:   signer,
		Recorder: rec,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func keyPackage(t *testing.T, name string) domain.KeyPackage {
	t.Helper()
	s, err := crypto.NewEphemeralSigner()
	require.NoError(t, err)
	kp, _, err := member.NewKeyPackage(rand.Reader, s, []byte(name))
	require.NoError(t, err)
	return kp
}

func TestNewRequiresStoreAndSigner(t *testing.T) {
	_, err := groupsvc.New(groupsvc.Config{})
	assert.Error(t, err)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	info, err := svc.CreateGroup(ctx)
	require.NoError(t, err)
	assert.Len(t, info.GroupID, groupsvc.GroupIDSize)
	assert.Equal(t, domain.Epoch(1), info.Epoch)
	assert.Zero(t, info.MemberCount)

	_, err = svc.CreateGroupWithID(ctx, info.GroupID)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.GroupInfo(domain.GroupID("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.ProposeAdd(domain.GroupID("missing"), keyPackage(t, "a"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProposalValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	info, err := svc.CreateGroupWithID(ctx, "g")
	require.NoError(t, err)

	kp := keyPackage(t, "alice")
	p, err := svc.ProposeAdd(info.GroupID, kp)
	require.NoError(t, err)
	_, err = svc.Commit(ctx, info.GroupID, p)
	require.NoError(t, err)

	_, err = svc.ProposeAdd(info.GroupID, keyPackage(t, "alice"))
	assert.ErrorIs(t, err, domain.ErrInvalidProposal)

	forged := keyPackage(t, "bob")
	forged.InitKey[0] ^= 1
	_, err = svc.ProposeAdd(info.GroupID, forged)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = svc.ProposeRemove(info.GroupID, 7)
	assert.ErrorIs(t, err, domain.ErrNotMember)
	_, err = svc.ProposeUpdate(info.GroupID, 0, []byte("short"))
	assert.ErrorIs(t, err, domain.ErrInvalidProposal)
	_, err = svc.ProposeUpdate(info.GroupID, 3, make([]byte, 32))
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestCommitRecordsEveryEpoch(t *testing.T) {
	ctx := context.Background()
	rec := &flakyRecorder{}
	svc := newService(t, rec)
	info, err := svc.CreateGroupWithID(ctx, "g")
	require.NoError(t, err)

	for _, name := range []string{"a", "b"} {
		p, err := svc.ProposeAdd(info.GroupID, keyPackage(t, name))
		require.NoError(t, err)
		_, err = svc.Commit(ctx, info.GroupID, p)
		require.NoError(t, err)
	}

	require.Len(t, rec.recs, 3)
	for i, r := range rec.recs {
		assert.Equal(t, domain.Epoch(i+1), r.Epoch)
		assert.Equal(t, i, r.MemberCount)
	}
	assert.Equal(t, domain.ProposalKind(0), rec.recs[0].Change)
	assert.Equal(t, domain.ProposalAdd, rec.recs[2].Change)
}

func TestRecorderFailureAbortsCommit(t *testing.T) {
	ctx := context.Background()
	rec := &flakyRecorder{}
	svc := newService(t, rec)
	info, err := svc.CreateGroupWithID(ctx, "g")
	require.NoError(t, err)

	rec.fail = errors.New("disk full")
	p, err := svc.ProposeAdd(info.GroupID, keyPackage(t, "alice"))
	require.NoError(t, err)
	_, err = svc.Commit(ctx, info.GroupID, p)
	assert.ErrorIs(t, err, rec.fail)

	after, err := svc.GroupInfo(info.GroupID)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(1), after.Epoch)
	assert.Zero(t, after.MemberCount)

	// The same proposal is still current and commits once the recorder recovers.
	rec.fail = nil
	res, err := svc.Commit(ctx, info.GroupID, p)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(2), res.Info.Epoch)
}

func TestRecorderFailureUndoesCreate(t *testing.T) {
	rec := &flakyRecorder{fail: errors.New("offline")}
	svc := newService(t, rec)
	_, err := svc.CreateGroupWithID(context.Background(), "g")
	require.Error(t, err)
	_, err = svc.GroupInfo("g")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemovingLastMemberDestroysGroup(t *testing.T) {
	ctx := context.Background()
	log, err := sqlite.Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer log.Close()
	svc := newService(t, log)

	info, err := svc.CreateGroupWithID(ctx, "g")
	require.NoError(t, err)
	p, err := svc.ProposeAdd(info.GroupID, keyPackage(t, "alice"))
	require.NoError(t, err)
	_, err = svc.Commit(ctx, info.GroupID, p)
	require.NoError(t, err)

	p, err = svc.ProposeRemove(info.GroupID, 0)
	require.NoError(t, err)
	res, err := svc.Commit(ctx, info.GroupID, p)
	require.NoError(t, err)
	assert.True(t, res.Destroyed)
	assert.Equal(t, domain.Epoch(3), res.Info.Epoch)

	_, err = svc.GroupInfo(info.GroupID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hist, err := log.History(ctx, info.GroupID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, domain.ProposalRemove, hist[2].Change)
	assert.Zero(t, hist[2].MemberCount)
}
