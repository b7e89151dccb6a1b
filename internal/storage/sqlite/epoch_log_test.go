package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegroup/internal/domain"
	"treegroup/internal/storage/sqlite"
)

func openLog(t *testing.T) *sqlite.EpochLog {
	t.Helper()
	l, err := sqlite.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func record(id string, epoch domain.Epoch, members int, change domain.ProposalKind) domain.EpochRecord {
	return domain.EpochRecord{
		GroupID:     domain.GroupID(id),
		Epoch:       epoch,
		TreeHash:    []byte{byte(epoch), 0xee},
		MemberCount: members,
		Change:      change,
		CommittedAt: time.Date(2026, 1, 2, 3, 4, 5, int(epoch), time.UTC),
	}
}

func TestEpochLog_OpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := sqlite.Open(filepath.Join(dir, "data"), nil)
	require.NoError(t, err)
	_, err = os.Stat(l.DBPath())
	assert.NoError(t, err, "database file should exist")
	require.NoError(t, l.Close())

	again, err := sqlite.Open(filepath.Join(dir, "data"), nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestEpochLog_RecordAndHistory(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	require.NoError(t, l.RecordEpoch(ctx, record("g1", 1, 0, 0)))
	require.NoError(t, l.RecordEpoch(ctx, record("g1", 2, 1, domain.ProposalAdd)))
	require.NoError(t, l.RecordEpoch(ctx, record("g2", 1, 0, 0)))

	err := l.RecordEpoch(ctx, record("g1", 2, 1, domain.ProposalAdd))
	assert.ErrorIs(t, err, sqlite.ErrEpochExists)

	latest, err := l.MaxEpoch(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(2), latest)

	hist, err := l.History(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, record("g1", 1, 0, 0), hist[0])
	assert.Equal(t, record("g1", 2, 1, domain.ProposalAdd), hist[1])

	rec, err := l.Epoch(ctx, "g1", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalAdd, rec.Change)

	groups, err := l.Groups(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.GroupID{"g1", "g2"}, groups)
}

func TestEpochLog_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	_, err := l.MaxEpoch(ctx, "nope")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
	_, err = l.Epoch(ctx, "nope", 1)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	require.NoError(t, l.RecordEpoch(ctx, record("g1", 1, 0, 0)))
	require.NoError(t, l.DeleteGroup(ctx, "g1"))
	hist, err := l.History(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, hist)
}
