// Package sqlite persists the public epoch history of every group in a
// SQLite database. It never stores secret material.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"treegroup/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const dbFilename = "epochs.db"

var (
	ErrNotFound    = errors.New("not found")
	ErrEpochExists = errors.New("epoch already recorded")
)

// EpochLog is an append-only record of group epochs.
type EpochLog struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

var (
	_ domain.EpochRecorder = (*EpochLog)(nil)
	_ domain.EpochHistory  = (*EpochLog)(nil)
)

// Open opens or creates the epoch log under basePath.
func Open(basePath string, logger *slog.Logger) (*EpochLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(basePath, dbFilename)
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &EpochLog{db: db, dbPath: dbPath, logger: logger}, nil
}

// Close closes the database.
func (l *EpochLog) Close() error { return l.db.Close() }

// DBPath returns the database file path.
func (l *EpochLog) DBPath() string { return l.dbPath }

// RecordEpoch appends rec. Recording the same group epoch twice fails with
// ErrEpochExists.
func (l *EpochLog) RecordEpoch(ctx context.Context, rec domain.EpochRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM epochs WHERE group_id = ? AND epoch = ?`,
		rec.GroupID.String(), int64(rec.Epoch)).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: group %s epoch %d", ErrEpochExists, rec.GroupID, rec.Epoch)
	}

	committed := rec.CommittedAt
	if committed.IsZero() {
		committed = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO epochs (group_id, epoch, tree_hash, member_count, change, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.GroupID.String(), int64(rec.Epoch), rec.TreeHash, rec.MemberCount,
		int(rec.Change), committed.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// MaxEpoch returns the latest recorded epoch of id.
func (l *EpochLog) MaxEpoch(ctx context.Context, id domain.GroupID) (domain.Epoch, error) {
	var latest sql.NullInt64
	err := l.db.QueryRowContext(ctx,
		`SELECT MAX(epoch) FROM epochs WHERE group_id = ?`, id.String()).Scan(&latest)
	if err != nil {
		return 0, err
	}
	if !latest.Valid {
		return 0, ErrNotFound
	}
	return domain.Epoch(latest.Int64), nil
}

// Epoch returns one record.
func (l *EpochLog) Epoch(ctx context.Context, id domain.GroupID, epoch domain.Epoch) (domain.EpochRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT group_id, epoch, tree_hash, member_count, change, committed_at
		 FROM epochs WHERE group_id = ? AND epoch = ?`,
		id.String(), int64(epoch))
	rec, err := l.scan(row)
	if err == sql.ErrNoRows {
		return domain.EpochRecord{}, ErrNotFound
	}
	return rec, err
}

// History returns every record of id in epoch order.
func (l *EpochLog) History(ctx context.Context, id domain.GroupID) ([]domain.EpochRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT group_id, epoch, tree_hash, member_count, change, committed_at
		 FROM epochs WHERE group_id = ? ORDER BY epoch`,
		id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EpochRecord
	for rows.Next() {
		rec, err := l.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Groups lists every group with at least one record.
func (l *EpochLog) Groups(ctx context.Context) ([]domain.GroupID, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT group_id FROM epochs ORDER BY group_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupID
	for rows.Next() {
		var hexID string
		if err := rows.Scan(&hexID); err != nil {
			return nil, err
		}
		id, err := domain.ParseGroupID(hexID)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteGroup removes every record of id.
func (l *EpochLog) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM epochs WHERE group_id = ?`, id.String())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func (l *EpochLog) scan(row scanner) (domain.EpochRecord, error) {
	var (
		rec       domain.EpochRecord
		hexID     string
		epoch     int64
		change    int
		committed string
	)
	if err := row.Scan(&hexID, &epoch, &rec.TreeHash, &rec.MemberCount, &change, &committed); err != nil {
		return domain.EpochRecord{}, err
	}
	id, err := domain.ParseGroupID(hexID)
	if err != nil {
		return domain.EpochRecord{}, err
	}
	rec.GroupID = id
	rec.Epoch = domain.Epoch(epoch)
	rec.Change = domain.ProposalKind(change)
	rec.CommittedAt, err = time.Parse(time.RFC3339Nano, committed)
	if err != nil {
		l.logger.Warn("failed to parse committed_at timestamp", "group", hexID, "value", committed, "error", err)
	}
	return rec, nil
}
