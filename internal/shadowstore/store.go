package shadowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// Store implements shadow.Store against the documents/sync_information
// tables.
type Store struct {
	db *sql.DB
}

// New wraps an already-migrated *sql.DB (see Open) as a shadow.Store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ shadow.Store = (*Store)(nil)

func (s *Store) GetShadowThing(ctx context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state, metadata, version, timestamp FROM documents WHERE thing_name = ? AND shadow_name = ?`,
		key.ThingName, key.ShadowName)

	doc := &shadow.ShadowDocument{ThingName: key.ThingName, ShadowName: key.ShadowName}

	if err := row.Scan(&doc.State, &doc.Metadata, &doc.Version, &doc.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // absence is a valid, common outcome
		}

		return nil, fmt.Errorf("shadowstore: get document %s: %w", key, err)
	}

	return doc, nil
}

func (s *Store) UpdateShadowThing(ctx context.Context, key shadow.ShadowKey, payload []byte, version int64) (*shadow.ShadowDocument, error) {
	now := nowUnix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (thing_name, shadow_name, state, metadata, version, timestamp)
		 VALUES (?, ?, ?, NULL, ?, ?)
		 ON CONFLICT (thing_name, shadow_name) DO UPDATE SET
		   state = excluded.state, version = excluded.version, timestamp = excluded.timestamp`,
		key.ThingName, key.ShadowName, payload, version, now)
	if err != nil {
		return nil, fmt.Errorf("shadowstore: update document %s: %w", key, err)
	}

	return &shadow.ShadowDocument{
		ThingName:  key.ThingName,
		ShadowName: key.ShadowName,
		State:      payload,
		Version:    version,
		Timestamp:  now,
	}, nil
}

func (s *Store) DeleteShadowThing(ctx context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	existing, err := s.GetShadowThing(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("shadowstore: begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE thing_name = ? AND shadow_name = ?`,
		key.ThingName, key.ShadowName); err != nil {
		return nil, fmt.Errorf("shadowstore: delete document %s: %w", key, err)
	}

	nextVersion := existing.Version + 1

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO deleted_versions (thing_name, shadow_name, local_version) VALUES (?, ?, ?)
		 ON CONFLICT (thing_name, shadow_name) DO UPDATE SET local_version = excluded.local_version`,
		key.ThingName, key.ShadowName, nextVersion); err != nil {
		return nil, fmt.Errorf("shadowstore: record deleted version %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("shadowstore: commit delete tx: %w", err)
	}

	return existing, nil
}

func (s *Store) GetDeletedShadowVersion(ctx context.Context, key shadow.ShadowKey) (int64, bool, error) {
	var version int64

	row := s.db.QueryRowContext(ctx,
		`SELECT local_version FROM deleted_versions WHERE thing_name = ? AND shadow_name = ?`,
		key.ThingName, key.ShadowName)

	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("shadowstore: get deleted version %s: %w", key, err)
	}

	return version, true, nil
}

func (s *Store) GetShadowSyncInformation(ctx context.Context, key shadow.ShadowKey) (*shadow.SyncInformation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_synced_document, cloud_version, local_version, cloud_update_time, last_sync_time, cloud_deleted
		 FROM sync_information WHERE thing_name = ? AND shadow_name = ?`,
		key.ThingName, key.ShadowName)

	info := &shadow.SyncInformation{ThingName: key.ThingName, ShadowName: key.ShadowName}

	var cloudDeleted int

	if err := row.Scan(&info.LastSyncedDocument, &info.CloudVersion, &info.LocalVersion,
		&info.CloudUpdateTime, &info.LastSyncTime, &cloudDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // "unknown shadow" is expressed by a nil info
		}

		return nil, fmt.Errorf("shadowstore: get sync info %s: %w", key, err)
	}

	info.CloudDeleted = cloudDeleted != 0

	return info, nil
}

func (s *Store) UpdateSyncInformation(ctx context.Context, info *shadow.SyncInformation) error {
	cloudDeleted := 0
	if info.CloudDeleted {
		cloudDeleted = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_information
		   (thing_name, shadow_name, last_synced_document, cloud_version, local_version, cloud_update_time, last_sync_time, cloud_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (thing_name, shadow_name) DO UPDATE SET
		   last_synced_document = excluded.last_synced_document,
		   cloud_version = excluded.cloud_version,
		   local_version = excluded.local_version,
		   cloud_update_time = excluded.cloud_update_time,
		   last_sync_time = excluded.last_sync_time,
		   cloud_deleted = excluded.cloud_deleted`,
		info.ThingName, info.ShadowName, info.LastSyncedDocument, info.CloudVersion, info.LocalVersion,
		info.CloudUpdateTime, info.LastSyncTime, cloudDeleted)
	if err != nil {
		return fmt.Errorf("shadowstore: update sync info %s: %w", info.Key(), err)
	}

	return nil
}

func (s *Store) InsertSyncInfoIfNotExists(ctx context.Context, info *shadow.SyncInformation) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_information (thing_name, shadow_name, cloud_version, local_version, cloud_update_time, last_sync_time, cloud_deleted)
		 VALUES (?, ?, 0, 0, 0, 0, 0)
		 ON CONFLICT (thing_name, shadow_name) DO NOTHING`,
		info.ThingName, info.ShadowName)
	if err != nil {
		return false, fmt.Errorf("shadowstore: insert sync info %s: %w", info.Key(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("shadowstore: insert sync info rows affected %s: %w", info.Key(), err)
	}

	return affected > 0, nil
}

func (s *Store) DeleteSyncInformation(ctx context.Context, key shadow.ShadowKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_information WHERE thing_name = ? AND shadow_name = ?`,
		key.ThingName, key.ShadowName)
	if err != nil {
		return fmt.Errorf("shadowstore: delete sync info %s: %w", key, err)
	}

	return nil
}

func (s *Store) ListSyncedShadows(ctx context.Context) ([]shadow.ShadowKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thing_name, shadow_name FROM sync_information`)
	if err != nil {
		return nil, fmt.Errorf("shadowstore: list synced shadows: %w", err)
	}
	defer rows.Close()

	var keys []shadow.ShadowKey

	for rows.Next() {
		var k shadow.ShadowKey
		if err := rows.Scan(&k.ThingName, &k.ShadowName); err != nil {
			return nil, fmt.Errorf("shadowstore: scan synced shadow: %w", err)
		}

		keys = append(keys, k)
	}

	return keys, rows.Err()
}

func (s *Store) ListNamedShadowsForThing(ctx context.Context, thingName string, offset, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shadow_name FROM sync_information WHERE thing_name = ? AND shadow_name != ''
		 ORDER BY shadow_name LIMIT ? OFFSET ?`,
		thingName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("shadowstore: list named shadows for %s: %w", thingName, err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("shadowstore: scan named shadow: %w", err)
		}

		names = append(names, name)
	}

	return names, rows.Err()
}
