// Package nodestore persists the node inventory the core scores against:
// a local SQLite cache of known nodes and named candidate pools, refreshed
// by whatever external registry client the caller wires in (spec §9 — the
// core itself never reaches the network).
package nodestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/icnetwork/decentralization/internal/domain"
)

// migrations are the schema statements, applied in order on Open. Each is a
// single SQL statement since SQLite executes one at a time.
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id            TEXT PRIMARY KEY,
			dfinity_owned INTEGER NOT NULL DEFAULT 0,
			features_json TEXT NOT NULL DEFAULT '{}',
			updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS candidate_pools (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			node_ids_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidate_pools_name ON candidate_pools(name)`,
	}
}

// Store wraps a *sql.DB holding the node-inventory cache.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path and applies
// every migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open nodestore: %w", err)
	}
	s := &Store{db: db}
	for _, stmt := range migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate nodestore: %w", err)
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// UpsertNode inserts or refreshes a node's cached record.
func (s *Store) UpsertNode(n domain.Node) error {
	featuresJSON, err := json.Marshal(n.Features)
	if err != nil {
		return fmt.Errorf("marshal features for %s: %w", n.ID, err)
	}
	dfinityOwned := 0
	if n.DfinityOwned {
		dfinityOwned = 1
	}
	_, err = s.db.Exec(`
		INSERT INTO nodes (id, dfinity_owned, features_json, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			dfinity_owned = excluded.dfinity_owned,
			features_json = excluded.features_json,
			updated_at    = datetime('now')
	`, string(n.ID), dfinityOwned, string(featuresJSON))
	return err
}

// UpsertNodes upserts a whole inventory snapshot in one transaction.
func (s *Store) UpsertNodes(nodes []domain.Node) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		featuresJSON, err := json.Marshal(n.Features)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal features for %s: %w", n.ID, err)
		}
		dfinityOwned := 0
		if n.DfinityOwned {
			dfinityOwned = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO nodes (id, dfinity_owned, features_json, updated_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				dfinity_owned = excluded.dfinity_owned,
				features_json = excluded.features_json,
				updated_at    = datetime('now')
		`, string(n.ID), dfinityOwned, string(featuresJSON)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetNode retrieves a single cached node; ok is false if it isn't known.
func (s *Store) GetNode(id domain.NodeID) (node domain.Node, ok bool, err error) {
	var dfinityOwned int
	var featuresJSON string
	err = s.db.QueryRow(`
		SELECT dfinity_owned, features_json FROM nodes WHERE id = ?
	`, string(id)).Scan(&dfinityOwned, &featuresJSON)
	if err == sql.ErrNoRows {
		return domain.Node{}, false, nil
	}
	if err != nil {
		return domain.Node{}, false, err
	}
	var features domain.NodeFeatures
	if err := json.Unmarshal([]byte(featuresJSON), &features); err != nil {
		return domain.Node{}, false, fmt.Errorf("unmarshal features for %s: %w", id, err)
	}
	return domain.Node{ID: id, DfinityOwned: dfinityOwned == 1, Features: features}, true, nil
}

// ListNodes returns every cached node, ordered by id.
func (s *Store) ListNodes() ([]domain.Node, error) {
	rows, err := s.db.Query(`SELECT id, dfinity_owned, features_json FROM nodes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Node
	for rows.Next() {
		var id, featuresJSON string
		var dfinityOwned int
		if err := rows.Scan(&id, &dfinityOwned, &featuresJSON); err != nil {
			return nil, err
		}
		var features domain.NodeFeatures
		if err := json.Unmarshal([]byte(featuresJSON), &features); err != nil {
			return nil, fmt.Errorf("unmarshal features for %s: %w", id, err)
		}
		out = append(out, domain.Node{ID: domain.NodeID(id), DfinityOwned: dfinityOwned == 1, Features: features})
	}
	return out, rows.Err()
}

// DeleteNode removes a node from the cache.
func (s *Store) DeleteNode(id domain.NodeID) error {
	_, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, string(id))
	return err
}

// SaveCandidatePool names and persists a pool of node ids (e.g. a registry
// query result) so CLI/API callers can reference it by name across
// invocations rather than re-listing every id on the command line.
func (s *Store) SaveCandidatePool(name string, ids []domain.NodeID) (string, error) {
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO candidate_pools (id, name, node_ids_json, created_at)
		VALUES (?, ?, ?, datetime('now'))
	`, id, name, string(idsJSON))
	if err != nil {
		return "", err
	}
	return id, nil
}

// CandidatePool resolves a named pool (the most recently saved one with
// that name) to its member node ids, then hydrates those ids against the
// node cache.
func (s *Store) CandidatePool(name string) ([]domain.Node, error) {
	var idsJSON string
	err := s.db.QueryRow(`
		SELECT node_ids_json FROM candidate_pools
		WHERE name = ? ORDER BY created_at DESC LIMIT 1
	`, name).Scan(&idsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("candidate pool %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	var ids []domain.NodeID
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal pool %q: %w", name, err)
	}
	out := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		n, ok, err := s.GetNode(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// PruneOlderThan deletes cached node rows not refreshed since cutoff — a
// stale node presumably left the network and shouldn't keep influencing
// candidate pools built from ListNodes.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM nodes WHERE updated_at < ?`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
