// Package sqlite provides a SQLite implementation of ports.PersonStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

// Store implements ports.PersonStore using SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewStore opens the SQLite database at cfg.Path.
func NewStore(cfg config.SQLiteConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: every :memory: connection is a separate database, and
	// the services serialize writes anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Store{
		db:     db,
		path:   cfg.Path,
		logger: logger.With(zap.String("backend", config.BackendSQLite)),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Persons of every tree; rowid keeps insertion order
	CREATE TABLE IF NOT EXISTS persons (
		tree_id TEXT NOT NULL,
		id TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		maiden_name TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		birth_place TEXT NOT NULL DEFAULT '',
		death_date TEXT NOT NULL DEFAULT '',
		death_place TEXT NOT NULL DEFAULT '',
		is_living INTEGER NOT NULL DEFAULT 1,
		profile_photo TEXT NOT NULL DEFAULT '',
		photos TEXT NOT NULL DEFAULT '[]',
		bio TEXT NOT NULL DEFAULT '',
		occupation TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP,
		updated_at TIMESTAMP,
		created_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tree_id, id)
	);

	-- Directed relationship edges; spouse pairs are stored once per direction
	CREATE TABLE IF NOT EXISTS edges (
		tree_id TEXT NOT NULL,
		id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		related_person_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subtype TEXT NOT NULL,
		marriage_date TEXT NOT NULL DEFAULT '',
		divorce_date TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		PRIMARY KEY (tree_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_person ON edges(tree_id, person_id);
	CREATE INDEX IF NOT EXISTS idx_edges_related ON edges(tree_id, related_person_id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// LoadAll returns every person and edge of a tree in insertion order.
func (s *Store) LoadAll(ctx context.Context, treeID string) ([]entities.Person, []entities.Edge, error) {
	persons, err := s.loadPersons(ctx, treeID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.loadEdges(ctx, treeID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("tree loaded",
		zap.String("tree_id", treeID),
		zap.Int("persons", len(persons)),
		zap.Int("edges", len(edges)),
	)
	return persons, edges, nil
}

func (s *Store) loadPersons(ctx context.Context, treeID string) ([]entities.Person, error) {
	query := `
		SELECT id, tree_id, first_name, last_name, maiden_name, nickname, gender,
			birth_date, birth_place, death_date, death_place, is_living,
			profile_photo, photos, bio, occupation, created_at, updated_at, created_by
		FROM persons
		WHERE tree_id = ?
		ORDER BY rowid
	`
	rows, err := s.db.QueryContext(ctx, query, treeID)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	persons := make([]entities.Person, 0, 64)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, treeID string) ([]entities.Edge, error) {
	query := `
		SELECT id, tree_id, person_id, related_person_id, kind, subtype,
			marriage_date, divorce_date, position, created_at
		FROM edges
		WHERE tree_id = ?
		ORDER BY position, rowid
	`
	rows, err := s.db.QueryContext(ctx, query, treeID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	edges := make([]entities.Edge, 0, 128)
	for rows.Next() {
		var e entities.Edge
		var kind string
		var createdAt sql.NullTime
		if err := rows.Scan(
			&e.ID,
			&e.TreeID,
			&e.PersonID,
			&e.RelatedPersonID,
			&kind,
			&e.Subtype,
			&e.MarriageDate,
			&e.DivorceDate,
			&e.Position,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Kind = entities.EdgeKind(kind)
		e.CreatedAt = createdAt.Time
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// scanPerson is a helper to scan a person row.
func scanPerson(rows *sql.Rows) (*entities.Person, error) {
	var p entities.Person
	var gender, photos string
	var createdAt, updatedAt sql.NullTime

	err := rows.Scan(
		&p.ID,
		&p.TreeID,
		&p.FirstName,
		&p.LastName,
		&p.MaidenName,
		&p.Nickname,
		&gender,
		&p.BirthDate,
		&p.BirthPlace,
		&p.DeathDate,
		&p.DeathPlace,
		&p.IsLiving,
		&p.ProfilePhoto,
		&photos,
		&p.Bio,
		&p.Occupation,
		&createdAt,
		&updatedAt,
		&p.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning person: %w", err)
	}

	p.Gender = entities.Gender(gender)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	if err := json.Unmarshal([]byte(photos), &p.Photos); err != nil {
		return nil, fmt.Errorf("unmarshaling photos of %s: %w", p.ID, err)
	}
	if p.Photos == nil {
		p.Photos = []entities.Photo{}
	}
	return &p, nil
}

// WritePerson inserts or replaces a person record.
func (s *Store) WritePerson(ctx context.Context, person *entities.Person) error {
	photos := person.Photos
	if photos == nil {
		photos = []entities.Photo{}
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("marshaling photos: %w", err)
	}

	query := `
		INSERT INTO persons (tree_id, id, first_name, last_name, maiden_name, nickname,
			gender, birth_date, birth_place, death_date, death_place, is_living,
			profile_photo, photos, bio, occupation, created_at, updated_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tree_id, id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			maiden_name = excluded.maiden_name,
			nickname = excluded.nickname,
			gender = excluded.gender,
			birth_date = excluded.birth_date,
			birth_place = excluded.birth_place,
			death_date = excluded.death_date,
			death_place = excluded.death_place,
			is_living = excluded.is_living,
			profile_photo = excluded.profile_photo,
			photos = excluded.photos,
			bio = excluded.bio,
			occupation = excluded.occupation,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		person.TreeID,
		person.ID,
		person.FirstName,
		person.LastName,
		person.MaidenName,
		person.Nickname,
		string(person.Gender),
		person.BirthDate,
		person.BirthPlace,
		person.DeathDate,
		person.DeathPlace,
		person.IsLiving,
		person.ProfilePhoto,
		string(data),
		person.Bio,
		person.Occupation,
		person.CreatedAt,
		person.UpdatedAt,
		person.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("saving person: %w", err)
	}
	return nil
}

// WriteEdges inserts or replaces edges by id in a single transaction.
func (s *Store) WriteEdges(ctx context.Context, edges []entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (tree_id, id, person_id, related_person_id, kind, subtype,
			marriage_date, divorce_date, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tree_id, id) DO UPDATE SET
			subtype = excluded.subtype,
			marriage_date = excluded.marriage_date,
			divorce_date = excluded.divorce_date,
			position = excluded.position
	`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx,
			e.TreeID,
			e.ID,
			e.PersonID,
			e.RelatedPersonID,
			string(e.Kind),
			e.Subtype,
			e.MarriageDate,
			e.DivorceDate,
			e.Position,
			e.CreatedAt,
		); err != nil {
			return fmt.Errorf("saving edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing edges: %w", err)
	}
	return nil
}

// DeletePerson removes a person record.
func (s *Store) DeletePerson(ctx context.Context, treeID, personID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE tree_id = ? AND id = ?`, treeID, personID)
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}
	return nil
}

// DeleteEdgesFor removes every edge with personID as either endpoint.
func (s *Store) DeleteEdgesFor(ctx context.Context, treeID, personID string) error {
	query := `DELETE FROM edges WHERE tree_id = ? AND (person_id = ? OR related_person_id = ?)`
	if _, err := s.db.ExecContext(ctx, query, treeID, personID, personID); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	return nil
}

// DeleteTree removes every person and edge of a tree.
func (s *Store) DeleteTree(ctx context.Context, treeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE tree_id = ?`, treeID); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE tree_id = ?`, treeID); err != nil {
		return fmt.Errorf("deleting persons: %w", err)
	}
	return tx.Commit()
}
