// Package supabase implements ports.PersonStore on Supabase (PostgREST).
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
)

const (
	personsTable = "roots_persons"
	edgesTable   = "roots_edges"

	// pageSize stays under the PostgREST default max-rows.
	pageSize = 1000
)

// Schema is the SQL to run once in the Supabase SQL editor. PostgREST cannot
// create tables, so EnsureSchema only verifies that they exist.
const Schema = `
CREATE TABLE IF NOT EXISTS roots_persons (
	seq BIGSERIAL,
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
	is_living BOOLEAN NOT NULL DEFAULT TRUE,
	profile_photo TEXT NOT NULL DEFAULT '',
	photos JSONB NOT NULL DEFAULT '[]',
	bio TEXT NOT NULL DEFAULT '',
	occupation TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ,
	created_by TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tree_id, id)
);

CREATE TABLE IF NOT EXISTS roots_edges (
	seq BIGSERIAL,
	tree_id TEXT NOT NULL,
	id TEXT NOT NULL,
	person_id TEXT NOT NULL,
	related_person_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	subtype TEXT NOT NULL,
	marriage_date TEXT NOT NULL DEFAULT '',
	divorce_date TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ,
	PRIMARY KEY (tree_id, id)
);
`

// Filter narrows a request to one tree, plus optional equality filters and
// a PostgREST or-expression.
type Filter struct {
	TreeID string
	Eq     map[string]string
	Or     string
}

// API is the table access used by the store. Select returns the raw JSON
// array of the rows in [from, to] ordered by seq.
type API interface {
	Select(table string, f Filter, from, to int) ([]byte, error)
	Upsert(table string, rows any, onConflict string) error
	Delete(table string, f Filter) error
}

// personRow is the PostgREST form of a person. seq is assigned by the
// database and never sent, so upserts keep a row's position.
type personRow struct {
	TreeID       string           `json:"tree_id"`
	ID           string           `json:"id"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	MaidenName   string           `json:"maiden_name"`
	Nickname     string           `json:"nickname"`
	Gender       string           `json:"gender"`
	BirthDate    string           `json:"birth_date"`
	BirthPlace   string           `json:"birth_place"`
	DeathDate    string           `json:"death_date"`
	DeathPlace   string           `json:"death_place"`
	IsLiving     bool             `json:"is_living"`
	ProfilePhoto string           `json:"profile_photo"`
	Photos       []entities.Photo `json:"photos"`
	Bio          string           `json:"bio"`
	Occupation   string           `json:"occupation"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CreatedBy    string           `json:"created_by"`
}

// edgeRow is the PostgREST form of an edge.
type edgeRow struct {
	TreeID          string    `json:"tree_id"`
	ID              string    `json:"id"`
	PersonID        string    `json:"person_id"`
	RelatedPersonID string    `json:"related_person_id"`
	Kind            string    `json:"kind"`
	Subtype         string    `json:"subtype"`
	MarriageDate    string    `json:"marriage_date"`
	DivorceDate     string    `json:"divorce_date"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store implements ports.PersonStore using Supabase.
type Store struct {
	api    API
	logger *zap.Logger
}

// NewStore creates a store on the given table API.
func NewStore(api API, logger *zap.Logger) (*Store, error) {
	if api == nil {
		return nil, errors.New("supabase client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		api:    api,
		logger: logger.With(zap.String("backend", config.BackendSupabase)),
	}, nil
}

// EnsureSchema verifies that both tables are reachable.
func (s *Store) EnsureSchema(_ context.Context) error {
	for _, table := range []string{personsTable, edgesTable} {
		if _, err := s.api.Select(table, Filter{}, 0, 0); err != nil {
			return fmt.Errorf("checking table %s (create it with supabase.Schema): %w", table, err)
		}
	}
	return nil
}

// Close is a no-op; requests are stateless HTTP calls.
func (s *Store) Close() error {
	return nil
}

// LoadAll returns every person and edge of a tree in insertion order.
func (s *Store) LoadAll(ctx context.Context, treeID string) ([]entities.Person, []entities.Edge, error) {
	var personRows []personRow
	var edgeRows []edgeRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := selectAll[personRow](gctx, s.api, personsTable, Filter{TreeID: treeID})
		if err != nil {
			return fmt.Errorf("querying persons: %w", err)
		}
		personRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := selectAll[edgeRow](gctx, s.api, edgesTable, Filter{TreeID: treeID})
		if err != nil {
			return fmt.Errorf("querying edges: %w", err)
		}
		edgeRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	persons := make([]entities.Person, 0, len(personRows))
	for _, r := range personRows {
		persons = append(persons, r.toPerson())
	}
	edges := make([]entities.Edge, 0, len(edgeRows))
	for _, r := range edgeRows {
		edges = append(edges, r.toEdge())
	}

	s.logger.Debug("tree loaded",
		zap.String("tree_id", treeID),
		zap.Int("persons", len(persons)),
		zap.Int("edges", len(edges)),
	)
	return persons, edges, nil
}

// selectAll pages through a table in seq order.
func selectAll[T any](ctx context.Context, api API, table string, f Filter) ([]T, error) {
	var all []T
	for from := 0; ; from += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := api.Select(table, f, from, from+pageSize-1)
		if err != nil {
			return nil, err
		}
		var page []T
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", table, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// WritePerson inserts or replaces a person record.
func (s *Store) WritePerson(_ context.Context, person *entities.Person) error {
	if err := s.api.Upsert(personsTable, []personRow{newPersonRow(person)}, "tree_id,id"); err != nil {
		return fmt.Errorf("saving person: %w", err)
	}
	return nil
}

// WriteEdges inserts or replaces edges by id in one request.
func (s *Store) WriteEdges(_ context.Context, edges []entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([]edgeRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, newEdgeRow(e))
	}
	if err := s.api.Upsert(edgesTable, rows, "tree_id,id"); err != nil {
		return fmt.Errorf("saving edges: %w", err)
	}
	return nil
}

// DeletePerson removes a person record.
func (s *Store) DeletePerson(_ context.Context, treeID, personID string) error {
	if err := s.api.Delete(personsTable, Filter{TreeID: treeID, Eq: map[string]string{"id": personID}}); err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}
	return nil
}

// DeleteEdgesFor removes every edge with personID as either endpoint.
func (s *Store) DeleteEdgesFor(_ context.Context, treeID, personID string) error {
	f := Filter{
		TreeID: treeID,
		Or:     fmt.Sprintf("person_id.eq.%s,related_person_id.eq.%s", personID, personID),
	}
	if err := s.api.Delete(edgesTable, f); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	return nil
}

// DeleteTree removes every person and edge of a tree.
func (s *Store) DeleteTree(_ context.Context, treeID string) error {
	if err := s.api.Delete(edgesTable, Filter{TreeID: treeID}); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	if err := s.api.Delete(personsTable, Filter{TreeID: treeID}); err != nil {
		return fmt.Errorf("deleting persons: %w", err)
	}
	s.logger.Info("tree deleted", zap.String("tree_id", treeID))
	return nil
}

func newPersonRow(p *entities.Person) personRow {
	photos := p.Photos
	if photos == nil {
		photos = []entities.Photo{}
	}
	return personRow{
		TreeID:       p.TreeID,
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MaidenName:   p.MaidenName,
		Nickname:     p.Nickname,
		Gender:       string(p.Gender),
		BirthDate:    p.BirthDate,
		BirthPlace:   p.BirthPlace,
		DeathDate:    p.DeathDate,
		DeathPlace:   p.DeathPlace,
		IsLiving:     p.IsLiving,
		ProfilePhoto: p.ProfilePhoto,
		Photos:       photos,
		Bio:          p.Bio,
		Occupation:   p.Occupation,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		CreatedBy:    p.CreatedBy,
	}
}

func (r personRow) toPerson() entities.Person {
	photos := r.Photos
	if photos == nil {
		photos = []entities.Photo{}
	}
	return entities.Person{
		ID:           r.ID,
		TreeID:       r.TreeID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		MaidenName:   r.MaidenName,
		Nickname:     r.Nickname,
		Gender:       entities.Gender(r.Gender),
		BirthDate:    r.BirthDate,
		BirthPlace:   r.BirthPlace,
		DeathDate:    r.DeathDate,
		DeathPlace:   r.DeathPlace,
		IsLiving:     r.IsLiving,
		ProfilePhoto: r.ProfilePhoto,
		Photos:       photos,
		Bio:          r.Bio,
		Occupation:   r.Occupation,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		CreatedBy:    r.CreatedBy,
	}
}

func newEdgeRow(e entities.Edge) edgeRow {
	return edgeRow{
		TreeID:          e.TreeID,
		ID:              e.ID,
		PersonID:        e.PersonID,
		RelatedPersonID: e.RelatedPersonID,
		Kind:            string(e.Kind),
		Subtype:         e.Subtype,
		MarriageDate:    e.MarriageDate,
		DivorceDate:     e.DivorceDate,
		Position:        e.Position,
		CreatedAt:       e.CreatedAt,
	}
}

func (r edgeRow) toEdge() entities.Edge {
	return entities.Edge{
		ID:              r.ID,
		TreeID:          r.TreeID,
		PersonID:        r.PersonID,
		RelatedPersonID: r.RelatedPersonID,
		Kind:            entities.EdgeKind(r.Kind),
		Subtype:         r.Subtype,
		MarriageDate:    r.MarriageDate,
		DivorceDate:     r.DivorceDate,
		Position:        r.Position,
		CreatedAt:       r.CreatedAt,
	}
}

// Client adapts a supabase-go client to API.
type Client struct {
	client *supabase.Client
}

// NewClient connects to a Supabase project.
func NewClient(cfg config.SupabaseConfig) (*Client, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Client{client: client}, nil
}

func applyFilter(b *postgrest.FilterBuilder, f Filter) *postgrest.FilterBuilder {
	if f.TreeID != "" {
		b = b.Eq("tree_id", f.TreeID)
	}
	for column, value := range f.Eq {
		b = b.Eq(column, value)
	}
	if f.Or != "" {
		b = b.Or(f.Or, "")
	}
	return b
}

// Select implements API.
func (c *Client) Select(table string, f Filter, from, to int) ([]byte, error) {
	b := c.client.From(table).Select("*", "", false)
	b = applyFilter(b, f).Order("seq", &postgrest.OrderOpts{Ascending: true}).Range(from, to, "")
	data, _, err := b.Execute()
	return data, err
}

// Upsert implements API.
func (c *Client) Upsert(table string, rows any, onConflict string) error {
	_, _, err := c.client.From(table).Upsert(rows, onConflict, "minimal", "").Execute()
	return err
}

// Delete implements API.
func (c *Client) Delete(table string, f Filter) error {
	_, _, err := applyFilter(c.client.From(table).Delete("minimal", ""), f).Execute()
	return err
}
