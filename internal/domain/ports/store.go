package ports

import (
	"context"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// PersonStore is the persistence collaborator of a family tree.
// Implementations must be safe to call from one goroutine at a time; the
// services serialize access per tree.
type PersonStore interface {
	// EnsureSchema creates tables or indexes if they don't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// LoadAll returns every person and edge of a tree.
	LoadAll(ctx context.Context, treeID string) ([]entities.Person, []entities.Edge, error)

	// WritePerson inserts or replaces a person record. Relationship sets and
	// projections on the person are not stored; edges carry them.
	WritePerson(ctx context.Context, person *entities.Person) error

	// WriteEdges inserts or replaces edges by id.
	WriteEdges(ctx context.Context, edges []entities.Edge) error

	// DeletePerson removes a person record. Deleting an absent person is not
	// an error.
	DeletePerson(ctx context.Context, treeID, personID string) error

	// DeleteEdgesFor removes every edge with personID as either endpoint.
	DeleteEdgesFor(ctx context.Context, treeID, personID string) error

	// DeleteTree removes every person and edge of a tree.
	DeleteTree(ctx context.Context, treeID string) error
}
