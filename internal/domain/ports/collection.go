package ports

import "context"

// CollectionManager handles vector collection lifecycle operations.
// It is separate from BioIndex because not every index needs explicit
// provisioning.
type CollectionManager interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// DeleteCollection removes the collection and all its data.
	DeleteCollection(ctx context.Context) error
}
