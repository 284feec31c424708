package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/mocks"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
)

func testBreaker() config.BreakerConfig {
	return config.BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Hour,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := mocks.NewPersonStore()
	metrics := observability.NewCollector("test")
	store := NewStore(inner, "memory", testBreaker(), metrics, zap.NewNop())

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.WritePerson(ctx, &entities.Person{ID: "a", TreeID: "t", FirstName: "A"}))
	require.NoError(t, store.WriteEdges(ctx, []entities.Edge{{ID: "e", TreeID: "t", PersonID: "a", RelatedPersonID: "b", Kind: entities.EdgeParent}}))

	persons, edges, err := store.LoadAll(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, persons, 1)
	assert.Len(t, edges, 1)

	require.NoError(t, store.DeleteEdgesFor(ctx, "t", "a"))
	require.NoError(t, store.DeletePerson(ctx, "t", "a"))
	require.NoError(t, store.DeleteTree(ctx, "t"))
	require.NoError(t, store.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "write_person", observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "load_all", observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("memory", "person")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("memory", "edge")))
	assert.Equal(t, "closed", store.State())
}

func TestStore_BreakerOpens(t *testing.T) {
	ctx := context.Background()
	inner := mocks.NewPersonStore()
	inner.LoadErr = errors.New("connection refused")
	metrics := observability.NewCollector("test")
	store := NewStore(inner, "memory", testBreaker(), metrics, nil)

	for range 2 {
		_, _, err := store.LoadAll(ctx, "t")
		require.ErrorContains(t, err, "connection refused")
	}
	assert.Equal(t, "open", store.State())

	_, _, err := store.LoadAll(ctx, "t")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, inner.LoadCallCount, "open breaker must not reach the backend")

	// Writes share the breaker.
	err = store.WritePerson(ctx, &entities.Person{ID: "a", TreeID: "t"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, inner.WritePersonCallCount)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "load_all", observability.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "load_all", observability.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BreakerTransitions.WithLabelValues("memory", "closed", "open")))
}

func TestStore_CancelledDoesNotTrip(t *testing.T) {
	inner := mocks.NewPersonStore()
	inner.WritePersonErr = context.Canceled
	store := NewStore(inner, "memory", testBreaker(), nil, nil)

	for range 3 {
		err := store.WritePerson(context.Background(), &entities.Person{ID: "a", TreeID: "t"})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", store.State())
}

func TestStore_Disabled(t *testing.T) {
	inner := mocks.NewPersonStore()
	inner.LoadErr = errors.New("down")
	store := NewStore(inner, "memory", config.BreakerConfig{Enabled: false}, nil, nil)

	for range 5 {
		_, _, err := store.LoadAll(context.Background(), "t")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, 5, inner.LoadCallCount)
	assert.Equal(t, "closed", store.State())
}
