package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/mocks"
	"github.com/ersonp/roots-core/internal/domain/services"
)

const testTree = "tree-1"

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestFamily(t *testing.T) (*services.FamilyService, *mocks.PersonStore) {
	t.Helper()
	n := 0
	store := mocks.NewPersonStore()
	family := services.NewFamilyService(store, testTree, "tester", zap.NewNop(),
		graph.WithClock(func() time.Time { return testNow }),
		graph.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("p%d", n)
		}),
	)
	require.NoError(t, family.Load(context.Background()))
	return family, store
}

func mustAdd(t *testing.T, family *services.FamilyService, in graph.PersonInput) *entities.Person {
	t.Helper()
	p, err := family.CreatePerson(context.Background(), in)
	require.NoError(t, err)
	return p
}

// seedFamily builds grandparents George and Anne, their children Ada and
// Ben, and Ada's husband William with their son Ralph.
func seedFamily(t *testing.T, family *services.FamilyService) map[string]string {
	t.Helper()
	ctx := context.Background()
	george := mustAdd(t, family, graph.PersonInput{FirstName: "George", LastName: "Byron", Gender: entities.GenderMale, BirthDate: "1920-01-22"})
	anne := mustAdd(t, family, graph.PersonInput{FirstName: "Anne", LastName: "Byron", Gender: entities.GenderFemale, BirthPlace: "Seaham"})
	require.NoError(t, family.AddSpouse(ctx, george.ID, anne.ID, entities.SpouseCurrent, "1945"))

	parents := graph.Relationships{Parents: []entities.ParentRelationship{{PersonID: george.ID}, {PersonID: anne.ID}}}
	ada := mustAdd(t, family, graph.PersonInput{FirstName: "Ada", LastName: "King", MaidenName: "Byron", Gender: entities.GenderFemale, BirthDate: "1950-12-10", Relationships: parents})
	ben := mustAdd(t, family, graph.PersonInput{FirstName: "Ben", LastName: "Byron", Gender: entities.GenderMale, Relationships: parents})
	william := mustAdd(t, family, graph.PersonInput{FirstName: "William", LastName: "King", Gender: entities.GenderMale})
	require.NoError(t, family.AddSpouse(ctx, ada.ID, william.ID, entities.SpouseCurrent, ""))
	ralph := mustAdd(t, family, graph.PersonInput{
		FirstName: "Ralph", LastName: "King", Gender: entities.GenderMale,
		Relationships: graph.Relationships{Parents: []entities.ParentRelationship{{PersonID: ada.ID}, {PersonID: william.ID}}},
	})

	return map[string]string{
		"george": george.ID, "anne": anne.ID, "ada": ada.ID,
		"ben": ben.ID, "william": william.ID, "ralph": ralph.ID,
	}
}
