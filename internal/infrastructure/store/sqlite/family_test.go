package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/domain/entities"
	"github.com/ersonp/roots-core/internal/domain/graph"
	"github.com/ersonp/roots-core/internal/domain/services"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
	"github.com/ersonp/roots-core/internal/infrastructure/store/sqlite"
)

func openFamily(t *testing.T, path, treeID string) (*services.FamilyService, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.NewStore(config.SQLiteConfig{Path: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	family := services.NewFamilyService(store, treeID, "tester", zap.NewNop())
	require.NoError(t, family.Load(context.Background()))
	return family, store
}

func TestFamilyService_FileDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file database test in short mode")
	}

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "roots.db")

	family, store := openFamily(t, dbPath, "byron")

	george, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "George", LastName: "Byron", Gender: entities.GenderMale})
	require.NoError(t, err)
	anne, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "Anne", LastName: "Byron", Gender: entities.GenderFemale})
	require.NoError(t, err)
	require.NoError(t, family.AddSpouse(ctx, george.ID, anne.ID, entities.SpouseCurrent, "1815-01-02"))

	ada, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "Ada", LastName: "Byron", BirthDate: "1815-12-10"})
	require.NoError(t, err)
	require.NoError(t, family.AddChild(ctx, george.ID, ada.ID, entities.ParentBiological))
	require.NoError(t, family.AddChild(ctx, anne.ID, ada.ID, entities.ParentBiological))

	_, err = family.AddPhoto(ctx, ada.ID, graph.PhotoInput{URL: "https://example.com/ada.jpg", Caption: "Portrait"})
	require.NoError(t, err)

	require.NoError(t, store.Close())

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")

	reopened, store2 := openFamily(t, dbPath, "byron")
	defer store2.Close()

	g := reopened.Graph()
	assert.Equal(t, 3, g.Len())
	assert.Empty(t, g.Check())

	rel, err := g.Describe(ada.ID, george.ID)
	require.NoError(t, err)
	assert.Equal(t, "Father", rel.Label)

	loadedAda, ok := g.Person(ada.ID)
	require.True(t, ok)
	require.Len(t, loadedAda.Photos, 1)
	assert.Equal(t, "tester", loadedAda.Photos[0].UploadedBy)

	loadedGeorge, ok := g.Person(george.ID)
	require.True(t, ok)
	edge, ok := loadedGeorge.SpouseEdge(anne.ID)
	require.True(t, ok)
	assert.Equal(t, "1815-01-02", edge.MarriageDate)
}

func TestFamilyService_TreesShareFile(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	first, store := openFamily(t, dbPath, "tree-a")
	_, err := first.CreatePerson(ctx, graph.PersonInput{FirstName: "Ada"})
	require.NoError(t, err)

	second := services.NewFamilyService(store, "tree-b", "tester", zap.NewNop())
	require.NoError(t, second.Load(ctx))
	_, err = second.CreatePerson(ctx, graph.PersonInput{FirstName: "Grace"})
	require.NoError(t, err)
	_, err = second.CreatePerson(ctx, graph.PersonInput{FirstName: "Alan"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteTree(ctx, "tree-a"))
	require.NoError(t, first.Load(ctx))
	require.NoError(t, second.Load(ctx))
	require.NoError(t, store.Close())

	assert.Equal(t, 0, first.Graph().Len())
	assert.Equal(t, 2, second.Graph().Len())
}

func TestFamilyService_ParentOrderAcrossReload(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "order.db")

	family, store := openFamily(t, dbPath, "byron")
	george, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "George"})
	require.NoError(t, err)
	anne, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "Anne"})
	require.NoError(t, err)
	ada, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "Ada"})
	require.NoError(t, err)
	require.NoError(t, family.AddChild(ctx, george.ID, ada.ID, entities.ParentBiological))
	require.NoError(t, family.AddChild(ctx, anne.ID, ada.ID, entities.ParentBiological))

	// Linking George to his father rewrites Ada's edge to George.
	john, err := family.CreatePerson(ctx, graph.PersonInput{FirstName: "John"})
	require.NoError(t, err)
	require.NoError(t, family.AddChild(ctx, john.ID, george.ID, entities.ParentBiological))
	before := family.Graph()
	require.NoError(t, store.Close())

	reopened, store2 := openFamily(t, dbPath, "byron")
	defer store2.Close()

	loaded, ok := reopened.Graph().Person(ada.ID)
	require.True(t, ok)
	assert.Equal(t, []string{george.ID, anne.ID}, loaded.Parents)
	assert.True(t, graph.Diff(before, reopened.Graph()).Empty())
}
