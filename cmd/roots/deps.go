package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/application/handlers"
	"github.com/ersonp/roots-core/internal/domain/ports"
	"github.com/ersonp/roots-core/internal/domain/services"
	"github.com/ersonp/roots-core/internal/infrastructure/config"
	embedder "github.com/ersonp/roots-core/internal/infrastructure/embedder/openai"
	llm "github.com/ersonp/roots-core/internal/infrastructure/llm/openai"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
	"github.com/ersonp/roots-core/internal/infrastructure/store/dynamodb"
	"github.com/ersonp/roots-core/internal/infrastructure/store/resilient"
	"github.com/ersonp/roots-core/internal/infrastructure/store/sqlite"
	"github.com/ersonp/roots-core/internal/infrastructure/store/supabase"
	"github.com/ersonp/roots-core/internal/infrastructure/vectordb/qdrant"
)

const metricsNamespace = "roots"

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and stores are internal.
type Deps struct {
	Config              *config.Config
	TreeName            string
	Tree                *config.TreeEntry
	PersonHandler       *handlers.PersonHandler
	RelationshipHandler *handlers.RelationshipHandler
	TreeHandler         *handlers.TreeHandler
	QueryHandler        *handlers.QueryHandler
	ImportHandler       *handlers.ImportHandler
}

// withDeps loads config, opens the tree's store and loads its graph, then
// calls fn. Everything opened here is closed when fn returns.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	trees, err := config.LoadTrees(cwd)
	if err != nil {
		return fmt.Errorf("loading trees: %w", err)
	}

	treeName, entry, err := trees.Resolve(globalTree)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("tree", treeName))

	metrics := observability.NewCollector(metricsNamespace)
	defer flushMetrics(metrics, logger)

	store, err := newStoreOpener(logger, metrics)(ctx, cfg, cwd, treeName)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	family := services.NewFamilyService(store, entry.ID, actorName(cfg), logger)
	if err := family.Load(ctx); err != nil {
		return fmt.Errorf("loading tree %q: %w", treeName, err)
	}

	var llmClient ports.LLMClient
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return fmt.Errorf("creating llm client: %w", err)
		}
		llmClient = client
	}

	var bios *services.BioSearchService
	if cfg.Embedder.APIKey != "" {
		emb, err := embedder.NewEmbedder(cfg.Embedder)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		qdrantCfg := cfg.Qdrant
		if qdrantCfg.Collection == "" {
			qdrantCfg.Collection = config.GenerateCollectionName(treeName)
		}
		repo, err := qdrant.NewRepository(qdrantCfg)
		if err != nil {
			return fmt.Errorf("creating qdrant repository: %w", err)
		}
		defer repo.Close()

		bios = services.NewBioSearchService(emb, repo, repo, logger)
	}

	deps := &Deps{
		Config:              cfg,
		TreeName:            treeName,
		Tree:                entry,
		PersonHandler:       handlers.NewPersonHandler(family),
		RelationshipHandler: handlers.NewRelationshipHandler(family),
		TreeHandler:         handlers.NewTreeHandler(family),
		QueryHandler:        handlers.NewQueryHandler(family, services.NewAssistantService(llmClient, logger), bios),
		ImportHandler:       handlers.NewImportHandler(services.NewImportService(family, logger)),
	}

	return fn(deps)
}

// newStoreOpener returns a StoreOpener building the configured backend
// behind the circuit breaker.
func newStoreOpener(logger *zap.Logger, metrics *observability.Collector) handlers.StoreOpener {
	return func(ctx context.Context, cfg *config.Config, basePath, treeName string) (ports.PersonStore, error) {
		store, err := openBackend(ctx, cfg, basePath, treeName, logger)
		if err != nil {
			return nil, err
		}
		return resilient.NewStore(store, cfg.Store.Backend, cfg.Breaker, metrics, logger), nil
	}
}

func openBackend(ctx context.Context, cfg *config.Config, basePath, treeName string, logger *zap.Logger) (ports.PersonStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		sqliteCfg := cfg.SQLite
		if sqliteCfg.Path == "" {
			if err := os.MkdirAll(config.TreeDir(basePath, treeName), 0755); err != nil {
				return nil, fmt.Errorf("creating tree directory: %w", err)
			}
			sqliteCfg.Path = config.SQLitePathForTree(basePath, treeName)
		}
		store, err := sqlite.NewStore(sqliteCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		return store, nil

	case config.BackendDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, fmt.Errorf("creating dynamodb client: %w", err)
		}
		store, err := dynamodb.NewStore(client, cfg.DynamoDB.Table, logger)
		if err != nil {
			return nil, fmt.Errorf("creating dynamodb store: %w", err)
		}
		return store, nil

	case config.BackendSupabase:
		client, err := supabase.NewClient(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		store, err := supabase.NewStore(client, logger)
		if err != nil {
			return nil, fmt.Errorf("creating supabase store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

// actorName picks the author recorded on new persons and photos.
func actorName(cfg *config.Config) string {
	switch {
	case globalUser != "":
		return globalUser
	case cfg.User != "":
		return cfg.User
	default:
		return DefaultActor
	}
}

func flushMetrics(metrics *observability.Collector, logger *zap.Logger) {
	if metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(metricsFile, metrics.Registry()); err != nil {
		logger.Warn("writing metrics file", zap.String("path", metricsFile), zap.Error(err))
	}
}

// withConfig loads only the configuration, for commands that manage trees
// rather than operate on one.
func withConfig(fn func(cwd string, cfg *config.Config, logger *zap.Logger) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return fn(cwd, cfg, logger)
}
