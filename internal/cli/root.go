package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/config"
	"github.com/vehiclematch/backend/internal/domain"
	"github.com/vehiclematch/backend/internal/infrastructure/cache"
	"github.com/vehiclematch/backend/internal/infrastructure/csvcatalog"
	"github.com/vehiclematch/backend/internal/infrastructure/memory"
	"github.com/vehiclematch/backend/internal/infrastructure/remote"
	"github.com/vehiclematch/backend/internal/infrastructure/sqlite"
	"github.com/vehiclematch/backend/internal/logger"
	"github.com/vehiclematch/backend/internal/usecase"
)

const app = "vehiclematch"

// Actual version can be specified in build command.
var version = "dev"

// options carries the persistent flags shared by every subcommand
type options struct {
	configFile string
	flags      *viper.Viper
}

// Execute executes the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &options{flags: viper.New()}

	root := &cobra.Command{
		Use:          app,
		Short:        "vehiclematch recommends similar vehicles from a clustered catalog",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "a config file (default is config.yaml in ., ./config or /etc/vehiclematch)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = opts.flags.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = opts.flags.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(
		newServeCommand(opts),
		newRecommendCommand(opts),
		newImportCommand(opts),
		newVersionCommand(),
	)

	return root
}

// bootstrap loads the configuration and builds the logger. Flags override the
// log settings from the config.
func (o *options) bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, nil, err
	}

	if o.flags.GetBool("debug") {
		cfg.Log.Debug = true
	}
	if o.flags.GetBool("json") {
		cfg.Log.JSON = true
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}

	return cfg, log, nil
}

// openCatalog returns the configured catalog repository and a function that
// releases it.
func openCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.CatalogRepository, func(), error) {
	if cfg.Catalog.Source == config.SourceSQLite {
		store, err := sqlite.Open(ctx, cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		count, err := store.Count(ctx)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info("catalog opened", zap.String("source", cfg.Catalog.Source), zap.String("path", cfg.Catalog.SQLitePath), zap.Int("vehicles", count))
		return store, func() { store.Close() }, nil
	}

	var source domain.CatalogSource
	switch cfg.Catalog.Source {
	case config.SourceCSV:
		source = csvcatalog.FileSource{Path: cfg.Catalog.Path}
	case config.SourceURL:
		source = remote.NewClient(cfg.Catalog.URL, cfg.RateLimit.Remote, log)
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	vehicles, err := source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	store := memory.NewCatalogStore(vehicles)
	log.Info("catalog loaded", zap.String("source", cfg.Catalog.Source), zap.Int("vehicles", store.Len()))

	return store, func() {}, nil
}

// newService wires the recommendation service with the configured cache
func newService(cfg *config.Config, catalog domain.CatalogRepository, log *zap.Logger) (*usecase.RecommendationService, func()) {
	var repo domain.CacheRepository
	closeCache := func() {}

	if cfg.Cache.Type == "memory" {
		memCache := cache.NewMemoryCache()
		repo = memCache
		closeCache = func() {
			log.Debug("closing recommendation cache", zap.Int("entries", memCache.Len()))
			memCache.Close()
		}
	}

	service := usecase.NewRecommendationService(catalog, repo, log, usecase.RecommendationServiceConfig{
		DefaultPrice:            cfg.Matching.Price,
		DefaultMileage:          cfg.Matching.Mileage,
		DefaultPriceTolerance:   cfg.Matching.PriceTolerance,
		DefaultMileageTolerance: cfg.Matching.MileageTolerance,
		DefaultLimit:            cfg.Matching.Limit,
		MaxLimit:                cfg.Matching.MaxLimit,
		CacheTTL:                cfg.Cache.TTL,
	})

	return service, closeCache
}
