package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vehiclematch/backend/internal/domain"
)

const defaultPreviewRows = 5

// RecommendationServiceConfig holds the request defaults and limits
type RecommendationServiceConfig struct {
	DefaultPrice            float64
	DefaultMileage          float64
	DefaultPriceTolerance   float64
	DefaultMileageTolerance float64
	DefaultLimit            int
	MaxLimit                int
	CacheTTL                time.Duration
}

// RecommendationService answers recommendation requests against the active catalog
type RecommendationService struct {
	catalog domain.CatalogRepository
	cache   domain.CacheRepository
	logger  *zap.Logger
	config  RecommendationServiceConfig

	// version changes whenever the catalog is replaced and is part of every cache key
	version atomic.Uint64
}

// NewRecommendationService wires the service. cache may be nil to disable caching.
func NewRecommendationService(
	catalog domain.CatalogRepository,
	cache domain.CacheRepository,
	logger *zap.Logger,
	config RecommendationServiceConfig,
) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 5
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}

	return &RecommendationService{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		config:  config,
	}
}

// Recommend resolves defaults, validates the query and runs the tiered matcher.
// Flow: validate -> check cache -> read catalog -> match -> cache -> return
func (s *RecommendationService) Recommend(
	ctx context.Context,
	request *domain.RecommendRequest,
) (*domain.Recommendation, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: request is required", domain.ErrInvalidQuery)
	}

	query := s.buildQuery(request)
	if err := query.Validate(s.config.MaxLimit); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(query)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		s.logger.Debug("recommendation served from cache", zap.String("key", cacheKey))
		return cached, nil
	}

	catalog, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, domain.ErrCatalogEmpty
	}

	result, err := Recommend(catalog, query)
	if err != nil {
		s.logger.Info("recommendation failed", zap.String("make", query.Make), zap.Error(err))
		return nil, err
	}

	s.logger.Info("recommendation",
		zap.String("make", query.Make),
		zap.String("cluster", result.Cluster),
		zap.String("tier", string(result.Tier)),
		zap.Int("results", len(result.Vehicles)),
		zap.Int("catalog", len(catalog)),
	)

	s.toCache(ctx, cacheKey, result)
	return result, nil
}

// Makes returns the distinct makes in the catalog in first-seen order
func (s *RecommendationService) Makes(ctx context.Context) ([]string, error) {
	catalog, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	seen := make(map[string]bool)
	makes := []string{}
	for _, v := range catalog {
		if !seen[v.Make] {
			seen[v.Make] = true
			makes = append(makes, v.Make)
		}
	}
	return makes, nil
}

// Preview returns the first rows of the catalog. rows <= 0 uses the default of 5.
func (s *RecommendationService) Preview(ctx context.Context, rows int) ([]domain.Vehicle, int, error) {
	catalog, err := s.catalog.All(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("reading catalog: %w", err)
	}

	if rows <= 0 {
		rows = defaultPreviewRows
	}
	rows = min(rows, len(catalog))

	preview := make([]domain.Vehicle, rows)
	copy(preview, catalog[:rows])
	return preview, len(catalog), nil
}

// ReplaceCatalog installs a new catalog and invalidates cached recommendations
func (s *RecommendationService) ReplaceCatalog(ctx context.Context, vehicles []domain.Vehicle) error {
	if len(vehicles) == 0 {
		return domain.ErrCatalogEmpty
	}

	if err := s.catalog.Replace(ctx, vehicles); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}
	version := s.version.Add(1)

	s.logger.Info("catalog replaced",
		zap.Int("vehicles", len(vehicles)),
		zap.Uint64("version", version),
	)
	return nil
}

// buildQuery fills omitted request fields with the configured defaults
func (s *RecommendationService) buildQuery(request *domain.RecommendRequest) domain.Query {
	query := domain.Query{
		Make:             strings.TrimSpace(request.Make),
		Price:            s.config.DefaultPrice,
		Mileage:          s.config.DefaultMileage,
		PriceTolerance:   s.config.DefaultPriceTolerance,
		MileageTolerance: s.config.DefaultMileageTolerance,
		Limit:            s.config.DefaultLimit,
	}

	if request.Price != nil {
		query.Price = *request.Price
	}
	if request.Mileage != nil {
		query.Mileage = *request.Mileage
	}
	if request.PriceTolerance != nil {
		query.PriceTolerance = *request.PriceTolerance
	}
	if request.MileageTolerance != nil {
		query.MileageTolerance = *request.MileageTolerance
	}
	if request.Limit != nil {
		query.Limit = *request.Limit
	}

	return query
}

// cacheKey format: "recommend:{version}:{make}:{price}:{mileage}:{priceTol}:{mileageTol}:{limit}"
func (s *RecommendationService) cacheKey(q domain.Query) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return fmt.Sprintf("recommend:%d:%s:%s:%s:%s:%s:%d",
		s.version.Load(), q.Make, f(q.Price), f(q.Mileage), f(q.PriceTolerance), f(q.MileageTolerance), q.Limit)
}

func (s *RecommendationService) fromCache(ctx context.Context, key string) (*domain.Recommendation, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var result domain.Recommendation
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return &result, true
}

func (s *RecommendationService) toCache(ctx context.Context, key string, result *domain.Recommendation) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("encoding recommendation for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Warn("caching recommendation", zap.String("key", key), zap.Error(err))
	}
}
