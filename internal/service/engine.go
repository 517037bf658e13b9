package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/metrics"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
	"github.com/pageza/alchemorsel-engine/backend/internal/nutrition"
	"github.com/pageza/alchemorsel-engine/backend/internal/ranking"
	"github.com/pageza/alchemorsel-engine/backend/internal/scoring"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// EngineConfig are the tunables of the engine.
type EngineConfig struct {
	Weights        scoring.Weights
	FuzzyThreshold float64
	DefaultTopK    int
}

// DefaultEngineConfig returns the 0.6/0.4 weights, a 0.8 fuzzy threshold and
// a top-k of 20.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:        scoring.DefaultWeights(),
		FuzzyThreshold: nutrition.DefaultFuzzyThreshold,
		DefaultTopK:    ranking.DefaultTopK,
	}
}

// Engine serves recommendations and nutrition summaries from immutable
// snapshots. Request paths never take locks; Rebuild swaps snapshots
// atomically.
type Engine struct {
	repo       IRecipeRepository
	source     nutrition.Source
	cache      INutritionCache
	normalizer *normalize.Normalizer
	ranker     *ranking.Ranker
	aggregator *nutrition.Aggregator
	corpus     *corpus.Store
	tables     *nutrition.TableStore
	cfg        EngineConfig
	logger     *zap.Logger

	rebuilds    singleflight.Group
	corpusGen   atomic.Uint64
	nutrientGen atomic.Uint64
}

// NewEngine wires an engine. cache may be nil. No snapshot is available
// until Rebuild succeeds.
func NewEngine(
	repo IRecipeRepository,
	source nutrition.Source,
	cache INutritionCache,
	normalizer *normalize.Normalizer,
	cfg EngineConfig,
	logger *zap.Logger,
) (*Engine, error) {
	scorer, err := scoring.NewScorer(cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		return nil, fmt.Errorf("invalid engine config: fuzzy threshold %v outside (0,1]", cfg.FuzzyThreshold)
	}
	if cfg.DefaultTopK <= 0 || cfg.DefaultTopK > ranking.MaxTopK {
		cfg.DefaultTopK = ranking.DefaultTopK
	}

	return &Engine{
		repo:       repo,
		source:     source,
		cache:      cache,
		normalizer: normalizer,
		ranker:     ranking.NewRanker(scorer),
		aggregator: nutrition.NewAggregator(normalizer),
		corpus:     corpus.NewStore(),
		tables:     nutrition.NewTableStore(),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Recommend ranks the corpus against the observed ingredients. A missing
// ingredient list is invalid; an empty one scores every eligible recipe 0.
func (e *Engine) Recommend(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error) {
	if req.Ingredients == nil {
		return nil, apperrors.NewValidationError("ingredients field is required")
	}
	return e.rank(req)
}

// SearchByIngredients is Recommend for manually typed ingredients; at least
// one ingredient must survive normalization.
func (e *Engine) SearchByIngredients(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error) {
	if len(e.normalizer.NormalizeAll(req.IngredientNames())) == 0 {
		return nil, apperrors.NewValidationError("no valid ingredients provided")
	}
	return e.rank(req)
}

func (e *Engine) rank(req *types.RecommendRequest) (*types.RecommendResponse, error) {
	strategy, err := scoring.ParseStrategy(req.Method)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	opts := ranking.Options{
		Strategy: strategy,
		MinScore: req.MinScore,
		TopK:     e.cfg.DefaultTopK,
	}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}
	if req.Filters != nil {
		opts.Filters = corpus.Filters{
			Cuisine:        req.Filters.Cuisine,
			DietaryType:    req.Filters.DietaryType,
			MaxTimeMinutes: req.Filters.MaxTimeMinutes,
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	snap, err := e.corpus.Current()
	if err != nil {
		return nil, err
	}

	keys := e.normalizer.NormalizeAll(req.IngredientNames())
	results := e.ranker.Rank(snap, scoring.NewQuery(keys), opts)
	metrics.RecordRecommendation(string(strategy))

	matches := make([]types.RecipeMatch, 0, len(results))
	for _, res := range results {
		r := res.Entry.Recipe
		matches = append(matches, types.RecipeMatch{
			RecipeID:           r.ID,
			Name:               r.Name,
			Cuisine:            r.Cuisine,
			DietaryType:        r.DietaryType,
			CookingTime:        r.CookingTime,
			ImageURL:           r.ImageURL,
			MatchScore:         res.MatchScore,
			HybridScore:        res.HybridScore,
			ContentScore:       res.ContentScore,
			MatchedCount:       res.MatchedCount,
			TotalCount:         res.TotalCount,
			MatchedIngredients: res.MatchedIngredients,
			MissingIngredients: res.MissingIngredients,
		})
	}

	return &types.RecommendResponse{
		Recipes:             matches,
		Count:               len(matches),
		Method:              strings.ToLower(string(strategy)),
		SearchedIngredients: keys,
		SnapshotVersion:     snap.Version(),
	}, nil
}

// Nutrition returns the whole-recipe summary for id against the current
// reference table. Stored and cached summaries are reused only when both the
// table digest and the recipe's ingredient fingerprint match. Fresh results
// are written back to the recipe and cached; failures of either are logged
// and do not fail the request.
func (e *Engine) Nutrition(ctx context.Context, recipeID uuid.UUID) (*types.NutritionResponse, error) {
	snap, err := e.corpus.Current()
	if err != nil {
		return nil, err
	}
	entry, ok := snap.Get(recipeID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recipe %s not found", recipeID))
	}
	table, err := e.tables.Current()
	if err != nil {
		return nil, err
	}
	version := summaryVersion(table.Version(), entry.Fingerprint)
	log := e.logger.With(zap.String("recipe_id", recipeID.String()), zap.String("summary_version", version))
	respond := func(s model.NutritionSummary, cached bool) *types.NutritionResponse {
		return &types.NutritionResponse{
			RecipeID:               recipeID,
			NutritionSummary:       s,
			TableVersion:           table.Version(),
			IngredientsFingerprint: entry.Fingerprint,
			Cached:                 cached,
		}
	}

	if e.cache != nil {
		cached, err := e.cache.Get(ctx, recipeID, version)
		if err != nil {
			log.Warn("nutrition cache read failed", zap.Error(err))
		}
		metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			return respond(*cached, true), nil
		}
	}

	if stored := entry.Recipe; stored.Nutrition.Calculated && stored.NutritionTableVersion == version {
		e.cacheSummary(ctx, log, recipeID, version, stored.Nutrition)
		return respond(stored.Nutrition, true), nil
	}

	result := e.aggregator.Aggregate(entry.Recipe, table)
	for _, line := range result.Lines {
		metrics.RecordResolution(string(line.Outcome))
		if line.Outcome == nutrition.OutcomeMiss {
			log.Debug("no nutrient record for ingredient", zap.String("ingredient", line.Raw), zap.String("key", line.Key))
		}
	}

	if err := e.repo.SaveNutrition(ctx, recipeID, result.Summary, version); err != nil {
		log.Warn("nutrition write-back failed", zap.Error(err))
	}
	e.cacheSummary(ctx, log, recipeID, version, result.Summary)

	return respond(result.Summary, false), nil
}

// summaryVersion identifies a summary by the reference table it was computed
// against and the ingredient lines it was computed from.
func summaryVersion(tableVersion, fingerprint string) string {
	return tableVersion + "." + fingerprint
}

func (e *Engine) cacheSummary(ctx context.Context, log *zap.Logger, id uuid.UUID, version string, s model.NutritionSummary) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, id, version, s); err != nil {
		log.Warn("nutrition cache write failed", zap.Error(err))
	}
}

// FilterOptions returns the distinct cuisines and dietary types.
func (e *Engine) FilterOptions(ctx context.Context) (*types.FilterOptionsResponse, error) {
	snap, err := e.corpus.Current()
	if err != nil {
		return nil, err
	}
	return &types.FilterOptionsResponse{
		Cuisines:     snap.Cuisines(),
		DietaryTypes: snap.DietaryTypes(),
	}, nil
}

// ListRecipes returns the recipes that pass filters in corpus order.
func (e *Engine) ListRecipes(ctx context.Context, filters corpus.Filters) ([]*model.Recipe, error) {
	if filters.MaxTimeMinutes < 0 {
		return nil, apperrors.NewValidationError("max_time must not be negative")
	}
	snap, err := e.corpus.Current()
	if err != nil {
		return nil, err
	}
	entries := snap.Query(filters)
	recipes := make([]*model.Recipe, len(entries))
	for i, entry := range entries {
		recipes[i] = entry.Recipe
	}
	return recipes, nil
}

// GetRecipe looks a recipe up in the current snapshot.
func (e *Engine) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	snap, err := e.corpus.Current()
	if err != nil {
		return nil, err
	}
	entry, ok := snap.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recipe %s not found", id))
	}
	return entry.Recipe, nil
}

// Rebuild reloads recipes and nutrient records and publishes new snapshots.
// Concurrent callers share one rebuild. A half that fails to load leaves its
// previous snapshot in place.
func (e *Engine) Rebuild(ctx context.Context) (*types.RebuildResponse, error) {
	v, err, shared := e.rebuilds.Do("rebuild", func() (interface{}, error) {
		return e.rebuild(ctx)
	})
	if shared {
		e.logger.Debug("joined in-flight rebuild")
	}
	if err != nil {
		return nil, err
	}
	return v.(*types.RebuildResponse), nil
}

func (e *Engine) rebuild(ctx context.Context) (*types.RebuildResponse, error) {
	var g errgroup.Group
	g.Go(func() error { return e.rebuildCorpus(ctx) })
	g.Go(func() error { return e.rebuildNutrients(ctx) })
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewInternalError("snapshot rebuild failed", err)
	}

	status := e.Status()
	return &types.RebuildResponse{
		CorpusVersion:   status.CorpusVersion,
		Recipes:         status.Recipes,
		NutrientVersion: status.NutrientVersion,
		NutrientRecords: status.NutrientRecords,
		TableVersion:    status.TableVersion,
		CompletedAt:     time.Now().UTC(),
	}, nil
}

func (e *Engine) rebuildCorpus(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordRebuild(metrics.ComponentCorpus, err, time.Since(start)) }()

	recipes, err := e.repo.ListRecipes(ctx)
	if err != nil {
		e.logger.Error("corpus rebuild failed, keeping previous snapshot", zap.Error(err))
		return fmt.Errorf("corpus: %w", err)
	}

	snap := corpus.Build(e.corpusGen.Add(1), recipes, e.normalizer)
	e.corpus.Publish(snap)
	metrics.SetSnapshot(metrics.ComponentCorpus, snap.Version(), snap.Len())
	e.logger.Info("corpus snapshot published",
		zap.Uint64("version", snap.Version()),
		zap.Int("recipes", snap.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (e *Engine) rebuildNutrients(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordRebuild(metrics.ComponentNutrients, err, time.Since(start)) }()

	records, err := e.source.Load(ctx)
	if err != nil {
		e.logger.Error("nutrient table rebuild failed, keeping previous table",
			zap.String("source", e.source.Name()),
			zap.Error(err),
		)
		return fmt.Errorf("nutrients: %w", err)
	}

	table, err := nutrition.NewTable(e.nutrientGen.Add(1), records, e.normalizer, e.cfg.FuzzyThreshold)
	if err != nil {
		return fmt.Errorf("nutrients: %w", err)
	}
	e.tables.Publish(table)
	metrics.SetSnapshot(metrics.ComponentNutrients, table.Generation(), table.Len())

	fields := []zap.Field{
		zap.Uint64("generation", table.Generation()),
		zap.String("version", table.Version()),
		zap.String("source", e.source.Name()),
		zap.Int("records", table.Len()),
		zap.Duration("took", time.Since(start)),
	}
	if table.Skipped() > 0 {
		e.logger.Warn("nutrient table published with skipped records", append(fields, zap.Int("skipped", table.Skipped()))...)
	} else {
		e.logger.Info("nutrient table published", fields...)
	}
	return nil
}

// RunPeriodicRebuild rebuilds every interval until ctx is done.
func (e *Engine) RunPeriodicRebuild(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Rebuild(ctx); err != nil {
				e.logger.Warn("periodic rebuild failed", zap.Error(err))
			}
		}
	}
}

// Status reports the snapshots currently served.
func (e *Engine) Status() types.EngineStatus {
	status := types.EngineStatus{AliasVersion: e.normalizer.Version()}
	snap, corpusErr := e.corpus.Current()
	if corpusErr == nil {
		status.AliasVersion = snap.NormalizerVersion()
		status.CorpusVersion = snap.Version()
		status.Recipes = snap.Len()
		status.CorpusBuiltAt = snap.BuiltAt()
	}
	table, tableErr := e.tables.Current()
	if tableErr == nil {
		status.NutrientVersion = table.Generation()
		status.NutrientRecords = table.Len()
		status.TableVersion = table.Version()
		status.FuzzyThreshold = table.Threshold()
	}
	status.Ready = corpusErr == nil && tableErr == nil
	return status
}
