package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/metrics"
	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/repository"
)

// Generator 候选生成
type Generator interface {
	Generate(ctx context.Context, query string, count int, kind model.ContentKind) ([]model.Candidate, error)
}

// Enricher 候选补全
type Enricher interface {
	Enrich(ctx context.Context, candidate model.Candidate, kind model.ContentKind) (*model.EnrichedItem, error)
	EnrichAll(ctx context.Context, candidates []model.Candidate, kind model.ContentKind) ([]model.EnrichedItem, []error)
}

// QueryCache 查询缓存，由 repository.QueryCacheRepository 实现
type QueryCache interface {
	Lookup(ctx context.Context, kind model.ContentKind, query string) (*model.CachedQuery, error)
	Store(ctx context.Context, kind model.ContentKind, query string, items []model.EnrichedItem) (*model.CachedQuery, error)
	RecordHit(ctx context.Context, existing *model.CachedQuery) (*model.CachedQuery, error)
	Popular(ctx context.Context, kind model.ContentKind, limit int) ([]model.PopularQuery, error)
}

// RecommendConfig 推荐服务参数
type RecommendConfig struct {
	// 多条模式请求的候选数 N
	ResultCount int
	// 哪些类型写入缓存
	Cacheable func(kind model.ContentKind) bool
}

// Recommendation 推荐结果
// 单条模式只设置 Item；多条模式只设置 Items
type Recommendation struct {
	Item     *model.EnrichedItem
	Items    []model.EnrichedItem
	Cached   bool // 是否来自缓存（含并发合并的请求）
	HitCount int  // 缓存行当前命中次数，未缓存时为 0
}

// RecommendService 推荐编排：缓存 -> 生成 -> 补全 -> 写缓存
type RecommendService struct {
	generator Generator
	enricher  Enricher
	cache     QueryCache
	cfg       RecommendConfig
	sf        singleflight.Group
	log       *zap.Logger
}

func NewRecommendService(generator Generator, enricher Enricher, cache QueryCache, cfg RecommendConfig) *RecommendService {
	if cfg.ResultCount < 1 {
		cfg.ResultCount = 5
	}
	if cfg.Cacheable == nil {
		cfg.Cacheable = func(kind model.ContentKind) bool { return kind == model.KindBook }
	}
	return &RecommendService{
		generator: generator,
		enricher:  enricher,
		cache:     cache,
		cfg:       cfg,
		log:       logger.WithModule("recommend"),
	}
}

// Recommend 获取推荐
// multi=false 只请求一个候选并直接返回（不走缓存）；multi=true 请求 N 个并缓存整个列表
func (s *RecommendService) Recommend(ctx context.Context, rawQuery string, multi bool, kind model.ContentKind) (*Recommendation, error) {
	mode := "single"
	if multi {
		mode = "multi"
	}

	query, err := NormalizeQuery(rawQuery)
	if err != nil {
		metrics.Recommendations.WithLabelValues(kind.String(), mode, "invalid").Inc()
		return nil, err
	}

	var rec *Recommendation
	if multi {
		rec, err = s.recommendMany(ctx, query, kind)
	} else {
		rec, err = s.recommendOne(ctx, query, kind)
	}
	if err != nil {
		metrics.Recommendations.WithLabelValues(kind.String(), mode, "error").Inc()
		return nil, err
	}

	outcome := "miss"
	if rec.Cached {
		outcome = "hit"
	}
	metrics.Recommendations.WithLabelValues(kind.String(), mode, outcome).Inc()
	return rec, nil
}

// Popular 热门查询
func (s *RecommendService) Popular(ctx context.Context, kind model.ContentKind, limit int) ([]model.PopularQuery, error) {
	queries, err := s.cache.Popular(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("load popular queries: %w", err)
	}
	return queries, nil
}

// recommendOne 单条模式：全部成功才返回
func (s *RecommendService) recommendOne(ctx context.Context, query string, kind model.ContentKind) (*Recommendation, error) {
	candidates, err := s.generator.Generate(ctx, query, 1, kind)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, notFound(kind)
	}

	item, err := s.enricher.Enrich(ctx, candidates[0], kind)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound(kind)
	}
	return &Recommendation{Item: item}, nil
}

func (s *RecommendService) recommendMany(ctx context.Context, query string, kind model.ContentKind) (*Recommendation, error) {
	if !s.cfg.Cacheable(kind) {
		items, err := s.generateItems(ctx, query, kind)
		if err != nil {
			return nil, err
		}
		return &Recommendation{Items: model.NumberItems(items)}, nil
	}

	row, err := s.cache.Lookup(ctx, kind, query)
	if err != nil {
		return nil, fmt.Errorf("query cache lookup: %w", err)
	}
	if row != nil {
		metrics.CacheLookups.WithLabelValues(kind.String(), "hit").Inc()
		updated, err := s.cache.RecordHit(ctx, row)
		switch {
		case err == nil:
			return fromCache(updated, true)
		case errors.Is(err, repository.ErrEntryGone):
			// 查询与计数之间被清理，按未命中处理
			s.log.Debug("缓存行已被清理", zap.String("query", query))
		default:
			return nil, fmt.Errorf("query cache record hit: %w", err)
		}
	} else {
		metrics.CacheLookups.WithLabelValues(kind.String(), "miss").Inc()
	}

	// 同一进程内相同查询的并发未命中只跑一次流水线，其余请求按命中计数
	leader := false
	v, err, _ := s.sf.Do(kind.String()+"\x00"+query, func() (interface{}, error) {
		leader = true
		// 与发起请求解绑，避免领头请求断开导致跟随者一起失败；外部调用自带超时
		return s.fillCache(context.WithoutCancel(ctx), query, kind)
	})
	if err != nil {
		return nil, err
	}

	filled := v.(*filledRow)
	if leader {
		return fromCache(filled.row, filled.hit)
	}

	updated, err := s.cache.RecordHit(ctx, filled.row)
	if err != nil {
		return nil, fmt.Errorf("query cache record hit: %w", err)
	}
	return fromCache(updated, true)
}

// filledRow fillCache 的结果；hit 表示写入冲突后按命中计数
type filledRow struct {
	row *model.CachedQuery
	hit bool
}

// fillCache 未命中：生成 + 补全 + 写入；写入冲突说明其它进程已写入，按命中处理
func (s *RecommendService) fillCache(ctx context.Context, query string, kind model.ContentKind) (*filledRow, error) {
	items, err := s.generateItems(ctx, query, kind)
	if err != nil {
		return nil, err
	}

	row, err := s.cache.Store(ctx, kind, query, items)
	if err == nil {
		metrics.CacheStores.WithLabelValues(kind.String()).Inc()
		s.log.Info("写入查询缓存", zap.String("kind", kind.String()),
			zap.String("query", query), zap.Int("items", len(items)))
		return &filledRow{row: row}, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, fmt.Errorf("query cache store: %w", err)
	}

	metrics.CacheDuplicates.WithLabelValues(kind.String()).Inc()
	existing, err := s.cache.Lookup(ctx, kind, query)
	if err != nil {
		return nil, fmt.Errorf("query cache lookup: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("query cache: row for %q vanished after duplicate insert", query)
	}
	updated, err := s.cache.RecordHit(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("query cache record hit: %w", err)
	}
	return &filledRow{row: updated, hit: true}, nil
}

// generateItems 生成候选并补全；补全失败的候选直接丢弃，全部丢弃即 NotFound
func (s *RecommendService) generateItems(ctx context.Context, query string, kind model.ContentKind) ([]model.EnrichedItem, error) {
	candidates, err := s.generator.Generate(ctx, query, s.cfg.ResultCount, kind)
	if err != nil {
		return nil, err
	}

	items, errs := s.enricher.EnrichAll(ctx, candidates, kind)
	if len(items) > 0 {
		return items, nil
	}
	// 唯一例外：被限流时保留 429，提示客户端稍后重试
	if limited := rateLimitError(errs); limited != nil {
		return nil, limited
	}
	return nil, notFound(kind)
}

func fromCache(row *model.CachedQuery, cached bool) (*Recommendation, error) {
	items, err := row.Items()
	if err != nil {
		return nil, err
	}
	return &Recommendation{
		Items:    model.NumberItems(items),
		Cached:   cached,
		HitCount: row.HitCount,
	}, nil
}

func notFound(kind model.ContentKind) *Error {
	return NewNotFoundError(fmt.Sprintf("No %ss found for the given query", kind))
}
