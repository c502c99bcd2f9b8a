package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/user/wisepick/internal/model"
)

var (
	// ErrDuplicateKey 并发写入时同一查询已被其他请求写入
	ErrDuplicateKey = errors.New("query cache: duplicate key")
	// ErrEntryGone 记录命中时缓存行已被清理
	ErrEntryGone = errors.New("query cache: entry no longer exists")
)

// QueryCacheRepository 查询结果缓存，cached_queries 表只通过这里读写
type QueryCacheRepository struct {
	db    *gorm.DB
	stats *cache.Cache
	now   func() time.Time
}

func NewQueryCacheRepository(db *gorm.DB) *QueryCacheRepository {
	return &QueryCacheRepository{
		db:    db,
		stats: cache.New(5*time.Minute, 10*time.Minute),
		now:   time.Now,
	}
}

// Lookup 按规范化查询精确查找，未找到返回 nil, nil
func (r *QueryCacheRepository) Lookup(ctx context.Context, kind model.ContentKind, query string) (*model.CachedQuery, error) {
	var row model.CachedQuery
	err := r.db.WithContext(ctx).
		Where("kind = ? AND query_text = ?", kind, query).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Store 新建缓存行（hit_count = 1）
// 唯一键冲突时返回 ErrDuplicateKey，由调用方按命中处理
func (r *QueryCacheRepository) Store(ctx context.Context, kind model.ContentKind, query string, items []model.EnrichedItem) (*model.CachedQuery, error) {
	results, err := model.EncodeResults(items)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	now := r.now()
	row := &model.CachedQuery{
		Kind:           kind,
		QueryText:      query,
		Results:        results,
		HitCount:       1,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, kind, query)
		}
		return nil, err
	}
	return row, nil
}

// RecordHit 原子地增加命中次数并刷新访问时间，返回更新后的记录
func (r *QueryCacheRepository) RecordHit(ctx context.Context, existing *model.CachedQuery) (*model.CachedQuery, error) {
	if existing == nil || existing.ID == 0 {
		return nil, ErrEntryGone
	}

	// 单条 UPDATE 语句自增，避免并发命中时丢失计数
	res := r.db.WithContext(ctx).
		Model(&model.CachedQuery{}).
		Where("id = ?", existing.ID).
		UpdateColumns(map[string]interface{}{
			"hit_count":        gorm.Expr("hit_count + ?", 1),
			"last_accessed_at": r.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrEntryGone
	}

	var updated model.CachedQuery
	if err := r.db.WithContext(ctx).Take(&updated, existing.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryGone
		}
		return nil, err
	}
	return &updated, nil
}

// Popular 按命中次数获取热门查询（结果缓存 5 分钟）
func (r *QueryCacheRepository) Popular(ctx context.Context, kind model.ContentKind, limit int) ([]model.PopularQuery, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("popular:%s:%d", kind, limit)
	if cached, found := r.stats.Get(cacheKey); found {
		if queries, ok := cached.([]model.PopularQuery); ok {
			return queries, nil
		}
	}

	queries := make([]model.PopularQuery, 0, limit)
	err := r.db.WithContext(ctx).
		Model(&model.CachedQuery{}).
		Select("kind, query_text, hit_count, last_accessed_at").
		Where("kind = ?", kind).
		Order("hit_count DESC").
		Order("last_accessed_at DESC").
		Limit(limit).
		Scan(&queries).Error
	if err != nil {
		return nil, err
	}

	r.stats.SetDefault(cacheKey, queries)
	return queries, nil
}

// Count 当前缓存行数
func (r *QueryCacheRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.CachedQuery{}).Count(&n).Error
	return n, err
}

// DeleteStale 删除指定时间之前最后访问的缓存行
func (r *QueryCacheRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_accessed_at < ?", before).
		Delete(&model.CachedQuery{})
	return result.RowsAffected, result.Error
}

// TrimToSize 只保留最近访问的 max 行（LRU）
func (r *QueryCacheRepository) TrimToSize(ctx context.Context, max int) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Exec(`
		DELETE FROM cached_queries
		WHERE id NOT IN (
			SELECT id FROM cached_queries
			ORDER BY last_accessed_at DESC, id DESC
			LIMIT ?
		)
	`, max)
	return result.RowsAffected, result.Error
}

// isUniqueConstraintError 识别各驱动的唯一约束冲突
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key")
}
