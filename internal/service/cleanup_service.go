package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/metrics"
)

// CacheMaintainer 缓存清理所需的仓库操作
type CacheMaintainer interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
	TrimToSize(ctx context.Context, max int) (int64, error)
}

// CleanupService 查询缓存清理服务
type CleanupService struct {
	cache      CacheMaintainer
	ttl        time.Duration // <= 0 不按时间清理
	maxEntries int           // <= 0 不限制行数
	interval   time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewCleanupService 创建清理服务
func NewCleanupService(cache CacheMaintainer, ttl time.Duration, maxEntries int, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{
		cache:      cache,
		ttl:        ttl,
		maxEntries: maxEntries,
		interval:   interval,
		now:        time.Now,
		log:        logger.WithModule("cleanup"),
	}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	if s.ttl <= 0 && s.maxEntries <= 0 {
		s.log.Info("未配置缓存过期或容量上限，跳过清理任务")
		return
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// 启动时先运行一次
		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("清理任务已停止")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 执行一次清理：先按 TTL 删除过期行，再按最近访问时间裁剪到容量上限
func (s *CleanupService) RunOnce(ctx context.Context) {
	s.log.Debug("开始清理查询缓存...")

	// 1. 清理超过 TTL 未访问的缓存
	if s.ttl > 0 {
		removed, err := s.cache.DeleteStale(ctx, s.now().Add(-s.ttl))
		if err != nil {
			s.log.Error("清理过期缓存失败", zap.Error(err))
		} else if removed > 0 {
			metrics.CacheEvictions.WithLabelValues("ttl").Add(float64(removed))
			s.log.Info("已清理过期缓存", zap.Int64("rows", removed), zap.Duration("ttl", s.ttl))
		}
	}

	// 2. 超出容量时淘汰最久未访问的缓存
	if s.maxEntries > 0 {
		removed, err := s.cache.TrimToSize(ctx, s.maxEntries)
		if err != nil {
			s.log.Error("裁剪查询缓存失败", zap.Error(err))
		} else if removed > 0 {
			metrics.CacheEvictions.WithLabelValues("size").Add(float64(removed))
			s.log.Info("已淘汰最久未访问的缓存", zap.Int64("rows", removed), zap.Int("max_entries", s.maxEntries))
		}
	}
}
