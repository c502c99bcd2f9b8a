package handler

import (
	"context"

	"github.com/user/wisepick/internal/config"
	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/service"
)

// Recommender 推荐服务
type Recommender interface {
	Recommend(ctx context.Context, rawQuery string, multi bool, kind model.ContentKind) (*service.Recommendation, error)
	Popular(ctx context.Context, kind model.ContentKind, limit int) ([]model.PopularQuery, error)
}

// Pinger 依赖健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler HTTP 处理器
type Handler struct {
	Config    *config.Config
	Recommend Recommender
	DB        Pinger
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, recommend Recommender, db Pinger) *Handler {
	return &Handler{
		Config:    cfg,
		Recommend: recommend,
		DB:        db,
	}
}
