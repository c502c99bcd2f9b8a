package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/service"
	"github.com/user/wisepick/internal/utils"
)

// suggestRequest 推荐接口查询参数
type suggestRequest struct {
	Q string `form:"q" binding:"required,min=3,max=500"`
}

// popularRequest 热门查询参数
type popularRequest struct {
	Kind  string `form:"kind"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Root API 信息
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        h.Config.AppName,
		"version":     h.Config.AppVersion,
		"description": "API for Recommend Me Something - Get personalized book and movie recommendations",
		"endpoints": gin.H{
			"books":  []string{"/books/suggest", "/books/suggest-many"},
			"movies": []string{"/movies/suggest", "/movies/suggest-many"},
			"stats":  "/stats/popular",
			"health": "/health",
		},
	})
}

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": h.Config.AppVersion})
}

// Ready 就绪检查（数据库可用）
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logger.WithModule("handler").Warn("数据库不可用", zap.Error(err))
		utils.Error(c, http.StatusServiceUnavailable, "ServiceUnavailable", "Database is not reachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// SuggestBook 单本书推荐
func (h *Handler) SuggestBook(c *gin.Context) {
	h.suggest(c, model.KindBook, false)
}

// SuggestBooks 多本书推荐（结果缓存）
func (h *Handler) SuggestBooks(c *gin.Context) {
	h.suggest(c, model.KindBook, true)
}

// SuggestMovie 单部电影推荐
func (h *Handler) SuggestMovie(c *gin.Context) {
	h.suggest(c, model.KindMovie, false)
}

// SuggestMovies 多部电影推荐
func (h *Handler) SuggestMovies(c *gin.Context) {
	h.suggest(c, model.KindMovie, true)
}

func (h *Handler) suggest(c *gin.Context, kind model.ContentKind, multi bool) {
	var req suggestRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequest(c, "Query parameter 'q' is required and must be between 3 and 500 characters")
		return
	}

	rec, err := h.Recommend.Recommend(c.Request.Context(), req.Q, multi, kind)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !multi {
		utils.Success(c, rec.Item)
		return
	}
	if rec.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	utils.Success(c, rec.Items)
}

// PopularQueries 热门查询统计
func (h *Handler) PopularQueries(c *gin.Context) {
	var req popularRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequest(c, "Parameter 'limit' must be between 1 and 100")
		return
	}

	kind := model.KindBook
	if req.Kind != "" {
		parsed, err := model.ParseContentKind(req.Kind)
		if err != nil {
			utils.BadRequest(c, "Parameter 'kind' must be 'book' or 'movie'")
			return
		}
		kind = parsed
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	queries, err := h.Recommend.Popular(c.Request.Context(), kind, req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, gin.H{"kind": kind, "queries": queries})
}

// fail 把业务错误映射为状态码和统一错误结构
func (h *Handler) fail(c *gin.Context, err error) {
	se := service.AsError(err)
	log := logger.WithModule("handler").With(
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", utils.RequestID(c)),
	)

	_ = c.Error(err)
	if se.Kind == service.KindInternal {
		log.Error("请求处理失败", zap.Error(err))
		utils.InternalServerError(c, "An unexpected error occurred. Please try again later.")
		return
	}

	log.Warn("推荐请求失败", zap.String("kind", string(se.Kind)), zap.Error(err))
	utils.Error(c, se.StatusCode(), string(se.Kind), se.PublicMessage())
}
