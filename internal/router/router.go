package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/wisepick/internal/config"
	"github.com/user/wisepick/internal/handler"
	"github.com/user/wisepick/internal/middleware"
	"github.com/user/wisepick/internal/utils"
)

// New 创建 gin 引擎并注册中间件与路由
func New(cfg *config.Config, h *handler.Handler) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
		cors.New(corsConfig(cfg.CORS)),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== 书籍 ====================
	books := r.Group("/books")
	{
		books.GET("/suggest", h.SuggestBook)
		books.GET("/suggest-many", h.SuggestBooks)
	}

	// ==================== 电影 ====================
	movies := r.Group("/movies")
	{
		movies.GET("/suggest", h.SuggestMovie)
		movies.GET("/suggest-many", h.SuggestMovies)
	}

	// ==================== 统计 ====================
	r.GET("/stats/popular", h.PopularQueries)

	r.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "")
	})
}

// corsConfig 通配或未配置来源时使用 AllowAllOrigins（此时不携带凭证）
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  c.AllowMethods,
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderProcessTime, "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if c.AllowsAllOrigins() || len(c.AllowOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowOrigins
		cc.AllowCredentials = c.AllowCredentials
	}
	return cc
}
