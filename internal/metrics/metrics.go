package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups 查询缓存命中情况 (hit|miss)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_cache_lookups_total",
			Help: "Query cache lookups by content kind and result",
		},
		[]string{"kind", "result"},
	)

	// CacheStores 新写入的缓存行
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_cache_stores_total",
			Help: "Query cache rows created",
		},
		[]string{"kind"},
	)

	// CacheDuplicates 并发写入冲突后按命中处理的次数
	CacheDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_cache_duplicate_resolutions_total",
			Help: "Concurrent cache stores resolved as hits",
		},
		[]string{"kind"},
	)

	// CacheEvictions 清理任务删除的缓存行 (ttl|size)
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_cache_evictions_total",
			Help: "Query cache rows removed by maintenance",
		},
		[]string{"reason"},
	)

	// EnrichmentDrops 无法补全而被丢弃的候选
	EnrichmentDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_enrichment_drops_total",
			Help: "Candidates dropped during catalog enrichment",
		},
		[]string{"kind", "reason"},
	)

	// ExternalCalls 外部 API 调用结果 (success|failure|rejected)
	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_external_calls_total",
			Help: "Calls to external APIs by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// ExternalLatency 外部 API 调用耗时
	ExternalLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wisepick_external_call_seconds",
			Help:    "Latency of external API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Recommendations 推荐请求结果
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wisepick_recommendations_total",
			Help: "Recommendation requests by kind, mode and outcome",
		},
		[]string{"kind", "mode", "outcome"},
	)

	// CircuitBreakerState 熔断器状态 (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wisepick_circuit_breaker_state",
			Help: "Circuit breaker state per upstream",
		},
		[]string{"service"},
	)

	// APILatency HTTP 请求耗时
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wisepick_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
