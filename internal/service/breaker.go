package service

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/metrics"
)

// upstream 外部 API 调用封装：熔断 + 指标
type upstream[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

func newUpstream[T any](name string) *upstream[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 调用方主动取消不算上游故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.WithModule("breaker").Warn("熔断器状态变化",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &upstream[T]{name: name, cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// call 执行一次上游调用，熔断打开时直接返回 ExternalAPIError
func (u *upstream[T]) call(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := u.cb.Execute(func() (T, error) {
		return fn(ctx)
	})
	metrics.ExternalLatency.WithLabelValues(u.name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ExternalCalls.WithLabelValues(u.name, "success").Inc()
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ExternalCalls.WithLabelValues(u.name, "rejected").Inc()
		var zero T
		return zero, NewExternalAPIError(u.name, "service temporarily unavailable", err)
	default:
		metrics.ExternalCalls.WithLabelValues(u.name, "failure").Inc()
		var zero T
		return zero, err
	}
}
