package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/utils"
)

// SuggestionGenerator 调用大模型获取候选标题
type SuggestionGenerator struct {
	completer utils.Completer
	limiter   *rate.Limiter // nil 表示不限流
	log       *zap.Logger
}

// NewSuggestionGenerator perMinute <= 0 时不限制调用频率
func NewSuggestionGenerator(completer utils.Completer, perMinute int) *SuggestionGenerator {
	g := &SuggestionGenerator{
		completer: completer,
		log:       logger.WithModule("generator"),
	}
	if perMinute > 0 {
		burst := perMinute / 6
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
	return g
}

// Generate 返回最多 count 个候选，顺序即模型给出的推荐顺序
func (g *SuggestionGenerator) Generate(ctx context.Context, query string, count int, kind model.ContentKind) ([]model.Candidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, NewInvalidQueryError("Query must be at least 3 characters long")
	}
	if count < 1 {
		count = 1
	}

	provider := providerName(g.completer.Provider())
	if g.limiter != nil && !g.limiter.Allow() {
		return nil, NewRateLimitExceededError(
			fmt.Sprintf("%s API rate limit exceeded. Please try again later.", provider), nil)
	}

	reply, err := g.completer.Complete(ctx, buildPrompt(query, count, kind))
	if err != nil {
		g.log.Warn("大模型调用失败", zap.String("provider", provider), zap.Error(err))
		if errors.Is(err, utils.ErrRateLimited) {
			return nil, NewRateLimitExceededError(
				fmt.Sprintf("%s API rate limit exceeded. Please try again later.", provider), err)
		}
		return nil, externalError(provider, err)
	}

	// 拒答或无法解析都视为查询本身不合适
	candidates, err := utils.ParseCandidates(reply, count)
	if err != nil {
		if !errors.Is(err, utils.ErrRefused) {
			g.log.Warn("无法解析大模型回复", zap.String("provider", provider), zap.String("reply", reply))
		}
		return nil, &Error{
			Kind:    KindInvalidQuery,
			Message: fmt.Sprintf("Please provide a proper query for %s recommendations", kind),
			Err:     err,
		}
	}

	g.log.Debug("生成候选", zap.String("kind", kind.String()), zap.Int("count", len(candidates)))
	return candidates, nil
}

func buildPrompt(query string, count int, kind model.ContentKind) string {
	noun := "book"
	extra := "without author names"
	if kind == model.KindMovie {
		noun = "movie"
		extra = "without release years"
	}
	if !strings.HasSuffix(query, ".") {
		query += "."
	}

	var b strings.Builder
	if count == 1 {
		fmt.Fprintf(&b, "Recommend a single %s title %s according to:\n%s\n\n", noun, extra, query)
	} else {
		fmt.Fprintf(&b, "Recommend up to %d %s titles %s according to:\n%s\n\n", count, noun, extra, query)
	}
	fmt.Fprintf(&b, "Respond with only a JSON array of objects with \"title\" and \"description\" keys, "+
		"where description is one sentence on how the %s fits the request.\n", noun)
	b.WriteString("Give output 'err' if the query is not proper.")
	return b.String()
}

func providerName(provider string) string {
	switch provider {
	case "openai":
		return "OpenAI"
	case "gemini":
		return "Gemini"
	case "ollama":
		return "Ollama"
	default:
		return provider
	}
}
