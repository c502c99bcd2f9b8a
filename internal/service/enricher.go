package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/metrics"
	"github.com/user/wisepick/internal/model"
)

// CatalogEnricher 用外部目录补全候选
type CatalogEnricher struct {
	books       BookCatalog
	movies      MovieCatalog
	trailers    TrailerFinder
	concurrency int
	timeout     time.Duration
	log         *zap.Logger
}

func NewCatalogEnricher(books BookCatalog, movies MovieCatalog, trailers TrailerFinder, concurrency int, timeout time.Duration) *CatalogEnricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CatalogEnricher{
		books:       books,
		movies:      movies,
		trailers:    trailers,
		concurrency: concurrency,
		timeout:     timeout,
		log:         logger.WithModule("enricher"),
	}
}

// Enrich 补全单个候选，目录中找不到时返回 nil, nil
func (e *CatalogEnricher) Enrich(ctx context.Context, candidate model.Candidate, kind model.ContentKind) (*model.EnrichedItem, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	switch kind {
	case model.KindBook:
		return e.enrichBook(ctx, candidate)
	case model.KindMovie:
		return e.enrichMovie(ctx, candidate)
	default:
		return nil, NewInvalidQueryError("unsupported content kind")
	}
}

func (e *CatalogEnricher) enrichBook(ctx context.Context, candidate model.Candidate) (*model.EnrichedItem, error) {
	match, err := e.books.SearchBook(ctx, candidate.Title)
	if err != nil || match == nil {
		return nil, err
	}

	return &model.EnrichedItem{
		Kind:        model.KindBook,
		Title:       firstNonEmpty(match.Title, candidate.Title),
		Description: firstNonEmpty(candidate.ShortDescription, match.Description),
		ExternalID:  match.VolumeID,
		BookDetails: &model.BookDetails{
			Author:        match.Author,
			CoverImageURL: match.CoverImageURL,
			PreviewURL:    match.PreviewURL,
		},
	}, nil
}

func (e *CatalogEnricher) enrichMovie(ctx context.Context, candidate model.Candidate) (*model.EnrichedItem, error) {
	match, err := e.movies.SearchMovie(ctx, candidate.Title)
	if err != nil || match == nil {
		return nil, err
	}

	title := firstNonEmpty(match.Title, candidate.Title)
	item := &model.EnrichedItem{
		Kind:        model.KindMovie,
		Title:       title,
		Description: candidate.ShortDescription,
		MovieDetails: &model.MovieDetails{
			Overview:    match.Overview,
			PosterURL:   match.PosterURL,
			TrailerURL:  e.trailers.TrailerURL(ctx, title),
			ReleaseDate: match.ReleaseDate,
			VoteAverage: match.VoteAverage,
			GenreNames:  match.GenreNames,
		},
	}
	if match.TMDBID != 0 {
		item.ExternalID = strconv.Itoa(match.TMDBID)
	}
	return item, nil
}

// EnrichAll 并发补全所有候选，结果保持候选原有顺序
// 单个候选失败或找不到只会被丢弃，不影响其它候选；失败原因通过 errs 返回
func (e *CatalogEnricher) EnrichAll(ctx context.Context, candidates []model.Candidate, kind model.ContentKind) ([]model.EnrichedItem, []error) {
	results := make([]*model.EnrichedItem, len(candidates))
	failures := make([]error, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i], failures[i] = e.Enrich(ctx, c, kind)
			return nil
		})
	}
	_ = g.Wait()

	items := make([]model.EnrichedItem, 0, len(candidates))
	var errs []error
	for i, item := range results {
		switch {
		case failures[i] != nil:
			metrics.EnrichmentDrops.WithLabelValues(kind.String(), "error").Inc()
			e.log.Warn("候选补全失败，已丢弃",
				zap.String("title", candidates[i].Title), zap.Error(failures[i]))
			errs = append(errs, failures[i])
		case item == nil:
			metrics.EnrichmentDrops.WithLabelValues(kind.String(), "not_found").Inc()
			e.log.Info("目录中未找到候选，已丢弃", zap.String("title", candidates[i].Title))
		default:
			items = append(items, *item)
		}
	}
	return items, errs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rateLimitError 返回第一个限流错误
func rateLimitError(errs []error) error {
	for _, err := range errs {
		if errors.Is(err, ErrRateLimitExceeded) {
			return err
		}
	}
	return nil
}
