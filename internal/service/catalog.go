package service

import (
	"context"
	"strings"
)

// BookMatch Google Books 查询结果
type BookMatch struct {
	VolumeID      string
	Title         string
	Author        string
	Description   string
	CoverImageURL string
	PreviewURL    string
}

// MovieMatch TMDB 查询结果
type MovieMatch struct {
	TMDBID      int
	Title       string
	Overview    string
	PosterURL   string
	ReleaseDate string
	VoteAverage float64
	GenreNames  []string
}

// BookCatalog 书籍目录，未找到返回 nil, nil
type BookCatalog interface {
	SearchBook(ctx context.Context, title string) (*BookMatch, error)
}

// MovieCatalog 电影目录，未找到返回 nil, nil
type MovieCatalog interface {
	SearchMovie(ctx context.Context, title string) (*MovieMatch, error)
}

// TrailerFinder 预告片查询，找不到或出错时返回空字符串
type TrailerFinder interface {
	TrailerURL(ctx context.Context, title string) string
}

func memoKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
