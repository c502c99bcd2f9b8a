package model

import (
	"fmt"
	"strings"
)

// ContentKind 推荐内容类型
type ContentKind string

const (
	KindBook  ContentKind = "book"
	KindMovie ContentKind = "movie"
)

// ParseContentKind 解析内容类型（不区分大小写，支持复数形式）
func ParseContentKind(s string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "book", "books":
		return KindBook, nil
	case "movie", "movies", "film", "films":
		return KindMovie, nil
	default:
		return "", fmt.Errorf("unknown content kind %q", s)
	}
}

func (k ContentKind) String() string {
	return string(k)
}

// Candidate 大模型给出的候选标题（未补全）
type Candidate struct {
	Title            string `json:"title"`
	ShortDescription string `json:"description"`
}

// EnrichedItem 补全后的推荐条目
// 书籍和电影共用外层字段，各自的专属字段放在 BookDetails / MovieDetails 中，
// 同一条目只会有其中一个非 nil。
type EnrichedItem struct {
	ID          int         `json:"id,omitempty"` // 列表中的位置，从 1 开始
	Kind        ContentKind `json:"kind"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ExternalID  string      `json:"external_id,omitempty"`

	*BookDetails
	*MovieDetails
}

// BookDetails 书籍专属字段（Google Books）
type BookDetails struct {
	Author        string `json:"author"`
	CoverImageURL string `json:"cover_image_url"`
	PreviewURL    string `json:"preview_url"`
}

// MovieDetails 电影专属字段（TMDB + YouTube）
type MovieDetails struct {
	Overview    string   `json:"overview"`
	PosterURL   string   `json:"poster_url"`
	TrailerURL  string   `json:"trailer_url"`
	ReleaseDate string   `json:"release_date,omitempty"`
	VoteAverage float64  `json:"vote_average,omitempty"`
	GenreNames  []string `json:"genre_names,omitempty"`
}

// NumberItems 按顺序为条目分配 1 开始的 id
func NumberItems(items []EnrichedItem) []EnrichedItem {
	out := make([]EnrichedItem, len(items))
	for i, item := range items {
		item.ID = i + 1
		out[i] = item
	}
	return out
}
