package service

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/utils"
)

const (
	googleBooksURL   = "https://www.googleapis.com/books/v1/volumes"
	unknownAuthor    = "Unknown Author"
	placeholderCover = "assets/images/image-err.png"
	catalogMemoSize  = 2048
	catalogMemoTTL   = time.Hour
)

type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			PreviewLink string   `json:"previewLink"`
			ImageLinks  struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// GoogleBooksClient Google Books 目录
type GoogleBooksClient struct {
	apiKey  string
	baseURL string
	http    *utils.HTTPClient
	breaker *upstream[*BookMatch]
	memo    *utils.LookupCache[*BookMatch]
	log     *zap.Logger
}

func NewGoogleBooksClient(apiKey string, client *utils.HTTPClient) *GoogleBooksClient {
	return &GoogleBooksClient{
		apiKey:  apiKey,
		baseURL: googleBooksURL,
		http:    client,
		breaker: newUpstream[*BookMatch]("Google Books"),
		memo:    utils.NewLookupCache[*BookMatch](catalogMemoSize, catalogMemoTTL),
		log:     logger.WithModule("google_books"),
	}
}

// SearchBook 按标题 (intitle:) 查询第一本匹配的书
func (c *GoogleBooksClient) SearchBook(ctx context.Context, title string) (*BookMatch, error) {
	key := memoKey(title)
	if match, ok := c.memo.Get(key); ok {
		return match, nil
	}

	match, err := c.breaker.call(ctx, func(ctx context.Context) (*BookMatch, error) {
		params := url.Values{}
		params.Set("q", "intitle:"+title)
		params.Set("maxResults", "1")
		if c.apiKey != "" {
			params.Set("key", c.apiKey)
		}

		var resp googleBooksResponse
		if err := c.http.GetJSON(ctx, c.baseURL, params, nil, &resp); err != nil {
			return nil, err
		}
		return firstVolume(resp), nil
	})
	if err != nil {
		c.log.Warn("查询书籍失败", zap.String("title", title), zap.Error(err))
		return nil, externalError("Google Books", err)
	}

	if match == nil {
		c.log.Debug("未找到书籍", zap.String("title", title))
	}
	c.memo.Set(key, match)
	return match, nil
}

func firstVolume(resp googleBooksResponse) *BookMatch {
	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return nil
	}

	item := resp.Items[0]
	info := item.VolumeInfo
	match := &BookMatch{
		VolumeID:      item.ID,
		Title:         info.Title,
		Author:        unknownAuthor,
		Description:   info.Description,
		CoverImageURL: placeholderCover,
		PreviewURL:    info.PreviewLink,
	}
	if len(info.Authors) > 0 && info.Authors[0] != "" {
		match.Author = info.Authors[0]
	}
	switch {
	case info.ImageLinks.Thumbnail != "":
		match.CoverImageURL = info.ImageLinks.Thumbnail
	case info.ImageLinks.SmallThumbnail != "":
		match.CoverImageURL = info.ImageLinks.SmallThumbnail
	}
	return match
}
