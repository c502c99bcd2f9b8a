package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/utils"
)

const (
	tmdbAPIURL       = "https://api.themoviedb.org/3"
	tmdbImageURL     = "https://image.tmdb.org/t/p/original/"
	tmdbGenresKey    = "tmdb:genres"
	unknownGenreName = "Unknown Genre"
)

type tmdbSearchResponse struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		PosterPath  string  `json:"poster_path"`
		ReleaseDate string  `json:"release_date"`
		VoteAverage float64 `json:"vote_average"`
		GenreIDs    []int   `json:"genre_ids"`
	} `json:"results"`
}

type tmdbGenresResponse struct {
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// TMDBClient TMDB 电影目录
// 同时支持 v3 api_key 与 v4 访问令牌 (Bearer)
type TMDBClient struct {
	apiKey      string
	accessToken string
	baseURL     string
	http        *utils.HTTPClient
	breaker     *upstream[*MovieMatch]
	memo        *utils.LookupCache[*MovieMatch]
	genres      *cache.Cache
	log         *zap.Logger
}

func NewTMDBClient(apiKey, accessToken string, client *utils.HTTPClient) *TMDBClient {
	return &TMDBClient{
		apiKey:      apiKey,
		accessToken: accessToken,
		baseURL:     tmdbAPIURL,
		http:        client,
		breaker:     newUpstream[*MovieMatch]("TMDB"),
		memo:        utils.NewLookupCache[*MovieMatch](catalogMemoSize, catalogMemoTTL),
		genres:      cache.New(24*time.Hour, time.Hour),
		log:         logger.WithModule("tmdb"),
	}
}

// SearchMovie 按标题查询第一部匹配的电影
func (c *TMDBClient) SearchMovie(ctx context.Context, title string) (*MovieMatch, error) {
	key := memoKey(title)
	if match, ok := c.memo.Get(key); ok {
		return match, nil
	}

	match, err := c.breaker.call(ctx, func(ctx context.Context) (*MovieMatch, error) {
		params := c.params()
		params.Set("query", title)

		var resp tmdbSearchResponse
		if err := c.http.GetJSON(ctx, c.baseURL+"/search/movie", params, c.headers(), &resp); err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			return nil, nil
		}

		r := resp.Results[0]
		match := &MovieMatch{
			TMDBID:      r.ID,
			Title:       r.Title,
			Overview:    r.Overview,
			ReleaseDate: r.ReleaseDate,
			VoteAverage: r.VoteAverage,
		}
		if r.PosterPath != "" {
			match.PosterURL = tmdbImageURL + strings.TrimPrefix(r.PosterPath, "/")
		}
		if len(r.GenreIDs) > 0 {
			match.GenreNames = c.genreNames(ctx, r.GenreIDs)
		}
		return match, nil
	})
	if err != nil {
		c.log.Warn("查询电影失败", zap.String("title", title), zap.Error(err))
		return nil, externalError("TMDB", err)
	}

	c.memo.Set(key, match)
	return match, nil
}

// genreNames 将类型 ID 转换为名称，类型列表缓存 24 小时
func (c *TMDBClient) genreNames(ctx context.Context, ids []int) []string {
	genres := c.loadGenres(ctx)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genres[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, unknownGenreName)
		}
	}
	return names
}

func (c *TMDBClient) loadGenres(ctx context.Context) map[int]string {
	if cached, found := c.genres.Get(tmdbGenresKey); found {
		return cached.(map[int]string)
	}

	var resp tmdbGenresResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/genre/movie/list", c.params(), c.headers(), &resp); err != nil {
		// 获取失败不缓存，下次重试
		c.log.Warn("获取电影类型列表失败", zap.Error(err))
		return map[int]string{}
	}

	genres := make(map[int]string, len(resp.Genres))
	for _, g := range resp.Genres {
		genres[g.ID] = g.Name
	}
	c.genres.SetDefault(tmdbGenresKey, genres)
	return genres
}

func (c *TMDBClient) params() url.Values {
	params := url.Values{}
	if c.accessToken == "" && c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

func (c *TMDBClient) headers() map[string]string {
	if c.accessToken == "" {
		return nil
	}
	return map[string]string{"Authorization": fmt.Sprintf("Bearer %s", c.accessToken)}
}
