package service

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/utils"
)

const (
	youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"
	youtubeWatchURL  = "https://www.youtube.com/watch?v="
)

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// YouTubeClient 通过 YouTube Data API 查找预告片
type YouTubeClient struct {
	apiKey  string
	baseURL string
	http    *utils.HTTPClient
	breaker *upstream[string]
	memo    *utils.LookupCache[string]
	log     *zap.Logger
}

func NewYouTubeClient(apiKey string, client *utils.HTTPClient) *YouTubeClient {
	return &YouTubeClient{
		apiKey:  apiKey,
		baseURL: youtubeSearchURL,
		http:    client,
		breaker: newUpstream[string]("YouTube"),
		memo:    utils.NewLookupCache[string](catalogMemoSize, catalogMemoTTL),
		log:     logger.WithModule("youtube"),
	}
}

// TrailerURL 搜索 "<标题> movie trailer"，返回第一个视频的链接
// 没有结果或调用失败都返回空字符串，不影响条目本身
func (c *YouTubeClient) TrailerURL(ctx context.Context, title string) string {
	key := memoKey(title)
	if link, ok := c.memo.Get(key); ok {
		return link
	}

	link, err := c.breaker.call(ctx, func(ctx context.Context) (string, error) {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("q", title+" movie trailer")
		params.Set("type", "video")
		params.Set("maxResults", "1")
		params.Set("key", c.apiKey)

		var resp youtubeSearchResponse
		if err := c.http.GetJSON(ctx, c.baseURL, params, nil, &resp); err != nil {
			return "", err
		}
		for _, item := range resp.Items {
			if item.ID.VideoID != "" {
				return youtubeWatchURL + item.ID.VideoID, nil
			}
		}
		return "", nil
	})
	if err != nil {
		c.log.Warn("获取预告片失败", zap.String("title", title), zap.Error(err))
		return ""
	}

	c.memo.Set(key, link)
	return link
}
