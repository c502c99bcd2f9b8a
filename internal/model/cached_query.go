package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// CachedQuery 查询结果缓存（按规范化后的查询文本唯一）
type CachedQuery struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Kind           ContentKind    `json:"kind" gorm:"size:16;not null;uniqueIndex:idx_cached_queries_kind_query"`
	QueryText      string         `json:"query_text" gorm:"size:512;not null;uniqueIndex:idx_cached_queries_kind_query"`
	Results        datatypes.JSON `json:"results" gorm:"not null"`
	HitCount       int            `json:"hit_count" gorm:"not null;default:1;index"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at" gorm:"index"`
}

// TableName 指定表名
func (CachedQuery) TableName() string {
	return "cached_queries"
}

// Items 解析缓存的结果列表
func (q *CachedQuery) Items() ([]EnrichedItem, error) {
	if len(q.Results) == 0 {
		return []EnrichedItem{}, nil
	}
	var items []EnrichedItem
	if err := json.Unmarshal(q.Results, &items); err != nil {
		return nil, fmt.Errorf("decode cached results for %q: %w", q.QueryText, err)
	}
	return items, nil
}

// EncodeResults 序列化结果列表用于写入缓存
func EncodeResults(items []EnrichedItem) (datatypes.JSON, error) {
	if items == nil {
		items = []EnrichedItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// PopularQuery 热门查询统计
type PopularQuery struct {
	Kind           ContentKind `json:"kind"`
	QueryText      string      `json:"query_text"`
	HitCount       int         `json:"hit_count"`
	LastAccessedAt time.Time   `json:"last_accessed_at"`
}
