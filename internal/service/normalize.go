package service

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	MinQueryLength = 3
	MaxQueryLength = 500
)

// NormalizeQuery 规范化查询：去首尾空白、合并连续空白、Unicode 大小写折叠
// 规范化后长度不在 [3, 500] 范围内返回 InvalidQueryError
func NormalizeQuery(raw string) (string, error) {
	collapsed := strings.Join(strings.Fields(raw), " ")
	// cases.Caser 不是并发安全的，每次调用使用独立副本
	normalized := cases.Fold().String(collapsed)

	switch n := utf8.RuneCountInString(normalized); {
	case n == 0:
		return "", NewInvalidQueryError("Query must not be empty")
	case n < MinQueryLength:
		return "", NewInvalidQueryError("Query must be at least 3 characters long")
	case n > MaxQueryLength:
		return "", NewInvalidQueryError("Query must be at most 500 characters long")
	}
	return normalized, nil
}
