package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/user/wisepick/internal/model"
)

var (
	// ErrRefused 大模型认为查询不合理（回复 err）
	ErrRefused = errors.New("llm: query refused")
	// ErrUnparsable 回复中解析不出任何标题
	ErrUnparsable = errors.New("llm: unparsable reply")
)

var (
	reCodeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
	reQuoted    = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|'([^']*)'`)
	reListMark  = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
	reLabel     = regexp.MustCompile(`(?i)^(?:book|movie|film)?\s*title\s*:\s*`)
)

// ParseCandidates 解析大模型回复为候选列表
// 支持 JSON 对象数组、字符串数组、带引号的列表以及逐行列表；结果去重并截断到 limit
func ParseCandidates(reply string, limit int) ([]model.Candidate, error) {
	text := strings.TrimSpace(reply)
	if m := reCodeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if isRefusal(text) {
		return nil, ErrRefused
	}

	candidates := parseJSONList(text)
	if candidates == nil {
		candidates = parseQuotedList(text)
	}
	if candidates == nil {
		candidates = parseLines(text)
	}

	out := make([]model.Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		c.Title = CleanTitle(c.Title)
		c.ShortDescription = strings.Trim(c.ShortDescription, "\"'`“” \t")
		if c.Title == "" {
			continue
		}
		key := strings.ToLower(c.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrUnparsable
	}
	return out, nil
}

// CleanTitle 清理标题中的引号、编号、标签等杂质
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = reListMark.ReplaceAllString(title, "")
	title = reLabel.ReplaceAllString(title, "")
	title = strings.ReplaceAll(title, "**", "")
	title = strings.Trim(title, "\"'`“”‘’ \t")
	title = strings.TrimRight(title, ".,;:")
	return strings.Join(strings.Fields(title), " ")
}

func isRefusal(text string) bool {
	t := strings.ToLower(strings.Trim(text, "\"'`. \n\t"))
	return t == "err" || t == "error"
}

func parseJSONList(text string) []model.Candidate {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil
	}

	out := make([]model.Candidate, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, splitTitleDescription(s))
			continue
		}
		var obj struct {
			Title       string `json:"title"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Reason      string `json:"reason"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			continue
		}
		c := model.Candidate{Title: obj.Title, ShortDescription: obj.Description}
		if c.Title == "" {
			c.Title = obj.Name
		}
		if c.ShortDescription == "" {
			c.ShortDescription = obj.Reason
		}
		out = append(out, c)
	}
	return out
}

// parseQuotedList 处理 ['A', 'B'] 这类非严格 JSON 的列表
func parseQuotedList(text string) []model.Candidate {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	// 与 Python 风格列表里的所有格撇号冲突，先去掉
	body := strings.ReplaceAll(text[start+1:end], "'s", "s")
	matches := reQuoted.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]model.Candidate, 0, len(matches))
	for _, m := range matches {
		title := m[1]
		if title == "" {
			title = m[2]
		}
		out = append(out, model.Candidate{Title: title})
	}
	return out
}

func parseLines(text string) []model.Candidate {
	var out []model.Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		out = append(out, splitTitleDescription(line))
	}
	return out
}

// splitTitleDescription 处理 "标题 | 描述" 格式
func splitTitleDescription(s string) model.Candidate {
	title, desc, found := strings.Cut(s, "|")
	if !found {
		return model.Candidate{Title: s}
	}
	return model.Candidate{Title: title, ShortDescription: strings.TrimSpace(desc)}
}
