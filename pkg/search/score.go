package search

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
)

// Field weights. A name hit always outranks any other single field.
const (
	weightNameExact     = 30
	weightNamePrefix    = 20
	weightNameSubstring = 10
	weightNameFuzzy     = 8
	weightAuthorExact   = 8
	weightAuthorPartial = 6
	weightDescription   = 5
	weightTag           = 3

	// minSimilarity is the lowest levenshtein similarity that counts as a fuzzy name hit.
	minSimilarity = 0.6
)

// aliases maps common non-English keywords to the English words plugin names use.
var aliases = map[string][]string{
	"天气": {"weather"},
	"音乐": {"music", "song"},
	"点歌": {"music", "song"},
	"翻译": {"translate", "translator"},
	"图片": {"image", "picture", "pic"},
	"绘图": {"draw", "image"},
	"游戏": {"game"},
	"新闻": {"news"},
	"提醒": {"remind", "reminder"},
	"签到": {"checkin", "sign"},
	"搜索": {"search"},
	"管理": {"admin", "manage"},
	"表情": {"emoji", "meme", "sticker"},
	"视频": {"video"},
	"股票": {"stock"},
	"日程": {"schedule", "calendar"},
	"聊天": {"chat"},
	"语音": {"voice", "tts"},
}

// tokenize lowercases the query and splits it on whitespace.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// expand returns the token followed by its aliases.
func expand(token string) []string {
	forms := []string{token}

	return append(forms, aliases[token]...)
}

// scoreEntry sums the best score of every query token.
func scoreEntry(e *catalog.Entry, tokens []string) float64 {
	name := strings.ToLower(e.Name)
	short := strings.ToLower(e.ShortName)
	author := strings.ToLower(e.Author)
	desc := strings.ToLower(e.Description)

	var total float64

	for _, token := range tokens {
		var best float64

		for _, form := range expand(token) {
			s := nameScore(form, name, short) +
				authorScore(form, author) +
				fieldScore(form, desc, weightDescription) +
				tagScore(form, e.Tags)

			best = max(best, s)
		}

		total += best
	}

	return total
}

func nameScore(token, name, short string) float64 {
	switch {
	case token == name || token == short:
		return weightNameExact
	case strings.HasPrefix(name, token) || strings.HasPrefix(short, token):
		return weightNamePrefix
	case strings.Contains(name, token):
		return weightNameSubstring
	}

	sim := max(levenshtein.Similarity(token, name, nil), levenshtein.Similarity(token, short, nil))
	if sim >= minSimilarity {
		return weightNameFuzzy * sim
	}

	return 0
}

func authorScore(token, author string) float64 {
	switch {
	case author == "":
		return 0
	case token == author:
		return weightAuthorExact
	case strings.Contains(author, token):
		return weightAuthorPartial
	default:
		return 0
	}
}

func fieldScore(token, field string, weight float64) float64 {
	if field != "" && strings.Contains(field, token) {
		return weight
	}

	return 0
}

func tagScore(token string, tags []string) float64 {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), token) {
			return weightTag
		}
	}

	return 0
}
