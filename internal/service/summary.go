package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/cloo-solutions/quizgen/internal/logger"
)

const (
	summaryMaxTokens   = 300
	summaryExcerptRune = 1500
	summaryKeywords    = 3
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"from": {}, "have": {}, "were": {}, "been": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "might": {}, "must": {}, "shall": {}, "does": {},
	"which": {}, "their": {}, "there": {}, "these": {}, "those": {}, "they": {},
	"into": {}, "also": {}, "than": {}, "then": {}, "when": {}, "what": {},
	"where": {}, "your": {}, "about": {}, "such": {}, "more": {}, "other": {},
	"page": {}, "each": {}, "only": {}, "some": {}, "most": {}, "them": {},
}

// Summarizer produces the short summary attached to a quiz result.
type Summarizer struct {
	completer Completer
	prompts   *PromptBuilder
	log       *logger.Logger
}

func NewSummarizer(completer Completer, prompts *PromptBuilder, log *logger.Logger) *Summarizer {
	if prompts == nil {
		prompts = NewPromptBuilder(DefaultPromptMaxChars)
	}
	return &Summarizer{completer: completer, prompts: prompts, log: logger.OrNop(log)}
}

// Summarize asks the completion endpoint for a summary of excerpt and falls
// back to a keyword summary when that fails.
func (s *Summarizer) Summarize(ctx context.Context, names []string, excerpt string) string {
	if strings.TrimSpace(excerpt) == "" {
		return KeywordSummary(names, "")
	}

	if s.completer != nil {
		text, err := s.completer.Complete(ctx, s.prompts.BuildSummary(names, excerpt), summaryMaxTokens)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		s.log.Warn("summary: generation failed, using keyword summary", "error", err)
	}
	return KeywordSummary(names, excerpt)
}

// KeywordSummary describes the documents by their most frequent content
// words.
func KeywordSummary(names []string, content string) string {
	var sb strings.Builder

	switch len(names) {
	case 0:
		sb.WriteString("This material contains educational content")
	case 1:
		sb.WriteString(fmt.Sprintf("This document (%s) contains educational material", names[0]))
	default:
		shown := names
		more := ""
		if len(shown) > 3 {
			shown, more = shown[:3], "..."
		}
		sb.WriteString(fmt.Sprintf("These %d documents (%s%s) contain educational material",
			len(names), strings.Join(shown, ", "), more))
	}

	if kw := topKeywords(truncateRunes(content, summaryExcerptRune, ""), summaryKeywords); len(kw) > 0 {
		sb.WriteString(" covering topics related to ")
		sb.WriteString(strings.Join(kw, ", "))
	}
	sb.WriteString(", designed to test understanding of key concepts and principles.")
	return sb.String()
}

func topKeywords(text string, n int) []string {
	freq := make(map[string]int)
	first := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		if len([]rune(w)) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := first[w]; !seen {
			first[w] = i
		}
		freq[w]++
	}

	keys := make([]string, 0, len(freq))
	for w := range freq {
		keys = append(keys, w)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return first[keys[i]] < first[keys[j]]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
