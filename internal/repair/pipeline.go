// Package repair turns model output that should be JSON, but often is not,
// into validated questions.
package repair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

// ErrParse is returned when every strategy failed to recover a question list.
var ErrParse = errors.New("repair: no strategy recovered a questions array")

// Strategy is one way of recovering the raw question objects from text. Apply
// is pure and reports false when the strategy does not apply.
type Strategy struct {
	Name  string
	Apply func(text string) ([]json.RawMessage, bool)
}

// Strategy names, in the order DefaultStrategies tries them.
const (
	StrategyDirect  = "direct"
	StrategyBounded = "bounded"
	StrategyOuter   = "outer"
	StrategyRepair  = "repair"
	StrategyArray   = "array"
	StrategyManual  = "manual"
)

// DefaultStrategies returns the strategies from strictest to most permissive.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyDirect, Apply: parseDirect},
		{Name: StrategyBounded, Apply: parseBounded},
		{Name: StrategyOuter, Apply: parseOuter},
		{Name: StrategyRepair, Apply: parseRepaired},
		{Name: StrategyArray, Apply: parseArrayOnly},
		{Name: StrategyManual, Apply: parseManual},
	}
}

// FirstSuccess applies strategies in order and returns the result of the first
// one that applies, with its name.
func FirstSuccess(strategies []Strategy, text string) ([]json.RawMessage, string, bool) {
	for _, s := range strategies {
		if raw, ok := s.Apply(text); ok {
			return raw, s.Name, true
		}
	}
	return nil, "", false
}

// Result is the outcome of Parse.
type Result struct {
	Questions []domain.Question
	// Strategy names the strategy that recovered the candidates.
	Strategy string
	// Candidates counts recovered question objects, Dropped those that failed
	// validation.
	Candidates int
	Dropped    int
	Err        error
}

// Parse recovers the validated questions from text using DefaultStrategies.
func Parse(text string) Result {
	return ParseWith(DefaultStrategies(), text)
}

// ParseWith recovers the validated questions from text. A question that fails
// validation is dropped while its siblings are kept. When no strategy applies,
// Result.Err is ErrParse and Questions is empty.
func ParseWith(strategies []Strategy, text string) Result {
	text = stripCodeFences(text)
	if text == "" {
		return Result{Err: ErrParse}
	}

	raw, name, ok := FirstSuccess(strategies, text)
	if !ok {
		return Result{Err: ErrParse}
	}

	res := Result{Strategy: name, Candidates: len(raw)}
	for _, r := range raw {
		q, err := normalize(r)
		if err != nil {
			res.Dropped++
			continue
		}
		res.Questions = append(res.Questions, q)
	}
	return res
}

type payload struct {
	Questions []json.RawMessage `json:"questions"`
}

// decodePayload strict-decodes s as an object holding a non-empty questions
// array.
func decodePayload(s string) ([]json.RawMessage, bool) {
	var p payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, false
	}
	if len(p.Questions) == 0 {
		return nil, false
	}
	return p.Questions, true
}

func parseDirect(text string) ([]json.RawMessage, bool) {
	return decodePayload(strings.TrimSpace(text))
}

func parseBounded(text string) ([]json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := balancedEnd(text, i)
		if end == -1 {
			continue
		}
		span := text[i : end+1]
		if !strings.Contains(span, `"questions"`) {
			continue
		}
		if qs, ok := decodePayload(span); ok {
			return qs, true
		}
	}
	return nil, false
}

func outerSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func parseOuter(text string) ([]json.RawMessage, bool) {
	span, ok := outerSpan(text)
	if !ok {
		return nil, false
	}
	return decodePayload(span)
}

// parseRepaired repairs the outer-brace span first and then everything from
// the first brace to the end, which covers output cut off mid-object.
func parseRepaired(text string) ([]json.RawMessage, bool) {
	var candidates []string
	if span, ok := outerSpan(text); ok {
		candidates = append(candidates, span)
	}
	if start := strings.IndexByte(text, '{'); start != -1 {
		candidates = append(candidates, text[start:])
	}

	for _, c := range candidates {
		if qs, ok := repairCandidate(c); ok {
			return qs, true
		}
	}
	return nil, false
}

var questionsArray = regexp.MustCompile(`["']?questions["']?\s*:\s*\[`)

func parseArrayOnly(text string) ([]json.RawMessage, bool) {
	loc := questionsArray.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	start := loc[1] - 1

	if end := balancedEnd(text, start); end != -1 {
		if qs, ok := decodePayload(`{"questions":` + text[start:end+1] + `}`); ok {
			return qs, true
		}
	}
	return repairCandidate(`{"questions":` + text[start:])
}
