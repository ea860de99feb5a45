package domain

import (
	"regexp"
	"strings"
)

// Difficulty is the perceived difficulty of a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionSource tells API consumers whether a question came from the model
// or from the fallback template library.
type QuestionSource string

const (
	SourceGenerated QuestionSource = "generated"
	SourceFallback  QuestionSource = "fallback"
)

// ChoicesPerQuestion is the fixed number of answer choices.
const ChoicesPerQuestion = 4

// Choice is one answer option of a Question
type Choice struct {
	Content     string `json:"content"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

// Question is a validated multiple-choice question
type Question struct {
	Question    string         `json:"question"`
	Difficulty  Difficulty     `json:"difficulty"`
	Explanation string         `json:"explanation"`
	Choices     []Choice       `json:"choices"`
	Source      QuestionSource `json:"source"`
}

// ParseDifficulty normalizes free-form difficulty labels, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "basic", "beginner", "simple":
		return DifficultyEasy
	case "hard", "difficult", "advanced", "expert":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// IsValidDifficulty checks if a Difficulty is one of the known levels
func IsValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

var placeholderChoice = regexp.MustCompile(`(?i)^\s*(?:(?:option|choice|answer|đáp án)[\s:]*[(\[]?[a-d1-4][)\].:]?|[(\[]?[a-d][)\].:]?)\s*$`)

// IsPlaceholderChoice reports whether content is a bare label such as "A",
// "Option B" or "Choice 3" instead of an actual answer.
func IsPlaceholderChoice(content string) bool {
	return placeholderChoice.MatchString(content)
}

// ValidateQuestion checks the shape invariants of a question: non-empty text,
// exactly four concrete choices each with an explanation, exactly one correct.
func ValidateQuestion(q *Question) error {
	if q == nil {
		return &ValidationError{Field: "question", Reason: "cannot be nil"}
	}
	if strings.TrimSpace(q.Question) == "" {
		return &ValidationError{Field: "question", Reason: "text is required"}
	}
	if !IsValidDifficulty(q.Difficulty) {
		return &ValidationError{Field: "difficulty", Reason: "unknown level " + string(q.Difficulty)}
	}
	if len(q.Choices) != ChoicesPerQuestion {
		return &ValidationError{Field: "choices", Reason: "exactly 4 choices are required"}
	}

	correct := 0
	for _, c := range q.Choices {
		if strings.TrimSpace(c.Content) == "" {
			return &ValidationError{Field: "choices.content", Reason: "content is required"}
		}
		if IsPlaceholderChoice(c.Content) {
			return &ValidationError{Field: "choices.content", Reason: "placeholder label " + c.Content}
		}
		if strings.TrimSpace(c.Explanation) == "" {
			return &ValidationError{Field: "choices.explanation", Reason: "explanation is required"}
		}
		if c.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return &ValidationError{Field: "choices.is_correct", Reason: "exactly one choice must be correct"}
	}

	return nil
}
