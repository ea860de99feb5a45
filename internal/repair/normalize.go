package repair

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

// Defaults used only by manual extraction, which rebuilds questions from
// fragments. Decoded questions must carry their own choice explanations.
const (
	defaultCorrectExplanation   = "This answer is supported by the document."
	defaultIncorrectExplanation = "This answer is not supported by the document."
	defaultQuestionExplanation  = "Based on the document content."
)

// flexBool accepts true, "true", "yes", 1 and their negatives.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	switch s {
	case "true", "yes", "1", "correct":
		*b = true
	default:
		*b = false
	}
	return nil
}

type rawChoice struct {
	Answer      string   `json:"answer"`
	Content     string   `json:"content"`
	Text        string   `json:"text"`
	IsCorrect   flexBool `json:"is_correct"`
	Correct     flexBool `json:"correct"`
	Explanation string   `json:"explanation"`
	Reason      string   `json:"reason"`
}

// rawQuestion accepts the current choices shape as well as the older
// options/correct_answer shape some models still produce. Either way every
// choice is an object with its own explanation or reason.
type rawQuestion struct {
	Question      string            `json:"question"`
	Text          string            `json:"text"`
	Difficulty    string            `json:"difficulty"`
	Explanation   string            `json:"explanation"`
	Hint          string            `json:"hint"`
	Choices       []json.RawMessage `json:"choices"`
	Options       json.RawMessage   `json:"options"`
	CorrectAnswer json.RawMessage   `json:"correct_answer"`
}

var choiceLabel = regexp.MustCompile(`^\s*[(\[]?[A-Da-d][)\].:]\s+`)

// normalize decodes one raw question object and validates it. Missing choice
// fields are not filled in, so an incomplete question fails validation.
func normalize(raw json.RawMessage) (domain.Question, error) {
	var rq rawQuestion
	if err := json.Unmarshal(raw, &rq); err != nil {
		return domain.Question{}, &domain.ValidationError{Field: "question", Reason: "not an object"}
	}

	q := domain.Question{
		Question:    firstNonEmpty(rq.Question, rq.Text),
		Difficulty:  domain.ParseDifficulty(rq.Difficulty),
		Explanation: firstNonEmpty(rq.Explanation, rq.Hint, defaultQuestionExplanation),
		Source:      domain.SourceGenerated,
	}
	q.Question = strings.TrimSpace(q.Question)

	if len(rq.Choices) > 0 {
		q.Choices = decodeChoices(rq.Choices)
	} else {
		q.Choices = decodeOptions(rq.Options, rq.CorrectAnswer)
	}

	if err := domain.ValidateQuestion(&q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func decodeChoices(items []json.RawMessage) []domain.Choice {
	choices := make([]domain.Choice, 0, len(items))
	for _, item := range items {
		var rc rawChoice
		if err := json.Unmarshal(item, &rc); err != nil {
			continue
		}
		choices = append(choices, rc.choice())
	}
	return choices
}

func (rc rawChoice) choice() domain.Choice {
	return domain.Choice{
		Content:     stripLabel(firstNonEmpty(rc.Content, rc.Text)),
		IsCorrect:   bool(rc.IsCorrect || rc.Correct),
		Explanation: strings.TrimSpace(firstNonEmpty(rc.Explanation, rc.Reason)),
	}
}

// decodeOptions handles a list of option objects whose correct one is named
// by correct_answer or by its own correct flag.
func decodeOptions(options, correct json.RawMessage) []domain.Choice {
	if len(options) == 0 {
		return nil
	}
	answer := correctAnswer(correct)

	var list []json.RawMessage
	if err := json.Unmarshal(options, &list); err != nil {
		return nil
	}
	choices := make([]domain.Choice, 0, len(list))
	for i, item := range list {
		var rc rawChoice
		if err := json.Unmarshal(item, &rc); err != nil {
			continue
		}
		letter := string(rune('A' + i))
		if rc.Answer != "" {
			letter = strings.ToUpper(strings.TrimSpace(rc.Answer))
		}
		c := rc.choice()
		c.IsCorrect = c.IsCorrect || answer.matches(letter, i, c.Content)
		choices = append(choices, c)
	}
	return choices
}

// answerRef is the decoded correct_answer: a letter, an index or the answer text.
type answerRef struct {
	letter string
	index  int
	text   string
}

func correctAnswer(raw json.RawMessage) answerRef {
	ref := answerRef{index: -1}
	if len(raw) == 0 {
		return ref
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		ref.index = n
		return ref
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ref
	}
	s = strings.TrimSpace(s)
	if bare := strings.ToUpper(strings.Trim(s, "()[].: ")); len(bare) == 1 && bare >= "A" && bare <= "D" {
		ref.letter = bare
		return ref
	}
	if n, err := strconv.Atoi(s); err == nil {
		ref.index = n
		return ref
	}
	ref.text = stripLabel(s)
	return ref
}

func (a answerRef) matches(letter string, index int, content string) bool {
	switch {
	case a.letter != "":
		return a.letter == letter
	case a.index >= 0:
		return a.index == index
	case a.text != "":
		return strings.EqualFold(a.text, stripLabel(content))
	}
	return false
}

// stripLabel removes a leading "A. " or "(b) " label from choice text.
func stripLabel(s string) string {
	s = strings.TrimSpace(s)
	if loc := choiceLabel.FindStringIndex(s); loc != nil && loc[1] < len(s) {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
