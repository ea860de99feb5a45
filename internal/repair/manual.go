package repair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// minManualChoices is the fewest choices a manually recovered question may
// have before padding.
const minManualChoices = 2

var (
	manualQuestion    = regexp.MustCompile(`"question"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	manualDifficulty  = regexp.MustCompile(`"difficulty"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	manualExplanation = regexp.MustCompile(`"(?:explanation|hint)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	manualChoices     = regexp.MustCompile(`"(?:choices|options)"\s*:\s*\[`)
	manualContent     = regexp.MustCompile(`"(?:content|text)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	manualCorrect     = regexp.MustCompile(`"(?:is_correct|correct)"\s*:\s*"?(true|false)"?`)
	manualChoiceWhy   = regexp.MustCompile(`"(?:explanation|reason)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// fillerChoices pad manually recovered questions. None of them is ever
// correct and each names itself as filler.
var fillerChoices = []string{
	"Filler: this option is not mentioned in the document",
	"Filler: this option contradicts the document",
	"Filler: this option is not supported by the evidence",
	"Filler: this option is unrelated to the material",
}

const fillerExplanation = "Filler choice added because the response was incomplete; it is never correct."

type manualChoice struct {
	Content     string `json:"content"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

type manualQuestionObj struct {
	Question    string         `json:"question"`
	Difficulty  string         `json:"difficulty"`
	Explanation string         `json:"explanation"`
	Choices     []manualChoice `json:"choices"`
}

// parseManual scans the raw text for question blocks field by field, without
// decoding the text as a whole. Recovered questions are padded to four choices
// and get exactly one correct choice.
func parseManual(text string) ([]json.RawMessage, bool) {
	starts := manualQuestion.FindAllStringSubmatchIndex(text, -1)
	if len(starts) == 0 {
		return nil, false
	}

	var out []json.RawMessage
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := text[loc[0]:end]
		questionText := unescape(text[loc[2]:loc[3]])

		q, ok := manualBlock(questionText, block)
		if !ok {
			continue
		}
		raw, err := json.Marshal(q)
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out, len(out) > 0
}

func manualBlock(questionText, block string) (manualQuestionObj, bool) {
	if strings.TrimSpace(questionText) == "" {
		return manualQuestionObj{}, false
	}

	q := manualQuestionObj{Question: strings.TrimSpace(questionText), Difficulty: "medium"}
	if m := manualDifficulty.FindStringSubmatch(block); m != nil {
		q.Difficulty = unescape(m[1])
	}

	loc := manualChoices.FindStringIndex(block)
	if loc == nil {
		return manualQuestionObj{}, false
	}
	head := block[:loc[0]]
	choicesText := block[loc[1]:]
	tail := ""
	if end := balancedEnd(block, loc[1]-1); end != -1 {
		choicesText = block[loc[1]:end]
		tail = block[end+1:]
	}

	if m := manualExplanation.FindStringSubmatch(head); m != nil {
		q.Explanation = unescape(m[1])
	} else if m := manualExplanation.FindStringSubmatch(tail); m != nil {
		q.Explanation = unescape(m[1])
	}
	if strings.TrimSpace(q.Explanation) == "" {
		q.Explanation = defaultQuestionExplanation
	}

	q.Choices = manualChoiceList(choicesText)
	if len(q.Choices) < minManualChoices {
		return manualQuestionObj{}, false
	}
	q.Choices = settleChoices(q.Choices)
	return q, true
}

func manualChoiceList(s string) []manualChoice {
	contents := manualContent.FindAllStringSubmatchIndex(s, -1)
	choices := make([]manualChoice, 0, len(contents))
	for i, loc := range contents {
		end := len(s)
		if i+1 < len(contents) {
			end = contents[i+1][0]
		}
		seg := s[loc[1]:end]

		c := manualChoice{Content: stripLabel(unescape(s[loc[2]:loc[3]]))}
		if c.Content == "" {
			continue
		}
		if m := manualCorrect.FindStringSubmatch(seg); m != nil {
			c.IsCorrect = m[1] == "true"
		}
		if m := manualChoiceWhy.FindStringSubmatch(seg); m != nil {
			c.Explanation = unescape(m[1])
		}
		choices = append(choices, c)
	}
	return choices
}

// settleChoices enforces exactly one correct choice among exactly four. The
// first marked choice wins; with none marked the first choice is correct.
func settleChoices(choices []manualChoice) []manualChoice {
	correct := -1
	for i, c := range choices {
		if c.IsCorrect {
			correct = i
			break
		}
	}
	if correct == -1 {
		correct = 0
	}
	if correct >= 4 {
		choices[3] = choices[correct]
		correct = 3
	}
	if len(choices) > 4 {
		choices = choices[:4]
	}

	for i := range choices {
		choices[i].IsCorrect = i == correct
		if strings.TrimSpace(choices[i].Explanation) != "" {
			continue
		}
		if choices[i].IsCorrect {
			choices[i].Explanation = defaultCorrectExplanation
		} else {
			choices[i].Explanation = defaultIncorrectExplanation
		}
	}

	for n := 0; len(choices) < 4; n++ {
		choices = append(choices, manualChoice{
			Content:     fillerChoices[n%len(fillerChoices)],
			Explanation: fillerExplanation,
		})
	}
	return choices
}

func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
