package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultPromptMaxChars is the prompt budget when none is configured.
	DefaultPromptMaxChars = 8000
	// TruncationMarker is appended to content cut to fit the budget.
	TruncationMarker = "\n...[content truncated]"

	// historyTurns and historyAnswerChars bound the conversation history
	// carried into a chat prompt.
	historyTurns       = 3
	historyAnswerChars = 200
)

// ChatTurn is one earlier exchange of a conversation.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PromptBuilder assembles bounded-length prompts.
type PromptBuilder struct {
	maxChars int
}

func NewPromptBuilder(maxChars int) *PromptBuilder {
	if maxChars <= 0 {
		maxChars = DefaultPromptMaxChars
	}
	return &PromptBuilder{maxChars: maxChars}
}

// MaxChars returns the prompt budget.
func (b *PromptBuilder) MaxChars() int {
	return b.maxChars
}

// Build returns the question generation prompt for count questions over
// excerpt. The excerpt is cut, and marked as cut, when the whole prompt would
// exceed the budget.
func (b *PromptBuilder) Build(count int, excerpt string) string {
	head := fmt.Sprintf("Generate exactly %d multiple choice questions based only on the source material below.\n\nSource material:\n", count)
	tail := "\n\n" + questionRubric(count)
	return head + b.fit(excerpt, head, tail) + tail
}

func questionRubric(count int) string {
	var sb strings.Builder
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Produce exactly %d questions\n", count))
	sb.WriteString("- Each question must have exactly 4 answer choices\n")
	sb.WriteString("- Exactly one choice is correct; the other three are plausible but clearly wrong\n")
	sb.WriteString("- Every choice must contain concrete answer text, never a bare label such as \"A\", \"Option B\" or \"Choice 3\"\n")
	sb.WriteString("- Every choice needs a short explanation of why it is right or wrong\n")
	sb.WriteString("- difficulty is one of easy, medium, hard\n")
	sb.WriteString("- Questions should test understanding, not just memorization\n")
	sb.WriteString("- Respond with JSON only, no markdown and no commentary, in this shape:\n")
	sb.WriteString(`{"questions":[{"question":"...","difficulty":"medium","explanation":"...","choices":[`)
	sb.WriteString(`{"content":"...","is_correct":true,"explanation":"..."},`)
	sb.WriteString(`{"content":"...","is_correct":false,"explanation":"..."},`)
	sb.WriteString(`{"content":"...","is_correct":false,"explanation":"..."},`)
	sb.WriteString(`{"content":"...","is_correct":false,"explanation":"..."}]}]}`)
	return sb.String()
}

// BuildSummary returns the prompt asking for a short summary of excerpt.
func (b *PromptBuilder) BuildSummary(names []string, excerpt string) string {
	head := fmt.Sprintf("Summarize the learning material from %s in 2 to 4 sentences. Name the main topics it covers. Reply with plain text only.\n\nMaterial:\n",
		strings.Join(names, ", "))
	return head + b.fit(excerpt, head, "")
}

// BuildChat returns the prompt answering message from the retrieved passages
// and the last few turns of history.
func (b *PromptBuilder) BuildChat(message string, passages []string, history []ChatTurn) string {
	var hist strings.Builder
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	if len(history) > 0 {
		hist.WriteString("Previous conversation:\n")
		for i, turn := range history {
			hist.WriteString(fmt.Sprintf("Question %d: %s\n", i+1, turn.Question))
			hist.WriteString(fmt.Sprintf("Answer %d: %s\n", i+1, truncateRunes(turn.Answer, historyAnswerChars, "...")))
		}
		hist.WriteString("\n")
	}

	head := "Answer the question using the document excerpts below. If they do not contain enough information, say so clearly.\n\nDocument excerpts:\n"
	tail := "\n\n" + hist.String() + "Question: " + message + "\n\nAnswer:"
	return head + b.fit(strings.Join(passages, "\n\n"), head, tail) + tail
}

// BuildExtended returns the prompt asking for knowledge beyond the document
// that complements an answer already given.
func (b *PromptBuilder) BuildExtended(question, answer string) string {
	head := "Original question: " + question + "\nAnswer from the document: "
	tail := "\n\nProvide additional context, related facts or applications from general knowledge. Do not repeat what the answer already says.\n\nExtended knowledge:"
	return head + b.fit(answer, head, tail) + tail
}

// fit cuts content so head+content+tail stays within the budget.
func (b *PromptBuilder) fit(content, head, tail string) string {
	fixed := utf8.RuneCountInString(head) + utf8.RuneCountInString(tail)
	if fixed+utf8.RuneCountInString(content) <= b.maxChars {
		return content
	}
	room := b.maxChars - fixed - utf8.RuneCountInString(TruncationMarker)
	if room < 0 {
		room = 0
	}
	return truncateRunes(content, room, "") + TruncationMarker
}

// truncateRunes cuts s to at most n runes, appending suffix when cut.
func truncateRunes(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + suffix
}
