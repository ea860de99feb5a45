package service

import (
	"fmt"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

type fallbackTemplate struct {
	question    string
	explanation string
	correct     string
	wrong       [3]string
}

var fallbackTemplates = []fallbackTemplate{
	{
		question:    "What is the main educational concept discussed in the document?",
		explanation: "This question tests understanding of core educational concepts.",
		correct:     "Comprehensive learning through integrated theory and practice",
		wrong: [3]string{
			"Memorization-based learning without understanding",
			"Purely theoretical academic study methods",
			"Traditional rote learning approaches",
		},
	},
	{
		question:    "Which educational methodology is primarily described in the content?",
		explanation: "This tests knowledge of the teaching methodologies presented.",
		correct:     "Active learning with student engagement and practical application",
		wrong: [3]string{
			"Passive lecture-based information delivery",
			"Self-study without instructor guidance",
			"Examination-focused preparation only",
		},
	},
	{
		question:    "What is the key educational principle mentioned in the material?",
		explanation: "This evaluates understanding of fundamental educational principles.",
		correct:     "Learning effectiveness through understanding and application",
		wrong: [3]string{
			"Speed of information processing over comprehension",
			"Competition-based individual achievement focus",
			"Standardized testing performance optimization",
		},
	},
	{
		question:    "What objective does the educational content aim to achieve?",
		explanation: "This assesses comprehension of the learning goals.",
		correct:     "Development of critical thinking and problem-solving skills",
		wrong: [3]string{
			"Fast completion of academic requirements",
			"High scores on standardized assessments only",
			"Accumulation of factual information",
		},
	},
	{
		question:    "Which learning outcome is most emphasized according to the text?",
		explanation: "This tests prioritization of educational outcomes.",
		correct:     "Deep understanding with ability to apply knowledge practically",
		wrong: [3]string{
			"Quick recall of memorized information",
			"Perfect performance on written examinations",
			"Completion of all assigned reading materials",
		},
	},
}

const (
	fallbackCorrectExplanation = "This is the correct answer based on sound educational practice and the document content."
	fallbackWrongExplanation   = "This approach is not supported by effective educational principles."
)

// FallbackQuestions returns n deterministic template questions, cycling
// through the template library. The first choice is always the correct one.
// offset shifts the cycle so consecutive backfills do not repeat.
func FallbackQuestions(n, offset int) []domain.Question {
	if n <= 0 {
		return nil
	}

	out := make([]domain.Question, n)
	for i := range out {
		seq := offset + i
		t := fallbackTemplates[seq%len(fallbackTemplates)]

		text := t.question
		if round := seq / len(fallbackTemplates); round > 0 {
			text = fmt.Sprintf("%s (review %d)", t.question, round+1)
		}

		choices := make([]domain.Choice, 0, domain.ChoicesPerQuestion)
		choices = append(choices, domain.Choice{Content: t.correct, IsCorrect: true, Explanation: fallbackCorrectExplanation})
		for _, w := range t.wrong {
			choices = append(choices, domain.Choice{Content: w, Explanation: fallbackWrongExplanation})
		}

		out[i] = domain.Question{
			Question:    text,
			Difficulty:  domain.DifficultyMedium,
			Explanation: t.explanation,
			Choices:     choices,
			Source:      domain.SourceFallback,
		}
	}
	return out
}
