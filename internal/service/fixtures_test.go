package service

import (
	"fmt"
	"math/rand"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// makeSet builds a question set whose answers are "answer-<id>-<n>".
func makeSet(id, questions int) content.QuestionSet {
	qs := content.QuestionSet{
		ID:       id,
		Stimulus: content.Stimulus{Header: fmt.Sprintf("to stimulus %d.", id), Text: "text"},
	}
	for n := 0; n < questions; n++ {
		qs.Questions = append(qs.Questions, content.Question{
			Question:     fmt.Sprintf("question %d-%d", id, n),
			Answer:       fmt.Sprintf("answer-%d-%d", id, n),
			OtherChoices: []string{"wrong-1", "wrong-2", "wrong-3"},
		})
	}
	return qs
}

func testSections() []content.Section {
	return []content.Section{
		{Period: 1, Range: "1491-1607", QuestionSets: []content.QuestionSet{makeSet(1, 2), makeSet(2, 1)}},
		{Period: 2, Range: "1607-1754", QuestionSets: []content.QuestionSet{makeSet(3, 3)}},
		{Period: 3, Range: "1754-1800", QuestionSets: []content.QuestionSet{makeSet(4, 1), makeSet(5, 2)}},
	}
}

// correctIndex finds the shuffled position of the right answer.
func correctIndex(s *QuizSession, question int) int {
	return s.choices[question].Correct
}

func wrongIndex(s *QuizSession, question int) int {
	return (s.choices[question].Correct + 1) % len(s.choices[question].Options)
}
