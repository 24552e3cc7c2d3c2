package service

import (
	"math/rand"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

// Practice is a one-question quiz: no timer, no navigation, and answering
// reveals immediately.
type Practice struct {
	*QuizSession
}

// NewPractice picks a random section, question set and question.
func NewPractice(userID int64, r *rand.Rand, sections []content.Section) (*Practice, error) {
	if r == nil {
		r = newRand()
	}

	var eligible []content.Section
	for _, s := range sections {
		for _, qs := range s.QuestionSets {
			if len(qs.Questions) > 0 {
				eligible = append(eligible, s)
				break
			}
		}
	}
	if len(eligible) == 0 {
		return nil, ErrInsufficientContent
	}

	section := eligible[r.Intn(len(eligible))]
	var sets []content.QuestionSet
	for _, qs := range section.QuestionSets {
		if len(qs.Questions) > 0 {
			sets = append(sets, qs)
		}
	}
	set := sets[r.Intn(len(sets))]
	question := set.Questions[r.Intn(len(set.Questions))]

	items := []Item{{Stimulus: set.Stimulus, Question: question, Section: section}}
	spans := []Span{{Start: 1, End: 1}}

	s, err := newQuizSession(userID, items, spans, WithRand(r), WithoutTimeLimit())
	if err != nil {
		return nil, err
	}
	if err := s.Start(userID); err != nil {
		return nil, err
	}
	return &Practice{QuizSession: s}, nil
}

// Answer records the single answer and reveals it in one step. It reports
// whether the answer was correct.
func (p *Practice) Answer(actor int64, choice int) (bool, error) {
	s := p.QuizSession
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(actor, 0, choice); err != nil {
		return false, err
	}
	s.reveal(false)
	return choice == s.choices[0].Correct, nil
}
