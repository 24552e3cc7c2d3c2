package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

func TestPractice(t *testing.T) {
	p, err := NewPractice(owner, testRand(), testSections())
	if err != nil {
		t.Fatalf("NewPractice() error = %v", err)
	}
	if p.Total() != 1 || p.State() != StateInProgress || !p.Deadline().IsZero() {
		t.Fatalf("practice = total %d, state %s, deadline %v", p.Total(), p.State(), p.Deadline())
	}

	if _, err := p.Answer(7, 0); !errors.Is(err, ErrInvalidActor) {
		t.Errorf("Answer() by stranger error = %v", err)
	}

	ok, err := p.Answer(owner, correctIndex(p.QuizSession, 0))
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !ok || !p.IsRevealed() {
		t.Errorf("Answer() = %v, revealed %v", ok, p.IsRevealed())
	}

	if _, err := p.Answer(owner, 0); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("second Answer() error = %v", err)
	}
}

func TestPracticeWrongAnswer(t *testing.T) {
	p, err := NewPractice(owner, testRand(), testSections())
	if err != nil {
		t.Fatal(err)
	}
	ok, err := p.Answer(owner, wrongIndex(p.QuizSession, 0))
	if err != nil || ok {
		t.Errorf("Answer() = %v, %v; want false, nil", ok, err)
	}
	if v := p.Snapshot(); v.TimedOut || v.CorrectChoice == Unanswered {
		t.Errorf("Snapshot() = %+v", v)
	}
}

func TestPracticeNoContent(t *testing.T) {
	empty := []content.Section{{Period: 1, QuestionSets: []content.QuestionSet{{ID: 1}}}}
	if _, err := NewPractice(owner, testRand(), empty); !errors.Is(err, ErrInsufficientContent) {
		t.Errorf("NewPractice() error = %v", err)
	}
}

func TestPracticeConcurrentAnswers(t *testing.T) {
	p, err := NewPractice(owner, testRand(), testSections())
	if err != nil {
		t.Fatal(err)
	}
	right, wrong := correctIndex(p.QuizSession, 0), wrongIndex(p.QuizSession, 0)

	type outcome struct {
		choice  int
		correct bool
		err     error
	}
	results := make([]outcome, 16)
	var wg sync.WaitGroup
	for i := range results {
		choice := right
		if i%2 == 1 {
			choice = wrong
		}
		wg.Add(1)
		go func(i, choice int) {
			defer wg.Done()
			ok, err := p.Answer(owner, choice)
			results[i] = outcome{choice: choice, correct: ok, err: err}
		}(i, choice)
	}
	wg.Wait()

	winners := 0
	var won outcome
	for _, r := range results {
		switch {
		case r.err == nil:
			winners++
			won = r
		case !errors.Is(r.err, ErrNotInProgress):
			t.Errorf("Answer(%d) error = %v", r.choice, r.err)
		}
	}
	if winners != 1 {
		t.Fatalf("%d answers accepted, want 1", winners)
	}

	graded := p.Grade().PerQuestion[0]
	if graded.UserChoice != won.choice || graded.IsCorrect != won.correct {
		t.Errorf("grade = %+v, accepted answer = %+v", graded, won)
	}
}

func TestPracticeRejectedAnswerKeepsQuestionOpen(t *testing.T) {
	p, err := NewPractice(owner, testRand(), testSections())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Answer(owner, len(p.CurrentChoices())); !errors.Is(err, ErrChoiceOutOfRange) {
		t.Fatalf("Answer() out of range error = %v", err)
	}
	if p.State() != StateInProgress || p.Snapshot().UserChoice != Unanswered {
		t.Errorf("after rejected answer: state %s, choice %d", p.State(), p.Snapshot().UserChoice)
	}
	if _, err := p.Answer(owner, correctIndex(p.QuizSession, 0)); err != nil {
		t.Errorf("Answer() after rejection error = %v", err)
	}
}
