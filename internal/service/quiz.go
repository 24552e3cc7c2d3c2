package service

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

// State is the lifecycle position of a quiz session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateRevealed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateRevealed:
		return "revealed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Unanswered marks a question the user has not answered.
const Unanswered = -1

// DefaultTimePerQuestion is the time budget each question adds to the deadline.
const DefaultTimePerQuestion = time.Minute

type sessionConfig struct {
	rand        *rand.Rand
	now         func() time.Time
	perQuestion time.Duration
}

// SessionOption customizes a QuizSession at construction.
type SessionOption func(*sessionConfig)

// WithRand sets the generator used to shuffle choices.
func WithRand(r *rand.Rand) SessionOption {
	return func(c *sessionConfig) { c.rand = r }
}

// WithClock replaces time.Now for deadlines.
func WithClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

// WithTimePerQuestion sets the time allowed per question once started.
func WithTimePerQuestion(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.perQuestion = d }
}

// WithoutTimeLimit disables the deadline entirely.
func WithoutTimeLimit() SessionOption {
	return func(c *sessionConfig) { c.perQuestion = 0 }
}

// QuizSession is the state machine of one user's quiz. Every method is safe to
// call from the update loop and the timeout timer at the same time; the state
// check and the transition happen under one lock, so Submit and Expire can never
// both win.
type QuizSession struct {
	ID     string
	UserID int64

	mu        sync.Mutex
	items     []Item
	spans     []Span
	choices   []Choices
	answers   []int
	cursor    int
	state     State
	timedOut  bool
	startedAt time.Time
	deadline  time.Time

	perQuestion time.Duration
	now         func() time.Time
}

// NewQuizSession builds a session over the flattened selection. Choice order is
// shuffled once here and stays stable for the life of the session.
func NewQuizSession(userID int64, sel Selection, opts ...SessionOption) (*QuizSession, error) {
	items, spans := Flatten(sel)
	return newQuizSession(userID, items, spans, opts...)
}

func newQuizSession(userID int64, items []Item, spans []Span, opts ...SessionOption) (*QuizSession, error) {
	if len(items) == 0 {
		return nil, ErrEmptySession
	}

	cfg := sessionConfig{now: time.Now, perQuestion: DefaultTimePerQuestion}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.rand == nil {
		cfg.rand = newRand()
	}

	answers := make([]int, len(items))
	for i := range answers {
		answers[i] = Unanswered
	}

	return &QuizSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		items:       items,
		spans:       spans,
		choices:     ShuffleAll(cfg.rand, items),
		answers:     answers,
		state:       StateNotStarted,
		perQuestion: cfg.perQuestion,
		now:         cfg.now,
	}, nil
}

// Start begins the countdown.
func (s *QuizSession) Start(actor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actor != s.UserID {
		return ErrInvalidActor
	}
	switch s.state {
	case StateInProgress:
		return ErrAlreadyStarted
	case StateRevealed:
		return ErrAlreadyRevealed
	}

	s.startedAt = s.now()
	if s.perQuestion > 0 {
		s.deadline = s.startedAt.Add(s.perQuestion * time.Duration(len(s.items)))
	}
	s.state = StateInProgress
	return nil
}

// RecordAnswer sets the answer of any question, independent of the cursor.
func (s *QuizSession) RecordAnswer(actor int64, question, choice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(actor, question, choice)
}

func (s *QuizSession) recordLocked(actor int64, question, choice int) error {
	if actor != s.UserID {
		return ErrInvalidActor
	}
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if question < 0 || question >= len(s.items) {
		return ErrQuestionOutOfRange
	}
	if choice < 0 || choice >= len(s.choices[question].Options) {
		return ErrChoiceOutOfRange
	}

	s.answers[question] = choice
	return nil
}

// Navigate moves the cursor by delta, clamped to the question range. It is
// allowed in every state, so revealed results can still be paged through.
func (s *QuizSession) Navigate(actor int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actor != s.UserID {
		return ErrInvalidActor
	}

	last := len(s.items) - 1
	switch {
	case delta > last-s.cursor:
		s.cursor = last
	case delta < -s.cursor:
		s.cursor = 0
	default:
		s.cursor += delta
	}
	return nil
}

// Submit ends answer collection and reveals the results.
func (s *QuizSession) Submit(actor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actor != s.UserID {
		return ErrInvalidActor
	}
	switch s.state {
	case StateNotStarted:
		return ErrNotStarted
	case StateRevealed:
		return ErrAlreadyRevealed
	}

	s.reveal(false)
	return nil
}

// Expire is the timeout transition. It reports whether it performed the
// reveal; after a submit it is a no-op.
func (s *QuizSession) Expire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return false
	}
	s.reveal(true)
	return true
}

func (s *QuizSession) reveal(timedOut bool) {
	s.state = StateRevealed
	s.timedOut = timedOut
	s.cursor = 0
}

// Grade scores the current answers.
func (s *QuizSession) Grade() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Grade(s.answers, s.choices)
}

func (s *QuizSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *QuizSession) IsRevealed() bool { return s.State() == StateRevealed }

func (s *QuizSession) TimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedOut
}

func (s *QuizSession) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *QuizSession) Total() int { return len(s.items) }

func (s *QuizSession) CurrentStimulus() content.Stimulus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[s.cursor].Stimulus
}

func (s *QuizSession) CurrentQuestion() content.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[s.cursor].Question
}

func (s *QuizSession) CurrentChoices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.choices[s.cursor].Options...)
}

// Deadline is zero until the session starts, or when it has no time limit.
func (s *QuizSession) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// Remaining is the time left before the deadline, never negative.
func (s *QuizSession) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadline.IsZero() {
		return 0
	}
	if left := s.deadline.Sub(s.now()); left > 0 {
		return left
	}
	return 0
}

// TimeLimit is the total time the quiz allows once started, zero when untimed.
func (s *QuizSession) TimeLimit() time.Duration {
	return s.perQuestion * time.Duration(len(s.items))
}

// Units lists the sections the quiz covers ordered by period.
func (s *QuizSession) Units() []content.Section {
	sel := Selection{Sections: make([]content.Section, 0, len(s.items))}
	for _, item := range s.items {
		sel.Sections = append(sel.Sections, item.Section)
	}
	return sel.Units()
}

func (s *QuizSession) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answeredLocked() == len(s.answers)
}

func (s *QuizSession) answeredLocked() int {
	n := 0
	for _, a := range s.answers {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// View is an immutable snapshot of a session at its cursor, for rendering.
// CorrectChoice stays Unanswered until the session is revealed.
type View struct {
	SessionID     string
	UserID        int64
	State         State
	Cursor        int
	Total         int
	Stimulus      content.Stimulus
	Question      content.Question
	Section       content.Section
	Span          Span
	Choices       []string
	UserChoice    int
	CorrectChoice int
	Answered      int
	AllAnswered   bool
	Revealed      bool
	TimedOut      bool
	StartedAt     time.Time
	Deadline      time.Time
}

func (s *QuizSession) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.items[s.cursor]
	answered := s.answeredLocked()
	v := View{
		SessionID:     s.ID,
		UserID:        s.UserID,
		State:         s.state,
		Cursor:        s.cursor,
		Total:         len(s.items),
		Stimulus:      item.Stimulus,
		Question:      item.Question,
		Section:       item.Section,
		Span:          s.spans[s.cursor],
		Choices:       append([]string(nil), s.choices[s.cursor].Options...),
		UserChoice:    s.answers[s.cursor],
		CorrectChoice: Unanswered,
		Answered:      answered,
		AllAnswered:   answered == len(s.answers),
		Revealed:      s.state == StateRevealed,
		TimedOut:      s.timedOut,
		StartedAt:     s.startedAt,
		Deadline:      s.deadline,
	}
	if v.Revealed {
		v.CorrectChoice = s.choices[s.cursor].Correct
	}
	return v
}
