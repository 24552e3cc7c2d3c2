package service

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

const (
	DefaultSetCount    = 3
	DefaultIdleTimeout = 15 * time.Minute
)

// ManagerConfig tunes a Manager. SetCount is how many question sets a timed
// quiz draws, IdleTimeout releases a quiz that was created but never started,
// and OnExpire runs on the timer goroutine after a session times out.
type ManagerConfig struct {
	SetCount        int
	TimePerQuestion time.Duration
	IdleTimeout     time.Duration
	Guard           AdmissionGuard
	OnExpire        func(*QuizSession)
	Rand            *rand.Rand
}

type sessionEntry struct {
	session *QuizSession
	timer   *time.Timer
	live    bool
}

// Manager owns the quiz sessions of all users: it admits new ones, runs one
// independent timer per session and releases sessions when they end. The last
// session of a user stays readable after it is revealed so results can be
// reviewed.
type Manager struct {
	sections []content.Section
	cfg      ManagerConfig

	randMu sync.Mutex
	rand   *rand.Rand

	mu        sync.Mutex
	sessions  map[int64]*sessionEntry
	practices map[int64]*Practice
}

func NewManager(sections []content.Section, cfg ManagerConfig) *Manager {
	if cfg.SetCount <= 0 {
		cfg.SetCount = DefaultSetCount
	}
	if cfg.TimePerQuestion <= 0 {
		cfg.TimePerQuestion = DefaultTimePerQuestion
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Guard == nil {
		cfg.Guard = NewMemoryAdmission()
	}
	r := cfg.Rand
	if r == nil {
		r = newRand()
	}

	return &Manager{
		sections:  sections,
		cfg:       cfg,
		rand:      r,
		sessions:  make(map[int64]*sessionEntry),
		practices: make(map[int64]*Practice),
	}
}

// childRand derives a private generator so sessions never share m.rand.
func (m *Manager) childRand() *rand.Rand {
	m.randMu.Lock()
	defer m.randMu.Unlock()
	return rand.New(rand.NewSource(m.rand.Int63()))
}

// Begin creates a quiz for userID in the not started state.
func (m *Manager) Begin(ctx context.Context, userID int64) (*QuizSession, error) {
	r := m.childRand()
	sel, err := SelectQuestionSets(r, m.sections, m.cfg.SetCount)
	if err != nil {
		return nil, err
	}
	session, err := NewQuizSession(userID, sel, WithRand(r), WithTimePerQuestion(m.cfg.TimePerQuestion))
	if err != nil {
		return nil, err
	}

	if err := m.cfg.Guard.Acquire(ctx, userID, session.ID); err != nil {
		return nil, err
	}

	entry := &sessionEntry{session: session, live: true}
	entry.timer = time.AfterFunc(m.cfg.IdleTimeout, func() { m.releaseIdle(userID, session) })

	m.mu.Lock()
	if prev := m.sessions[userID]; prev != nil && prev.timer != nil {
		prev.timer.Stop()
	}
	m.sessions[userID] = entry
	m.mu.Unlock()

	log.Printf("Quiz %s created for user %d: %d questions", session.ID, userID, session.Total())
	return session, nil
}

// Start starts the countdown of a created quiz and arms its timeout.
func (m *Manager) Start(ctx context.Context, userID int64, sessionID string) (*QuizSession, error) {
	// m.mu is held across session.Start so releaseIdle cannot unregister the
	// entry between the lookup and the transition.
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[userID]
	if !ok || entry.session.ID != sessionID {
		return nil, ErrSessionNotFound
	}
	session := entry.session
	if err := session.Start(userID); err != nil {
		return session, err
	}

	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	if !session.Deadline().IsZero() && entry.live {
		entry.timer = time.AfterFunc(session.Remaining(), func() { m.expire(userID, session) })
	}

	log.Printf("Quiz %s started for user %d, deadline %s", session.ID, userID, session.Deadline().Format(time.RFC3339))
	return session, nil
}

// Submit reveals the quiz on the user's request.
func (m *Manager) Submit(ctx context.Context, userID int64, sessionID string) (*QuizSession, error) {
	entry, err := m.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.session.Submit(userID); err != nil {
		return entry.session, err
	}
	m.finish(ctx, userID, entry)
	return entry.session, nil
}

// Get returns the user's current or most recently revealed quiz.
func (m *Manager) Get(userID int64, sessionID string) (*QuizSession, error) {
	entry, err := m.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.session, nil
}

// Release destroys the user's quiz, cancelling its timer.
func (m *Manager) Release(ctx context.Context, userID int64) {
	m.mu.Lock()
	entry := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if entry != nil {
		m.finish(ctx, userID, entry)
	}
}

// Active is the number of quizzes currently holding an admission slot.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.sessions {
		if e.live {
			n++
		}
	}
	return n
}

// Close stops every pending timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sessions {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

// NewPractice creates a single-question practice for userID, replacing the
// previous one.
func (m *Manager) NewPractice(userID int64) (*Practice, error) {
	p, err := NewPractice(userID, m.childRand(), m.sections)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.practices[userID] = p
	m.mu.Unlock()
	return p, nil
}

func (m *Manager) Practice(userID int64, sessionID string) (*Practice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.practices[userID]
	if !ok || p.ID != sessionID {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

func (m *Manager) lookup(userID int64, sessionID string) (*sessionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[userID]
	if !ok || entry.session.ID != sessionID {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// finish stops the timer and gives the admission slot back, once.
func (m *Manager) finish(ctx context.Context, userID int64, entry *sessionEntry) {
	m.mu.Lock()
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	wasLive := entry.live
	entry.live = false
	m.mu.Unlock()

	if !wasLive {
		return
	}
	if err := m.cfg.Guard.Release(ctx, userID, entry.session.ID); err != nil {
		log.Printf("Error releasing quiz %s for user %d: %v", entry.session.ID, userID, err)
	}
}

func (m *Manager) current(userID int64, session *QuizSession) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.sessions[userID]
	if entry == nil || entry.session != session || !entry.live {
		return nil
	}
	return entry
}

func (m *Manager) expire(userID int64, session *QuizSession) {
	entry := m.current(userID, session)
	if entry == nil {
		return
	}
	if !session.Expire() {
		return
	}
	log.Printf("Quiz %s for user %d timed out", session.ID, userID)
	m.finish(context.Background(), userID, entry)

	if m.cfg.OnExpire != nil {
		m.cfg.OnExpire(session)
	}
}

func (m *Manager) releaseIdle(userID int64, session *QuizSession) {
	m.mu.Lock()
	entry := m.sessions[userID]
	if entry == nil || entry.session != session || !entry.live || session.State() != StateNotStarted {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, userID)
	m.mu.Unlock()

	log.Printf("Quiz %s for user %d was never started, releasing", session.ID, userID)
	m.finish(context.Background(), userID, entry)
}
