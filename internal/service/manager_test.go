package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
)

func newTestManager(cfg ManagerConfig) *Manager {
	if cfg.Rand == nil {
		cfg.Rand = testRand()
	}
	return NewManager(testSections(), cfg)
}

func TestManagerAdmission(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(ManagerConfig{SetCount: 2})
	defer m.Close()

	first, err := m.Begin(ctx, owner)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := m.Begin(ctx, owner); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Begin() error = %v, want ErrSessionActive", err)
	}
	if _, err := m.Begin(ctx, owner+1); err != nil {
		t.Fatalf("Begin() for another user error = %v", err)
	}
	if m.Active() != 2 {
		t.Errorf("Active() = %d, want 2", m.Active())
	}

	if _, err := m.Start(ctx, owner, first.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Submit(ctx, owner, first.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := m.Submit(ctx, owner, first.ID); !errors.Is(err, ErrAlreadyRevealed) {
		t.Errorf("second Submit() error = %v", err)
	}

	// Revealed sessions stay readable until replaced.
	if got, err := m.Get(owner, first.ID); err != nil || got != first {
		t.Errorf("Get() = %v, %v", got, err)
	}

	second, err := m.Begin(ctx, owner)
	if err != nil {
		t.Fatalf("Begin() after submit error = %v", err)
	}
	if _, err := m.Get(owner, first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() of replaced session error = %v", err)
	}

	m.Release(ctx, owner)
	if _, err := m.Get(owner, second.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after Release error = %v", err)
	}
	if _, err := m.Begin(ctx, owner); err != nil {
		t.Errorf("Begin() after Release error = %v", err)
	}
}

func TestManagerInsufficientContent(t *testing.T) {
	m := newTestManager(ManagerConfig{SetCount: 10})
	defer m.Close()

	if _, err := m.Begin(context.Background(), owner); !errors.Is(err, ErrInsufficientContent) {
		t.Fatalf("Begin() error = %v", err)
	}
	if m.Active() != 0 {
		t.Errorf("Active() = %d after failed Begin", m.Active())
	}
}

func TestManagerOnlyEmptySets(t *testing.T) {
	sections := []content.Section{
		{Period: 1, QuestionSets: []content.QuestionSet{{ID: 1}}},
		{Period: 2, QuestionSets: []content.QuestionSet{{ID: 2}}},
	}
	m := NewManager(sections, ManagerConfig{SetCount: 1, Rand: testRand()})
	defer m.Close()

	if _, err := m.Begin(context.Background(), owner); !errors.Is(err, ErrInsufficientContent) {
		t.Fatalf("Begin() error = %v, want ErrInsufficientContent", err)
	}
}

func TestManagerTimeout(t *testing.T) {
	ctx := context.Background()
	expired := make(chan *QuizSession, 1)
	m := newTestManager(ManagerConfig{
		SetCount:        1,
		TimePerQuestion: 10 * time.Millisecond,
		OnExpire:        func(s *QuizSession) { expired <- s },
	})
	defer m.Close()

	s, err := m.Begin(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Start(ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-expired:
		if got != s || !got.TimedOut() || !got.IsRevealed() || got.Cursor() != 0 {
			t.Errorf("expired session = %+v", got.Snapshot())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}

	if m.Active() != 0 {
		t.Errorf("Active() = %d after timeout", m.Active())
	}
	if _, err := m.Submit(ctx, owner, s.ID); !errors.Is(err, ErrAlreadyRevealed) {
		t.Errorf("Submit() after timeout error = %v", err)
	}
}

func TestManagerSubmitCancelsTimer(t *testing.T) {
	ctx := context.Background()
	expired := make(chan *QuizSession, 1)
	m := newTestManager(ManagerConfig{
		SetCount:        1,
		TimePerQuestion: 20 * time.Millisecond,
		OnExpire:        func(s *QuizSession) { expired <- s },
	})
	defer m.Close()

	s, _ := m.Begin(ctx, owner)
	if _, err := m.Start(ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Submit(ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}

	select {
	case <-expired:
		t.Fatal("timeout fired after submit")
	case <-time.After(100 * time.Millisecond):
	}
	if s.TimedOut() {
		t.Error("TimedOut() = true after submit")
	}
}

func TestManagerIdleRelease(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(ManagerConfig{SetCount: 1, IdleTimeout: 10 * time.Millisecond})
	defer m.Close()

	s, err := m.Begin(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle session was not released")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := m.Start(ctx, owner, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Start() of released session error = %v", err)
	}
}

func TestManagerStartRacesIdleRelease(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(ManagerConfig{SetCount: 1})
	defer m.Close()

	for i := 0; i < 200; i++ {
		s, err := m.Begin(ctx, owner)
		if err != nil {
			t.Fatalf("Begin() #%d error = %v", i, err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.releaseIdle(owner, s)
		}()
		_, startErr := m.Start(ctx, owner, s.ID)
		wg.Wait()

		switch {
		case startErr == nil:
			// Started sessions stay registered with a running timer.
			if got, err := m.Get(owner, s.ID); err != nil || got != s {
				t.Fatalf("#%d: started session not registered: %v", i, err)
			}
			if m.Active() != 1 || s.State() != StateInProgress {
				t.Fatalf("#%d: Active() = %d, state %s", i, m.Active(), s.State())
			}
			m.mu.Lock()
			armed := m.sessions[owner].timer != nil
			m.mu.Unlock()
			if !armed {
				t.Fatalf("#%d: started session has no timer", i)
			}
		case errors.Is(startErr, ErrSessionNotFound):
			if s.State() != StateNotStarted || m.Active() != 0 {
				t.Fatalf("#%d: released session state %s, Active() = %d", i, s.State(), m.Active())
			}
		default:
			t.Fatalf("#%d: Start() error = %v", i, startErr)
		}
		m.Release(ctx, owner)
	}
}

func TestManagerWrongSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(ManagerConfig{SetCount: 1})
	defer m.Close()

	s, _ := m.Begin(ctx, owner)
	if _, err := m.Start(ctx, owner, "other"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Start() error = %v", err)
	}
	if _, err := m.Start(ctx, owner+1, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Start() by another user error = %v", err)
	}
}

func TestManagerPractice(t *testing.T) {
	m := newTestManager(ManagerConfig{})
	defer m.Close()

	p, err := m.NewPractice(owner)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := m.Practice(owner, p.ID); err != nil || got != p {
		t.Errorf("Practice() = %v, %v", got, err)
	}
	if _, err := m.Practice(owner, "stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Practice(stale) error = %v", err)
	}
}
