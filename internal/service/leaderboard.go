package service

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

type LeaderboardEntry struct {
	UserID     int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	Score      int       `json:"score" gorm:"not null"`
	Total      int       `json:"total" gorm:"not null"`
	Percentage int       `json:"percentage" gorm:"not null;index"`
	Date       string    `json:"date"`
	UpdatedAt  time.Time `json:"-"`
}

type LeaderboardService interface {
	// AddEntry stores a result and reports whether it became the user's best.
	AddEntry(userID int64, username, firstName string, score, total int) bool
	GetTop(limit int) []LeaderboardEntry
	GetUserPosition(userID int64) (int, *LeaderboardEntry)
}

// NewLeaderboardService keeps results in the database when one is configured
// and falls back to memory otherwise.
func NewLeaderboardService(db *gorm.DB) LeaderboardService {
	if db != nil {
		return NewSQLLeaderboardService(db)
	}

	// Fallback - in-memory, lost on restart
	return NewMemoryLeaderboardService()
}

func newEntry(userID int64, username, firstName string, score, total int) LeaderboardEntry {
	percentage := 0
	if total > 0 {
		percentage = (score * 100) / total
	}
	return LeaderboardEntry{
		UserID:     userID,
		Username:   username,
		FirstName:  firstName,
		Score:      score,
		Total:      total,
		Percentage: percentage,
		Date:       time.Now().Format("02.01.2006 15:04"),
	}
}

func (e LeaderboardEntry) beats(other LeaderboardEntry) bool {
	return e.Percentage > other.Percentage || (e.Percentage == other.Percentage && e.Score > other.Score)
}

func sortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].beats(entries[j])
	})
}

func position(sorted []LeaderboardEntry, userID int64) (int, *LeaderboardEntry) {
	for i, entry := range sorted {
		if entry.UserID == userID {
			return i + 1, &entry
		}
	}
	return -1, nil
}

// SQLLeaderboardService stores one best result per user with gorm.
type SQLLeaderboardService struct {
	db *gorm.DB
}

func NewSQLLeaderboardService(db *gorm.DB) *SQLLeaderboardService {
	return &SQLLeaderboardService{db: db}
}

func (ss *SQLLeaderboardService) AddEntry(userID int64, username, firstName string, score, total int) bool {
	entry := newEntry(userID, username, firstName, score, total)
	improved := false

	err := ss.db.Transaction(func(tx *gorm.DB) error {
		var existing LeaderboardEntry
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			improved = true
			return tx.Create(&entry).Error
		case err != nil:
			return err
		}

		if !entry.beats(existing) {
			return nil
		}
		improved = true
		return tx.Save(&entry).Error
	})
	if err != nil {
		log.Printf("Error saving leaderboard entry for %d: %v", userID, err)
		return false
	}
	return improved
}

func (ss *SQLLeaderboardService) GetTop(limit int) []LeaderboardEntry {
	var entries []LeaderboardEntry
	q := ss.db.Order("percentage DESC").Order("score DESC").Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		log.Printf("Error loading leaderboard: %v", err)
		return nil
	}
	return entries
}

func (ss *SQLLeaderboardService) GetUserPosition(userID int64) (int, *LeaderboardEntry) {
	return position(ss.GetTop(0), userID)
}

// MemoryLeaderboardService is the fallback when no database is configured.
type MemoryLeaderboardService struct {
	mu      sync.RWMutex
	entries []LeaderboardEntry
}

func NewMemoryLeaderboardService() *MemoryLeaderboardService {
	return &MemoryLeaderboardService{
		entries: make([]LeaderboardEntry, 0),
	}
}

func (ms *MemoryLeaderboardService) AddEntry(userID int64, username, firstName string, score, total int) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry := newEntry(userID, username, firstName, score, total)
	for i, existing := range ms.entries {
		if existing.UserID == userID {
			if entry.beats(existing) {
				ms.entries[i] = entry
				return true
			}
			return false
		}
	}

	ms.entries = append(ms.entries, entry)
	return true
}

func (ms *MemoryLeaderboardService) GetTop(limit int) []LeaderboardEntry {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sorted := make([]LeaderboardEntry, len(ms.entries))
	copy(sorted, ms.entries)
	sortEntries(sorted)

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}

func (ms *MemoryLeaderboardService) GetUserPosition(userID int64) (int, *LeaderboardEntry) {
	return position(ms.GetTop(0), userID)
}
