package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/cubedev/cubedev/internal/wca"
)

type RoomStatus string

const (
	RoomActive  RoomStatus = "active"
	RoomExpired RoomStatus = "expired"
)

// JSONMap is a helper type for storing JSON data in the database.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, &m)
}

// StringList stores an ordered list of strings as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, &l)
}

// User rows are never removed; account deletion anonymizes the identity
// fields and sets IsDeleted, so room participations keep a valid (if
// anonymous) back-reference. gorm's soft delete is deliberately not used
// here because deleted users must still resolve in leaderboard joins.
type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	WCAID        *string    `gorm:"uniqueIndex" json:"wca_id"`
	Username     string     `gorm:"uniqueIndex" json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	AvatarURL    string     `json:"avatar_url"`
	CountryISO2  string     `json:"country_iso2"`
	Preferences  JSONMap    `gorm:"type:text" json:"preferences"`
	IsDeleted    bool       `json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// TimerSession groups a user's personal timer solves for one event.
// Owned exclusively by the user: hard-deleted on account deletion.
type TimerSession struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID string `gorm:"index" json:"user_id"`
	Event  string `json:"event"`
	Name   string `json:"name"`
}

// TimerSolve is a personal timer result. Unlike room solves these are
// editable (penalty, comment) and deletable.
type TimerSolve struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SessionID   string      `gorm:"index" json:"session_id"`
	UserID      string      `gorm:"index" json:"user_id"`
	TimeMs      int64       `json:"time_ms"`
	Penalty     wca.Penalty `json:"penalty"`
	FinalTimeMs int64       `json:"final_time_ms"`
	Scramble    string      `json:"scramble"`
	Comment     string      `json:"comment"`
}

// ChallengeRoom is a shared-scramble race. ExpiresAt is fixed at creation
// (CreatedAt + 48h) and never changes; Status is only flipped to expired by
// the periodic sweep, which can lag the wall-clock deadline by up to the
// sweep interval.
type ChallengeRoom struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Code        string     `gorm:"uniqueIndex" json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Event       string     `json:"event"`
	Format      wca.Format `json:"format"`
	Scrambles   StringList `gorm:"type:text" json:"scrambles"`
	CreatedBy   string     `gorm:"index" json:"created_by"`
	Creator     User       `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	IsPublic    bool       `json:"is_public"`
	Status      RoomStatus `gorm:"index" json:"status"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`

	ParticipantCount int `json:"participant_count"`
	CompletedCount   int `json:"completed_count"`
}

// RoomParticipant is the join record for a (room, user) pair. Averages are
// stored in milliseconds; a DNF average is stored as the DNF sentinel so the
// ordinary less-than comparison sorts it after every real average.
type RoomParticipant struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	RoomID string `gorm:"index;uniqueIndex:idx_room_user" json:"room_id"`
	UserID string `gorm:"index;uniqueIndex:idx_room_user" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`

	TotalSolves     int        `json:"total_solves"`
	SolvesCompleted int        `json:"solves_completed"`
	DNFCount        int        `json:"dnf_count"`
	IsCompleted     bool       `json:"is_completed"`
	BestSingle      *int64     `json:"best_single,omitempty"`
	Average         *int64     `json:"average,omitempty"`
	FinalRank       int        `json:"final_rank"` // 0 = not ranked
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RoomSolve is immutable once inserted; there is no edit endpoint for room
// solves, unlike personal timer solves.
type RoomSolve struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time

	RoomID        string `gorm:"index" json:"room_id"`
	ParticipantID string `gorm:"index;uniqueIndex:idx_participant_solve" json:"participant_id"`
	SolveNumber   int    `gorm:"uniqueIndex:idx_participant_solve" json:"solve_number"`
	UserID        string `gorm:"index" json:"user_id"`

	TimeMs      int64       `json:"time_ms"`
	Penalty     wca.Penalty `json:"penalty"`
	FinalTimeMs int64       `json:"final_time_ms"`
	Scramble    string      `json:"scramble"`
	Comment     string      `json:"comment"`
}
