package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
)

// Verdict is the canonical verdict vocabulary. Adapters map platform-specific
// strings (LeetCode "Accepted", Codeforces "OK") onto it; anything that is not
// an accept is stored with the raw string preserved in Submission.RawVerdict.
type Verdict string

const (
	VerdictAccepted    Verdict = "Accepted"
	VerdictNotAccepted Verdict = "NotAccepted"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DailyActivityTag marks problems that exist only to carry per-day submission
// counts imported by legacy syncs. Solved-count and topic computations must
// filter it out.
const DailyActivityTag = "daily-activity"

// StringSlice is a helper type for storing a list of tags in a text column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	OIDCSubject  *string `gorm:"uniqueIndex" json:"-"`
	Username     string  `gorm:"uniqueIndex" json:"username"`
	PasswordHash string  `json:"-"`
	Nickname     string  `json:"nickname"`
	AvatarURL    string  `json:"avatar_url"`
}

// PlatformProfile is the link between a user and one upstream handle. One row
// per (user, platform); re-syncs overwrite ratings and SyncedAt in place.
type PlatformProfile struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID        string    `gorm:"uniqueIndex:idx_user_platform" json:"user_id"`
	Platform      Platform  `gorm:"uniqueIndex:idx_user_platform" json:"platform"`
	Handle        string    `json:"handle"`
	CurrentRating int       `json:"current_rating"`
	MaxRating     int       `json:"max_rating"`
	Rank          string    `json:"rank"`
	SyncedAt      time.Time `json:"synced_at"`
}

// Problem identity is (platform, external id) and never changes; name,
// difficulty, rating and tags may be refined by later syncs.
type Problem struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Platform   Platform    `gorm:"uniqueIndex:idx_platform_external" json:"platform"`
	ExternalID string      `gorm:"uniqueIndex:idx_platform_external" json:"external_id"`
	Name       string      `json:"name"`
	Difficulty Difficulty  `json:"difficulty"`
	Rating     *int        `json:"rating"`
	Tags       StringSlice `gorm:"type:text" json:"tags"`
}

type Submission struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time

	UserID    string   `gorm:"index:idx_sub_user_platform" json:"user_id"`
	Platform  Platform `gorm:"index:idx_sub_user_platform" json:"platform"`
	ProblemID uint     `gorm:"index" json:"problem_id"`
	Problem   Problem  `json:"problem"`

	Verdict     Verdict   `json:"verdict"`
	RawVerdict  string    `json:"raw_verdict"`
	SubmittedAt time.Time `gorm:"index" json:"submitted_at"`
	Language    string    `json:"language"`
}

type ContestParticipation struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID    string   `gorm:"uniqueIndex:idx_user_contest" json:"user_id"`
	Platform  Platform `gorm:"uniqueIndex:idx_user_contest" json:"platform"`
	ContestID string   `gorm:"uniqueIndex:idx_user_contest" json:"contest_id"`

	ContestName string    `json:"contest_name"`
	Rank        int       `json:"rank"`
	OldRating   int       `json:"old_rating"`
	NewRating   int       `json:"new_rating"`
	StartedAt   time.Time `json:"started_at"`
}

// ActivityCacheEntry is a materialized per-day submission count. Rows for a
// (user, platform) pair are replaced wholesale on every re-sync; they are a
// projection, never a source of truth.
type ActivityCacheEntry struct {
	ID uint `gorm:"primaryKey" json:"-"`

	UserID   string   `gorm:"uniqueIndex:idx_activity_user_day" json:"user_id"`
	Platform Platform `gorm:"uniqueIndex:idx_activity_user_day" json:"platform"`
	Date     string   `gorm:"uniqueIndex:idx_activity_user_day" json:"date"`
	Count    int      `json:"count"`
}
