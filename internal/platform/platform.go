package platform

import (
	"context"
	"errors"
	"time"

	"github.com/cptrack/cptrack/internal/database/models"
)

// Sentinel errors for upstream calls. ErrHandleNotFound is the only one ever
// surfaced verbatim to an end user; everything else degrades to partial data.
var (
	ErrHandleNotFound      = errors.New("handle not found on platform")
	ErrUpstreamUnavailable = errors.New("upstream platform unavailable")
)

// Profile is the canonical cross-platform view of one handle's account.
type Profile struct {
	Handle        string
	CurrentRating int
	MaxRating     int
	Rank          string
}

// Submission is one canonical submission record. Verdict is already
// normalized; RawVerdict keeps the platform's original string for
// non-accepted verdicts.
type Submission struct {
	ProblemExternalID string
	ProblemName       string
	Difficulty        models.Difficulty
	Rating            *int
	Tags              []string
	Verdict           models.Verdict
	RawVerdict        string
	SubmittedAt       time.Time
	Language          string
}

// ContestResult is one appearance in one rated contest.
type ContestResult struct {
	ContestID   string
	ContestName string
	Rank        int
	OldRating   int
	NewRating   int
	StartedAt   time.Time
}

// Adapter translates one upstream platform's wire format into canonical
// records. Adapters are the only code allowed to parse upstream JSON and they
// fail closed: unparseable payloads become ErrUpstreamUnavailable, never
// half-filled records.
type Adapter interface {
	Platform() models.Platform

	FetchProfile(ctx context.Context, handle string) (*Profile, error)
	FetchSubmissions(ctx context.Context, handle string) ([]Submission, error)
	FetchContestHistory(ctx context.Context, handle string) ([]ContestResult, error)
}

// CalendarProvider is implemented by adapters whose platform exposes per-day
// submission counts directly (LeetCode). Keys are days formatted as
// "2006-01-02".
type CalendarProvider interface {
	FetchCalendar(ctx context.Context, handle string) (map[string]int, error)
}

// TopicSkill is one authoritative per-topic solved count from a platform
// skill endpoint, with the platform's own category label.
type TopicSkill struct {
	Topic       string
	SolvedCount int
	Category    string
}

// SkillProvider is implemented by adapters whose platform exposes a topic
// skill breakdown (LeetCode). Platforms without it derive topics from
// submission tags instead.
type SkillProvider interface {
	FetchTopicSkills(ctx context.Context, handle string) ([]TopicSkill, error)
}
