package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
	"github.com/cptrack/cptrack/internal/pubsub"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrPlatformNotSupported is returned for platforms without an adapter.
var ErrPlatformNotSupported = errors.New("platform not supported")

// Syncer runs the handle-link workflow: validate, upsert profile, import
// history, rebuild the activity projection, invalidate caches. Steps after
// validation never roll back: partial progress persists and a re-run
// converges because every write is idempotent.
type Syncer struct {
	db       *gorm.DB
	store    cache.Store
	adapters map[models.Platform]platform.Adapter
	timeout  time.Duration
}

func NewSyncer(db *gorm.DB, store cache.Store, timeout time.Duration, adapters ...platform.Adapter) *Syncer {
	byPlatform := make(map[models.Platform]platform.Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}
	return &Syncer{
		db:       db,
		store:    store,
		adapters: byPlatform,
		timeout:  timeout,
	}
}

func (s *Syncer) Adapter(p models.Platform) (platform.Adapter, bool) {
	a, ok := s.adapters[p]
	return a, ok
}

// SyncTopic names the pubsub topic carrying progress events for one sync.
func SyncTopic(userID string, p models.Platform) string {
	return fmt.Sprintf("sync:%s:%s", userID, p)
}

func (s *Syncer) publish(topic, stage, detail string) {
	pubsub.GetBroker().Publish(topic, pubsub.FormatMessage(stage, detail))
}

// LinkHandle runs the full workflow for one (user, platform, handle). A
// HandleNotFound during validation is terminal and persists nothing; any
// later upstream failure is logged, published, and skipped.
func (s *Syncer) LinkHandle(ctx context.Context, userID string, p models.Platform, handle string) (*models.PlatformProfile, error) {
	adapter, ok := s.adapters[p]
	if !ok {
		return nil, ErrPlatformNotSupported
	}

	topic := SyncTopic(userID, p)
	defer pubsub.GetBroker().CloseTopic(topic)

	// Step 1: validate. The only step whose failure aborts the workflow.
	s.publish(topic, "validate", fmt.Sprintf("validating %s handle %q", p, handle))
	upstreamProfile, err := s.fetchProfile(ctx, adapter, handle)
	if err != nil {
		if errors.Is(err, platform.ErrHandleNotFound) {
			s.publish(topic, "error", "handle not found")
			return nil, platform.ErrHandleNotFound
		}
		s.publish(topic, "error", "platform unavailable")
		return nil, fmt.Errorf("validating handle: %w", err)
	}

	// Step 2: upsert profile.
	now := time.Now().UTC()
	profile := &models.PlatformProfile{
		UserID:        userID,
		Platform:      p,
		Handle:        upstreamProfile.Handle,
		CurrentRating: upstreamProfile.CurrentRating,
		MaxRating:     upstreamProfile.MaxRating,
		Rank:          upstreamProfile.Rank,
		SyncedAt:      now,
	}
	if err := database.UpsertPlatformProfile(s.db, profile); err != nil {
		s.publish(topic, "error", "failed to save profile")
		return nil, fmt.Errorf("upserting platform profile: %w", err)
	}
	s.publish(topic, "profile", fmt.Sprintf("profile saved, rating %d", profile.CurrentRating))

	// Step 3: import history (additive, partial progress allowed).
	s.importSubmissions(ctx, topic, adapter, userID, p, handle)
	s.importContests(ctx, topic, adapter, userID, p, handle)

	// Step 4: rebuild activity projection.
	s.rebuildActivity(ctx, topic, adapter, userID, p, handle)

	// Step 5: invalidate dependent caches.
	n := cache.InvalidateUser(ctx, s.store, userID)
	n += cache.InvalidatePlatformHandle(ctx, s.store, string(p), handle)
	s.publish(topic, "done", fmt.Sprintf("sync complete, %d cache keys invalidated", n))
	zap.S().Infof("sync complete for user %s on %s (%s), invalidated %d cache keys", userID, p, handle, n)

	return profile, nil
}

func (s *Syncer) fetchProfile(ctx context.Context, adapter platform.Adapter, handle string) (*platform.Profile, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return adapter.FetchProfile(callCtx, handle)
}

func (s *Syncer) importSubmissions(ctx context.Context, topic string, adapter platform.Adapter, userID string, p models.Platform, handle string) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	subs, err := adapter.FetchSubmissions(callCtx, handle)
	if err != nil {
		zap.S().Warnf("submission import for %s on %s skipped: %v", userID, p, err)
		s.publish(topic, "submissions", "submission import skipped, platform unavailable")
		return
	}

	imported := 0
	for _, sub := range subs {
		problem := &models.Problem{
			Platform:   p,
			ExternalID: sub.ProblemExternalID,
			Name:       sub.ProblemName,
			Difficulty: sub.Difficulty,
			Rating:     sub.Rating,
			Tags:       sub.Tags,
		}
		if err := database.UpsertProblem(s.db, problem); err != nil {
			zap.S().Warnf("failed to upsert problem %s/%s: %v", p, sub.ProblemExternalID, err)
			continue
		}

		created, err := database.CreateSubmissionIfAbsent(s.db, &models.Submission{
			UserID:      userID,
			Platform:    p,
			ProblemID:   problem.ID,
			Verdict:     sub.Verdict,
			RawVerdict:  sub.RawVerdict,
			SubmittedAt: sub.SubmittedAt,
			Language:    sub.Language,
		})
		if err != nil {
			zap.S().Warnf("failed to import submission for problem %s/%s: %v", p, sub.ProblemExternalID, err)
			continue
		}
		if created {
			imported++
		}
	}
	s.publish(topic, "submissions", fmt.Sprintf("imported %d new submissions", imported))
	zap.S().Infof("imported %d/%d submissions for user %s on %s", imported, len(subs), userID, p)
}

func (s *Syncer) importContests(ctx context.Context, topic string, adapter platform.Adapter, userID string, p models.Platform, handle string) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contests, err := adapter.FetchContestHistory(callCtx, handle)
	if err != nil {
		zap.S().Warnf("contest import for %s on %s skipped: %v", userID, p, err)
		s.publish(topic, "contests", "contest import skipped, platform unavailable")
		return
	}

	for _, contest := range contests {
		err := database.UpsertContestParticipation(s.db, &models.ContestParticipation{
			UserID:      userID,
			Platform:    p,
			ContestID:   contest.ContestID,
			ContestName: contest.ContestName,
			Rank:        contest.Rank,
			OldRating:   contest.OldRating,
			NewRating:   contest.NewRating,
			StartedAt:   contest.StartedAt,
		})
		if err != nil {
			zap.S().Warnf("failed to upsert contest %s for user %s: %v", contest.ContestID, userID, err)
		}
	}
	s.publish(topic, "contests", fmt.Sprintf("imported %d contest results", len(contests)))
}

// rebuildActivity fully replaces the per-day projection from the freshest
// source: the calendar endpoint when the platform has one, canonical
// submission rows otherwise.
func (s *Syncer) rebuildActivity(ctx context.Context, topic string, adapter platform.Adapter, userID string, p models.Platform, handle string) {
	var calendar map[string]int

	if provider, ok := adapter.(platform.CalendarProvider); ok {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		fetched, err := provider.FetchCalendar(callCtx, handle)
		if err != nil {
			zap.S().Warnf("activity rebuild for %s on %s skipped: %v", userID, p, err)
			s.publish(topic, "activity", "activity rebuild skipped, calendar unavailable")
			return
		}
		calendar = fetched
	} else {
		subs, err := database.GetSubmissionsByUserAndPlatform(s.db, userID, p)
		if err != nil {
			zap.S().Warnf("activity rebuild for %s on %s skipped: %v", userID, p, err)
			s.publish(topic, "activity", "activity rebuild skipped, repository error")
			return
		}
		calendar = DeriveCalendar(subs)
	}

	entries := CalendarToEntries(userID, p, calendar)
	if err := database.ReplaceActivityCache(s.db, userID, p, entries); err != nil {
		zap.S().Warnf("failed to replace activity cache for %s on %s: %v", userID, p, err)
		s.publish(topic, "activity", "activity rebuild failed")
		return
	}
	s.publish(topic, "activity", fmt.Sprintf("activity calendar rebuilt, %d days", len(entries)))
}

// Unlink removes the profile and all imported history for (user, platform)
// and drops every dependent cache entry.
func (s *Syncer) Unlink(ctx context.Context, userID string, p models.Platform) error {
	profile, err := database.GetPlatformProfile(s.db, userID, p)
	if err != nil {
		if database.IsNotFound(err) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("loading platform profile: %w", err)
	}

	if err := database.DeletePlatformData(s.db, userID, p); err != nil {
		return fmt.Errorf("deleting platform data: %w", err)
	}

	cache.InvalidateUser(ctx, s.store, userID)
	cache.InvalidatePlatformHandle(ctx, s.store, string(p), profile.Handle)
	zap.S().Infof("unlinked %s handle %q for user %s", p, profile.Handle, userID)
	return nil
}
