package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Init(dsn)
	require.NoError(t, err)
	return db
}

// memStore is an in-memory cache.Store used to observe cache behavior.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted int64
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(val, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.data[key] = data
}

func (m *memStore) DeleteByPattern(ctx context.Context, pattern string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			n++
		}
	}
	m.deleted += n
	return n
}

func (m *memStore) State() cache.State { return cache.StateConnected }

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// fakeAdapter is a status-API style platform (no calendar, no skills).
type fakeAdapter struct {
	plat        models.Platform
	profile     *platform.Profile
	profileErr  error
	subs        []platform.Submission
	subsErr     error
	contests    []platform.ContestResult
	contestsErr error
}

func (f *fakeAdapter) Platform() models.Platform { return f.plat }

func (f *fakeAdapter) FetchProfile(ctx context.Context, handle string) (*platform.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAdapter) FetchSubmissions(ctx context.Context, handle string) ([]platform.Submission, error) {
	return f.subs, f.subsErr
}

func (f *fakeAdapter) FetchContestHistory(ctx context.Context, handle string) ([]platform.ContestResult, error) {
	return f.contests, f.contestsErr
}

// calendarAdapter adds the calendar and skill endpoints on top of fakeAdapter.
type calendarAdapter struct {
	fakeAdapter
	calendar    map[string]int
	calendarErr error
	skills      []platform.TopicSkill
	skillsErr   error
}

func (f *calendarAdapter) FetchCalendar(ctx context.Context, handle string) (map[string]int, error) {
	return f.calendar, f.calendarErr
}

func (f *calendarAdapter) FetchTopicSkills(ctx context.Context, handle string) ([]platform.TopicSkill, error) {
	return f.skills, f.skillsErr
}

func cfSubmission(externalID string, verdict models.Verdict, at time.Time, tags ...string) platform.Submission {
	rawVerdict := ""
	if verdict != models.VerdictAccepted {
		rawVerdict = "WRONG_ANSWER"
	}
	return platform.Submission{
		ProblemExternalID: externalID,
		ProblemName:       "Problem " + externalID,
		Difficulty:        models.DifficultyEasy,
		Tags:              tags,
		Verdict:           verdict,
		RawVerdict:        rawVerdict,
		SubmittedAt:       at,
		Language:          "GNU C++20",
	}
}

func newCFAdapter() *fakeAdapter {
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &fakeAdapter{
		plat:    models.PlatformCodeforces,
		profile: &platform.Profile{Handle: "tourist", CurrentRating: 3800, MaxRating: 3900, Rank: "legendary grandmaster"},
		subs: []platform.Submission{
			cfSubmission("1850-A", models.VerdictAccepted, day1, "implementation"),
			cfSubmission("1850-A", models.VerdictNotAccepted, day1.Add(-time.Hour), "implementation"),
			cfSubmission("1850-B", models.VerdictAccepted, day1.Add(26*time.Hour), "math"),
		},
		contests: []platform.ContestResult{
			{ContestID: "1850", ContestName: "Div 3", Rank: 1, OldRating: 3700, NewRating: 3800,
				StartedAt: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestLinkHandleImportsHistory(t *testing.T) {
	db := newTestDB(t)
	store := newMemStore()
	syncer := NewSyncer(db, store, time.Second, newCFAdapter())

	profile, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err)
	assert.Equal(t, "tourist", profile.Handle)
	assert.Equal(t, 3800, profile.CurrentRating)

	subs, err := database.GetSubmissionsByUser(db, "u1")
	require.NoError(t, err)
	assert.Len(t, subs, 3)

	contests, err := database.GetContestParticipations(db, "u1")
	require.NoError(t, err)
	assert.Len(t, contests, 1)

	// Activity derived from submission timestamps: two distinct days.
	entries, err := database.GetActivityEntries(db, "u1", models.PlatformCodeforces)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLinkHandleIdempotent(t *testing.T) {
	db := newTestDB(t)
	syncer := NewSyncer(db, cache.Noop{}, time.Second, newCFAdapter())
	service := NewService(db, cache.Noop{}, syncer)

	_, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err)
	first, err := service.DashboardStats(context.Background(), "u1")
	require.NoError(t, err)

	_, err = syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err)
	second, err := service.DashboardStats(context.Background(), "u1")
	require.NoError(t, err)

	subs, err := database.GetSubmissionsByUser(db, "u1")
	require.NoError(t, err)
	assert.Len(t, subs, 3, "re-sync must not duplicate submissions")

	contests, err := database.GetContestParticipations(db, "u1")
	require.NoError(t, err)
	assert.Len(t, contests, 1, "re-sync must not duplicate contest rows")

	// Profile timestamps legitimately move on re-sync; every aggregate must
	// not.
	second.UserInfo = first.UserInfo
	assert.Equal(t, first, second)
}

func TestLinkHandleNotFoundPersistsNothing(t *testing.T) {
	db := newTestDB(t)
	store := newMemStore()
	adapter := &fakeAdapter{plat: models.PlatformCodeforces, profileErr: platform.ErrHandleNotFound}
	syncer := NewSyncer(db, store, time.Second, adapter)

	// Pre-seed a cache entry that must survive the failed link.
	store.Set(context.Background(), cache.DashboardStatsKey("u1"), "cached", time.Minute)

	_, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "ghost")
	require.ErrorIs(t, err, platform.ErrHandleNotFound)

	_, err = database.GetPlatformProfile(db, "u1", models.PlatformCodeforces)
	assert.True(t, database.IsNotFound(err), "no profile row may be created")
	assert.True(t, store.has(cache.DashboardStatsKey("u1")), "no cache invalidation on failed validation")
}

func TestLinkHandlePartialImport(t *testing.T) {
	db := newTestDB(t)
	adapter := newCFAdapter()
	adapter.subsErr = platform.ErrUpstreamUnavailable
	syncer := NewSyncer(db, cache.Noop{}, time.Second, adapter)

	profile, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err, "post-validation upstream failures must not abort the workflow")
	assert.NotNil(t, profile)

	subs, err := database.GetSubmissionsByUser(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	contests, err := database.GetContestParticipations(db, "u1")
	require.NoError(t, err)
	assert.Len(t, contests, 1, "contest import proceeds despite submission failure")
}

func TestLinkHandleCalendarPlatformReplacesActivity(t *testing.T) {
	db := newTestDB(t)
	adapter := &calendarAdapter{
		fakeAdapter: fakeAdapter{
			plat:    models.PlatformLeetCode,
			profile: &platform.Profile{Handle: "alice", CurrentRating: 1700},
		},
		calendar: map[string]int{"2024-03-01": 2, "2024-03-02": 0, "2024-03-03": 1},
	}
	syncer := NewSyncer(db, cache.Noop{}, time.Second, adapter)

	_, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformLeetCode, "alice")
	require.NoError(t, err)

	entries, err := database.GetActivityEntries(db, "u1", models.PlatformLeetCode)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, ActiveDays(entries))

	// A later sync fully replaces the projection; no leftovers.
	adapter.calendar = map[string]int{"2024-04-01": 5}
	_, err = syncer.LinkHandle(context.Background(), "u1", models.PlatformLeetCode, "alice")
	require.NoError(t, err)

	entries, err = database.GetActivityEntries(db, "u1", models.PlatformLeetCode)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-04-01", entries[0].Date)
	assert.Equal(t, 5, entries[0].Count)
}

func TestLinkHandleInvalidatesCaches(t *testing.T) {
	db := newTestDB(t)
	store := newMemStore()
	syncer := NewSyncer(db, store, time.Second, newCFAdapter())

	ctx := context.Background()
	store.Set(ctx, cache.DashboardStatsKey("u1"), "stale", time.Minute)
	store.Set(ctx, cache.AnalyticsTrendsKey("u1"), "stale", time.Minute)
	store.Set(ctx, cache.ProfileKey("codeforces", "tourist"), "stale", time.Minute)
	store.Set(ctx, cache.DashboardStatsKey("u2"), "other user", time.Minute)

	_, err := syncer.LinkHandle(ctx, "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err)

	assert.False(t, store.has(cache.DashboardStatsKey("u1")))
	assert.False(t, store.has(cache.AnalyticsTrendsKey("u1")))
	assert.False(t, store.has(cache.ProfileKey("codeforces", "tourist")))
	assert.True(t, store.has(cache.DashboardStatsKey("u2")), "other users' keys stay")
}

func TestUnlinkRemovesPlatformData(t *testing.T) {
	db := newTestDB(t)
	store := newMemStore()
	syncer := NewSyncer(db, store, time.Second, newCFAdapter())

	ctx := context.Background()
	_, err := syncer.LinkHandle(ctx, "u1", models.PlatformCodeforces, "tourist")
	require.NoError(t, err)

	require.NoError(t, syncer.Unlink(ctx, "u1", models.PlatformCodeforces))

	_, err = database.GetPlatformProfile(db, "u1", models.PlatformCodeforces)
	assert.True(t, database.IsNotFound(err))

	subs, err := database.GetSubmissionsByUser(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	entries, err := database.GetActivityEntries(db, "u1", models.PlatformCodeforces)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnlinkWithoutLinkFails(t *testing.T) {
	db := newTestDB(t)
	syncer := NewSyncer(db, cache.Noop{}, time.Second, newCFAdapter())

	err := syncer.Unlink(context.Background(), "u1", models.PlatformCodeforces)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLinkHandleUnknownPlatform(t *testing.T) {
	db := newTestDB(t)
	syncer := NewSyncer(db, cache.Noop{}, time.Second)

	_, err := syncer.LinkHandle(context.Background(), "u1", models.PlatformCodeforces, "x")
	assert.ErrorIs(t, err, ErrPlatformNotSupported)
}
