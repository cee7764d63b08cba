package tracker

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(plat models.Platform, externalID string, verdict models.Verdict, difficulty models.Difficulty, tags ...string) models.Submission {
	return models.Submission{
		UserID:   "u1",
		Platform: plat,
		Verdict:  verdict,
		Problem: models.Problem{
			Platform:   plat,
			ExternalID: externalID,
			Difficulty: difficulty,
			Tags:       tags,
		},
		SubmittedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestSolvedCountsDedupesByProblem(t *testing.T) {
	// Same problem: one accepted, one not. Accepted dominates, counted once.
	subs := []models.Submission{
		sub(models.PlatformCodeforces, "1850-A", models.VerdictAccepted, models.DifficultyEasy),
		sub(models.PlatformCodeforces, "1850-A", models.VerdictNotAccepted, models.DifficultyEasy),
	}

	counts := SolvedCounts(subs)
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.ByPlatform[models.PlatformCodeforces])
	assert.Equal(t, 1, counts.ByDifficulty[models.DifficultyEasy])
}

func TestSolvedCountsGroups(t *testing.T) {
	subs := []models.Submission{
		sub(models.PlatformLeetCode, "two-sum", models.VerdictAccepted, models.DifficultyEasy),
		sub(models.PlatformLeetCode, "lru-cache", models.VerdictAccepted, models.DifficultyMedium),
		sub(models.PlatformCodeforces, "1850-A", models.VerdictAccepted, models.DifficultyEasy),
		sub(models.PlatformCodeforces, "1900-F", models.VerdictNotAccepted, models.DifficultyHard),
	}

	counts := SolvedCounts(subs)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.ByPlatform[models.PlatformLeetCode])
	assert.Equal(t, 1, counts.ByPlatform[models.PlatformCodeforces])
	assert.Equal(t, 2, counts.ByDifficulty[models.DifficultyEasy])
	assert.Equal(t, 1, counts.ByDifficulty[models.DifficultyMedium])
	assert.Equal(t, 0, counts.ByDifficulty[models.DifficultyHard])
}

func TestSolvedCountsOrderIndependent(t *testing.T) {
	subs := []models.Submission{
		sub(models.PlatformLeetCode, "two-sum", models.VerdictAccepted, models.DifficultyEasy),
		sub(models.PlatformLeetCode, "two-sum", models.VerdictNotAccepted, models.DifficultyEasy),
		sub(models.PlatformCodeforces, "1850-A", models.VerdictAccepted, models.DifficultyEasy),
		sub(models.PlatformCodeforces, "1850-B", models.VerdictNotAccepted, models.DifficultyMedium),
		sub(models.PlatformLeetCode, "lru-cache", models.VerdictAccepted, models.DifficultyMedium),
	}
	want := SolvedCounts(subs)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Submission, len(subs))
		copy(shuffled, subs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, SolvedCounts(shuffled))
	}
}

func TestSolvedCountsExcludesDailyActivityPlaceholders(t *testing.T) {
	subs := []models.Submission{
		sub(models.PlatformLeetCode, "two-sum", models.VerdictAccepted, models.DifficultyEasy, "Array"),
		sub(models.PlatformLeetCode, "daily-2024-03-10", models.VerdictAccepted, models.DifficultyMedium, models.DailyActivityTag),
	}

	counts := SolvedCounts(subs)
	assert.Equal(t, 1, counts.Total)
}

func TestActiveDaysIgnoresZeroCountDays(t *testing.T) {
	entries := []models.ActivityCacheEntry{
		{Platform: models.PlatformLeetCode, Date: "2024-03-01", Count: 2},
		{Platform: models.PlatformLeetCode, Date: "2024-03-02", Count: 0},
		{Platform: models.PlatformLeetCode, Date: "2024-03-03", Count: 1},
	}
	assert.Equal(t, 2, ActiveDays(entries))
}

func TestActiveDaysMergesPlatforms(t *testing.T) {
	entries := []models.ActivityCacheEntry{
		{Platform: models.PlatformLeetCode, Date: "2024-03-01", Count: 2},
		{Platform: models.PlatformCodeforces, Date: "2024-03-01", Count: 3},
		{Platform: models.PlatformCodeforces, Date: "2024-03-05", Count: 1},
	}
	assert.Equal(t, 2, ActiveDays(entries))
}

func TestContestStats(t *testing.T) {
	rows := []models.ContestParticipation{
		{Platform: models.PlatformCodeforces, ContestID: "1850", Rank: 120, NewRating: 1450,
			StartedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{Platform: models.PlatformCodeforces, ContestID: "1860", Rank: 40, NewRating: 1520,
			StartedAt: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)},
		{Platform: models.PlatformLeetCode, ContestID: "Weekly Contest 390", Rank: 800, NewRating: 1705,
			StartedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		// Unranked rows never count as participated.
		{Platform: models.PlatformLeetCode, ContestID: "Weekly Contest 391", Rank: 0},
	}

	total, rankings := ContestStats(rows)
	require.Equal(t, 3, total)
	require.NotNil(t, rankings.Latest)
	require.NotNil(t, rankings.Best)
	assert.Equal(t, "Weekly Contest 390", rankings.Latest.ContestID)
	assert.Equal(t, 40, rankings.Best.Rank)
	assert.Len(t, rankings.History, 3)
}

func TestContestStatsEmpty(t *testing.T) {
	total, rankings := ContestStats(nil)
	assert.Zero(t, total)
	assert.Nil(t, rankings.Latest)
	assert.Nil(t, rankings.Best)
	assert.Empty(t, rankings.History)
}
