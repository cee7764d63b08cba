package tracker

import (
	"testing"
	"time"

	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProgress(t *testing.T) {
	subs := []models.Submission{
		sub(models.PlatformLeetCode, "two-sum", models.VerdictAccepted, models.DifficultyEasy),
	}
	contests := []models.ContestParticipation{
		{Platform: models.PlatformCodeforces, NewRating: 1500,
			StartedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Platform: models.PlatformCodeforces, NewRating: 1450,
			StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	profiles := []models.PlatformProfile{
		{Platform: models.PlatformCodeforces, CurrentRating: 1500, MaxRating: 1520},
	}

	progress := BuildProgress(subs, contests, profiles)
	assert.Equal(t, 1, progress.TotalQuestions.Total)
	require.Len(t, progress.RatingHistory[models.PlatformCodeforces], 2)
	// Rating points are sorted by time regardless of input order.
	assert.Equal(t, 1450, progress.RatingHistory[models.PlatformCodeforces][0].Rating)
	assert.Equal(t, 1500, progress.RatingHistory[models.PlatformCodeforces][1].Rating)
	assert.Equal(t, 1520, progress.MaxRatings[models.PlatformCodeforces])
}

func TestBuildTrendsBucketsByMonth(t *testing.T) {
	entries := []models.ActivityCacheEntry{
		{Platform: models.PlatformLeetCode, Date: "2024-02-10", Count: 3},
		{Platform: models.PlatformLeetCode, Date: "2024-02-11", Count: 0},
		{Platform: models.PlatformCodeforces, Date: "2024-03-01", Count: 2},
	}
	subs := []models.Submission{
		sub(models.PlatformLeetCode, "two-sum", models.VerdictAccepted, models.DifficultyEasy),
	}

	trends := BuildTrends(subs, entries)
	require.Len(t, trends.Months, 2)
	assert.Equal(t, "2024-02", trends.Months[0].Month)
	assert.Equal(t, 3, trends.Months[0].Submissions)
	assert.Equal(t, 1, trends.Months[0].ActiveDays)
	assert.Equal(t, "2024-03", trends.Months[1].Month)
	// The accepted submission on 2024-03-10 counts as a March solve.
	assert.Equal(t, 1, trends.Months[1].Solved)
}

func TestBuildTrendsActiveDaysMergePlatforms(t *testing.T) {
	// One day active on both platforms is one active day, same as ActiveDays.
	entries := []models.ActivityCacheEntry{
		{Platform: models.PlatformLeetCode, Date: "2024-03-01", Count: 2},
		{Platform: models.PlatformCodeforces, Date: "2024-03-01", Count: 3},
		{Platform: models.PlatformCodeforces, Date: "2024-03-02", Count: 1},
	}

	trends := BuildTrends(nil, entries)
	require.Len(t, trends.Months, 1)
	assert.Equal(t, 2, trends.Months[0].ActiveDays)
	assert.Equal(t, ActiveDays(entries), trends.Months[0].ActiveDays)
	assert.Equal(t, 6, trends.Months[0].Submissions)
}

func TestBuildTrendsSolvedUsesFirstAccept(t *testing.T) {
	first := sub(models.PlatformCodeforces, "1-A", models.VerdictAccepted, models.DifficultyEasy)
	first.SubmittedAt = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	second := sub(models.PlatformCodeforces, "1-A", models.VerdictAccepted, models.DifficultyEasy)
	second.SubmittedAt = time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	trends := BuildTrends([]models.Submission{second, first}, nil)
	require.Len(t, trends.Months, 1)
	assert.Equal(t, "2024-01", trends.Months[0].Month)
	assert.Equal(t, 1, trends.Months[0].Solved)
}
