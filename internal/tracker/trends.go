package tracker

import (
	"sort"

	"github.com/cptrack/cptrack/internal/database/models"
)

// RatingPoint is one step of a platform rating progression.
type RatingPoint struct {
	Time   int64 `json:"time"`
	Rating int   `json:"rating"`
}

// ProgressStats backs the analytics-progress category: solved-by-difficulty
// plus the rating progression of every linked platform.
type ProgressStats struct {
	TotalQuestions QuestionCounts                    `json:"totalQuestions"`
	RatingHistory  map[models.Platform][]RatingPoint `json:"ratingHistory"`
	CurrentRatings map[models.Platform]int           `json:"currentRatings"`
	MaxRatings     map[models.Platform]int           `json:"maxRatings"`
}

// BuildProgress computes the progress view from canonical rows.
func BuildProgress(subs []models.Submission, contests []models.ContestParticipation, profiles []models.PlatformProfile) ProgressStats {
	progress := ProgressStats{
		TotalQuestions: SolvedCounts(subs),
		RatingHistory:  make(map[models.Platform][]RatingPoint),
		CurrentRatings: make(map[models.Platform]int),
		MaxRatings:     make(map[models.Platform]int),
	}

	for _, row := range contests {
		progress.RatingHistory[row.Platform] = append(progress.RatingHistory[row.Platform], RatingPoint{
			Time:   row.StartedAt.Unix(),
			Rating: row.NewRating,
		})
	}
	for plat := range progress.RatingHistory {
		points := progress.RatingHistory[plat]
		sort.Slice(points, func(i, j int) bool { return points[i].Time < points[j].Time })
		progress.RatingHistory[plat] = points
	}

	for _, profile := range profiles {
		progress.CurrentRatings[profile.Platform] = profile.CurrentRating
		progress.MaxRatings[profile.Platform] = profile.MaxRating
	}
	return progress
}

// MonthBucket is one month of the trends view, keyed "2006-01".
type MonthBucket struct {
	Month       string `json:"month"`
	Submissions int    `json:"submissions"`
	ActiveDays  int    `json:"activeDays"`
	Solved      int    `json:"solved"`
}

// TrendStats backs the analytics-trends category.
type TrendStats struct {
	Months []MonthBucket `json:"months"`
}

// BuildTrends buckets activity and first-accept times by month. Months appear
// in ascending order; months with no data are omitted.
func BuildTrends(subs []models.Submission, entries []models.ActivityCacheEntry) TrendStats {
	type monthAgg struct {
		submissions int
		days        map[string]struct{}
		solved      int
	}
	byMonth := make(map[string]*monthAgg)
	ensure := func(month string) *monthAgg {
		agg, ok := byMonth[month]
		if !ok {
			agg = &monthAgg{days: make(map[string]struct{})}
			byMonth[month] = agg
		}
		return agg
	}

	// Days dedupe across platforms, matching ActiveDays.
	for _, e := range entries {
		if len(e.Date) < 7 {
			continue
		}
		agg := ensure(e.Date[:7])
		agg.submissions += e.Count
		if e.Count > 0 {
			agg.days[e.Date] = struct{}{}
		}
	}

	// A problem counts as solved in the month of its earliest accepted
	// submission.
	firstAccept := make(map[solvedKey]int64)
	for _, sub := range subs {
		if sub.Verdict != models.VerdictAccepted || isDailyActivity(sub.Problem) {
			continue
		}
		key := solvedKey{platform: sub.Platform, externalID: sub.Problem.ExternalID}
		ts := sub.SubmittedAt.Unix()
		if prev, ok := firstAccept[key]; !ok || ts < prev {
			firstAccept[key] = ts
		}
	}
	for _, sub := range subs {
		if sub.Verdict != models.VerdictAccepted || isDailyActivity(sub.Problem) {
			continue
		}
		key := solvedKey{platform: sub.Platform, externalID: sub.Problem.ExternalID}
		if firstAccept[key] == sub.SubmittedAt.Unix() {
			ensure(sub.SubmittedAt.UTC().Format("2006-01")).solved++
			// Guard against two submissions sharing the first-accept second.
			firstAccept[key] = -1
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	trends := TrendStats{Months: make([]MonthBucket, 0, len(months))}
	for _, month := range months {
		agg := byMonth[month]
		trends.Months = append(trends.Months, MonthBucket{
			Month:       month,
			Submissions: agg.submissions,
			ActiveDays:  len(agg.days),
			Solved:      agg.solved,
		})
	}
	return trends
}
