package tracker

import (
	"github.com/cptrack/cptrack/internal/database/models"
)

// QuestionCounts groups deduplicated solved-problem counts.
type QuestionCounts struct {
	Total        int                       `json:"total"`
	ByPlatform   map[models.Platform]int   `json:"byPlatform"`
	ByDifficulty map[models.Difficulty]int `json:"byDifficulty"`
}

// HeatmapData is the per-day submission-count projection for activity
// calendars, keyed by "2006-01-02" days.
type HeatmapData struct {
	PerPlatform map[models.Platform]map[string]int `json:"perPlatform"`
	Combined    map[string]int                     `json:"combined"`
}

// ContestSummary is one contest appearance in caller-facing form.
type ContestSummary struct {
	Platform    models.Platform `json:"platform"`
	ContestID   string          `json:"contest_id"`
	ContestName string          `json:"contest_name"`
	Rank        int             `json:"rank"`
	OldRating   int             `json:"old_rating"`
	NewRating   int             `json:"new_rating"`
	StartedAt   int64           `json:"started_at"`
}

type ContestRankings struct {
	Latest  *ContestSummary  `json:"latest"`
	Best    *ContestSummary  `json:"best"`
	History []ContestSummary `json:"history"`
}

// TopicStat is the per-topic slice of the DSA analysis.
type TopicStat struct {
	Total       int                     `json:"total"`
	PerPlatform map[models.Platform]int `json:"perPlatform"`
	Category    string                  `json:"category"`
	Proficiency float64                 `json:"proficiency"`
}

type UserInfo struct {
	Profiles []models.PlatformProfile `json:"profiles"`
}

// DashboardStats is the caller-facing aggregate consumed by the presentation
// layer.
type DashboardStats struct {
	TotalQuestions   QuestionCounts       `json:"totalQuestions"`
	TotalActiveDays  int                  `json:"totalActiveDays"`
	HeatmapData      HeatmapData          `json:"heatmapData"`
	TotalContests    int                  `json:"totalContests"`
	ContestRankings  ContestRankings      `json:"contestRankings"`
	DSATopicAnalysis map[string]TopicStat `json:"dsaTopicAnalysis"`
	UserInfo         UserInfo             `json:"userInfo"`
}

// solvedKey identifies a logical problem across submissions.
type solvedKey struct {
	platform   models.Platform
	externalID string
}

// solvedProblems deduplicates submissions down to the set of problems with at
// least one accepted submission. Daily-activity placeholder problems are
// excluded. The result is a map, so callers cannot depend on fetch order.
func solvedProblems(subs []models.Submission) map[solvedKey]models.Problem {
	solved := make(map[solvedKey]models.Problem)
	for _, sub := range subs {
		if sub.Verdict != models.VerdictAccepted {
			continue
		}
		if isDailyActivity(sub.Problem) {
			continue
		}
		key := solvedKey{platform: sub.Platform, externalID: sub.Problem.ExternalID}
		solved[key] = sub.Problem
	}
	return solved
}

func isDailyActivity(p models.Problem) bool {
	for _, tag := range p.Tags {
		if tag == models.DailyActivityTag {
			return true
		}
	}
	return false
}

// SolvedCounts computes total solved problems grouped by platform and by
// difficulty. "Solved" means at least one accepted submission, deduplicated
// by problem identity.
func SolvedCounts(subs []models.Submission) QuestionCounts {
	counts := QuestionCounts{
		ByPlatform:   make(map[models.Platform]int),
		ByDifficulty: make(map[models.Difficulty]int),
	}
	for key, problem := range solvedProblems(subs) {
		counts.Total++
		counts.ByPlatform[key.platform]++
		counts.ByDifficulty[problem.Difficulty]++
	}
	return counts
}

// ActiveDays counts distinct calendar days with at least one submission
// across all platforms.
func ActiveDays(entries []models.ActivityCacheEntry) int {
	days := make(map[string]struct{})
	for _, e := range entries {
		if e.Count > 0 {
			days[e.Date] = struct{}{}
		}
	}
	return len(days)
}

// ContestStats summarizes contest participation. Only rows with a positive
// rank count as attended; latest is the most recent by start time and best is
// the minimum rank.
func ContestStats(rows []models.ContestParticipation) (int, ContestRankings) {
	rankings := ContestRankings{History: make([]ContestSummary, 0, len(rows))}

	var latest, best *ContestSummary
	total := 0
	for _, row := range rows {
		if row.Rank <= 0 {
			continue
		}
		summary := ContestSummary{
			Platform:    row.Platform,
			ContestID:   row.ContestID,
			ContestName: row.ContestName,
			Rank:        row.Rank,
			OldRating:   row.OldRating,
			NewRating:   row.NewRating,
			StartedAt:   row.StartedAt.Unix(),
		}
		rankings.History = append(rankings.History, summary)
		total++

		if latest == nil || summary.StartedAt > latest.StartedAt {
			s := summary
			latest = &s
		}
		if best == nil || summary.Rank < best.Rank {
			s := summary
			best = &s
		}
	}

	rankings.Latest = latest
	rankings.Best = best
	return total, rankings
}
