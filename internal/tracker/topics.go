package tracker

import (
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
)

// TopicAnalysis merges submission-derived tag counts with authoritative
// per-platform skill breakdowns. An authoritative count replaces (never adds
// to) the submission-derived count for the same platform and topic; the total
// per topic is then the sum across platforms. The daily-activity tag never
// appears in the result.
func TopicAnalysis(subs []models.Submission, authoritative map[models.Platform][]platform.TopicSkill) map[string]TopicStat {
	analysis := make(map[string]TopicStat)

	ensure := func(topic string) TopicStat {
		stat, ok := analysis[topic]
		if !ok {
			stat = TopicStat{PerPlatform: make(map[models.Platform]int)}
		}
		return stat
	}

	// Submission-derived counts: each solved problem contributes once per tag.
	for key, problem := range solvedProblems(subs) {
		for _, tag := range problem.Tags {
			if tag == models.DailyActivityTag {
				continue
			}
			stat := ensure(tag)
			stat.PerPlatform[key.platform]++
			analysis[tag] = stat
		}
	}

	// Authoritative overrides.
	for plat, skills := range authoritative {
		for _, skill := range skills {
			if skill.Topic == models.DailyActivityTag {
				continue
			}
			stat := ensure(skill.Topic)
			stat.PerPlatform[plat] = skill.SolvedCount
			stat.Category = skill.Category
			analysis[skill.Topic] = stat
		}
	}

	for topic, stat := range analysis {
		total := 0
		for _, count := range stat.PerPlatform {
			total += count
		}
		stat.Total = total
		stat.Proficiency = topicProficiency(total)
		analysis[topic] = stat
	}
	return analysis
}

// topicProficiency is min(solved / max(2*solved, 50), 0.95). Consumers
// depend on the exact curve; do not change it without versioning the API.
func topicProficiency(solved int) float64 {
	if solved <= 0 {
		return 0
	}
	denom := 2 * solved
	if denom < 50 {
		denom = 50
	}
	p := float64(solved) / float64(denom)
	if p > 0.95 {
		p = 0.95
	}
	return p
}
