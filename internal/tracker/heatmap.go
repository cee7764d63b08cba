package tracker

import (
	"github.com/cptrack/cptrack/internal/database/models"
)

// BuildHeatmap projects activity entries into per-platform and combined
// day-count maps. Zero-count entries are kept in the maps so calendars can
// distinguish "synced, idle day" from "no data".
func BuildHeatmap(entries []models.ActivityCacheEntry) HeatmapData {
	heatmap := HeatmapData{
		PerPlatform: make(map[models.Platform]map[string]int),
		Combined:    make(map[string]int),
	}
	for _, e := range entries {
		perDay, ok := heatmap.PerPlatform[e.Platform]
		if !ok {
			perDay = make(map[string]int)
			heatmap.PerPlatform[e.Platform] = perDay
		}
		perDay[e.Date] += e.Count
		heatmap.Combined[e.Date] += e.Count
	}
	return heatmap
}

// DeriveCalendar rebuilds a day-count map from canonical submission rows.
// Used for platforms without a calendar endpoint.
func DeriveCalendar(subs []models.Submission) map[string]int {
	calendar := make(map[string]int)
	for _, sub := range subs {
		day := sub.SubmittedAt.UTC().Format("2006-01-02")
		calendar[day]++
	}
	return calendar
}

// CalendarToEntries converts a day-count map into activity cache rows for
// ReplaceActivityCache.
func CalendarToEntries(userID string, platform models.Platform, calendar map[string]int) []models.ActivityCacheEntry {
	entries := make([]models.ActivityCacheEntry, 0, len(calendar))
	for day, count := range calendar {
		entries = append(entries, models.ActivityCacheEntry{
			UserID:   userID,
			Platform: platform,
			Date:     day,
			Count:    count,
		})
	}
	return entries
}
