package cache

import (
	"context"
	"fmt"
	"time"
)

// TTLs per key category. Per-platform categories run long to stay under
// upstream rate limits; user-facing aggregates stay short.
const (
	TTLVeryShort = 60 * time.Second
	TTLShort     = 300 * time.Second
	TTLMedium    = 900 * time.Second
	TTLLong      = 3600 * time.Second
	TTLVeryLong  = 86400 * time.Second

	TTLDashboard         = TTLMedium
	TTLAnalyticsData     = 600 * time.Second
	TTLAnalyticsProgress = TTLShort
	TTLAnalyticsTrends   = TTLMedium
)

// Key builders. Every key starts with its category namespace so targeted
// invalidation can work on prefixes.

func ProfileKey(platform, handle string) string {
	return fmt.Sprintf("profile:%s:%s", platform, handle)
}

func CalendarKey(platform, handle string) string {
	return fmt.Sprintf("calendar:%s:%s", platform, handle)
}

func ContestKey(platform, handle string) string {
	return fmt.Sprintf("contest:%s:%s", platform, handle)
}

func SkillsKey(platform, handle string) string {
	return fmt.Sprintf("skills:%s:%s", platform, handle)
}

func ProblemStaticKey(platform, externalID string) string {
	return fmt.Sprintf("problem-static:%s:%s", platform, externalID)
}

func DailyProblemKey(date string) string {
	return fmt.Sprintf("daily-problem:%s", date)
}

func DashboardStatsKey(userID string) string {
	return fmt.Sprintf("dashboard-stats:%s", userID)
}

func AnalyticsDataKey(userID string) string {
	return fmt.Sprintf("analytics-data:%s", userID)
}

func AnalyticsProgressKey(userID string) string {
	return fmt.Sprintf("analytics-progress:%s", userID)
}

func AnalyticsTrendsKey(userID string) string {
	return fmt.Sprintf("analytics-trends:%s", userID)
}

// InvalidateUser drops every derived aggregate cached under a user id.
func InvalidateUser(ctx context.Context, store Store, userID string) int64 {
	var n int64
	n += store.DeleteByPattern(ctx, fmt.Sprintf("dashboard-stats:%s*", userID))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("analytics-data:%s*", userID))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("analytics-progress:%s*", userID))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("analytics-trends:%s*", userID))
	return n
}

// InvalidatePlatformHandle drops every per-platform category cached for one
// upstream handle.
func InvalidatePlatformHandle(ctx context.Context, store Store, platform, handle string) int64 {
	var n int64
	n += store.DeleteByPattern(ctx, fmt.Sprintf("profile:%s:%s*", platform, handle))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("calendar:%s:%s*", platform, handle))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("contest:%s:%s*", platform, handle))
	n += store.DeleteByPattern(ctx, fmt.Sprintf("skills:%s:%s*", platform, handle))
	return n
}
