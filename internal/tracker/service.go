package tracker

import (
	"context"
	"fmt"

	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/database"
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service computes caller-facing aggregates with a cache-aside layer on top
// of the canonical repository. Every method returns the same result with the
// cache degraded or disabled; only latency changes.
type Service struct {
	db     *gorm.DB
	store  cache.Store
	syncer *Syncer
}

func NewService(db *gorm.DB, store cache.Store, syncer *Syncer) *Service {
	return &Service{db: db, store: store, syncer: syncer}
}

// canonicalData is one consistent read of everything the aggregations need.
type canonicalData struct {
	profiles []models.PlatformProfile
	subs     []models.Submission
	contests []models.ContestParticipation
	entries  []models.ActivityCacheEntry
}

func (s *Service) load(userID string) (*canonicalData, error) {
	profiles, err := database.GetPlatformProfiles(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	subs, err := database.GetSubmissionsByUser(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}
	contests, err := database.GetContestParticipations(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading contests: %w", err)
	}
	entries, err := database.GetAllActivityEntries(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading activity entries: %w", err)
	}
	return &canonicalData{
		profiles: profiles,
		subs:     subs,
		contests: contests,
		entries:  entries,
	}, nil
}

// freshEntries swaps in a live calendar for platforms that expose one. The
// stored projection stays as the fallback when the upstream is down.
func (s *Service) freshEntries(ctx context.Context, userID string, data *canonicalData) []models.ActivityCacheEntry {
	entries := data.entries
	for _, profile := range data.profiles {
		adapter, ok := s.syncer.Adapter(profile.Platform)
		if !ok {
			continue
		}
		provider, ok := adapter.(platform.CalendarProvider)
		if !ok {
			continue
		}
		calendar, err := provider.FetchCalendar(ctx, profile.Handle)
		if err != nil {
			zap.S().Debugf("live calendar for %s unavailable, using stored projection: %v", profile.Platform, err)
			continue
		}

		replaced := make([]models.ActivityCacheEntry, 0, len(entries)+len(calendar))
		for _, e := range entries {
			if e.Platform != profile.Platform {
				replaced = append(replaced, e)
			}
		}
		replaced = append(replaced, CalendarToEntries(userID, profile.Platform, calendar)...)
		entries = replaced
	}
	return entries
}

// topicSkills collects authoritative per-topic counts from every adapter that
// offers them. Failures degrade to submission-derived counts only.
func (s *Service) topicSkills(ctx context.Context, data *canonicalData) map[models.Platform][]platform.TopicSkill {
	skills := make(map[models.Platform][]platform.TopicSkill)
	for _, profile := range data.profiles {
		adapter, ok := s.syncer.Adapter(profile.Platform)
		if !ok {
			continue
		}
		provider, ok := adapter.(platform.SkillProvider)
		if !ok {
			continue
		}
		fetched, err := provider.FetchTopicSkills(ctx, profile.Handle)
		if err != nil {
			zap.S().Debugf("topic skills for %s unavailable: %v", profile.Platform, err)
			continue
		}
		skills[profile.Platform] = fetched
	}
	return skills
}

// DashboardStats returns the unified dashboard aggregate for one user.
func (s *Service) DashboardStats(ctx context.Context, userID string) (*DashboardStats, error) {
	key := cache.DashboardStatsKey(userID)
	var cached DashboardStats
	if err := s.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	entries := s.freshEntries(ctx, userID, data)
	skills := s.topicSkills(ctx, data)

	totalContests, rankings := ContestStats(data.contests)
	stats := &DashboardStats{
		TotalQuestions:   SolvedCounts(data.subs),
		TotalActiveDays:  ActiveDays(entries),
		HeatmapData:      BuildHeatmap(entries),
		TotalContests:    totalContests,
		ContestRankings:  rankings,
		DSATopicAnalysis: TopicAnalysis(data.subs, skills),
		UserInfo:         UserInfo{Profiles: data.profiles},
	}

	s.store.Set(ctx, key, stats, cache.TTLDashboard)
	return stats, nil
}

// Heatmap returns only the activity calendars.
func (s *Service) Heatmap(ctx context.Context, userID string) (*HeatmapData, error) {
	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	heatmap := BuildHeatmap(s.freshEntries(ctx, userID, data))
	return &heatmap, nil
}

// Contests returns contest participation summaries.
func (s *Service) Contests(ctx context.Context, userID string) (int, *ContestRankings, error) {
	contests, err := database.GetContestParticipations(s.db, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("loading contests: %w", err)
	}
	total, rankings := ContestStats(contests)
	return total, &rankings, nil
}

// Progress returns the analytics-progress view.
func (s *Service) Progress(ctx context.Context, userID string) (*ProgressStats, error) {
	key := cache.AnalyticsProgressKey(userID)
	var cached ProgressStats
	if err := s.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	progress := BuildProgress(data.subs, data.contests, data.profiles)

	s.store.Set(ctx, key, &progress, cache.TTLAnalyticsProgress)
	return &progress, nil
}

// Trends returns the analytics-trends view.
func (s *Service) Trends(ctx context.Context, userID string) (*TrendStats, error) {
	key := cache.AnalyticsTrendsKey(userID)
	var cached TrendStats
	if err := s.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	trends := BuildTrends(data.subs, data.entries)

	s.store.Set(ctx, key, &trends, cache.TTLAnalyticsTrends)
	return &trends, nil
}

// AnalyticsData bundles every analytics view in one payload.
type AnalyticsData struct {
	Dashboard DashboardStats `json:"dashboard"`
	Progress  ProgressStats  `json:"progress"`
	Trends    TrendStats     `json:"trends"`
}

func (s *Service) Analytics(ctx context.Context, userID string) (*AnalyticsData, error) {
	key := cache.AnalyticsDataKey(userID)
	var cached AnalyticsData
	if err := s.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	dashboard, err := s.DashboardStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	trends, err := s.Trends(ctx, userID)
	if err != nil {
		return nil, err
	}

	analytics := &AnalyticsData{
		Dashboard: *dashboard,
		Progress:  *progress,
		Trends:    *trends,
	}
	s.store.Set(ctx, key, analytics, cache.TTLAnalyticsData)
	return analytics, nil
}
