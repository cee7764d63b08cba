package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://leetcode.com/graphql"

// CalendarDayOffset shifts the epoch keys of the submission calendar forward
// by one day. The raw keys land on the previous UTC day for most accounts;
// the shift is empirical and still needs verification against LeetCode's
// calendar epoch convention.
const CalendarDayOffset = 24 * time.Hour

// Client speaks LeetCode's GraphQL API. Problem metadata and the daily
// challenge are cached through the injected store under the problem-static
// and daily-problem categories.
type Client struct {
	baseURL string
	http    *http.Client
	store   cache.Store
}

func New(baseURL string, timeout time.Duration, store cache.Store) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if store == nil {
		store = cache.Noop{}
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		store:   store,
	}
}

func (c *Client) Platform() models.Platform {
	return models.PlatformLeetCode
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: leetcode returned status %d", platform.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	for _, e := range gqlResp.Errors {
		if strings.Contains(strings.ToLower(e.Message), "does not exist") {
			return platform.ErrHandleNotFound
		}
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("%w: %s", platform.ErrUpstreamUnavailable, gqlResp.Errors[0].Message)
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	return nil
}

const profileQuery = `
query userPublicProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile { ranking }
  }
  userContestRanking(username: $username) {
    rating
    globalRanking
    attendedContestsCount
  }
}`

func (c *Client) FetchProfile(ctx context.Context, handle string) (*platform.Profile, error) {
	var data struct {
		MatchedUser *struct {
			Username string `json:"username"`
			Profile  struct {
				Ranking int `json:"ranking"`
			} `json:"profile"`
		} `json:"matchedUser"`
		UserContestRanking *struct {
			Rating        float64 `json:"rating"`
			GlobalRanking int     `json:"globalRanking"`
		} `json:"userContestRanking"`
	}
	if err := c.query(ctx, profileQuery, map[string]interface{}{"username": handle}, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, platform.ErrHandleNotFound
	}

	profile := &platform.Profile{
		Handle: data.MatchedUser.Username,
		Rank:   strconv.Itoa(data.MatchedUser.Profile.Ranking),
	}
	if data.UserContestRanking != nil {
		profile.CurrentRating = int(data.UserContestRanking.Rating)
		profile.MaxRating = int(data.UserContestRanking.Rating)
	}
	return profile, nil
}

const recentSubmissionsQuery = `
query recentAcSubmissions($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
  }
}`

func (c *Client) FetchSubmissions(ctx context.Context, handle string) ([]platform.Submission, error) {
	var data struct {
		RecentAcSubmissionList []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			TitleSlug string `json:"titleSlug"`
			Timestamp string `json:"timestamp"`
		} `json:"recentAcSubmissionList"`
	}
	vars := map[string]interface{}{"username": handle, "limit": 500}
	if err := c.query(ctx, recentSubmissionsQuery, vars, &data); err != nil {
		return nil, err
	}

	subs := make([]platform.Submission, 0, len(data.RecentAcSubmissionList))
	for _, raw := range data.RecentAcSubmissionList {
		ts, err := strconv.ParseInt(raw.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad submission timestamp %q", platform.ErrUpstreamUnavailable, raw.Timestamp)
		}

		sub := platform.Submission{
			ProblemExternalID: raw.TitleSlug,
			ProblemName:       raw.Title,
			Difficulty:        models.DifficultyMedium,
			Verdict:           models.VerdictAccepted,
			SubmittedAt:       time.Unix(ts, 0).UTC(),
		}

		// The public submission list carries no problem metadata; it comes
		// from a per-problem query cached for a day.
		if meta, err := c.questionMeta(ctx, raw.TitleSlug); err == nil {
			sub.Difficulty = meta.Difficulty
			sub.Tags = meta.Tags
		} else {
			zap.S().Debugf("leetcode question metadata for %s unavailable: %v", raw.TitleSlug, err)
		}

		subs = append(subs, sub)
	}
	return subs, nil
}

const questionQuery = `
query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    difficulty
    topicTags { name }
  }
}`

type questionMeta struct {
	Difficulty models.Difficulty `json:"difficulty"`
	Tags       []string          `json:"tags"`
}

func (c *Client) questionMeta(ctx context.Context, titleSlug string) (*questionMeta, error) {
	key := cache.ProblemStaticKey(string(models.PlatformLeetCode), titleSlug)
	var cached questionMeta
	if err := c.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	var data struct {
		Question *struct {
			Difficulty string `json:"difficulty"`
			TopicTags  []struct {
				Name string `json:"name"`
			} `json:"topicTags"`
		} `json:"question"`
	}
	if err := c.query(ctx, questionQuery, map[string]interface{}{"titleSlug": titleSlug}, &data); err != nil {
		return nil, err
	}
	if data.Question == nil {
		return nil, fmt.Errorf("%w: unknown question %s", platform.ErrUpstreamUnavailable, titleSlug)
	}

	meta := &questionMeta{
		Difficulty: parseDifficulty(data.Question.Difficulty),
	}
	for _, tag := range data.Question.TopicTags {
		meta.Tags = append(meta.Tags, tag.Name)
	}

	c.store.Set(ctx, key, meta, cache.TTLVeryLong)
	return meta, nil
}

func parseDifficulty(s string) models.Difficulty {
	switch strings.ToLower(s) {
	case "easy":
		return models.DifficultyEasy
	case "hard":
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

const calendarQuery = `
query userProfileCalendar($username: String!) {
  matchedUser(username: $username) {
    userCalendar {
      submissionCalendar
    }
  }
}`

// FetchCalendar returns day ("2006-01-02") to submission count. The calendar
// arrives as a JSON string keyed by epoch seconds; keys are shifted by
// CalendarDayOffset before truncation to a day.
func (c *Client) FetchCalendar(ctx context.Context, handle string) (map[string]int, error) {
	key := cache.CalendarKey(string(models.PlatformLeetCode), handle)
	var cached map[string]int
	if err := c.store.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	var data struct {
		MatchedUser *struct {
			UserCalendar struct {
				SubmissionCalendar string `json:"submissionCalendar"`
			} `json:"userCalendar"`
		} `json:"matchedUser"`
	}
	if err := c.query(ctx, calendarQuery, map[string]interface{}{"username": handle}, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, platform.ErrHandleNotFound
	}

	var byEpoch map[string]int
	if err := json.Unmarshal([]byte(data.MatchedUser.UserCalendar.SubmissionCalendar), &byEpoch); err != nil {
		return nil, fmt.Errorf("%w: bad submission calendar: %v", platform.ErrUpstreamUnavailable, err)
	}

	calendar := make(map[string]int, len(byEpoch))
	for epoch, count := range byEpoch {
		sec, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad calendar epoch %q", platform.ErrUpstreamUnavailable, epoch)
		}
		day := time.Unix(sec, 0).UTC().Add(CalendarDayOffset).Format("2006-01-02")
		calendar[day] += count
	}

	c.store.Set(ctx, key, calendar, cache.TTLMedium)
	return calendar, nil
}

const skillStatsQuery = `
query skillStats($username: String!) {
  matchedUser(username: $username) {
    tagProblemCounts {
      advanced { tagName problemsSolved }
      intermediate { tagName problemsSolved }
      fundamental { tagName problemsSolved }
    }
  }
}`

func (c *Client) FetchTopicSkills(ctx context.Context, handle string) ([]platform.TopicSkill, error) {
	key := cache.SkillsKey(string(models.PlatformLeetCode), handle)
	var cached []platform.TopicSkill
	if err := c.store.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	type tagCount struct {
		TagName        string `json:"tagName"`
		ProblemsSolved int    `json:"problemsSolved"`
	}
	var data struct {
		MatchedUser *struct {
			TagProblemCounts struct {
				Advanced     []tagCount `json:"advanced"`
				Intermediate []tagCount `json:"intermediate"`
				Fundamental  []tagCount `json:"fundamental"`
			} `json:"tagProblemCounts"`
		} `json:"matchedUser"`
	}
	if err := c.query(ctx, skillStatsQuery, map[string]interface{}{"username": handle}, &data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, platform.ErrHandleNotFound
	}

	var skills []platform.TopicSkill
	appendCategory := func(category string, counts []tagCount) {
		for _, tc := range counts {
			skills = append(skills, platform.TopicSkill{
				Topic:       tc.TagName,
				SolvedCount: tc.ProblemsSolved,
				Category:    category,
			})
		}
	}
	appendCategory("fundamental", data.MatchedUser.TagProblemCounts.Fundamental)
	appendCategory("intermediate", data.MatchedUser.TagProblemCounts.Intermediate)
	appendCategory("advanced", data.MatchedUser.TagProblemCounts.Advanced)

	c.store.Set(ctx, key, skills, cache.TTLLong)
	return skills, nil
}

const contestHistoryQuery = `
query userContestRankingInfo($username: String!) {
  userContestRankingHistory(username: $username) {
    attended
    rating
    ranking
    contest { title startTime }
  }
}`

func (c *Client) FetchContestHistory(ctx context.Context, handle string) ([]platform.ContestResult, error) {
	key := cache.ContestKey(string(models.PlatformLeetCode), handle)
	var cached []platform.ContestResult
	if err := c.store.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	var data struct {
		UserContestRankingHistory []struct {
			Attended bool    `json:"attended"`
			Rating   float64 `json:"rating"`
			Ranking  int     `json:"ranking"`
			Contest  struct {
				Title     string `json:"title"`
				StartTime int64  `json:"startTime"`
			} `json:"contest"`
		} `json:"userContestRankingHistory"`
	}
	if err := c.query(ctx, contestHistoryQuery, map[string]interface{}{"username": handle}, &data); err != nil {
		return nil, err
	}

	var results []platform.ContestResult
	prevRating := 0
	for _, entry := range data.UserContestRankingHistory {
		if !entry.Attended {
			continue
		}
		results = append(results, platform.ContestResult{
			ContestID:   entry.Contest.Title,
			ContestName: entry.Contest.Title,
			Rank:        entry.Ranking,
			OldRating:   prevRating,
			NewRating:   int(entry.Rating),
			StartedAt:   time.Unix(entry.Contest.StartTime, 0).UTC(),
		})
		prevRating = int(entry.Rating)
	}

	c.store.Set(ctx, key, results, cache.TTLLong)
	return results, nil
}

const dailyProblemQuery = `
query questionOfToday {
  activeDailyCodingChallengeQuestion {
    date
    link
    question {
      title
      titleSlug
      difficulty
      topicTags { name }
    }
  }
}`

// DailyProblem is LeetCode's daily coding challenge.
type DailyProblem struct {
	Date       string            `json:"date"`
	Link       string            `json:"link"`
	Title      string            `json:"title"`
	TitleSlug  string            `json:"title_slug"`
	Difficulty models.Difficulty `json:"difficulty"`
	Tags       []string          `json:"tags"`
}

func (c *Client) FetchDailyProblem(ctx context.Context) (*DailyProblem, error) {
	today := time.Now().UTC().Format("2006-01-02")
	key := cache.DailyProblemKey(today)
	var cached DailyProblem
	if err := c.store.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	var data struct {
		ActiveDailyCodingChallengeQuestion *struct {
			Date     string `json:"date"`
			Link     string `json:"link"`
			Question struct {
				Title      string `json:"title"`
				TitleSlug  string `json:"titleSlug"`
				Difficulty string `json:"difficulty"`
				TopicTags  []struct {
					Name string `json:"name"`
				} `json:"topicTags"`
			} `json:"question"`
		} `json:"activeDailyCodingChallengeQuestion"`
	}
	if err := c.query(ctx, dailyProblemQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.ActiveDailyCodingChallengeQuestion == nil {
		return nil, fmt.Errorf("%w: no daily challenge in response", platform.ErrUpstreamUnavailable)
	}

	q := data.ActiveDailyCodingChallengeQuestion
	daily := &DailyProblem{
		Date:       q.Date,
		Link:       q.Link,
		Title:      q.Question.Title,
		TitleSlug:  q.Question.TitleSlug,
		Difficulty: parseDifficulty(q.Question.Difficulty),
	}
	for _, tag := range q.Question.TopicTags {
		daily.Tags = append(daily.Tags, tag.Name)
	}

	c.store.Set(ctx, key, daily, cache.TTLVeryLong)
	return daily, nil
}
