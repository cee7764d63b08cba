package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cptrack/cptrack/internal/database/models"
	"github.com/cptrack/cptrack/internal/platform"
)

const DefaultBaseURL = "https://codeforces.com/api"

// Client speaks the Codeforces REST API (user.info, user.status, user.rating).
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Platform() models.Platform {
	return models.PlatformCodeforces
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}

	if envelope.Status != "OK" {
		if strings.Contains(strings.ToLower(envelope.Comment), "not found") {
			return platform.ErrHandleNotFound
		}
		return fmt.Errorf("%w: codeforces: %s", platform.ErrUpstreamUnavailable, envelope.Comment)
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (c *Client) FetchProfile(ctx context.Context, handle string) (*platform.Profile, error) {
	var users []struct {
		Handle    string `json:"handle"`
		Rating    int    `json:"rating"`
		MaxRating int    `json:"maxRating"`
		Rank      string `json:"rank"`
	}
	params := url.Values{"handles": {handle}}
	if err := c.call(ctx, "user.info", params, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, platform.ErrHandleNotFound
	}

	u := users[0]
	return &platform.Profile{
		Handle:        u.Handle,
		CurrentRating: u.Rating,
		MaxRating:     u.MaxRating,
		Rank:          u.Rank,
	}, nil
}

type rawSubmission struct {
	ID                  int64  `json:"id"`
	CreationTimeSeconds int64  `json:"creationTimeSeconds"`
	ProgrammingLanguage string `json:"programmingLanguage"`
	Verdict             string `json:"verdict"`
	Problem             struct {
		ContestID int      `json:"contestId"`
		Index     string   `json:"index"`
		Name      string   `json:"name"`
		Rating    int      `json:"rating"`
		Tags      []string `json:"tags"`
	} `json:"problem"`
}

func (c *Client) FetchSubmissions(ctx context.Context, handle string) ([]platform.Submission, error) {
	var raws []rawSubmission
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {"10000"},
	}
	if err := c.call(ctx, "user.status", params, &raws); err != nil {
		return nil, err
	}

	subs := make([]platform.Submission, 0, len(raws))
	for _, raw := range raws {
		sub := platform.Submission{
			ProblemExternalID: problemExternalID(raw.Problem.ContestID, raw.Problem.Index),
			ProblemName:       raw.Problem.Name,
			Difficulty:        difficultyFromRating(raw.Problem.Rating),
			Tags:              raw.Problem.Tags,
			Verdict:           normalizeVerdict(raw.Verdict),
			SubmittedAt:       time.Unix(raw.CreationTimeSeconds, 0).UTC(),
			Language:          raw.ProgrammingLanguage,
		}
		if sub.Verdict != models.VerdictAccepted {
			sub.RawVerdict = raw.Verdict
		}
		if raw.Problem.Rating > 0 {
			rating := raw.Problem.Rating
			sub.Rating = &rating
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (c *Client) FetchContestHistory(ctx context.Context, handle string) ([]platform.ContestResult, error) {
	var raws []struct {
		ContestID               int    `json:"contestId"`
		ContestName             string `json:"contestName"`
		Rank                    int    `json:"rank"`
		OldRating               int    `json:"oldRating"`
		NewRating               int    `json:"newRating"`
		RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	}
	params := url.Values{"handle": {handle}}
	if err := c.call(ctx, "user.rating", params, &raws); err != nil {
		return nil, err
	}

	results := make([]platform.ContestResult, 0, len(raws))
	for _, raw := range raws {
		results = append(results, platform.ContestResult{
			ContestID:   strconv.Itoa(raw.ContestID),
			ContestName: raw.ContestName,
			Rank:        raw.Rank,
			OldRating:   raw.OldRating,
			NewRating:   raw.NewRating,
			StartedAt:   time.Unix(raw.RatingUpdateTimeSeconds, 0).UTC(),
		})
	}
	return results, nil
}

func problemExternalID(contestID int, index string) string {
	return fmt.Sprintf("%d-%s", contestID, index)
}

// normalizeVerdict maps Codeforces verdict strings onto the canonical
// vocabulary. Only "OK" is an accept.
func normalizeVerdict(verdict string) models.Verdict {
	if verdict == "OK" {
		return models.VerdictAccepted
	}
	return models.VerdictNotAccepted
}

// difficultyFromRating buckets a Codeforces problem rating into the canonical
// three-level difficulty. Unrated problems count as medium.
func difficultyFromRating(rating int) models.Difficulty {
	switch {
	case rating == 0:
		return models.DifficultyMedium
	case rating <= 1200:
		return models.DifficultyEasy
	case rating <= 2000:
		return models.DifficultyMedium
	default:
		return models.DifficultyHard
	}
}
