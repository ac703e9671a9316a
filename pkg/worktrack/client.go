// Package worktrack is a thin client for the external work-tracking
// service's sprint and capacity endpoints. All update calls use
// replace-whole-list PATCH semantics: callers must read-modify-write.
package worktrack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"team-calendar/internal/models"
)

const apiVersion = "7.1"

// TeamContext identifies the project and team every call is scoped to.
type TeamContext struct {
	Project   string
	ProjectID string
	Team      string
	TeamID    string
}

// Client is the work-tracking surface the calendar services consume.
type Client interface {
	GetTeamIterations(team TeamContext) ([]models.Iteration, error)
	GetCapacities(team TeamContext, iterationID string) ([]models.MemberCapacity, error)
	UpdateCapacity(patch models.CapacityPatch, team TeamContext, iterationID, memberID string) error
	GetTeamDaysOff(team TeamContext, iterationID string) (models.TeamDaysOff, error)
	UpdateTeamDaysOff(patch models.TeamDaysOffPatch, team TeamContext, iterationID string) error
}

type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type iterationAttributes struct {
	StartDate  time.Time `json:"startDate"`
	FinishDate time.Time `json:"finishDate"`
}

type wireIteration struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	Attributes iterationAttributes `json:"attributes"`
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

func (c *HTTPClient) GetTeamIterations(team TeamContext) ([]models.Iteration, error) {
	endpoint := c.teamURL(team, "work/teamsettings/iterations")

	var resp listResponse[wireIteration]
	if err := c.do(http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("get team iterations: %w", err)
	}

	iterations := make([]models.Iteration, 0, len(resp.Value))
	for _, it := range resp.Value {
		iterations = append(iterations, models.Iteration{
			ID:         it.ID,
			Name:       it.Name,
			Path:       it.Path,
			StartDate:  it.Attributes.StartDate,
			FinishDate: it.Attributes.FinishDate,
		})
	}
	return iterations, nil
}

func (c *HTTPClient) GetCapacities(team TeamContext, iterationID string) ([]models.MemberCapacity, error) {
	endpoint := c.teamURL(team, "work/teamsettings/iterations/"+url.PathEscape(iterationID)+"/capacities")

	var resp listResponse[models.MemberCapacity]
	if err := c.do(http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("get capacities for iteration %s: %w", iterationID, err)
	}
	return resp.Value, nil
}

func (c *HTTPClient) UpdateCapacity(patch models.CapacityPatch, team TeamContext, iterationID, memberID string) error {
	endpoint := c.teamURL(team,
		"work/teamsettings/iterations/"+url.PathEscape(iterationID)+"/capacities/"+url.PathEscape(memberID))

	if err := c.do(http.MethodPatch, endpoint, &patch, nil); err != nil {
		return fmt.Errorf("update capacity for member %s: %w", memberID, err)
	}
	return nil
}

func (c *HTTPClient) GetTeamDaysOff(team TeamContext, iterationID string) (models.TeamDaysOff, error) {
	endpoint := c.teamURL(team, "work/teamsettings/iterations/"+url.PathEscape(iterationID)+"/teamdaysoff")

	var daysOff models.TeamDaysOff
	if err := c.do(http.MethodGet, endpoint, nil, &daysOff); err != nil {
		return models.TeamDaysOff{}, fmt.Errorf("get team days off for iteration %s: %w", iterationID, err)
	}
	return daysOff, nil
}

func (c *HTTPClient) UpdateTeamDaysOff(patch models.TeamDaysOffPatch, team TeamContext, iterationID string) error {
	endpoint := c.teamURL(team, "work/teamsettings/iterations/"+url.PathEscape(iterationID)+"/teamdaysoff")

	if err := c.do(http.MethodPatch, endpoint, &patch, nil); err != nil {
		return fmt.Errorf("update team days off for iteration %s: %w", iterationID, err)
	}
	return nil
}

func (c *HTTPClient) teamURL(team TeamContext, path string) string {
	return fmt.Sprintf("%s/%s/%s/_apis/%s?api-version=%s",
		c.baseURL, url.PathEscape(team.Project), url.PathEscape(team.Team), path, apiVersion)
}

func (c *HTTPClient) do(method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth("", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
