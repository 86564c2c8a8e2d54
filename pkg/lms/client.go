// Package lms talks to the external learning-management system ("LNO") the
// school reports grades into. The API is token-authenticated and paginates
// courses and marks with next-page URLs.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 15 * time.Second
)

// Course is one course visible to the authenticated LMS account.
type Course struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	ForClass *string `json:"for_class"`
}

// Mark is one recorded grade. Value "Н" marks absence, not a grade.
type Mark struct {
	Value    string `json:"value"`
	Activity *int   `json:"activity"`
}

// IsGrade reports whether the mark carries an actual grade tied to an activity.
func (m Mark) IsGrade() bool {
	return m.Value != "" && m.Value != "Н" && m.Activity != nil
}

// Config defines configuration options for the LMS client.
type Config struct {
	BaseURL string
	Logger  zerolog.Logger

	// HTTPClient overrides the default transport, used by tests.
	HTTPClient *http.Client
}

// Client is a thin HTTP client for the LMS REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient builds an LMS client for the given base URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("lms base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext,
			},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  cfg.Logger.With().Str("component", "lms_client").Logger(),
	}, nil
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("lms: encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user/login/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lms: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("lms: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lms: login returned status %d", resp.StatusCode)
	}

	var payload struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("lms: decode login response: %w", err)
	}
	if payload.Key == "" {
		return "", fmt.Errorf("lms: login response carried no token")
	}

	return payload.Key, nil
}

// ListCourses walks the paginated course listing.
func (c *Client) ListCourses(ctx context.Context, token string) ([]Course, error) {
	var courses []Course
	next := c.baseURL + "/api/course/"

	for next != "" {
		var page struct {
			Results []Course `json:"results"`
			Next    string   `json:"next"`
		}
		if err := c.getJSON(ctx, token, next, &page); err != nil {
			return nil, err
		}
		courses = append(courses, page.Results...)
		next = page.Next
	}

	return courses, nil
}

// ListMarks walks the paginated mark listing for one course.
func (c *Client) ListMarks(ctx context.Context, token string, courseID int) ([]Mark, error) {
	var marks []Mark
	next := fmt.Sprintf("%s/api/mark/?activity__course=%d&page_size=1000", c.baseURL, courseID)

	for next != "" {
		var page struct {
			Results []Mark `json:"results"`
			Next    string `json:"next"`
		}
		if err := c.getJSON(ctx, token, next, &page); err != nil {
			return nil, err
		}
		marks = append(marks, page.Results...)
		next = page.Next
	}

	return marks, nil
}

// ActivityDate fetches the date (YYYY-MM-DD) an activity took place on.
// Returns an empty string when the activity carries no date.
func (c *Client) ActivityDate(ctx context.Context, token string, activityID int) (string, error) {
	var payload struct {
		Date string `json:"date"`
	}
	url := fmt.Sprintf("%s/api/activity/%d/", c.baseURL, activityID)
	if err := c.getJSON(ctx, token, url, &payload); err != nil {
		return "", err
	}

	return payload.Date, nil
}

func (c *Client) getJSON(ctx context.Context, token, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("lms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lms: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lms: %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lms: decode %s: %w", url, err)
	}

	return nil
}
