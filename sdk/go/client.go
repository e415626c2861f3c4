package leadboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Leadboard HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BasePath:    "/v0",
		BearerToken: token,
		Timeout:     10 * time.Second,
	}
}

// Task is one checklist item of a demand.
type Task struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Completed  bool      `json:"completed"`
	InProgress bool      `json:"inProgress"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"createdAt"`
	Link       string    `json:"link,omitempty"`
}

type CustomField struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Color string `json:"color"`
}

// Demand represents the API demand model.
type Demand struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Title        string        `json:"title"`
	Priority     string        `json:"priority"`
	Status       string        `json:"status"`
	Order        int           `json:"order"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CompletedAt  *time.Time    `json:"completedAt"`
	Tasks        []Task        `json:"tasks"`
	CustomFields []CustomField `json:"customFields"`
	Progress     float64       `json:"progress"`
}

// NewDemand is the create payload.
type NewDemand struct {
	Code            string `json:"code"`
	Title           string `json:"title"`
	Priority        string `json:"priority"`
	Status          string `json:"status,omitempty"`
	Consultoria     string `json:"consultoria,omitempty"`
	Sistema         string `json:"sistema,omitempty"`
	UseDefaultTasks bool   `json:"useDefaultTasks,omitempty"`
}

type CurrentTask struct {
	Task        Task   `json:"task"`
	DemandID    string `json:"demandId"`
	DemandCode  string `json:"demandCode"`
	DemandTitle string `json:"demandTitle"`
}

type PendingTask struct {
	Task        Task   `json:"task"`
	DemandID    string `json:"demandId"`
	DemandCode  string `json:"demandCode"`
	DemandTitle string `json:"demandTitle"`
	Priority    string `json:"priority"`
}

type PendingGroup struct {
	Status string        `json:"status"`
	Tasks  []PendingTask `json:"tasks"`
}

type ReportItem struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Sistema    string `json:"sistema,omitempty"`
	DemandCode string `json:"demandCode,omitempty"`
}

type Comment struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DailyEntry is one standup entry; TargetDate uses the "Mon Jan 02 2006" form.
type DailyEntry struct {
	ID                   string       `json:"id"`
	TargetDate           string       `json:"targetDate"`
	WorkDate             string       `json:"workDate"`
	ReportItems          []ReportItem `json:"reportItems"`
	Comments             []Comment    `json:"comments"`
	IncludeTasksInReport bool         `json:"includeTasksInReport"`
}

type Report struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// SignIn exchanges token for a server session and keeps it for later calls.
func (c *Client) SignIn(ctx context.Context, token string) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/session", map[string]string{"token": token}, &resp); err != nil {
		return "", err
	}
	c.BearerToken = token
	return resp.UserID, nil
}

// ListDemands returns open demands in board order.
func (c *Client) ListDemands(ctx context.Context) ([]Demand, error) {
	var resp []Demand
	err := c.do(ctx, http.MethodGet, "demands", nil, &resp)
	return resp, err
}

func (c *Client) CreateDemand(ctx context.Context, in NewDemand) (Demand, error) {
	var resp Demand
	err := c.do(ctx, http.MethodPost, "demands", in, &resp)
	return resp, err
}

func (c *Client) GetDemand(ctx context.Context, id string) (Demand, error) {
	var resp Demand
	err := c.do(ctx, http.MethodGet, "demands/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetStatus moves a demand to another pipeline stage.
func (c *Client) SetStatus(ctx context.Context, id, status string) (Demand, error) {
	var resp Demand
	err := c.do(ctx, http.MethodPut, "demands/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) SetSistema(ctx context.Context, id, value string) (Demand, error) {
	var resp Demand
	err := c.do(ctx, http.MethodPut, "demands/"+url.PathEscape(id)+"/sistema", map[string]string{"value": value}, &resp)
	return resp, err
}

func (c *Client) DeleteDemand(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "demands/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddTask(ctx context.Context, demandID, title, link string) (Task, error) {
	var resp Task
	body := map[string]string{"title": title}
	if link != "" {
		body["link"] = link
	}
	err := c.do(ctx, http.MethodPost, taskPath(demandID, ""), body, &resp)
	return resp, err
}

// ToggleTask flips completion; completed tasks are logged into tomorrow's daily entry.
func (c *Client) ToggleTask(ctx context.Context, demandID, taskID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, taskPath(demandID, taskID)+"/toggle", nil, &resp)
	return resp, err
}

// StartTask toggles the task in progress and returns the resulting current task, if any.
func (c *Client) StartTask(ctx context.Context, demandID, taskID string) (*CurrentTask, error) {
	var resp struct {
		Current *CurrentTask `json:"current"`
	}
	err := c.do(ctx, http.MethodPost, taskPath(demandID, taskID)+"/start", nil, &resp)
	return resp.Current, err
}

func (c *Client) CurrentTask(ctx context.Context) (*CurrentTask, error) {
	var resp struct {
		Current *CurrentTask `json:"current"`
	}
	err := c.do(ctx, http.MethodGet, "current-task", nil, &resp)
	return resp.Current, err
}

func (c *Client) PendingTasks(ctx context.Context) ([]PendingGroup, error) {
	var resp []PendingGroup
	err := c.do(ctx, http.MethodGet, "views/pending", nil, &resp)
	return resp, err
}

// Daily fetches the entry for date (YYYY-MM-DD).
func (c *Client) Daily(ctx context.Context, date string) (DailyEntry, error) {
	var resp DailyEntry
	err := c.do(ctx, http.MethodGet, "daily/"+url.PathEscape(date), nil, &resp)
	return resp, err
}

func (c *Client) AddComment(ctx context.Context, date, text string) (Comment, error) {
	var resp Comment
	err := c.do(ctx, http.MethodPost, "daily/"+url.PathEscape(date)+"/comments", map[string]string{"text": text}, &resp)
	return resp, err
}

// DailyReport returns the rendered standup text for date (YYYY-MM-DD).
func (c *Client) DailyReport(ctx context.Context, date string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "daily/"+url.PathEscape(date)+"/report", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func taskPath(demandID, taskID string) string {
	p := "demands/" + url.PathEscape(demandID) + "/tasks"
	if taskID != "" {
		p += "/" + url.PathEscape(taskID)
	}
	return p
}

func (c *Client) base() string {
	basePath := strings.Trim(c.BasePath, "/")
	if basePath == "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + basePath
}
