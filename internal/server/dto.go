package server

import (
	"time"

	"leadboard/internal/config"
	"leadboard/internal/domain"
	"leadboard/internal/view"
)

// Request payloads

type SignInRequest struct {
	Token string `json:"token"`
}

type CreateDemandRequest struct {
	Code            string `json:"code"`
	Title           string `json:"title"`
	Priority        string `json:"priority" enum:"low,medium,high,critical"`
	Status          string `json:"status,omitempty" enum:"setup,desenvolvimento,homologacao,op_assistida,concluido"`
	Consultoria     string `json:"consultoria,omitempty"`
	Sistema         string `json:"sistema,omitempty"`
	UseDefaultTasks bool   `json:"useDefaultTasks,omitempty"`
}

type UpdateDemandRequest struct {
	Code         *string              `json:"code,omitempty"`
	Title        *string              `json:"title,omitempty"`
	Priority     *string              `json:"priority,omitempty" enum:"low,medium,high,critical"`
	Status       *string              `json:"status,omitempty" enum:"setup,desenvolvimento,homologacao,op_assistida,concluido"`
	Order        *int                 `json:"order,omitempty"`
	Tasks        []domain.Task        `json:"tasks,omitempty"`
	CustomFields []domain.CustomField `json:"customFields,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status" enum:"setup,desenvolvimento,homologacao,op_assistida,concluido"`
}

type SetValueRequest struct {
	Value string `json:"value"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

type UpdateTaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Order     *int    `json:"order,omitempty"`
	Link      *string `json:"link,omitempty"`
}

type CreateFieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Color string `json:"color,omitempty"`
}

type UpdateFieldRequest struct {
	Name  *string `json:"name,omitempty"`
	Value *string `json:"value,omitempty"`
	Color *string `json:"color,omitempty"`
}

type SaveDailyRequest struct {
	WorkDate             string              `json:"workDate,omitempty"`
	ReportItems          []domain.ReportItem `json:"reportItems,omitempty"`
	Comments             []domain.Comment    `json:"comments,omitempty"`
	IncludeTasksInReport bool                `json:"includeTasksInReport"`
}

type AddCommentRequest struct {
	Text string `json:"text"`
}

type IncludeTasksRequest struct {
	Include bool `json:"include"`
}

type AddDailyItemRequest struct {
	DemandCode string `json:"demandCode"`
	TaskTitle  string `json:"taskTitle"`
	Sistema    string `json:"sistema,omitempty"`
}

type CreateReleaseDocRequest struct {
	DemandCode string `json:"demandCode,omitempty"`
	Title      string `json:"title"`
	Version    string `json:"version,omitempty"`
	Content    string `json:"content,omitempty"`
}

type UpdateReleaseDocRequest struct {
	DemandCode *string `json:"demandCode,omitempty"`
	Title      *string `json:"title,omitempty"`
	Version    *string `json:"version,omitempty"`
	Content    *string `json:"content,omitempty"`
}

type CreateTechDocRequest struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Content  string   `json:"content,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type UpdateTechDocRequest struct {
	Title    *string  `json:"title,omitempty"`
	Category *string  `json:"category,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Responses

type SessionResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Source string `json:"source"`
}

type DemandResponse struct {
	domain.Demand
	Progress float64 `json:"progress"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type CurrentTaskResponse struct {
	Current *CurrentTask `json:"current"`
}

type CurrentTask struct {
	Task        domain.Task `json:"task"`
	DemandID    string      `json:"demandId"`
	DemandCode  string      `json:"demandCode"`
	DemandTitle string      `json:"demandTitle"`
}

type BoardStatsResponse struct {
	ByStatus     map[string]int `json:"byStatus"`
	Consultorias []string       `json:"consultorias"`
	Sistemas     []string       `json:"sistemas"`
}

type CompletedResponse struct {
	Tasks  []view.CompletedTask `json:"tasks"`
	Groups []view.SystemGroup   `json:"groups"`
}

type ReportResponse struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

type ConfigResponse struct {
	Backend           string               `json:"backend"`
	AuthMode          string               `json:"authMode"`
	StatusCriticality []string             `json:"statusCriticality"`
	PendingLimit      int                  `json:"pendingLimit"`
	DefaultTasks      []config.DefaultTask `json:"defaultTasks"`
	Timezone          string               `json:"timezone"`
	RetentionDays     int                  `json:"retentionDays"`
	CompletedWindow   string               `json:"completedWindow"`
}

func demandResponse(d domain.Demand) DemandResponse {
	d.Tasks = nonNilSlice(d.Tasks)
	d.CustomFields = nonNilSlice(d.CustomFields)
	return DemandResponse{Demand: d, Progress: view.TaskProgress(d)}
}

func mapDemands(in []domain.Demand) []DemandResponse {
	out := make([]DemandResponse, 0, len(in))
	for _, d := range in {
		out = append(out, demandResponse(d))
	}
	return out
}

func statsResponse(demands []domain.Demand) BoardStatsResponse {
	counts := map[string]int{}
	for s, n := range view.CountByStatus(demands) {
		counts[string(s)] = n
	}
	return BoardStatsResponse{
		ByStatus:     counts,
		Consultorias: nonNilSlice(view.Consultorias(demands)),
		Sistemas:     nonNilSlice(view.Sistemas(demands)),
	}
}

func configResponse(cfg *config.Config) ConfigResponse {
	return ConfigResponse{
		Backend:           cfg.Store.Backend,
		AuthMode:          cfg.Auth.Mode,
		StatusCriticality: nonNilSlice(cfg.Board.StatusCriticality),
		PendingLimit:      cfg.Board.PendingLimit,
		DefaultTasks:      nonNilSlice(cfg.Board.DefaultTasks),
		Timezone:          cfg.Report.Timezone,
		RetentionDays:     cfg.Report.RetentionDays,
		CompletedWindow:   cfg.Report.CompletedWindow.String(),
	}
}

func dailyEntry(e domain.DailyEntry) domain.DailyEntry {
	e.ReportItems = nonNilSlice(e.ReportItems)
	e.Comments = nonNilSlice(e.Comments)
	return e
}

// parseDay accepts ISO dates in paths and maps them to the stored target date form.
func parseDay(s string, loc *time.Location) (string, bool) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return domain.FormatDate(t), true
	}
	if t, err := domain.ParseDate(s, loc); err == nil {
		return domain.FormatDate(t), true
	}
	return "", false
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
