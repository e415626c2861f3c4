package domain

import (
	"errors"
	"time"
)

var (
	// ErrUnauthenticated is returned by mutating calls made without a resolved identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound is returned when a demand, task or field id is absent from the cache.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks rejected input (unknown enum values, empty titles).
	ErrInvalid = errors.New("invalid input")
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from critical (0) to low (3); unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

func (p Priority) Valid() bool { return p.Rank() < 4 }

type Status string

const (
	StatusSetup           Status = "setup"
	StatusDesenvolvimento Status = "desenvolvimento"
	StatusHomologacao     Status = "homologacao"
	StatusOpAssistida     Status = "op_assistida"
	StatusConcluido       Status = "concluido"
)

// Statuses lists the pipeline in its nominal order.
var Statuses = []Status{StatusSetup, StatusDesenvolvimento, StatusHomologacao, StatusOpAssistida, StatusConcluido}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Reserved custom field names.
const (
	FieldConsultoria = "Consultoria"
	FieldSistema     = "Sistema"
)

type Demand struct {
	ID           string        `json:"id" firestore:"-"`
	Code         string        `json:"code" firestore:"code"`
	Title        string        `json:"title" firestore:"title"`
	Priority     Priority      `json:"priority" firestore:"priority" enum:"low,medium,high,critical"`
	Status       Status        `json:"status" firestore:"status" enum:"setup,desenvolvimento,homologacao,op_assistida,concluido"`
	Order        int           `json:"order" firestore:"order"`
	UserID       string        `json:"userId" firestore:"userId"`
	CreatedAt    time.Time     `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt" firestore:"updatedAt"`
	CompletedAt  *time.Time    `json:"completedAt" firestore:"completedAt"`
	Tasks        []Task        `json:"tasks" firestore:"tasks"`
	CustomFields []CustomField `json:"customFields" firestore:"customFields"`
}

// Field returns the first custom field with the given name.
func (d Demand) Field(name string) (CustomField, bool) {
	for _, f := range d.CustomFields {
		if f.Name == name {
			return f, true
		}
	}
	return CustomField{}, false
}

// FieldValue returns the value of the named custom field or "".
func (d Demand) FieldValue(name string) string {
	f, _ := d.Field(name)
	return f.Value
}

// TaskIndex returns the slice index of the task with id, or -1.
func (d Demand) TaskIndex(id string) int {
	for i, t := range d.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// NextTaskOrder is max(existing order)+1, or 0 for a demand without tasks.
func (d Demand) NextTaskOrder() int {
	next := 0
	for _, t := range d.Tasks {
		if t.Order+1 > next {
			next = t.Order + 1
		}
	}
	return next
}

type Task struct {
	ID         string    `json:"id" firestore:"id"`
	Title      string    `json:"title" firestore:"title"`
	Completed  bool      `json:"completed" firestore:"completed"`
	InProgress bool      `json:"inProgress" firestore:"inProgress"`
	Order      int       `json:"order" firestore:"order"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	Link       string    `json:"link,omitempty" firestore:"link,omitempty"`
}

type CustomField struct {
	ID    string `json:"id" firestore:"id"`
	Name  string `json:"name" firestore:"name"`
	Value string `json:"value" firestore:"value"`
	Color string `json:"color" firestore:"color"`
}

type ReportItem struct {
	ID         string `json:"id" firestore:"id"`
	Text       string `json:"text" firestore:"text"`
	Sistema    string `json:"sistema,omitempty" firestore:"sistema,omitempty"`
	DemandCode string `json:"demandCode,omitempty" firestore:"demandCode,omitempty"`
}

type Comment struct {
	ID   string `json:"id" firestore:"id"`
	Text string `json:"text" firestore:"text"`
}

// DailyEntry is the report for one targetDate. Dates use the DateLayout string form.
type DailyEntry struct {
	ID                   string       `json:"id" firestore:"-"`
	UserID               string       `json:"userId" firestore:"userId"`
	TargetDate           string       `json:"targetDate" firestore:"targetDate"`
	WorkDate             string       `json:"workDate" firestore:"workDate"`
	ReportItems          []ReportItem `json:"reportItems" firestore:"reportItems"`
	Comments             []Comment    `json:"comments" firestore:"comments"`
	IncludeTasksInReport bool         `json:"includeTasksInReport" firestore:"includeTasksInReport"`
	UpdatedAt            time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

// DateLayout is the calendar-day string form used for targetDate and workDate.
const DateLayout = "Mon Jan 02 2006"

// FormatDate renders t's calendar day in DateLayout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ParseDate parses a DateLayout day as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

type ReleaseDoc struct {
	ID         string    `json:"id" firestore:"-"`
	UserID     string    `json:"userId" firestore:"userId"`
	DemandCode string    `json:"demandCode" firestore:"demandCode"`
	Title      string    `json:"title" firestore:"title"`
	Version    string    `json:"version,omitempty" firestore:"version,omitempty"`
	Content    string    `json:"content" firestore:"content"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type TechDoc struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"userId" firestore:"userId"`
	Title     string    `json:"title" firestore:"title"`
	Category  string    `json:"category,omitempty" firestore:"category,omitempty"`
	Content   string    `json:"content" firestore:"content"`
	Tags      []string  `json:"tags,omitempty" firestore:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}
