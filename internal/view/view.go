// Package view derives read models from cached demands and daily entries. Everything here is
// pure; callers recompute on every read.
package view

import (
	"sort"
	"strings"
	"time"

	"leadboard/internal/domain"
)

// DefaultCriticality ranks open statuses, most critical first.
var DefaultCriticality = []domain.Status{
	domain.StatusOpAssistida,
	domain.StatusHomologacao,
	domain.StatusDesenvolvimento,
	domain.StatusSetup,
}

const DefaultPendingLimit = 5

// Default group labels for completed tasks without a Sistema.
const (
	NoSystemLabel = "Sem Sistema"
	OtherLabel    = "Outros"
)

// TaskProgress is the completed share of d's tasks in percent; 0 without tasks.
func TaskProgress(d domain.Demand) float64 {
	if len(d.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range d.Tasks {
		if t.Completed {
			done++
		}
	}
	return float64(done) / float64(len(d.Tasks)) * 100
}

type PendingTask struct {
	Task        domain.Task     `json:"task"`
	DemandID    string          `json:"demandId"`
	DemandCode  string          `json:"demandCode"`
	DemandTitle string          `json:"demandTitle"`
	Priority    domain.Priority `json:"priority"`
}

type PendingGroup struct {
	Status domain.Status `json:"status"`
	Tasks  []PendingTask `json:"tasks"`
}

// PendingTasksByStatus groups incomplete tasks of open demands by demand status. In-progress
// tasks lead each group, which is then capped to limit. Groups follow ranking; statuses missing
// from ranking come last in pipeline order. Empty groups are dropped.
func PendingTasksByStatus(demands []domain.Demand, ranking []domain.Status, limit int) []PendingGroup {
	if len(ranking) == 0 {
		ranking = DefaultCriticality
	}
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	byStatus := map[domain.Status][]PendingTask{}
	for _, d := range demands {
		if d.Status == domain.StatusConcluido {
			continue
		}
		for _, t := range sortedTasks(d.Tasks) {
			if t.Completed {
				continue
			}
			byStatus[d.Status] = append(byStatus[d.Status], PendingTask{
				Task:        t,
				DemandID:    d.ID,
				DemandCode:  d.Code,
				DemandTitle: d.Title,
				Priority:    d.Priority,
			})
		}
	}

	order := append([]domain.Status(nil), ranking...)
	for _, s := range domain.Statuses {
		if !containsStatus(order, s) {
			order = append(order, s)
		}
	}
	var groups []PendingGroup
	for _, s := range order {
		items := byStatus[s]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Task.InProgress && !items[j].Task.InProgress
		})
		if len(items) > limit {
			items = items[:limit]
		}
		groups = append(groups, PendingGroup{Status: s, Tasks: items})
	}
	return groups
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedTasks(tasks []domain.Task) []domain.Task {
	out := append([]domain.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CompletedTask is one line of a report: a finished task with its demand code and system.
type CompletedTask struct {
	Title      string `json:"title"`
	DemandCode string `json:"demandCode"`
	Sistema    string `json:"sistema,omitempty"`
}

// CompletedTasksSince lists completed tasks of demands updated within window before now.
func CompletedTasksSince(demands []domain.Demand, now time.Time, window time.Duration) []CompletedTask {
	cutoff := now.Add(-window)
	var out []CompletedTask
	for _, d := range demands {
		if d.UpdatedAt.Before(cutoff) {
			continue
		}
		sistema := d.FieldValue(domain.FieldSistema)
		for _, t := range sortedTasks(d.Tasks) {
			if !t.Completed {
				continue
			}
			out = append(out, CompletedTask{Title: t.Title, DemandCode: d.Code, Sistema: sistema})
		}
	}
	return out
}

// EntryItems converts a daily entry's report items.
func EntryItems(e domain.DailyEntry) []CompletedTask {
	out := make([]CompletedTask, 0, len(e.ReportItems))
	for _, it := range e.ReportItems {
		out = append(out, CompletedTask{Title: it.Text, DemandCode: it.DemandCode, Sistema: it.Sistema})
	}
	return out
}

type DemandGroup struct {
	Code  string   `json:"code"`
	Tasks []string `json:"tasks"`
}

type SystemGroup struct {
	Sistema string        `json:"sistema"`
	Demands []DemandGroup `json:"demands"`
}

// GroupCompletedTasks groups by Sistema (defaultLabel when empty), then by demand code.
// Systems sort alphabetically; demands keep first-seen order.
func GroupCompletedTasks(items []CompletedTask, defaultLabel string) []SystemGroup {
	index := map[string]int{}
	var groups []SystemGroup
	for _, it := range items {
		label := strings.TrimSpace(it.Sistema)
		if label == "" {
			label = defaultLabel
		}
		gi, ok := index[label]
		if !ok {
			gi = len(groups)
			index[label] = gi
			groups = append(groups, SystemGroup{Sistema: label})
		}
		g := &groups[gi]
		di := -1
		for i := range g.Demands {
			if g.Demands[i].Code == it.DemandCode {
				di = i
				break
			}
		}
		if di < 0 {
			g.Demands = append(g.Demands, DemandGroup{Code: it.DemandCode})
			di = len(g.Demands) - 1
		}
		g.Demands[di].Tasks = append(g.Demands[di].Tasks, it.Title)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Sistema < groups[j].Sistema })
	return groups
}
