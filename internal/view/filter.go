package view

import (
	"sort"
	"strings"

	"leadboard/internal/domain"
)

// DemandFilter selects demands. Zero fields match everything; concluded demands are hidden
// unless IncludeDone is set or Status asks for them.
type DemandFilter struct {
	Status      domain.Status
	Priority    domain.Priority
	Consultoria string
	Sistema     string
	Search      string
	IncludeDone bool
}

func FilterDemands(demands []domain.Demand, f DemandFilter) []domain.Demand {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.Demand
	for _, d := range demands {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Status == "" && !f.IncludeDone && d.Status == domain.StatusConcluido {
			continue
		}
		if f.Priority != "" && d.Priority != f.Priority {
			continue
		}
		if f.Consultoria != "" && !strings.EqualFold(d.FieldValue(domain.FieldConsultoria), f.Consultoria) {
			continue
		}
		if f.Sistema != "" && !strings.EqualFold(d.FieldValue(domain.FieldSistema), f.Sistema) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Code+" "+d.Title), search) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SortByPriority orders critical first, then by manual order.
func SortByPriority(demands []domain.Demand) []domain.Demand {
	out := append([]domain.Demand(nil), demands...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func CountByStatus(demands []domain.Demand) map[domain.Status]int {
	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, s := range domain.Statuses {
		counts[s] = 0
	}
	for _, d := range demands {
		counts[d.Status]++
	}
	return counts
}

// Consultorias lists distinct non-empty Consultoria values, sorted.
func Consultorias(demands []domain.Demand) []string {
	return distinctField(demands, domain.FieldConsultoria)
}

// Sistemas lists distinct non-empty Sistema values, sorted.
func Sistemas(demands []domain.Demand) []string {
	return distinctField(demands, domain.FieldSistema)
}

func distinctField(demands []domain.Demand, name string) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range demands {
		v := strings.TrimSpace(d.FieldValue(name))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
