package view

import (
	"strings"
	"time"
)

const (
	ReportDateLayout  = "02/01/2006"
	NoActivityMessage = "Nenhuma atividade registrada."
)

type Report struct {
	Date         time.Time
	Comments     []string
	Groups       []SystemGroup
	IncludeTasks bool
}

// RenderReport produces the daily standup text.
func RenderReport(r Report) string {
	var b strings.Builder
	b.WriteString("📅 Daily - ")
	b.WriteString(r.Date.Format(ReportDateLayout))
	b.WriteString("\n")

	var comments []string
	for _, c := range r.Comments {
		if c = strings.TrimSpace(c); c != "" {
			comments = append(comments, c)
		}
	}
	groups := r.Groups
	if !r.IncludeTasks {
		groups = nil
	}
	if len(comments) == 0 && len(groups) == 0 {
		b.WriteString("\n")
		b.WriteString(NoActivityMessage)
		b.WriteString("\n")
		return b.String()
	}

	if len(comments) > 0 {
		b.WriteString("\n📝 Observações\n")
		for _, c := range comments {
			b.WriteString("• ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	for _, g := range groups {
		b.WriteString("\n🖥️ ")
		b.WriteString(g.Sistema)
		b.WriteString("\n")
		for _, d := range g.Demands {
			b.WriteString(d.Code)
			b.WriteString("\n")
			for _, t := range d.Tasks {
				b.WriteString("  • ")
				b.WriteString(t)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
