package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"leadboard/internal/app"
	"leadboard/internal/dailyreport"
	"leadboard/internal/domain"
	"leadboard/internal/view"
)

// resolveDate maps "", "today", "tomorrow" and YYYY-MM-DD to a stored target date.
func resolveDate(ws *app.Workspace, raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tomorrow":
		return domain.FormatDate(ws.Daily.Tomorrow()), nil
	case "today":
		return domain.FormatDate(ws.Daily.Today()), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, ws.Daily.Location()); err == nil {
		return domain.FormatDate(t), nil
	}
	if t, err := domain.ParseDate(raw, ws.Daily.Location()); err == nil {
		return domain.FormatDate(t), nil
	}
	return "", fmt.Errorf("date %q: expected YYYY-MM-DD: %w", raw, domain.ErrInvalid)
}

func dailyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Daily standup entries",
		Long:  "Each entry targets the day of the standup and collects the work of the day before. Only the three most recent days are kept.",
	}
	cmd.AddCommand(dailyListCmd())
	cmd.AddCommand(dailyShowCmd())
	cmd.AddCommand(dailyLogCmd())
	cmd.AddCommand(dailyCommentCmd())
	cmd.AddCommand(dailyUncommentCmd())
	cmd.AddCommand(dailyIncludeCmd())
	cmd.AddCommand(dailyReportCmd())
	return cmd
}

func dailyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List kept entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				entries, err := ws.Daily.Load(ctx, ws.UserID())
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, table.Row{e.TargetDate, e.WorkDate, len(e.ReportItems), len(e.Comments), e.IncludeTasksInReport})
				}
				return printJSONOrTable(entries, table.Row{"Target", "Work", "Items", "Comments", "Tasks in report"}, rows)
			})
		},
	}
}

func dailyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [date]",
		Short: "Show one entry (default tomorrow)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				date, err := resolveDate(ws, firstArg(args))
				if err != nil {
					return err
				}
				e, err := ws.Daily.Get(ctx, ws.UserID(), date)
				if err != nil {
					return err
				}
				if e == nil {
					return fmt.Errorf("daily entry %s: %w", date, domain.ErrNotFound)
				}
				rows := make([]table.Row, 0, len(e.ReportItems)+len(e.Comments))
				for _, it := range e.ReportItems {
					rows = append(rows, table.Row{"item", it.ID, it.DemandCode, it.Sistema, it.Text})
				}
				for _, c := range e.Comments {
					rows = append(rows, table.Row{"comment", c.ID, "", "", c.Text})
				}
				return printJSONOrTable(e, table.Row{"Kind", "ID", "Demand", "Sistema", "Text"}, rows)
			})
		},
	}
}

func dailyLogCmd() *cobra.Command {
	var t dailyreport.CompletedTask
	cmd := &cobra.Command{
		Use:   "log <task title>",
		Short: "Log finished work into tomorrow's entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t.TaskTitle = strings.Join(args, " ")
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Daily.AddCompletedTask(ctx, ws.UserID(), t); err != nil {
					return err
				}
				return printDone(t, "logged %q for %s", t.TaskTitle, domain.FormatDate(ws.Daily.Tomorrow()))
			})
		},
	}
	cmd.Flags().StringVar(&t.DemandCode, "demand", "", "demand code")
	cmd.Flags().StringVar(&t.Sistema, "sistema", "", "Sistema label")
	return cmd
}

func dailyCommentCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "comment <text>",
		Short: "Add an observation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				target, err := resolveDate(ws, date)
				if err != nil {
					return err
				}
				c, err := ws.Daily.AddComment(ctx, ws.UserID(), target, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printDone(c, "added comment %s to %s", c.ID, target)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (default tomorrow)")
	return cmd
}

func dailyUncommentCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "uncomment <comment-id>",
		Short: "Remove an observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				target, err := resolveDate(ws, date)
				if err != nil {
					return err
				}
				if err := ws.Daily.RemoveComment(ctx, ws.UserID(), target, args[0]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[0]}, "removed comment %s", args[0])
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (default tomorrow)")
	return cmd
}

func dailyIncludeCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "include <on|off>",
		Short: "Show or hide task lines in the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var include bool
			switch args[0] {
			case "on", "true", "yes":
				include = true
			case "off", "false", "no":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				target, err := resolveDate(ws, date)
				if err != nil {
					return err
				}
				if err := ws.Daily.SetIncludeTasks(ctx, ws.UserID(), target, include); err != nil {
					return err
				}
				return printDone(map[string]any{"date": target, "include": include}, "tasks in report for %s: %v", target, include)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date (default tomorrow)")
	return cmd
}

func dailyReportCmd() *cobra.Command {
	var recent bool
	cmd := &cobra.Command{
		Use:   "report [date]",
		Short: "Render the standup text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				var (
					date = domain.FormatDate(ws.Daily.Today())
					text string
				)
				if recent {
					text = ws.RecentReport()
				} else {
					var err error
					if date, err = resolveDate(ws, firstArg(args)); err != nil {
						return err
					}
					if text, err = ws.DailyReport(ctx, date); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"date": date, "text": text})
				}
				fmt.Print(text)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&recent, "recent", false, "build from tasks completed in the last window instead of the stored entry")
	return cmd
}

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "view", Short: "Derived board views"}
	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "Open tasks grouped by demand status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				groups := ws.PendingTasks()
				var rows []table.Row
				for _, g := range groups {
					for _, t := range g.Tasks {
						marker := ""
						if t.Task.InProgress {
							marker = ">"
						}
						rows = append(rows, table.Row{g.Status, marker, t.DemandCode, t.Priority, t.Task.Title})
					}
				}
				return printJSONOrTable(groups, table.Row{"Status", "", "Demand", "Priority", "Task"}, rows)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "completed",
		Short: "Tasks completed within the report window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				groups := view.GroupCompletedTasks(ws.RecentlyCompleted(), ws.Config.Report.NoSystemLabel)
				var rows []table.Row
				for _, g := range groups {
					for _, d := range g.Demands {
						for _, t := range d.Tasks {
							rows = append(rows, table.Row{g.Sistema, d.Code, t})
						}
					}
				}
				return printJSONOrTable(groups, table.Row{"Sistema", "Demand", "Task"}, rows)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Demand counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				counts := view.CountByStatus(ws.Demands.Demands())
				rows := make([]table.Row, 0, len(domain.Statuses))
				for _, s := range domain.Statuses {
					rows = append(rows, table.Row{s, counts[s]})
				}
				return printJSONOrTable(counts, table.Row{"Status", "Demands"}, rows)
			})
		},
	})
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
