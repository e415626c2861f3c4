package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"leadboard/internal/app"
	"leadboard/internal/demand"
	"leadboard/internal/domain"
	"leadboard/internal/view"
)

func demandCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "demand", Short: "Manage demands"}
	cmd.AddCommand(demandListCmd())
	cmd.AddCommand(demandCreateCmd())
	cmd.AddCommand(demandShowCmd())
	cmd.AddCommand(demandStatusCmd())
	cmd.AddCommand(demandUpdateCmd())
	cmd.AddCommand(demandSetCmd("consultoria", "Set the Consultoria field"))
	cmd.AddCommand(demandSetCmd("sistema", "Set the Sistema field"))
	cmd.AddCommand(demandReorderCmd())
	cmd.AddCommand(demandDeleteCmd())
	return cmd
}

func demandRows(demands []domain.Demand) []table.Row {
	rows := make([]table.Row, 0, len(demands))
	for _, d := range demands {
		rows = append(rows, table.Row{
			d.ID,
			d.Code,
			d.Title,
			d.Priority,
			d.Status,
			d.FieldValue(domain.FieldConsultoria),
			d.FieldValue(domain.FieldSistema),
			fmt.Sprintf("%.0f%%", view.TaskProgress(d)),
		})
	}
	return rows
}

var demandHeader = table.Row{"ID", "Code", "Title", "Priority", "Status", "Consultoria", "Sistema", "Progress"}

func demandListCmd() *cobra.Command {
	var (
		f      view.DemandFilter
		status string
		prio   string
		sortBy string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List demands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				f.Status = domain.Status(status)
				f.Priority = domain.Priority(prio)
				items := ws.Demands.Filter(f)
				if sortBy == "priority" {
					items = view.SortByPriority(items)
				}
				return printJSONOrTable(items, demandHeader, demandRows(items))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&prio, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.Consultoria, "consultoria", "", "Consultoria filter")
	cmd.Flags().StringVar(&f.Sistema, "sistema", "", "Sistema filter")
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "match code or title")
	cmd.Flags().BoolVar(&f.IncludeDone, "all", false, "include concluded demands")
	cmd.Flags().StringVar(&sortBy, "sort", "order", "order or priority")
	return cmd
}

func demandCreateCmd() *cobra.Command {
	var (
		in       demand.NewDemand
		priority string
		status   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Code == "" || in.Title == "" {
				return fmt.Errorf("--code and --title required")
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				in.Priority = domain.Priority(priority)
				in.Status = domain.Status(status)
				id, err := ws.CreateDemand(ctx, in)
				if err != nil {
					return err
				}
				d, _ := ws.Demands.Get(id)
				return printDone(d, "created demand %s (%s) with %d tasks", in.Code, id, len(d.Tasks))
			})
		},
	}
	cmd.Flags().StringVar(&in.Code, "code", "", "demand code")
	cmd.Flags().StringVar(&in.Title, "title", "", "demand title")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "low, medium, high or critical")
	cmd.Flags().StringVar(&status, "status", string(domain.StatusSetup), "initial status")
	cmd.Flags().StringVar(&in.Consultoria, "consultoria", "", "Consultoria value")
	cmd.Flags().StringVar(&in.Sistema, "sistema", "", "Sistema value")
	cmd.Flags().BoolVar(&in.UseDefaultTasks, "default-tasks", true, "seed the default checklist")
	return cmd
}

func demandShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <demand-id>",
		Short: "Show a demand with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				d, ok := ws.Demands.Get(args[0])
				if !ok {
					return fmt.Errorf("demand %s: %w", args[0], domain.ErrNotFound)
				}
				rows := make([]table.Row, 0, len(d.Tasks))
				for _, t := range d.Tasks {
					state := " "
					switch {
					case t.Completed:
						state = "x"
					case t.InProgress:
						state = ">"
					}
					rows = append(rows, table.Row{state, t.ID, t.Order, t.Title, t.Link})
				}
				return printJSONOrTable(d, table.Row{"", "Task", "Order", "Title", "Link"}, rows)
			})
		},
	}
}

func demandStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <demand-id> <status>",
		Short: "Move a demand to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.UpdateStatus(ctx, args[0], domain.Status(args[1])); err != nil {
					return err
				}
				d, _ := ws.Demands.Get(args[0])
				return printDone(d, "demand %s is now %s", d.Code, d.Status)
			})
		},
	}
}

func demandUpdateCmd() *cobra.Command {
	var code, title, priority, status string
	var order int
	cmd := &cobra.Command{
		Use:   "update <demand-id>",
		Short: "Update demand attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				p := demand.DemandPatch{
					Code:  optionalString(cmd, "code", code),
					Title: optionalString(cmd, "title", title),
				}
				if cmd.Flags().Changed("priority") {
					v := domain.Priority(priority)
					p.Priority = &v
				}
				if cmd.Flags().Changed("status") {
					v := domain.Status(status)
					p.Status = &v
				}
				if cmd.Flags().Changed("order") {
					p.Order = &order
				}
				if err := ws.Demands.UpdateDemand(ctx, args[0], p); err != nil {
					return err
				}
				d, _ := ws.Demands.Get(args[0])
				return printDone(d, "updated demand %s", d.Code)
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "new code")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().IntVar(&order, "order", 0, "new order")
	return cmd
}

func demandSetCmd(field, short string) *cobra.Command {
	return &cobra.Command{
		Use:   field + " <demand-id> <value>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				set := ws.Demands.UpdateConsultoria
				if field == "sistema" {
					set = ws.Demands.UpdateSistema
				}
				if err := set(ctx, args[0], args[1]); err != nil {
					return err
				}
				d, _ := ws.Demands.Get(args[0])
				return printDone(d, "%s of %s set to %q", field, d.Code, args[1])
			})
		},
	}
}

func demandReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <demand-id>...",
		Short: "Rewrite demand order from the given sequence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.ReorderDemands(ctx, args); err != nil {
					return err
				}
				items := ws.Demands.Demands()
				return printJSONOrTable(items, demandHeader, demandRows(items))
			})
		},
	}
}

func demandDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <demand-id>",
		Short: "Delete a demand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.DeleteDemand(ctx, args[0]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[0]}, "deleted demand %s", args[0])
			})
		},
	}
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks of a demand"}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskStartCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskCurrentCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var link string
	cmd := &cobra.Command{
		Use:   "add <demand-id> <title>",
		Short: "Append a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				t, err := ws.Demands.AddTaskWithLink(ctx, args[0], strings.Join(args[1:], " "), link)
				if err != nil {
					return err
				}
				return printDone(t, "added task %s", t.ID)
			})
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "external link")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <demand-id> <task-id>",
		Short: "Toggle completion; completed tasks are logged into tomorrow's daily",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				t, err := ws.CompleteTask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				state := "reopened"
				if t.Completed {
					state = "completed"
				}
				return printDone(t, "%s %q", state, t.Title)
			})
		},
	}
}

func taskStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <demand-id> <task-id>",
		Short: "Toggle the task in progress; any other in-progress task is stopped",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.SetTaskInProgress(ctx, args[0], args[1]); err != nil {
					return err
				}
				cur := ws.Demands.CurrentTask()
				if cur == nil {
					return printDone(map[string]any{"current": nil}, "no task in progress")
				}
				return printDone(cur, "working on %q (%s)", cur.Task.Title, cur.Demand.Code)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, link string
	var order int
	cmd := &cobra.Command{
		Use:   "update <demand-id> <task-id>",
		Short: "Rename, reorder or relink a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				p := demand.TaskPatch{
					Title: optionalString(cmd, "title", title),
					Link:  optionalString(cmd, "link", link),
				}
				if cmd.Flags().Changed("order") {
					p.Order = &order
				}
				if err := ws.Demands.UpdateTask(ctx, args[0], args[1], p); err != nil {
					return err
				}
				return printDone(map[string]string{"updated": args[1]}, "updated task %s", args[1])
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&link, "link", "", "new link")
	cmd.Flags().IntVar(&order, "order", 0, "new order")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <demand-id> <task-id>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.DeleteTask(ctx, args[0], args[1]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[1]}, "deleted task %s", args[1])
			})
		},
	}
}

func taskCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the task in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				cur := ws.Demands.CurrentTask()
				if cur == nil {
					return printDone(map[string]any{"current": nil}, "no task in progress")
				}
				return printDone(cur, "%s  %s  %s", cur.Demand.Code, cur.Task.Title, cur.Task.ID)
			})
		},
	}
}

func fieldCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "field", Short: "Manage custom fields of a demand"}

	var color string
	add := &cobra.Command{
		Use:   "add <demand-id> <name> [value]",
		Short: "Add a custom field",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				f := domain.CustomField{Name: args[1], Color: color}
				if len(args) == 3 {
					f.Value = args[2]
				}
				created, err := ws.Demands.AddCustomField(ctx, args[0], f)
				if err != nil {
					return err
				}
				return printDone(created, "added field %s (%s)", created.Name, created.ID)
			})
		},
	}
	add.Flags().StringVar(&color, "color", "gray", "badge color")

	var name, value, setColor string
	set := &cobra.Command{
		Use:   "set <demand-id> <field-id>",
		Short: "Update a custom field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				err := ws.Demands.UpdateCustomField(ctx, args[0], args[1], demand.FieldPatch{
					Name:  optionalString(cmd, "name", name),
					Value: optionalString(cmd, "value", value),
					Color: optionalString(cmd, "color", setColor),
				})
				if err != nil {
					return err
				}
				return printDone(map[string]string{"updated": args[1]}, "updated field %s", args[1])
			})
		},
	}
	set.Flags().StringVar(&name, "name", "", "new name")
	set.Flags().StringVar(&value, "value", "", "new value")
	set.Flags().StringVar(&setColor, "color", "", "new color")

	del := &cobra.Command{
		Use:   "delete <demand-id> <field-id>",
		Short: "Remove a custom field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Demands.DeleteCustomField(ctx, args[0], args[1]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[1]}, "deleted field %s", args[1])
			})
		},
	}

	cmd.AddCommand(add, set, del)
	return cmd
}
