package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"leadboard/internal/app"
	"leadboard/internal/docs"
	"leadboard/internal/domain"
)

func docCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "doc", Short: "Release notes and technical documentation"}
	cmd.AddCommand(releaseDocCmd())
	cmd.AddCommand(techDocCmd())
	return cmd
}

func releaseDocCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "release", Short: "Release documents"}

	var demandCode string
	list := &cobra.Command{
		Use:   "list",
		Short: "List release documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Docs.ListReleaseDocs(ctx, ws.UserID(), demandCode)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, d := range items {
					rows = append(rows, table.Row{d.ID, d.DemandCode, d.Title, d.Version, d.UpdatedAt.Format("2006-01-02 15:04")})
				}
				return printJSONOrTable(items, table.Row{"ID", "Demand", "Title", "Version", "Updated"}, rows)
			})
		},
	}
	list.Flags().StringVar(&demandCode, "demand", "", "demand code filter")

	var in docs.NewReleaseDoc
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a release document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				id, err := ws.Docs.CreateReleaseDoc(ctx, ws.UserID(), in)
				if err != nil {
					return err
				}
				return printDone(map[string]string{"id": id}, "created release doc %s", id)
			})
		},
	}
	create.Flags().StringVar(&in.DemandCode, "demand", "", "demand code")
	create.Flags().StringVar(&in.Title, "title", "", "title")
	create.Flags().StringVar(&in.Version, "version", "", "version")
	create.Flags().StringVar(&in.Content, "content", "", "content")

	show := &cobra.Command{
		Use:   "show <doc-id>",
		Short: "Show a release document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				d, err := ws.Docs.GetReleaseDoc(ctx, ws.UserID(), args[0])
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("release doc %s: %w", args[0], domain.ErrNotFound)
				}
				return printDone(d, "%s %s\n\n%s", d.Title, d.Version, d.Content)
			})
		},
	}

	var demand, title, version, content string
	update := &cobra.Command{
		Use:   "update <doc-id>",
		Short: "Update a release document; an empty --version removes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				err := ws.Docs.UpdateReleaseDoc(ctx, ws.UserID(), args[0], docs.ReleaseDocPatch{
					DemandCode: optionalString(cmd, "demand", demand),
					Title:      optionalString(cmd, "title", title),
					Version:    optionalString(cmd, "version", version),
					Content:    optionalString(cmd, "content", content),
				})
				if err != nil {
					return err
				}
				return printDone(map[string]string{"updated": args[0]}, "updated release doc %s", args[0])
			})
		},
	}
	update.Flags().StringVar(&demand, "demand", "", "demand code")
	update.Flags().StringVar(&title, "title", "", "title")
	update.Flags().StringVar(&version, "version", "", "version")
	update.Flags().StringVar(&content, "content", "", "content")

	del := &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Delete a release document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Docs.DeleteReleaseDoc(ctx, ws.UserID(), args[0]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[0]}, "deleted release doc %s", args[0])
			})
		},
	}

	cmd.AddCommand(list, create, show, update, del)
	return cmd
}

func techDocCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tech", Short: "Technical documents"}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List technical documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Docs.ListTechDocs(ctx, ws.UserID(), category)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, d := range items {
					rows = append(rows, table.Row{d.ID, d.Title, d.Category, d.Tags})
				}
				return printJSONOrTable(items, table.Row{"ID", "Title", "Category", "Tags"}, rows)
			})
		},
	}
	list.Flags().StringVar(&category, "category", "", "category filter")

	var in docs.NewTechDoc
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a technical document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				id, err := ws.Docs.CreateTechDoc(ctx, ws.UserID(), in)
				if err != nil {
					return err
				}
				return printDone(map[string]string{"id": id}, "created tech doc %s", id)
			})
		},
	}
	create.Flags().StringVar(&in.Title, "title", "", "title")
	create.Flags().StringVar(&in.Category, "category", "", "category")
	create.Flags().StringVar(&in.Content, "content", "", "content")
	create.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")

	show := &cobra.Command{
		Use:   "show <doc-id>",
		Short: "Show a technical document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				d, err := ws.Docs.GetTechDoc(ctx, ws.UserID(), args[0])
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("tech doc %s: %w", args[0], domain.ErrNotFound)
				}
				return printDone(d, "%s [%s]\n\n%s", d.Title, d.Category, d.Content)
			})
		},
	}

	var title, cat, content string
	var tags []string
	update := &cobra.Command{
		Use:   "update <doc-id>",
		Short: "Update a technical document; an empty --category removes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				p := docs.TechDocPatch{
					Title:    optionalString(cmd, "title", title),
					Category: optionalString(cmd, "category", cat),
					Content:  optionalString(cmd, "content", content),
				}
				if cmd.Flags().Changed("tag") {
					p.Tags = append([]string{}, tags...)
				}
				if err := ws.Docs.UpdateTechDoc(ctx, ws.UserID(), args[0], p); err != nil {
					return err
				}
				return printDone(map[string]string{"updated": args[0]}, "updated tech doc %s", args[0])
			})
		},
	}
	update.Flags().StringVar(&title, "title", "", "title")
	update.Flags().StringVar(&cat, "category", "", "category")
	update.Flags().StringVar(&content, "content", "", "content")
	update.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable)")

	del := &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Delete a technical document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				if err := ws.Docs.DeleteTechDoc(ctx, ws.UserID(), args[0]); err != nil {
					return err
				}
				return printDone(map[string]string{"deleted": args[0]}, "deleted tech doc %s", args[0])
			})
		},
	}

	cmd.AddCommand(list, create, show, update, del)
	return cmd
}
