package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadboard/internal/app"
	"leadboard/internal/dailyreport"
	"leadboard/internal/domain"
	"leadboard/internal/view"
)

type datePath struct {
	Date string `path:"date" doc:"Target date as YYYY-MM-DD"`
}

func targetDate(ws *app.Workspace, raw string) (string, huma.StatusError) {
	d, ok := parseDay(raw, ws.Daily.Location())
	if !ok {
		return "", newAPIError(http.StatusBadRequest, "bad_request", "invalid date "+raw, map[string]any{"expected": "YYYY-MM-DD"})
	}
	return d, nil
}

func registerViews(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID: "pending-tasks",
		Method:      http.MethodGet,
		Path:        "/views/pending",
		Summary:     "Open tasks grouped by demand status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []view.PendingGroup `json:"body"`
	}, error) {
		return &struct {
			Body []view.PendingGroup `json:"body"`
		}{Body: nonNilSlice(ws.PendingTasks())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "completed-tasks",
		Method:      http.MethodGet,
		Path:        "/views/completed",
		Summary:     "Recently completed tasks grouped by system and demand",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CompletedResponse `json:"body"`
	}, error) {
		tasks := ws.RecentlyCompleted()
		return &struct {
			Body CompletedResponse `json:"body"`
		}{Body: CompletedResponse{
			Tasks:  nonNilSlice(tasks),
			Groups: nonNilSlice(view.GroupCompletedTasks(tasks, ws.Config.Report.NoSystemLabel)),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recent-report",
		Method:      http.MethodGet,
		Path:        "/views/report",
		Summary:     "Standup text built from recently completed tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: ReportResponse{Date: domain.FormatDate(ws.Daily.Today()), Text: ws.RecentReport()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Effective board and report configuration",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ConfigResponse `json:"body"`
	}, error) {
		return &struct {
			Body ConfigResponse `json:"body"`
		}{Body: configResponse(ws.Config)}, nil
	})
}

func registerDaily(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID: "list-daily",
		Method:      http.MethodGet,
		Path:        "/daily",
		Summary:     "Kept daily entries, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.DailyEntry `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entries, err := ws.Daily.Load(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]domain.DailyEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, dailyEntry(e))
		}
		return &struct {
			Body []domain.DailyEntry `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-daily-item",
		Method:      http.MethodPost,
		Path:        "/daily/items",
		Summary:     "Log a completed task into tomorrow's entry",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body AddDailyItemRequest `json:"body"`
	}) (*struct {
		Body domain.DailyEntry `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.TaskTitle == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "taskTitle is required", nil)
		}
		err := ws.Daily.AddCompletedTask(ctx, userID, dailyreport.CompletedTask{
			DemandCode: input.Body.DemandCode,
			TaskTitle:  input.Body.TaskTitle,
			Sistema:    input.Body.Sistema,
		})
		if err != nil {
			return nil, handleError(err)
		}
		e, err := ws.Daily.Get(ctx, userID, domain.FormatDate(ws.Daily.Tomorrow()))
		if err != nil {
			return nil, handleError(err)
		}
		if e == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "daily entry not found", nil)
		}
		return &struct {
			Body domain.DailyEntry `json:"body"`
		}{Body: dailyEntry(*e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-daily",
		Method:      http.MethodGet,
		Path:        "/daily/{date}",
		Summary:     "Daily entry for a target date",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *datePath) (*struct {
		Body domain.DailyEntry `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		e, err := ws.Daily.Get(ctx, userID, date)
		if err != nil {
			return nil, handleError(err)
		}
		if e == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "no daily entry for "+date, nil)
		}
		return &struct {
			Body domain.DailyEntry `json:"body"`
		}{Body: dailyEntry(*e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-daily",
		Method:      http.MethodPut,
		Path:        "/daily/{date}",
		Summary:     "Upsert the daily entry for a target date",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string           `path:"date"`
		Body SaveDailyRequest `json:"body"`
	}) (*struct {
		Body domain.DailyEntry `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		workDate := input.Body.WorkDate
		if workDate != "" {
			if workDate, apiErr = targetDate(ws, workDate); apiErr != nil {
				return nil, apiErr
			}
		}
		entry := domain.DailyEntry{
			TargetDate:           date,
			WorkDate:             workDate,
			ReportItems:          input.Body.ReportItems,
			Comments:             input.Body.Comments,
			IncludeTasksInReport: input.Body.IncludeTasksInReport,
		}
		if err := ws.Daily.Save(ctx, userID, entry); err != nil {
			return nil, handleError(err)
		}
		e, err := ws.Daily.Get(ctx, userID, date)
		if err != nil {
			return nil, handleError(err)
		}
		if e == nil {
			// saved beyond the retention horizon and pruned straight away
			return nil, newAPIError(http.StatusBadRequest, "bad_request", date+" is outside the retention window", nil)
		}
		return &struct {
			Body domain.DailyEntry `json:"body"`
		}{Body: dailyEntry(*e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-daily-comment",
		Method:        http.MethodPost,
		Path:          "/daily/{date}/comments",
		Summary:       "Add an observation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string            `path:"date"`
		Body AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		c, err := ws.Daily.AddComment(ctx, userID, date, input.Body.Text)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-daily-comment",
		Method:        http.MethodDelete,
		Path:          "/daily/{date}/comments/{comment_id}",
		Summary:       "Remove an observation",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Date      string `path:"date"`
		CommentID string `path:"comment_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		if err := ws.Daily.RemoveComment(ctx, userID, date, input.CommentID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "set-daily-include",
		Method:        http.MethodPut,
		Path:          "/daily/{date}/include-tasks",
		Summary:       "Toggle task lines in the report",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		Date string              `path:"date"`
		Body IncludeTasksRequest `json:"body"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		if err := ws.Daily.SetIncludeTasks(ctx, userID, date, input.Body.Include); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "daily-report",
		Method:      http.MethodGet,
		Path:        "/daily/{date}/report",
		Summary:     "Rendered standup text",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *datePath) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		date, apiErr := targetDate(ws, input.Date)
		if apiErr != nil {
			return nil, apiErr
		}
		text, err := ws.DailyReport(ctx, date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: ReportResponse{Date: date, Text: text}}, nil
	})
}
