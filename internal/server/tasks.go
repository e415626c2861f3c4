package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadboard/internal/app"
	"leadboard/internal/demand"
	"leadboard/internal/domain"
)

type taskPath struct {
	DemandID string `path:"demand_id"`
	TaskID   string `path:"task_id"`
}

func registerTasks(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/demands/{demand_id}/tasks",
		Summary:       "Add task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string            `path:"demand_id"`
		Body     CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		task, err := ws.Demands.AddTaskWithLink(ctx, input.DemandID, input.Body.Title, input.Body.Link)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/demands/{demand_id}/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string            `path:"demand_id"`
		TaskID   string            `path:"task_id"`
		Body     UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		err := ws.Demands.UpdateTask(ctx, input.DemandID, input.TaskID, demand.TaskPatch{
			Title:     input.Body.Title,
			Completed: input.Body.Completed,
			Order:     input.Body.Order,
			Link:      input.Body.Link,
		})
		if err != nil {
			return nil, handleError(err)
		}
		d, apiErr := lookupDemand(ws, input.DemandID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body DemandResponse `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/demands/{demand_id}/tasks/{task_id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		if err := ws.Demands.DeleteTask(ctx, input.DemandID, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/demands/{demand_id}/tasks/{task_id}/toggle",
		Summary:     "Toggle task completion",
		Description: "Completing a task also logs it into tomorrow's daily entry.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		task, err := ws.CompleteTask(ctx, input.DemandID, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-task",
		Method:      http.MethodPost,
		Path:        "/demands/{demand_id}/tasks/{task_id}/start",
		Summary:     "Toggle the in-progress task",
		Description: "At most one task across all demands is in progress; starting one stops any other.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body CurrentTaskResponse `json:"body"`
	}, error) {
		if err := ws.Demands.SetTaskInProgress(ctx, input.DemandID, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CurrentTaskResponse `json:"body"`
		}{Body: currentTaskResponse(ws.Demands.CurrentTask())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "current-task",
		Method:      http.MethodGet,
		Path:        "/current-task",
		Summary:     "Task in progress",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CurrentTaskResponse `json:"body"`
	}, error) {
		return &struct {
			Body CurrentTaskResponse `json:"body"`
		}{Body: currentTaskResponse(ws.Demands.CurrentTask())}, nil
	})
}

func currentTaskResponse(c *demand.CurrentTask) CurrentTaskResponse {
	if c == nil {
		return CurrentTaskResponse{}
	}
	return CurrentTaskResponse{Current: &CurrentTask{
		Task:        c.Task,
		DemandID:    c.Demand.ID,
		DemandCode:  c.Demand.Code,
		DemandTitle: c.Demand.Title,
	}}
}

type fieldPath struct {
	DemandID string `path:"demand_id"`
	FieldID  string `path:"field_id"`
}

func registerFields(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-field",
		Method:        http.MethodPost,
		Path:          "/demands/{demand_id}/fields",
		Summary:       "Add custom field",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string             `path:"demand_id"`
		Body     CreateFieldRequest `json:"body"`
	}) (*struct {
		Body domain.CustomField `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		f, err := ws.Demands.AddCustomField(ctx, input.DemandID, domain.CustomField{
			Name:  input.Body.Name,
			Value: input.Body.Value,
			Color: input.Body.Color,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CustomField `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-field",
		Method:      http.MethodPatch,
		Path:        "/demands/{demand_id}/fields/{field_id}",
		Summary:     "Update custom field",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string             `path:"demand_id"`
		FieldID  string             `path:"field_id"`
		Body     UpdateFieldRequest `json:"body"`
	}) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		err := ws.Demands.UpdateCustomField(ctx, input.DemandID, input.FieldID, demand.FieldPatch{
			Name:  input.Body.Name,
			Value: input.Body.Value,
			Color: input.Body.Color,
		})
		if err != nil {
			return nil, handleError(err)
		}
		d, apiErr := lookupDemand(ws, input.DemandID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body DemandResponse `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-field",
		Method:        http.MethodDelete,
		Path:          "/demands/{demand_id}/fields/{field_id}",
		Summary:       "Delete custom field",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *fieldPath) (*struct{}, error) {
		if err := ws.Demands.DeleteCustomField(ctx, input.DemandID, input.FieldID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}
