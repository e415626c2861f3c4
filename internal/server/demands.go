package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadboard/internal/app"
	"leadboard/internal/demand"
	"leadboard/internal/domain"
	"leadboard/internal/view"
)

type demandPath struct {
	DemandID string `path:"demand_id"`
}

func lookupDemand(ws *app.Workspace, id string) (DemandResponse, huma.StatusError) {
	d, ok := ws.Demands.Get(id)
	if !ok {
		return DemandResponse{}, newAPIError(http.StatusNotFound, "not_found", "demand "+id+" not found", nil)
	}
	return demandResponse(d), nil
}

func registerDemands(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID: "list-demands",
		Method:      http.MethodGet,
		Path:        "/demands",
		Summary:     "List demands",
	}, func(ctx context.Context, input *struct {
		Status      string `query:"status"`
		Priority    string `query:"priority"`
		Consultoria string `query:"consultoria"`
		Sistema     string `query:"sistema"`
		Search      string `query:"q"`
		IncludeDone bool   `query:"include_done"`
		Sort        string `query:"sort" enum:"order,priority"`
	}) (*struct {
		Body []DemandResponse `json:"body"`
	}, error) {
		items := ws.Demands.Filter(view.DemandFilter{
			Status:      domain.Status(input.Status),
			Priority:    domain.Priority(input.Priority),
			Consultoria: input.Consultoria,
			Sistema:     input.Sistema,
			Search:      input.Search,
			IncludeDone: input.IncludeDone,
		})
		if input.Sort == "priority" {
			items = view.SortByPriority(items)
		}
		return &struct {
			Body []DemandResponse `json:"body"`
		}{Body: mapDemands(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-demand",
		Method:        http.MethodPost,
		Path:          "/demands",
		Summary:       "Create demand",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateDemandRequest `json:"body"`
	}) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		id, err := ws.CreateDemand(ctx, demand.NewDemand{
			Code:            input.Body.Code,
			Title:           input.Body.Title,
			Priority:        domain.Priority(input.Body.Priority),
			Status:          domain.Status(input.Body.Status),
			Consultoria:     input.Body.Consultoria,
			Sistema:         input.Body.Sistema,
			UseDefaultTasks: input.Body.UseDefaultTasks,
		})
		if err != nil {
			return nil, handleError(err)
		}
		d, apiErr := lookupDemand(ws, id)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body DemandResponse `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "board-stats",
		Method:      http.MethodGet,
		Path:        "/demands/stats",
		Summary:     "Counts per status and known field values",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body BoardStatsResponse `json:"body"`
	}, error) {
		return &struct {
			Body BoardStatsResponse `json:"body"`
		}{Body: statsResponse(ws.Demands.Demands())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-demands",
		Method:      http.MethodPost,
		Path:        "/demands/reorder",
		Summary:     "Rewrite demand order",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body ReorderRequest `json:"body"`
	}) (*struct {
		Body []DemandResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		if err := ws.Demands.ReorderDemands(ctx, input.Body.IDs); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DemandResponse `json:"body"`
		}{Body: mapDemands(ws.Demands.Demands())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-demand",
		Method:      http.MethodGet,
		Path:        "/demands/{demand_id}",
		Summary:     "Get demand",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *demandPath) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		d, apiErr := lookupDemand(ws, input.DemandID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body DemandResponse `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-demand",
		Method:      http.MethodPatch,
		Path:        "/demands/{demand_id}",
		Summary:     "Update demand",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string              `path:"demand_id"`
		Body     UpdateDemandRequest `json:"body"`
	}) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		p := demand.DemandPatch{
			Code:         input.Body.Code,
			Title:        input.Body.Title,
			Order:        input.Body.Order,
			Tasks:        input.Body.Tasks,
			CustomFields: input.Body.CustomFields,
		}
		if input.Body.Priority != nil {
			pr := domain.Priority(*input.Body.Priority)
			p.Priority = &pr
		}
		if input.Body.Status != nil {
			st := domain.Status(*input.Body.Status)
			p.Status = &st
		}
		if err := ws.Demands.UpdateDemand(ctx, input.DemandID, p); err != nil {
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
		OperationID:   "delete-demand",
		Method:        http.MethodDelete,
		Path:          "/demands/{demand_id}",
		Summary:       "Delete demand",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *demandPath) (*struct{}, error) {
		if err := ws.Demands.DeleteDemand(ctx, input.DemandID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-demand-status",
		Method:      http.MethodPut,
		Path:        "/demands/{demand_id}/status",
		Summary:     "Move demand to a pipeline stage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DemandID string           `path:"demand_id"`
		Body     SetStatusRequest `json:"body"`
	}) (*struct {
		Body DemandResponse `json:"body"`
	}, error) {
		if err := ws.Demands.UpdateStatus(ctx, input.DemandID, domain.Status(input.Body.Status)); err != nil {
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

	for _, named := range []struct {
		op, path, summary string
		set               func(context.Context, string, string) error
	}{
		{"set-demand-consultoria", "/demands/{demand_id}/consultoria", "Set Consultoria", ws.Demands.UpdateConsultoria},
		{"set-demand-sistema", "/demands/{demand_id}/sistema", "Set Sistema", ws.Demands.UpdateSistema},
	} {
		set := named.set
		huma.Register(api, huma.Operation{
			OperationID: named.op,
			Method:      http.MethodPut,
			Path:        named.path,
			Summary:     named.summary,
			Errors:      []int{http.StatusNotFound},
		}, func(ctx context.Context, input *struct {
			DemandID string          `path:"demand_id"`
			Body     SetValueRequest `json:"body"`
		}) (*struct {
			Body DemandResponse `json:"body"`
		}, error) {
			if err := set(ctx, input.DemandID, input.Body.Value); err != nil {
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
	}
}
