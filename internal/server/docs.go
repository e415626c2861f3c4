package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"leadboard/internal/app"
	"leadboard/internal/docs"
	"leadboard/internal/domain"
)

type docPath struct {
	DocID string `path:"doc_id"`
}

func registerReleaseDocs(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID: "list-release-docs",
		Method:      http.MethodGet,
		Path:        "/release-docs",
		Summary:     "List release documents",
	}, func(ctx context.Context, input *struct {
		DemandCode string `query:"demand_code"`
	}) (*struct {
		Body []domain.ReleaseDoc `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := ws.Docs.ListReleaseDocs(ctx, userID, input.DemandCode)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ReleaseDoc `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-release-doc",
		Method:        http.MethodPost,
		Path:          "/release-docs",
		Summary:       "Create release document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateReleaseDocRequest `json:"body"`
	}) (*struct {
		Body CreatedResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := ws.Docs.CreateReleaseDoc(ctx, userID, docs.NewReleaseDoc{
			DemandCode: input.Body.DemandCode,
			Title:      input.Body.Title,
			Version:    input.Body.Version,
			Content:    input.Body.Content,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreatedResponse `json:"body"`
		}{Body: CreatedResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-release-doc",
		Method:      http.MethodGet,
		Path:        "/release-docs/{doc_id}",
		Summary:     "Get release document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *docPath) (*struct {
		Body domain.ReleaseDoc `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := ws.Docs.GetReleaseDoc(ctx, userID, input.DocID)
		if err != nil {
			return nil, handleError(err)
		}
		if d == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "release doc "+input.DocID+" not found", nil)
		}
		return &struct {
			Body domain.ReleaseDoc `json:"body"`
		}{Body: *d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-release-doc",
		Method:        http.MethodPatch,
		Path:          "/release-docs/{doc_id}",
		Summary:       "Update release document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DocID string                  `path:"doc_id"`
		Body  UpdateReleaseDocRequest `json:"body"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := ws.Docs.UpdateReleaseDoc(ctx, userID, input.DocID, docs.ReleaseDocPatch{
			DemandCode: input.Body.DemandCode,
			Title:      input.Body.Title,
			Version:    input.Body.Version,
			Content:    input.Body.Content,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-release-doc",
		Method:        http.MethodDelete,
		Path:          "/release-docs/{doc_id}",
		Summary:       "Delete release document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *docPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := ws.Docs.DeleteReleaseDoc(ctx, userID, input.DocID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerTechDocs(api huma.API, ws *app.Workspace) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tech-docs",
		Method:      http.MethodGet,
		Path:        "/tech-docs",
		Summary:     "List technical documents",
	}, func(ctx context.Context, input *struct {
		Category string `query:"category"`
	}) (*struct {
		Body []domain.TechDoc `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := ws.Docs.ListTechDocs(ctx, userID, input.Category)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TechDoc `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-tech-doc",
		Method:        http.MethodPost,
		Path:          "/tech-docs",
		Summary:       "Create technical document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTechDocRequest `json:"body"`
	}) (*struct {
		Body CreatedResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id, err := ws.Docs.CreateTechDoc(ctx, userID, docs.NewTechDoc{
			Title:    input.Body.Title,
			Category: input.Body.Category,
			Content:  input.Body.Content,
			Tags:     input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreatedResponse `json:"body"`
		}{Body: CreatedResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tech-doc",
		Method:      http.MethodGet,
		Path:        "/tech-docs/{doc_id}",
		Summary:     "Get technical document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *docPath) (*struct {
		Body domain.TechDoc `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := ws.Docs.GetTechDoc(ctx, userID, input.DocID)
		if err != nil {
			return nil, handleError(err)
		}
		if d == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "tech doc "+input.DocID+" not found", nil)
		}
		return &struct {
			Body domain.TechDoc `json:"body"`
		}{Body: *d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-tech-doc",
		Method:        http.MethodPatch,
		Path:          "/tech-docs/{doc_id}",
		Summary:       "Update technical document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DocID string               `path:"doc_id"`
		Body  UpdateTechDocRequest `json:"body"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		err := ws.Docs.UpdateTechDoc(ctx, userID, input.DocID, docs.TechDocPatch{
			Title:    input.Body.Title,
			Category: input.Body.Category,
			Content:  input.Body.Content,
			Tags:     input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tech-doc",
		Method:        http.MethodDelete,
		Path:          "/tech-docs/{doc_id}",
		Summary:       "Delete technical document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *docPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := ws.Docs.DeleteTechDoc(ctx, userID, input.DocID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}
