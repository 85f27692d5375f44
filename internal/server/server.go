// Package server exposes a read-only dashboard API over the pipeline
// database: run status, grades, conversations and the node roster.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"calllab/internal/domain"
	"calllab/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Repo     repo.Repo
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"conversation not found"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error())
}

// New returns an HTTP handler exposing the dashboard API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Calllab Dashboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerStatus(group, cfg.Repo)
	registerGrades(group, cfg.Repo)
	registerConversations(group, cfg.Repo)
	registerNodes(group, cfg.Repo)

	return router, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Pipeline status summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.StatusSummary `json:"body"`
	}, error) {
		summary, err := r.StatusSummary(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StatusSummary `json:"body"`
		}{Body: summary}, nil
	})
}

func registerGrades(api huma.API, r repo.Repo) {
	type gradesQuery struct {
		Limit int `query:"limit" default:"10" minimum:"1" maximum:"100"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-grades",
		Method:      http.MethodGet,
		Path:        "/grades",
		Summary:     "Recent conversation grades",
	}, func(ctx context.Context, input *gradesQuery) (*struct {
		Body []repo.GradeWithPreview `json:"body"`
	}, error) {
		grades, err := r.ListGrades(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.GradeWithPreview `json:"body"`
		}{Body: grades}, nil
	})
}

func registerConversations(api huma.API, r repo.Repo) {
	type conversationPath struct {
		ID string `path:"id"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-conversation",
		Method:      http.MethodGet,
		Path:        "/conversations/{id}",
		Summary:     "Fetch one conversation",
	}, func(ctx context.Context, input *conversationPath) (*struct {
		Body domain.Conversation `json:"body"`
	}, error) {
		c, err := r.GetConversation(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Conversation `json:"body"`
		}{Body: c}, nil
	})
}

func registerNodes(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-nodes",
		Method:      http.MethodGet,
		Path:        "/nodes",
		Summary:     "Node roster",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Node `json:"body"`
	}, error) {
		nodes, err := r.ListNodes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Node `json:"body"`
		}{Body: nodes}, nil
	})
}
