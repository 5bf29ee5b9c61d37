package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core/feedback"
)

type submissionApi struct {
	svc *feedback.Service
}

func registerSubmissionAPI(g *echo.Group, adminOnly []echo.MiddlewareFunc, svc *feedback.Service) {
	api := submissionApi{svc: svc}

	sg := g.Group("/submissions")
	sg.GET("", api.query, adminOnly...)
	sg.GET("/counts", api.counts, adminOnly...)
}

// Handlers

func (api *submissionApi) query(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)

	subs, err := api.svc.Submissions(ctx.Request().Context(), params.Scope())
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) counts(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)

	counts, err := api.svc.Counts(ctx.Request().Context(), params.Scope())
	if err != nil {
		return errors.Wrap(err, "counting submissions")
	}
	return ctx.JSON(http.StatusOK, counts)
}
