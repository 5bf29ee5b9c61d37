package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
)

type roundApi struct {
	rounds   *round.Service
	subjects *subject.Service
}

func registerRoundAPI(g *echo.Group, adminOnly []echo.MiddlewareFunc, rounds *round.Service, subjects *subject.Service) {
	api := roundApi{rounds: rounds, subjects: subjects}

	g.GET("/rounds", api.status, adminOnly...)
	g.POST("/rounds", api.toggle, adminOnly...)
	g.GET("/catalog", api.catalog, adminOnly...)
}

type (
	RoundToggleRequest struct {
		ScopeParams
		Round   string `json:"round"`
		Enabled *bool  `json:"enabled"`
	}

	RoundToggleResponse struct {
		Success bool          `json:"success"`
		Control round.Control `json:"control"`
	}
)

// Handlers

func (api *roundApi) status(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)

	ctrl, err := api.rounds.Status(ctx.Request().Context(), params.Scope())
	if err != nil {
		return errors.Wrap(err, "getting round status")
	}
	return ctx.JSON(http.StatusOK, ctrl)
}

func (api *roundApi) toggle(ctx echo.Context) error {
	var data RoundToggleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoundToggleRequest")
	}
	r, err := round.Parse(data.Round)
	if err != nil {
		return err
	}
	if data.Enabled == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "enabled", Error: "this field is required"})
	}

	ctrl, err := api.rounds.SetEnabled(ctx.Request().Context(), data.Scope(), r, *data.Enabled)
	if err != nil {
		return errors.Wrap(err, "toggling round")
	}
	return ctx.JSON(http.StatusOK, RoundToggleResponse{Success: true, Control: ctrl})
}

func (api *roundApi) catalog(ctx echo.Context) error {
	cat, err := api.subjects.Catalog(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing catalog")
	}
	return ctx.JSON(http.StatusOK, cat)
}
