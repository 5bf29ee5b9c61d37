package echoapi

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, adminOnly []echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports")
	rg.GET("/faculty/:faculty", api.facultyPerformance, adminOnly...)
	rg.GET("/faculty/:faculty/history", api.facultyHistory, adminOnly...)
	rg.GET("/class", api.class, adminOnly...)
	rg.GET("/department", api.department, adminOnly...)
}

// facultyParam returns the faculty name of the path; names may hold escaped slashes.
func facultyParam(ctx echo.Context) string {
	name := ctx.Param("faculty")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// Handlers

func (api *reportApi) facultyPerformance(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)
	r, err := bindRound(ctx)
	if err != nil {
		return err
	}

	perfs, err := api.svc.FacultyPerformance(ctx.Request().Context(), facultyParam(ctx), params.Scope(), r)
	if err != nil {
		return errors.Wrap(err, "reporting faculty performance")
	}
	return ctx.JSON(http.StatusOK, perfs)
}

func (api *reportApi) facultyHistory(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)

	entries, err := api.svc.FacultyHistory(ctx.Request().Context(), facultyParam(ctx), params.Filter())
	if err != nil {
		return errors.Wrap(err, "reporting faculty history")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *reportApi) class(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)
	r, err := bindRound(ctx)
	if err != nil {
		return err
	}

	rows, err := api.svc.Class(ctx.Request().Context(), params.Scope(), r)
	if err != nil {
		return errors.Wrap(err, "reporting class")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) department(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)
	r, err := bindRound(ctx)
	if err != nil {
		return err
	}

	rows, err := api.svc.Department(ctx.Request().Context(), params.BranchScope(), r)
	if err != nil {
		return errors.Wrap(err, "reporting department")
	}
	return ctx.JSON(http.StatusOK, rows)
}
