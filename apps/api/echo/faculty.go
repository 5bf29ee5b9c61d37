package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core/faculty"
)

type facultyApi struct {
	svc *faculty.Service
}

func registerFacultyAPI(g *echo.Group, adminOnly, ownerOnly []echo.MiddlewareFunc, svc *faculty.Service) {
	api := facultyApi{svc: svc}

	fg := g.Group("/faculties")
	fg.GET("", api.forScope, adminOnly...)
	fg.GET("/all", api.all, adminOnly...)
	fg.GET("/variations", api.variations, adminOnly...)
	fg.GET("/rename-preview", api.renamePreview, adminOnly...)
	fg.PUT("/rename", api.rename, adminOnly...)
	fg.DELETE("/cleanup", api.cleanup, ownerOnly...)
}

// FacultyRenameRequest renames a faculty everywhere, or only within the given (partial) scope.
type FacultyRenameRequest struct {
	OriginalName string `json:"original_name" query:"original_name"`
	NewName      string `json:"new_name" query:"new_name"`
	ScopeParams
}

func (r FacultyRenameRequest) toRename() faculty.RenameRequest {
	return faculty.RenameRequest{
		OriginalName: r.OriginalName,
		NewName:      r.NewName,
		Scope:        r.Filter(),
	}
}

// Handlers

func (api *facultyApi) forScope(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)

	names, err := api.svc.ForScope(ctx.Request().Context(), params.Scope())
	if err != nil {
		return errors.Wrap(err, "listing faculties")
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *facultyApi) all(ctx echo.Context) error {
	names, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing all faculties")
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *facultyApi) variations(ctx echo.Context) error {
	groups, err := api.svc.Variations(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing faculty variations")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *facultyApi) renamePreview(ctx echo.Context) error {
	data := FacultyRenameRequest{
		OriginalName: ctx.QueryParam("original_name"),
		NewName:      ctx.QueryParam("new_name"),
	}
	data.ScopeParams.Bind(ctx)

	res, err := api.svc.Preview(ctx.Request().Context(), data.toRename())
	if err != nil {
		return errors.Wrap(err, "previewing faculty rename")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *facultyApi) rename(ctx echo.Context) error {
	var data FacultyRenameRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FacultyRenameRequest")
	}

	res, err := api.svc.Rename(ctx.Request().Context(), data.toRename())
	if err != nil {
		return errors.Wrap(err, "renaming faculty")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *facultyApi) cleanup(ctx echo.Context) error {
	res, err := api.svc.Cleanup(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "cleaning up faculties")
	}
	return ctx.JSON(http.StatusOK, res)
}
