package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
)

type adminApi struct {
	svc      *admin.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerAdminAPI(
	g *echo.Group,
	adminOnly []echo.MiddlewareFunc,
	auth *authenticator,
	svc *admin.Service,
	validate *validator.Validate,
) {
	api := adminApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("/admins")

	// TODO: rate limit `/login`
	ag.POST("/login", api.login)
	ag.POST("/register", api.create, adminOnly...)
}

// Handlers

func (api *adminApi) create(ctx echo.Context) error {
	var data admin.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// an admin cannot grant a role above their own
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	role := data.Role
	if role == "" {
		role = admin.RoleAdmin
	}
	if admin.RolePriority(role) > admin.RolePriority(claims.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
	}

	adm, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating admin")
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (api *adminApi) login(ctx echo.Context) error {
	var data admin.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == admin.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating admin")
	}
	token, err := api.auth.GenerateToken(api.auth.AdminClaims(adm))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: adm})
}
