package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/student"
)

type studentApi struct {
	svc      *student.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	adminOnly []echo.MiddlewareFunc,
	auth *authenticator,
	svc *student.Service,
	validate *validator.Validate,
) {
	api := studentApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	sg := g.Group("/students")

	// un-authed endpoints
	// TODO: rate limit `/login` & `/register`
	sg.POST("/register", api.register)
	sg.POST("/login", api.login)
	sg.GET("/check-hallticket/:hallticket", api.checkHallticket)
	sg.GET("/check-email/:email", api.checkEmail)

	// admin endpoints
	sg.GET("", api.query, adminOnly...)
	sg.PUT("/:hallticket/reset", api.resetRegistration, adminOnly...)
}

type (
	StudentLoginRequest struct {
		Hallticket string `json:"hallticket" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}

	ResetRequest struct {
		ScopeParams
	}

	ResetResponse struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Student student.Student `json:"student"`
	}
)

func (r *StudentLoginRequest) Validate(validate *validator.Validate) error {
	r.Hallticket = core.CleanString(r.Hallticket)
	return validate.Struct(r)
}

// Handlers

func (api *studentApi) register(ctx echo.Context) error {
	var data student.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	token, err := api.auth.GenerateToken(api.auth.StudentClaims(std))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, TokenResponse{Token: token, User: std})
}

func (api *studentApi) login(ctx echo.Context) error {
	var data StudentLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Authenticate(ctx.Request().Context(), data.Hallticket, data.Password)
	if err != nil {
		if errors.Cause(err) == student.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating student")
	}
	token, err := api.auth.GenerateToken(api.auth.StudentClaims(std))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: std})
}

func (api *studentApi) checkHallticket(ctx echo.Context) error {
	status, err := api.svc.CheckHallticket(ctx.Request().Context(), ctx.Param("hallticket"))
	if err != nil {
		return errors.Wrap(err, "checking hallticket")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *studentApi) checkEmail(ctx echo.Context) error {
	status, err := api.svc.CheckEmail(ctx.Request().Context(), ctx.Param("email"))
	if err != nil {
		return errors.Wrap(err, "checking email")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *studentApi) query(ctx echo.Context) error {
	var params ScopeParams
	params.Bind(ctx)
	filter := student.QueryFilter{BranchScope: params.BranchScope()}
	if reg := ctx.QueryParam("registered"); reg != "" {
		registered, err := strconv.ParseBool(reg)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "registered", Error: "must be a boolean"})
		}
		filter.Registered = &registered
	}

	var ord Ordering
	ord.Bind(ctx)

	students, err := api.svc.QueryWithStatus(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) resetRegistration(ctx echo.Context) error {
	var data ResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetRequest")
	}
	if data.CohortYear == "" && data.AcademicYear == "" {
		data.ScopeParams.Bind(ctx)
	}

	std, err := api.svc.ResetRegistration(ctx.Request().Context(), ctx.Param("hallticket"), data.Scope().CohortYear)
	if err != nil {
		return errors.Wrap(err, "resetting student registration")
	}
	return ctx.JSON(http.StatusOK, ResetResponse{
		Success: true,
		Message: "Registration reset. The student can now register again.",
		Student: std,
	})
}
