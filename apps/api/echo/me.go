package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

// meApi serves the authenticated student: their own identity, subjects and feedback.
type meApi struct {
	students  *student.Service
	subjects  *subject.Service
	feedbacks *feedback.Service
	validate  *validator.Validate
}

func registerMeAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	students *student.Service,
	subjects *subject.Service,
	feedbacks *feedback.Service,
	validate *validator.Validate,
) {
	api := meApi{
		students:  students,
		subjects:  subjects,
		feedbacks: feedbacks,
		validate:  validate,
	}

	mg := g.Group("/me", jwt, studentMiddleware)
	mg.GET("", api.info)
	mg.GET("/semesters", api.semesters)
	mg.GET("/subjects", api.subjectList)
	mg.GET("/feedback/check", api.feedbackCheck)
	mg.POST("/feedback", api.submitFeedback)
}

type (
	InfoResponse struct {
		Name       string `json:"name"`
		Hallticket string `json:"hallticket"`
		Branch     string `json:"branch"`
		CohortYear string `json:"cohort_year"`
		Email      string `json:"email,omitempty"`
	}

	CheckResponse struct {
		Submitted bool `json:"submitted"`
	}
)

// contextStudent loads the student record the token was issued for.
func (api *meApi) contextStudent(ctx echo.Context) (student.Student, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context claims")
	}
	std, err := api.students.Get(ctx.Request().Context(), claims.Hallticket, claims.CohortYear)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding context student")
	}
	return std, nil
}

func identityOf(claims Claims) feedback.Identity {
	return feedback.Identity{Hallticket: claims.Hallticket, Branch: claims.Branch, CohortYear: claims.CohortYear}
}

// Handlers

func (api *meApi) info(ctx echo.Context) error {
	std, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, InfoResponse{
		Name:       std.Name,
		Hallticket: std.Hallticket,
		Branch:     std.Branch,
		CohortYear: std.CohortYear,
		Email:      std.Email,
	})
}

func (api *meApi) semesters(ctx echo.Context) error {
	std, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	classes, err := api.subjects.Semesters(ctx.Request().Context(), cohort.BranchScope{Branch: std.Branch, CohortYear: std.CohortYear})
	if err != nil {
		return errors.Wrap(err, "listing semesters")
	}
	return ctx.JSON(http.StatusOK, classes)
}

// subjectList defaults to the student's own branch and cohort; asking for another one is refused.
func (api *meApi) subjectList(ctx echo.Context) error {
	std, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}

	var params ScopeParams
	params.Bind(ctx)
	if params.Branch == "" {
		params.Branch = std.Branch
	}
	if params.CohortYear == "" && params.AcademicYear == "" {
		params.CohortYear = std.CohortYear
	}

	id := subject.Identity{Branch: std.Branch, CohortYear: std.CohortYear}
	subjects, err := api.subjects.ForStudent(ctx.Request().Context(), id, params.Scope())
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *meApi) feedbackCheck(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	class := core.CleanString(ctx.QueryParam("class"))
	if class == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class", Error: "this field is required"})
	}
	r, err := round.Parse(ctx.QueryParam("round"))
	if err != nil {
		return err
	}

	submitted, err := api.feedbacks.Check(ctx.Request().Context(), identityOf(claims), class, r)
	if err != nil {
		return errors.Wrap(err, "checking feedback")
	}
	return ctx.JSON(http.StatusOK, CheckResponse{Submitted: submitted})
}

func (api *meApi) submitFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data feedback.SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.feedbacks.Submit(ctx.Request().Context(), identityOf(claims), data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusCreated, res)
}
