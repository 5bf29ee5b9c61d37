package echoapi

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/csvimport"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

const (
	defaultMaxUploadSize = 10 << 20 // 10MB
	uploadField          = "file"
)

var (
	errNoFile       = core.NewValidationError(nil, core.FieldError{Field: uploadField, Error: "no file uploaded"})
	errNotCSV       = core.NewValidationError(nil, core.FieldError{Field: uploadField, Error: "only CSV files are allowed"})
	errScopeMissing = core.NewValidationError(errors.New("class, branch and academic year are required"))
)

type uploadApi struct {
	maxSize  int64
	students *student.Service
	subjects *subject.Service
}

func registerUploadAPI(
	g *echo.Group,
	adminOnly []echo.MiddlewareFunc,
	maxSize int64,
	students *student.Service,
	subjects *subject.Service,
) {
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	api := uploadApi{
		maxSize:  maxSize,
		students: students,
		subjects: subjects,
	}

	ug := g.Group("/uploads")
	ug.POST("/students", api.uploadStudents, adminOnly...)
	ug.POST("/subjects", api.uploadSubjects, adminOnly...)
}

type (
	StudentUploadResponse struct {
		Success  bool                  `json:"success"`
		Message  string                `json:"message"`
		FileName string                `json:"file_name"`
		Stats    student.IngestSummary `json:"stats"`
	}

	SubjectUploadResponse struct {
		Success  bool                  `json:"success"`
		Message  string                `json:"message"`
		FileName string                `json:"file_name"`
		Stats    subject.ReplaceResult `json:"stats"`
	}
)

// uploadedCSV returns the uploaded CSV file and the cohort scope it targets.
func (api *uploadApi) uploadedCSV(ctx echo.Context) (*multipart.FileHeader, cohort.Scope, error) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, cohort.Scope{}, errNoFile
		}
		return nil, cohort.Scope{}, errors.Wrap(err, "reading uploaded file")
	}
	if fh.Size > api.maxSize {
		return nil, cohort.Scope{}, core.NewValidationError(nil, core.FieldError{
			Field: uploadField,
			Error: fmt.Sprintf("file too large, maximum size is %dMB", api.maxSize>>20),
		})
	}
	if !isCSV(fh) {
		return nil, cohort.Scope{}, errNotCSV
	}

	var params ScopeParams
	params.Bind(ctx)
	scope := params.Scope()
	if scope.Validate() != nil {
		return nil, cohort.Scope{}, errScopeMissing
	}
	return fh, scope, nil
}

func isCSV(fh *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get(echo.HeaderContentType))
	return err == nil && mediaType == "text/csv"
}

// Handlers

func (api *uploadApi) uploadStudents(ctx echo.Context) error {
	fh, scope, err := api.uploadedCSV(ctx)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	rows, err := csvimport.ParseStudents(f)
	if err != nil {
		return err
	}

	summary, err := api.students.Ingest(ctx.Request().Context(), rows, scope)
	if err != nil {
		return errors.Wrap(err, "ingesting students")
	}
	// a partial failure is still a completed upload: the failures are listed in the stats
	msg := fmt.Sprintf("Processed %d students: %d new, %d updated", summary.Processed, summary.New, summary.Updated)
	if batchErr := summary.Err(); batchErr != nil {
		msg += ", " + batchErr.Error()
	}
	return ctx.JSON(http.StatusOK, StudentUploadResponse{
		Success:  true,
		Message:  msg,
		FileName: fh.Filename,
		Stats:    summary,
	})
}

func (api *uploadApi) uploadSubjects(ctx echo.Context) error {
	fh, scope, err := api.uploadedCSV(ctx)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	rows, err := csvimport.ParseSubjects(f)
	if err != nil {
		return err
	}

	res, err := api.subjects.Replace(ctx.Request().Context(), scope, rows)
	if err != nil {
		return errors.Wrap(err, "replacing subjects")
	}
	return ctx.JSON(http.StatusOK, SubjectUploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("Subjects uploaded successfully! %d subjects processed.", res.Inserted),
		FileName: fh.Filename,
		Stats:    res,
	})
}
