// Package testutil holds fixtures shared by the service, API and CLI tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

// NewConfig returns a TEST configuration without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:           "TEST",
		Debug:         true,
		TestMode:      true,
		AppName:       "Feedback",
		Build:         "test",
		SecretKey:     "test-secret-key",
		StorageDriver: core.StorageMemory,
		Server: core.ServerConfig{
			Address:                   ":0",
			StudentJWTExpirationDelta: 7 * 24 * time.Hour,
			AdminJWTExpirationDelta:   24 * time.Hour,
			ShutdownTimeout:           time.Second,
			MaxUploadSize:             10 << 20,
		},
		Ingest: core.IngestConfig{Workers: 4, BatchSize: 3},
	}
}

// NewValidator returns a validator with every custom rule and English translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate, translator
}

// CreateStudent stores a student; with a password it is hashed, with an email the student is registered.
func CreateStudent(t *testing.T, repo student.Repository, name, hallticket, branch, cohortYear, email, pwd string) student.Student {
	t.Helper()
	std := student.Student{
		Name:       name,
		Hallticket: hallticket,
		Branch:     branch,
		CohortYear: cohortYear,
		Email:      email,
	}
	if pwd != "" {
		if err := std.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CreateSubjects replaces the subjects of a scope with the given (subject, faculty) pairs.
func CreateSubjects(t *testing.T, repo subject.Repository, scope cohort.Scope, pairs ...[2]string) []subject.Subject {
	t.Helper()
	subjects := make([]subject.Subject, 0, len(pairs))
	for _, p := range pairs {
		subjects = append(subjects, subject.Subject{
			Subject:    p[0],
			Faculty:    p[1],
			Class:      scope.Class,
			Branch:     scope.Branch,
			CohortYear: scope.CohortYear,
		})
	}
	if _, err := repo.ReplaceSubjects(context.Background(), scope, subjects); err != nil {
		t.Fatalf("CreateSubjects() failed: %v", err)
	}
	return subjects
}

// CreateAdmin stores an admin with the given role.
func CreateAdmin(t *testing.T, repo admin.Repository, username, email, pwd, role string) admin.Admin {
	t.Helper()
	adm := admin.Admin{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := adm.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

// Answers rates every question with the same score.
func Answers(score int) []feedback.Answer {
	answers := make([]feedback.Answer, 0, len(feedback.Questions))
	for _, q := range feedback.Questions {
		answers = append(answers, feedback.Answer{Question: q, Score: score})
	}
	return answers
}

// CreateFeedback stores a raw feedback, bypassing the submission protocol.
func CreateFeedback(t *testing.T, repo feedback.Repository, hallticket string, scope cohort.Scope, subj, fac string, r round.Round, answers []feedback.Answer) feedback.Feedback {
	t.Helper()
	fb := feedback.Feedback{
		ID:          hallticket + "/" + subj + "/" + fac + "/" + r.String(),
		Hallticket:  hallticket,
		Class:       scope.Class,
		Branch:      scope.Branch,
		CohortYear:  scope.CohortYear,
		Subject:     subj,
		Faculty:     fac,
		Round:       r,
		Answers:     answers,
		SubmittedAt: time.Now().UTC(),
	}
	if err := repo.CreateFeedbacks(context.Background(), []feedback.Feedback{fb}); err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return fb
}
