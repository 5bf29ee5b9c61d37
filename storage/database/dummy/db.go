// Package dummydb is an in-memory storage, used by tests and by the `memory` storage driver.
package dummydb

import (
	"sync"

	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

type (
	DB struct {
		student    *studentTable
		subject    *subjectTable
		round      *roundTable
		submission *submissionTable
		feedback   *feedbackTable
		admin      *adminTable
	}

	studentTable struct {
		sync.RWMutex
		table map[studentKey]*student.Student
	}

	studentKey struct {
		hallticket string
		cohortYear string
	}

	subjectTable struct {
		sync.RWMutex
		rows []subject.Subject
	}

	roundTable struct {
		sync.RWMutex
		table map[string]*round.Control // by scope
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*feedback.Submission // by SubmissionKey
	}

	feedbackTable struct {
		sync.RWMutex
		rows []feedback.Feedback
	}

	adminTable struct {
		sync.RWMutex
		table map[string]*admin.Admin
	}
)

func Open() (*DB, error) {
	db := &DB{
		student:    &studentTable{table: make(map[studentKey]*student.Student)},
		subject:    &subjectTable{},
		round:      &roundTable{table: make(map[string]*round.Control)},
		submission: &submissionTable{table: make(map[string]*feedback.Submission)},
		feedback:   &feedbackTable{},
		admin:      &adminTable{table: make(map[string]*admin.Admin)},
	}
	return db, nil
}
