// Package csvimport reads the students and subjects files uploaded by admins.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

var (
	ErrEmptyFile  = errors.New("file is empty")
	ErrNoStudents = errors.New("no valid student data found in CSV")
	ErrNoSubjects = errors.New("no valid subject data found in CSV")

	headerCells = map[string]bool{"name": true, "subject": true, "hallticket": true}
)

// Record is one non-blank line of the file.
type Record struct {
	Line   int
	Fields []string
}

// Get returns the trimmed i-th field, or "" when the record is too short.
func (rec Record) Get(i int) string {
	if i < len(rec.Fields) {
		return core.CleanString(rec.Fields[i])
	}
	return ""
}

// Parse reads every record of r. A UTF-8 BOM is dropped, blank lines are skipped and so is a
// header line (first line whose first cell is "name", "subject" or "hallticket").
func Parse(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrap(err, "reading file")
	}
	if len(strings.TrimSpace(string(peek))) == 0 {
		return nil, core.NewValidationError(ErrEmptyFile)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records []Record
	first := true
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if pErr, ok := err.(*csv.ParseError); ok {
				return nil, core.NewValidationError(pErr, core.FieldError{Field: "file", Error: pErr.Error()})
			}
			return nil, errors.Wrap(err, "reading csv record")
		}
		line, _ := reader.FieldPos(0)

		if isBlank(fields) {
			continue
		}
		if first {
			first = false
			if headerCells[strings.ToLower(core.CleanString(fields[0]))] {
				continue
			}
		}
		records = append(records, Record{Line: line, Fields: fields})
	}
	return records, nil
}

// StudentRows maps records to ingestion rows (name, hallticket, branch).
// Records with less than 3 cells are kept: the ingestion reports them as row errors.
func StudentRows(records []Record) ([]student.Row, error) {
	rows := make([]student.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, student.Row{
			Line:       rec.Line,
			Name:       rec.Get(0),
			Hallticket: rec.Get(1),
			Branch:     rec.Get(2),
		})
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(ErrNoStudents)
	}
	return rows, nil
}

// SubjectRows maps records to subject rows (subject, faculty).
// Records with less than 2 cells are kept: the subject set replacement skips them.
func SubjectRows(records []Record) ([]subject.Row, error) {
	rows := make([]subject.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, subject.Row{
			Line:    rec.Line,
			Subject: rec.Get(0),
			Faculty: rec.Get(1),
		})
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(ErrNoSubjects)
	}
	return rows, nil
}

// ParseStudents is Parse followed by StudentRows.
func ParseStudents(r io.Reader) ([]student.Row, error) {
	records, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return StudentRows(records)
}

// ParseSubjects is Parse followed by SubjectRows.
func ParseSubjects(r io.Reader) ([]subject.Row, error) {
	records, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return SubjectRows(records)
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
