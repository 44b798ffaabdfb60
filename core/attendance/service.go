package attendance

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/subject"
)

var (
	// errors
	errInvalidDate    = errors.New("date must be formatted as YYYY-MM-DD")
	errInvalidStudent = errors.New("invalid student")
)

type (
	Repository interface {
		// Replace deletes every record of the subject on date, then inserts records, in one transaction.
		Replace(ctx context.Context, subjectID int64, date time.Time, records []Record) error
		SubjectRecords(ctx context.Context, subjectID int64, date time.Time) ([]Record, error)
		// StudentRecords returns the records of a student in a subject, oldest first.
		StudentRecords(ctx context.Context, studentID, subjectID int64) ([]Record, error)
	}

	Service interface {
		Save(ctx context.Context, subjectID int64, date time.Time, presentIDs []int64) (int, error)
		Sheet(ctx context.Context, subjectID int64, date time.Time) (Sheet, error)
		StudentRecords(ctx context.Context, studentID, subjectID int64) ([]Record, error)
	}

	service struct {
		repo   Repository
		subSvc subject.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subSvc subject.Service) Service {
	return &service{
		repo:   repo,
		subSvc: subSvc,
	}
}

// ParseDate parses an ISO date; an empty string means today.
func ParseDate(s string) (time.Time, error) {
	s = core.CleanString(s)
	if s == "" {
		return core.Today(), nil
	}
	date, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(errInvalidDate, core.FieldError{Field: "date", Error: errInvalidDate.Error()})
	}
	return date, nil
}

// ParsePresentForm returns the student ids checked as present.
func ParsePresentForm(form url.Values) ([]int64, error) {
	vals := form[PresentField]
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(core.CleanString(v), 10, 64)
		if err != nil || id <= 0 {
			return nil, core.NewValidationError(errInvalidStudent, core.FieldError{Field: PresentField, Error: errInvalidStudent.Error()})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Save replaces the roll call of a subject for date: every currently enrolled student gets one
// record, present when listed in presentIDs. Ids of students not enrolled are ignored.
func (svc *service) Save(ctx context.Context, subjectID int64, date time.Time, presentIDs []int64) (int, error) {
	students, err := svc.subSvc.Students(ctx, subjectID)
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	present := make(map[int64]bool, len(presentIDs))
	for _, id := range presentIDs {
		present[id] = true
	}

	date = core.TruncateDate(date)
	records := make([]Record, 0, len(students))
	for _, s := range students {
		records = append(records, Record{
			StudentID: s.ID,
			SubjectID: subjectID,
			Date:      date,
			Present:   present[s.ID],
		})
	}
	if err = svc.repo.Replace(ctx, subjectID, date, records); err != nil {
		return 0, errors.Wrap(err, "replacing attendance")
	}
	return len(records), nil
}

func (svc *service) Sheet(ctx context.Context, subjectID int64, date time.Time) (Sheet, error) {
	sub, err := svc.subSvc.GetByID(ctx, subjectID)
	if err != nil {
		return Sheet{}, err
	}
	students, err := svc.subSvc.Students(ctx, subjectID)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying students")
	}
	date = core.TruncateDate(date)
	records, err := svc.repo.SubjectRecords(ctx, subjectID, date)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying attendance")
	}
	byStudent := make(map[int64]Record, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}

	sheet := Sheet{Subject: sub, Date: date, Rows: make([]SheetRow, 0, len(students))}
	for _, s := range students {
		r, ok := byStudent[s.ID]
		sheet.Rows = append(sheet.Rows, SheetRow{Student: s, Present: r.Present, Recorded: ok})
	}
	return sheet, nil
}

func (svc *service) StudentRecords(ctx context.Context, studentID, subjectID int64) ([]Record, error) {
	return svc.repo.StudentRecords(ctx, studentID, subjectID)
}
