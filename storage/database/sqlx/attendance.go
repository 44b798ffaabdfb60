package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/attendance"
)

var attendanceColumns = []string{"student_id", "subject_id", "date", "present"}

type attendanceRepository struct {
	db core.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Replace(ctx context.Context, subjectID int64, date time.Time, records []attendance.Record) error {
	delQ, delArgs, err := psql.Delete("attendance").
		Where(sq.Eq{"subject_id": subjectID, "date": date}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	return inTx(ctx, repo.db, func(exec core.DBExecutor) error {
		if _, err := exec.ExecContext(ctx, delQ, delArgs...); err != nil {
			return errors.Wrap(err, "deleting attendance")
		}
		if len(records) == 0 {
			return nil
		}

		b := psql.Insert("attendance").Columns(attendanceColumns...)
		for _, r := range records {
			b = b.Values(r.StudentID, r.SubjectID, r.Date, r.Present)
		}
		q, args, err := b.ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = exec.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "inserting attendance")
		}
		return nil
	})
}

func (repo *attendanceRepository) selectMany(ctx context.Context, b sq.SelectBuilder) ([]attendance.Record, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	records := make([]attendance.Record, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &records, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	for i := range records {
		records[i].Date = core.TruncateDate(records[i].Date)
	}
	return records, nil
}

func (repo *attendanceRepository) SubjectRecords(ctx context.Context, subjectID int64, date time.Time) ([]attendance.Record, error) {
	b := psql.Select(attendanceColumns...).
		From("attendance").
		Where(sq.Eq{"subject_id": subjectID, "date": date}).
		OrderBy("student_id")
	return repo.selectMany(ctx, b)
}

func (repo *attendanceRepository) StudentRecords(ctx context.Context, studentID, subjectID int64) ([]attendance.Record, error) {
	b := psql.Select(attendanceColumns...).
		From("attendance").
		Where(sq.Eq{"student_id": studentID, "subject_id": subjectID}).
		OrderBy("date")
	return repo.selectMany(ctx, b)
}
