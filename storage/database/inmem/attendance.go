package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/escola/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Replace(_ context.Context, subjectID int64, date time.Time, records []attendance.Record) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for k := range repo.db.attendance {
		if k.subjectID == subjectID && k.date.Equal(date) {
			delete(repo.db.attendance, k)
		}
	}
	for _, r := range records {
		r := r
		repo.db.attendance[attKey{studentID: r.StudentID, subjectID: r.SubjectID, date: r.Date}] = &r
	}
	return nil
}

func (repo *attendanceRepository) SubjectRecords(_ context.Context, subjectID int64, date time.Time) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0)
	for k, r := range repo.db.attendance {
		if k.subjectID == subjectID && k.date.Equal(date) {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StudentID < records[j].StudentID })
	return records, nil
}

func (repo *attendanceRepository) StudentRecords(_ context.Context, studentID, subjectID int64) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0)
	for k, r := range repo.db.attendance {
		if k.studentID == studentID && k.subjectID == subjectID {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}
