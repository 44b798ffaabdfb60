package dashboard

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

// number of announcements shown on each dashboard
const (
	managerAnnouncements = 4
	recentAnnouncements  = 3
)

type (
	ManagerHome struct {
		Students      int                         `json:"students"`
		Teachers      int                         `json:"teachers"`
		Guardians     int                         `json:"guardians"`
		Subjects      int                         `json:"subjects"`
		Announcements []announcement.Announcement `json:"announcements"`
	}

	TeacherDashboard struct {
		Teacher       user.User                   `json:"teacher"`
		Subjects      []subject.Subject           `json:"subjects"`
		Announcements []announcement.Announcement `json:"announcements"`
	}

	SubjectProgress struct {
		Subject    subject.Subject      `json:"subject"`
		Average    null.Float64         `json:"average"`
		Grades     []grade.StudentGrade `json:"grades"` // by date
		Attendance attendance.Summary   `json:"attendance"`
		Percent    int                  `json:"percent"` // truncated attendance percentage
		Records    []attendance.Record  `json:"records"` // newest first
	}

	// StudentDashboard is built for exactly one student; Student is nil only for a
	// guardian with no linked student.
	StudentDashboard struct {
		Student        *user.User                  `json:"student"`
		Subjects       []SubjectProgress           `json:"subjects"`
		Announcements  []announcement.Announcement `json:"announcements"`
		LinkedStudents []user.User                 `json:"linked_students"` // guardians only
	}

	ReportCardSubject struct {
		Subject     subject.Subject      `json:"subject"`
		Assessments []grade.StudentGrade `json:"assessments"` // by date, ungraded included
		Records     []attendance.Record  `json:"records"`     // by date
		Attendance  attendance.Summary   `json:"attendance"`  // percentage rounded to 2 decimals
	}

	ReportCard struct {
		Student       user.User                   `json:"student"`
		Subjects      []ReportCardSubject         `json:"subjects"`
		Announcements []announcement.Announcement `json:"announcements"`
	}
)
