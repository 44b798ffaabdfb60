package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/escola/apps/api/echo"
	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
	emailsvc "github.com/trezcool/escola/services/email"
	logsvc "github.com/trezcool/escola/services/logger"
	"github.com/trezcool/escola/storage/database"
	sqlxrepos "github.com/trezcool/escola/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Translator ut.Translator

	UserSvc         user.Service
	SubjectSvc      subject.Service
	GradeSvc        grade.Service
	AttendanceSvc   attendance.Service
	LessonPlanSvc   lessonplan.Service
	AnnouncementSvc announcement.Service
	DashboardSvc    dashboard.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newServerOptions(p serverParams) *echoapi.Options {
	return &echoapi.Options{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		SubjectSvc:      p.SubjectSvc,
		GradeSvc:        p.GradeSvc,
		AttendanceSvc:   p.AttendanceSvc,
		LessonPlanSvc:   p.LessonPlanSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		DashboardSvc:    p.DashboardSvc,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewSubjectRepository))
	must(c.Provide(sqlxrepos.NewGradeRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(sqlxrepos.NewLessonPlanRepository))
	must(c.Provide(sqlxrepos.NewAnnouncementRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(lessonplan.NewService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
