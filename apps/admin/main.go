package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
	appfs "github.com/trezcool/escola/fs"
	emailsvc "github.com/trezcool/escola/services/email"
	"github.com/trezcool/escola/storage/database"
	sqlxrepos "github.com/trezcool/escola/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	errAndDie(core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false))
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.New(conf, core.StdLogger{Std: logger})

	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(conf, usrRepo, mailSvc, validate)
	subSvc := subject.NewService(sqlxrepos.NewSubjectRepository(db), usrSvc, validate)

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  usrRepo,
		usrSvc:   usrSvc,
		subSvc:   subSvc,
		gradeSvc: grade.NewService(sqlxrepos.NewGradeRepository(db), subSvc, validate),
		attSvc:   attendance.NewService(sqlxrepos.NewAttendanceRepository(db), subSvc),
		planSvc:  lessonplan.NewService(sqlxrepos.NewLessonPlanRepository(db), validate),
		annSvc:   announcement.NewService(sqlxrepos.NewAnnouncementRepository(db), validate),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			if flds := core.FieldErrors(err, translator); flds != nil {
				for _, f := range flds {
					logger.Printf("%s: %s", f.Field, f.Error)
				}
			}
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
