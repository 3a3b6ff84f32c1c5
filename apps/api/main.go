package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/kikundi/apps/api/echo"
	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
	annotationsvc "github.com/trezcool/kikundi/services/annotation"
	emailsvc "github.com/trezcool/kikundi/services/email"
	logsvc "github.com/trezcool/kikundi/services/logger"
	"github.com/trezcool/kikundi/storage/database"
	dummydb "github.com/trezcool/kikundi/storage/database/dummy"
	pgrepos "github.com/trezcool/kikundi/storage/database/postgres"
)

type repositories struct {
	users    user.Repository
	students student.Repository
	groups   group.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	var repos repositories
	if conf.Database.InMemory() {
		logger.Warn("using the in-memory store: data is lost on restart")
		db := dummydb.Open()
		repos = repositories{
			users:    dummydb.NewUserRepository(db),
			students: dummydb.NewStudentRepository(db),
			groups:   dummydb.NewGroupRepository(db),
		}
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repos = repositories{
			users:    pgrepos.NewUserRepository(db),
			students: pgrepos.NewStudentRepository(db),
			groups:   pgrepos.NewGroupRepository(db),
		}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	var annotator group.Annotator
	if gemini, err := annotationsvc.NewGeminiAnnotator(context.Background(), conf); err == nil {
		annotator = gemini
		defer func() { _ = gemini.Close() }()
	} else {
		logger.Warn(fmt.Sprintf("group annotation disabled: %v", err))
	}

	usrSvc := user.NewService(repos.users, conf)
	stSvc := student.NewService(repos.students, repos.users, conf)
	grpSvc := group.NewService(
		group.Deps{
			Repo:      repos.groups,
			Students:  stSvc,
			Annotator: annotator,
			Mailer:    mailSvc,
			Logger:    logger,
		},
		conf,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	created, err := usrSvc.EnsureTeacher(context.Background(), user.NewUser{
		Name:     conf.Bootstrap.TeacherName,
		Email:    conf.Bootstrap.TeacherEmail,
		Password: conf.Bootstrap.TeacherPassword,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("bootstrapping teacher: %v", err), err)
	}
	if created {
		logger.Info(fmt.Sprintf("Default teacher created: %s", conf.Bootstrap.TeacherEmail))
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			StudentSvc: stSvc,
			GroupSvc:   grpSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
