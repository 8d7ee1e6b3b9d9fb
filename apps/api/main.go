package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/escuela/apps/api/echo"
	"github.com/trezcool/escuela/assets"
	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/message"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	emailsvc "github.com/trezcool/escuela/services/email"
	logsvc "github.com/trezcool/escuela/services/logger"
	"github.com/trezcool/escuela/storage/database"
	inmemdb "github.com/trezcool/escuela/storage/database/inmem"
	sqlxrepos "github.com/trezcool/escuela/storage/database/sqlx"
)

type repositories struct {
	users      user.Repository
	schools    school.Repository
	messages   message.Repository
	attendance attendance.Repository
	close      func() error
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
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	resolver := access.NewResolver(repos.schools)
	usrSvc := user.NewService(repos.users, mailSvc, conf)
	schoolSvc := school.NewService(repos.schools, usrSvc, resolver)
	msgSvc := message.NewService(repos.messages, schoolSvc, resolver, mailSvc, conf, logger)
	attSvc := attendance.NewService(repos.attendance, schoolSvc, resolver)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(assets.FS, "templates/email", conf.Debug, logger)

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Resolver:      resolver,
		UserSvc:       usrSvc,
		SchoolSvc:     schoolSvc,
		MessageSvc:    msgSvc,
		AttendanceSvc: attSvc,
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API server.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	http.Handle("/metrics", server.MetricsHandler())
	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go func() {
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

// setUpRepositories returns the in-memory repositories when DATABASE_ENGINE=memory,
// the PostgreSQL ones otherwise.
func setUpRepositories(conf *core.Config) (repositories, error) {
	if conf.Database.InMemory() {
		db := inmemdb.NewDB()
		return repositories{
			users:      inmemdb.NewUserRepository(db),
			schools:    inmemdb.NewSchoolRepository(db),
			messages:   inmemdb.NewMessageRepository(db),
			attendance: inmemdb.NewAttendanceRepository(db),
			close:      func() error { return nil },
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, err
	}
	return repositories{
		users:      sqlxrepos.NewUserRepository(db),
		schools:    sqlxrepos.NewSchoolRepository(db),
		messages:   sqlxrepos.NewMessageRepository(db),
		attendance: sqlxrepos.NewAttendanceRepository(db),
		close:      db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
