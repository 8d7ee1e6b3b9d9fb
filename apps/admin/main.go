package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	emailsvc "github.com/trezcool/escuela/services/email"
	logsvc "github.com/trezcool/escuela/services/logger"
	"github.com/trezcool/escuela/storage/database"
	inmemdb "github.com/trezcool/escuela/storage/database/inmem"
	sqlxrepos "github.com/trezcool/escuela/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	var (
		db       *sql.DB
		usrRepo  user.Repository
		schlRepo school.Repository
	)
	if conf.Database.InMemory() {
		mem := inmemdb.NewDB()
		usrRepo = inmemdb.NewUserRepository(mem)
		schlRepo = inmemdb.NewSchoolRepository(mem)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		sdb, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer sdb.Close()

		db = sdb.DB
		usrRepo = sqlxrepos.NewUserRepository(sdb)
		schlRepo = sqlxrepos.NewSchoolRepository(sdb)
	}

	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleService(conf, logger), conf)

	// start CLI
	cli := commandLine{
		db:        db,
		usrSvc:    usrSvc,
		schoolSvc: school.NewService(schlRepo, usrSvc, access.NewResolver(schlRepo)),
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
