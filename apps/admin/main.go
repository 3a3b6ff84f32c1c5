package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/user"
	logsvc "github.com/trezcool/kikundi/services/logger"
	"github.com/trezcool/kikundi/storage/database"
	pgrepos "github.com/trezcool/kikundi/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	if conf.Database.InMemory() {
		logger.Fatal("the admin CLI requires a postgres database")
	}

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(pgrepos.NewUserRepository(db), conf),
		conf:   conf,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()

	if err != nil {
		if errors.Cause(err) != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
