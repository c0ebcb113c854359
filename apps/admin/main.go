package main

import (
	"fmt"
	"os"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	emailsvc "github.com/jorgefranciscopaz/E-Learning-English-Platform/services/email"
	logsvc "github.com/jorgefranciscopaz/E-Learning-English-Platform/services/logger"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database"
	sqlxrepos "github.com/jorgefranciscopaz/E-Learning-English-Platform/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf, "ADMIN")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, emailsvc.NewConsoleService(conf, logger), conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		db.Close()
		logger.Sync()
		os.Exit(1)
	}
}
