package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
	emailsvc "github.com/mmarronetravels-sudo/tiertrak-sub001/services/email"
	logsvc "github.com/mmarronetravels-sudo/tiertrak-sub001/services/logger"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/storage/database"
	sqlxrepos "github.com/mmarronetravels-sudo/tiertrak-sub001/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	ctx := context.Background()
	errAndDie(logger, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer db.Close()
	errAndDie(logger, db.PingContext(ctx))

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	progress.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	repo := sqlxrepos.NewProgressRepository(db)

	// start CLI
	cli := commandLine{
		db:          db,
		progressSvc: progress.NewService(db, repo, validate, translator, conf),
		mailSvc:     mailSvc,
		out:         os.Stdout,
	}
	err = cli.run(os.Args)
	logger.Flush()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
