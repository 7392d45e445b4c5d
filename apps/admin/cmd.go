package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db          *sqlx.DB
	progressSvc progress.ServiceInterface
	mailSvc     core.EmailService
	out         io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the embedded migrations")
	fmt.Fprintln(cli.out, "  missing -tenant ID [-date YYYY-MM-DD] [-notify EMAILS] - list interventions with no progress log this week")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	missingCmd := flag.NewFlagSet("missing", flag.ContinueOnError)
	missingCmd.SetOutput(cli.out)
	missingTenant := missingCmd.String("tenant", "", "The tenant (school) ID.")
	missingDate := missingCmd.String("date", "", "Any day of the week to check. Defaults to today.")
	missingNotify := missingCmd.String("notify", "", "Comma separated emails to send the report to.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "missing":
		if err := missingCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *missingTenant == "" {
			missingCmd.Usage()
			return errHelp
		}
		var asOf *calendar.Date
		if *missingDate != "" {
			d, err := calendar.Parse(*missingDate)
			if err != nil {
				return err
			}
			asOf = &d
		}
		return cli.missing(*missingTenant, asOf, core.SplitClean(*missingNotify, ","))
	default:
		cli.printUsage()
		return errHelp
	}
}
