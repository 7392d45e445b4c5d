package main

import (
	"context"
	"fmt"
	"net/mail"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

const missingLogsTemplate = "missing_logs"

// missing prints the tenant's interventions with no progress log for the week of asOf,
// and emails the same report to notify when there is anything missing.
func (cli *commandLine) missing(tenantID string, asOf *calendar.Date, notify []string) error {
	recipients := make([]mail.Address, 0, len(notify))
	for _, n := range notify {
		addr, err := mail.ParseAddress(n)
		if err != nil {
			return errors.Wrapf(err, "parsing %q", n)
		}
		recipients = append(recipients, *addr)
	}

	report, err := cli.progressSvc.FindMissingThisWeek(context.Background(), tenantID, asOf)
	if err != nil {
		return errors.Wrap(err, "finding missing logs")
	}

	fmt.Fprintf(cli.out, "Week of %s: %d intervention(s) without a progress log\n", report.WeekOf, report.Count)
	if report.Count > 0 {
		w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STUDENT\tGRADE\tTIER\tINTERVENTION\tSTARTED")
		for _, m := range report.Missing {
			fmt.Fprintf(w, "%s, %s\t%s\t%d\t%s\t%s\n", m.LastName, m.FirstName, m.Grade.String, m.Tier, m.InterventionName, m.StartDate)
		}
		if err = w.Flush(); err != nil {
			return err
		}
	}

	if len(recipients) == 0 || report.Count == 0 {
		return nil
	}
	err = cli.mailSvc.SendMessages(&core.EmailMessage{
		To:           recipients,
		Subject:      fmt.Sprintf("%d missing progress log(s) for the week of %s", report.Count, report.WeekOf),
		TemplateName: missingLogsTemplate,
		TemplateData: report,
	})
	if err != nil {
		return errors.Wrap(err, "emailing missing logs")
	}
	fmt.Fprintf(cli.out, "Emailed %d recipient(s)\n", len(recipients))
	return nil
}
