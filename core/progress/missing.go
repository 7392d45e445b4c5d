package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

// FindMissingThisWeek lists the tenant's active interventions that have no entry for the week
// containing asOf (today when nil). Interventions starting after that week's Monday are skipped,
// as are archived students.
func (svc *Service) FindMissingThisWeek(ctx context.Context, tenantID string, asOf *calendar.Date) (MissingReport, error) {
	tenantID = core.CleanString(tenantID)
	if tenantID == "" {
		return MissingReport{}, core.NewValidationError(nil, core.FieldError{Field: "tenant_id", Error: "this field is required"})
	}

	day := svc.today()
	if asOf != nil {
		day = *asOf
	}
	week := calendar.WeekOf(day)

	missing, err := svc.repo.QueryMissing(ctx, tenantID, week)
	if err != nil {
		return MissingReport{}, errors.Wrap(err, "querying missing logs")
	}
	if missing == nil {
		missing = []MissingLog{}
	}
	return MissingReport{WeekOf: week, Count: len(missing), Missing: missing}, nil
}
