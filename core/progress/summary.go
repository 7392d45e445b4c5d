package progress

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

const defaultWindowDays = 56

var endBeforeStartText = "must not be before the start date"

// Summarize aggregates a student's progress over [start, end].
// end defaults to today and start to end minus 56 days. Any failing sub-query fails the whole summary.
func (svc *Service) Summarize(ctx context.Context, studentID string, start, end *calendar.Date) (Summary, error) {
	endDate := svc.today()
	if end != nil {
		endDate = *end
	}
	startDate := endDate.AddDays(-defaultWindowDays)
	if start != nil {
		startDate = *start
	}
	if endDate.Before(startDate) {
		return Summary{}, core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: endBeforeStartText})
	}

	student, err := svc.repo.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return Summary{}, errors.Wrap(err, "getting student")
	}

	ivs, err := svc.repo.QueryStudentInterventions(ctx, student.ID, startDate)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying interventions")
	}

	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{StudentID: student.ID, From: startDate, To: endDate})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying entries")
	}
	byIntervention := make(map[string][]LogEntry, len(ivs))
	for _, e := range entries {
		byIntervention[e.InterventionID] = append(byIntervention[e.InterventionID], e)
	}

	notes, err := svc.repo.QueryNotes(ctx, student.ID, startDate, endDate)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []Note{}
	}

	summary := Summary{
		Student:       student,
		StartDate:     startDate,
		EndDate:       endDate,
		Interventions: make([]InterventionSummary, 0, len(ivs)),
		Notes:         notes,
	}
	for _, iv := range ivs {
		summary.Interventions = append(summary.Interventions, summarizeIntervention(iv, byIntervention[iv.ID]))
	}
	return summary, nil
}

// summarizeIntervention expects logs ordered by week.
func summarizeIntervention(iv Intervention, logs []LogEntry) InterventionSummary {
	if logs == nil {
		logs = []LogEntry{}
	}
	is := InterventionSummary{
		Intervention: iv,
		Logs:         logs,
		TotalLogs:    len(logs),
	}

	var sum, rated int
	for _, l := range logs {
		if l.Status == StatusImplemented {
			is.ImplementedCount++
		}
		if l.Rating.Valid {
			sum += l.Rating.Int
			rated++
		}
	}
	if rated > 0 {
		is.AvgRating = null.Float64From(round2(float64(sum) / float64(rated)))
	}
	return is
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
