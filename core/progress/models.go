package progress

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

const (
	InterventionActive   = "active"
	InterventionInactive = "inactive"

	NoteMeeting  = "meeting"
	NoteProgress = "progress"
)

type (
	// Entry is one weekly progress log for an intervention.
	// There is at most one Entry per (InterventionID, WeekOf).
	Entry struct {
		ID             string        `json:"id" db:"id"`
		InterventionID string        `json:"intervention_id" db:"intervention_id"`
		StudentID      string        `json:"student_id" db:"student_id"`
		WeekOf         calendar.Date `json:"week_of" db:"week_of"`
		Status         string        `json:"status" db:"status"`
		Rating         null.Int      `json:"rating" db:"rating"`
		Response       null.String   `json:"response" db:"response"`
		Notes          null.String   `json:"notes" db:"notes"`
		LoggedBy       string        `json:"logged_by" db:"logged_by"`
		CreatedAt      time.Time     `json:"created_at" db:"created_at"`
		UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	}

	// LogEntry is an Entry decorated with the display name of whoever logged it.
	LogEntry struct {
		Entry
		LoggedByName string `json:"logged_by_name" db:"logged_by_name"`
	}

	Intervention struct {
		ID        string         `json:"id" db:"id"`
		StudentID string         `json:"student_id" db:"student_id"`
		Name      string         `json:"name" db:"name"`
		Goal      null.String    `json:"goal" db:"goal"`
		StartDate calendar.Date  `json:"start_date" db:"start_date"`
		EndDate   *calendar.Date `json:"end_date" db:"end_date"`
		Status    string         `json:"status" db:"status"`
	}

	Student struct {
		ID         string      `json:"id" db:"id"`
		TenantID   string      `json:"tenant_id" db:"tenant_id"`
		FirstName  string      `json:"first_name" db:"first_name"`
		LastName   string      `json:"last_name" db:"last_name"`
		Grade      null.String `json:"grade" db:"grade"`
		Tier       int         `json:"tier" db:"tier"`
		IsArchived bool        `json:"is_archived" db:"is_archived"`
	}

	Note struct {
		ID         string        `json:"id" db:"id"`
		StudentID  string        `json:"student_id" db:"student_id"`
		Kind       string        `json:"kind" db:"kind"`
		NoteDate   calendar.Date `json:"note_date" db:"note_date"`
		Content    string        `json:"content" db:"content"`
		AuthorID   string        `json:"author_id" db:"author_id"`
		AuthorName string        `json:"author_name" db:"author_name"`
		CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	}

	// MissingLog is an active intervention with no Entry for the current week.
	MissingLog struct {
		InterventionID   string        `json:"intervention_id" db:"intervention_id"`
		InterventionName string        `json:"intervention_name" db:"intervention_name"`
		StartDate        calendar.Date `json:"start_date" db:"start_date"`
		StudentID        string        `json:"student_id" db:"student_id"`
		FirstName        string        `json:"first_name" db:"first_name"`
		LastName         string        `json:"last_name" db:"last_name"`
		Grade            null.String   `json:"grade" db:"grade"`
		Tier             int           `json:"tier" db:"tier"`
	}

	MissingReport struct {
		WeekOf  calendar.Date `json:"week_of"`
		Count   int           `json:"count"`
		Missing []MissingLog  `json:"missing"`
	}

	InterventionSummary struct {
		Intervention
		Logs             []LogEntry   `json:"logs"`
		AvgRating        null.Float64 `json:"avg_rating"`
		TotalLogs        int          `json:"total_logs"`
		ImplementedCount int          `json:"implemented_count"`
	}

	Summary struct {
		Student       Student               `json:"student"`
		StartDate     calendar.Date         `json:"start_date"`
		EndDate       calendar.Date         `json:"end_date"`
		Interventions []InterventionSummary `json:"interventions"`
		Notes         []Note                `json:"notes"`
	}

	// EntryFilter narrows entry listings. Zero fields are ignored.
	EntryFilter struct {
		InterventionID string
		StudentID      string
		From           calendar.Date
		To             calendar.Date
	}

	Repository interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetIntervention(ctx context.Context, id string, exec ...core.DBExecutor) (Intervention, error)
		// QueryStudentInterventions returns the student's interventions that are active,
		// or that ended on or after endedSince, ordered by start date then name.
		QueryStudentInterventions(ctx context.Context, studentID string, endedSince calendar.Date, exec ...core.DBExecutor) ([]Intervention, error)

		// UpsertEntry inserts the entry, or replaces the status, rating, response, notes, logged_by
		// and updated_at of the existing entry with the same (intervention_id, week_of).
		UpsertEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		GetEntryForWeek(ctx context.Context, interventionID string, weekOf calendar.Date, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries returns matching entries ordered by intervention then week.
		QueryEntries(ctx context.Context, filter EntryFilter, exec ...core.DBExecutor) ([]LogEntry, error)
		UpdateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)

		// QueryMissing returns the tenant's active, started interventions of non-archived students
		// with no entry for weekOf, ordered by last name, first name, intervention name.
		QueryMissing(ctx context.Context, tenantID string, weekOf calendar.Date, exec ...core.DBExecutor) ([]MissingLog, error)

		CreateNote(ctx context.Context, note Note, exec ...core.DBExecutor) (Note, error)
		// QueryNotes returns the student's notes dated within [from, to], newest first.
		QueryNotes(ctx context.Context, studentID string, from, to calendar.Date, exec ...core.DBExecutor) ([]Note, error)
	}
)
