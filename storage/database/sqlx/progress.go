package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
)

const (
	entryColumns = "id, intervention_id, student_id, week_of, status, rating, response, notes, logged_by, created_at, updated_at"

	logEntrySelect = `
SELECT p.id, p.intervention_id, p.student_id, p.week_of, p.status, p.rating, p.response, p.notes,
       p.logged_by, COALESCE(u.name, p.logged_by) AS logged_by_name, p.created_at, p.updated_at
FROM progress_entries p
LEFT JOIN users u ON u.id = p.logged_by`

	interventionSelect = "SELECT id, student_id, name, goal, start_date, end_date, status FROM interventions"

	noteSelect = `
SELECT n.id, n.student_id, n.kind, n.note_date, n.content, n.author_id,
       COALESCE(u.name, n.author_id) AS author_name, n.created_at
FROM meeting_notes n
LEFT JOIN users u ON u.id = n.author_id`
)

type progressRepository struct {
	exec core.DBExecutor
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{exec: exec}
}

func (repo progressRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// get runs a single-row query, mapping sql.ErrNoRows to a core.NotFoundError for entity.
func get(ctx context.Context, exec core.DBExecutor, dest interface{}, entity, id, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, exec, dest, exec.Rebind(query), args...)
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewNotFoundError(entity, id)
	}
	return core.NewStorageError("getting "+entity, err)
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, op, query string, args ...interface{}) error {
	if err := sqlx.SelectContext(ctx, exec, dest, exec.Rebind(query), args...); err != nil {
		return core.NewStorageError(op, err)
	}
	return nil
}

func (repo progressRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (progress.Student, error) {
	var s progress.Student
	q := "SELECT id, tenant_id, first_name, last_name, grade, tier, is_archived FROM students WHERE id = ?"
	err := get(ctx, repo.getExec(exec), &s, "student", id, q, id)
	return s, err
}

func (repo progressRepository) GetIntervention(ctx context.Context, id string, exec ...core.DBExecutor) (progress.Intervention, error) {
	var iv progress.Intervention
	err := get(ctx, repo.getExec(exec), &iv, "intervention", id, interventionSelect+" WHERE id = ?", id)
	return iv, err
}

func (repo progressRepository) QueryStudentInterventions(
	ctx context.Context,
	studentID string,
	endedSince calendar.Date,
	exec ...core.DBExecutor,
) ([]progress.Intervention, error) {
	ivs := make([]progress.Intervention, 0)
	q := interventionSelect + `
WHERE student_id = ? AND (status = ? OR (end_date IS NOT NULL AND end_date >= ?))
ORDER BY start_date, name, id`
	err := selectAll(ctx, repo.getExec(exec), &ivs, "querying interventions", q, studentID, progress.InterventionActive, endedSince)
	return ivs, err
}

func (repo progressRepository) UpsertEntry(ctx context.Context, entry progress.Entry, exec ...core.DBExecutor) (progress.Entry, error) {
	q := `
INSERT INTO progress_entries (` + entryColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (intervention_id, week_of) DO UPDATE SET
    status = excluded.status,
    rating = excluded.rating,
    response = excluded.response,
    notes = excluded.notes,
    logged_by = excluded.logged_by,
    updated_at = excluded.updated_at
RETURNING id`

	e := repo.getExec(exec)
	var id string
	err := sqlx.GetContext(ctx, e, &id, e.Rebind(q),
		entry.ID, entry.InterventionID, entry.StudentID, entry.WeekOf, entry.Status,
		entry.Rating, entry.Response, entry.Notes, entry.LoggedBy, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return progress.Entry{}, core.NewStorageError("upserting progress entry", err)
	}
	return repo.GetEntry(ctx, id, e)
}

func (repo progressRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (progress.Entry, error) {
	var entry progress.Entry
	q := "SELECT " + entryColumns + " FROM progress_entries WHERE id = ?"
	err := get(ctx, repo.getExec(exec), &entry, "progress entry", id, q, id)
	return entry, err
}

func (repo progressRepository) GetEntryForWeek(
	ctx context.Context,
	interventionID string,
	weekOf calendar.Date,
	exec ...core.DBExecutor,
) (progress.Entry, error) {
	var entry progress.Entry
	q := "SELECT " + entryColumns + " FROM progress_entries WHERE intervention_id = ? AND week_of = ?"
	err := get(ctx, repo.getExec(exec), &entry, "progress entry", interventionID+"@"+weekOf.String(), q, interventionID, weekOf)
	return entry, err
}

func (repo progressRepository) QueryEntries(ctx context.Context, filter progress.EntryFilter, exec ...core.DBExecutor) ([]progress.LogEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.InterventionID != "" {
		where = append(where, "p.intervention_id = ?")
		args = append(args, filter.InterventionID)
	}
	if filter.StudentID != "" {
		where = append(where, "p.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if !filter.From.IsZero() {
		where = append(where, "p.week_of >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		where = append(where, "p.week_of <= ?")
		args = append(args, filter.To)
	}

	q := logEntrySelect
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY p.intervention_id, p.week_of"

	entries := make([]progress.LogEntry, 0)
	err := selectAll(ctx, repo.getExec(exec), &entries, "querying progress entries", q, args...)
	return entries, err
}

func (repo progressRepository) UpdateEntry(ctx context.Context, entry progress.Entry, exec ...core.DBExecutor) (progress.Entry, error) {
	q := `
UPDATE progress_entries
SET status = ?, rating = ?, response = ?, notes = ?, logged_by = ?, updated_at = ?
WHERE id = ?`

	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(q),
		entry.Status, entry.Rating, entry.Response, entry.Notes, entry.LoggedBy, entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return progress.Entry{}, core.NewStorageError("updating progress entry", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return progress.Entry{}, core.NewStorageError("updating progress entry", err)
	} else if n == 0 {
		return progress.Entry{}, core.NewNotFoundError("progress entry", entry.ID)
	}
	return repo.GetEntry(ctx, entry.ID, e)
}

// DeleteEntry removes the entry and returns it. Pass a transaction to make the read and
// the delete atomic.
func (repo progressRepository) DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) (progress.Entry, error) {
	e := repo.getExec(exec)
	removed, err := repo.GetEntry(ctx, id, e)
	if err != nil {
		return progress.Entry{}, err
	}

	res, err := e.ExecContext(ctx, e.Rebind("DELETE FROM progress_entries WHERE id = ?"), id)
	if err != nil {
		return progress.Entry{}, core.NewStorageError("deleting progress entry", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return progress.Entry{}, core.NewStorageError("deleting progress entry", err)
	} else if n == 0 {
		return progress.Entry{}, core.NewNotFoundError("progress entry", id)
	}
	return removed, nil
}

func (repo progressRepository) QueryMissing(
	ctx context.Context,
	tenantID string,
	weekOf calendar.Date,
	exec ...core.DBExecutor,
) ([]progress.MissingLog, error) {
	q := `
SELECT i.id AS intervention_id, i.name AS intervention_name, i.start_date,
       s.id AS student_id, s.first_name, s.last_name, s.grade, s.tier
FROM interventions i
JOIN students s ON s.id = i.student_id
WHERE s.tenant_id = ?
  AND NOT s.is_archived
  AND i.status = ?
  AND i.start_date <= ?
  AND NOT EXISTS (
      SELECT 1 FROM progress_entries p
      WHERE p.intervention_id = i.id AND p.week_of = ?
  )
ORDER BY s.last_name, s.first_name, i.name, i.id`

	missing := make([]progress.MissingLog, 0)
	err := selectAll(ctx, repo.getExec(exec), &missing, "querying missing logs", q,
		tenantID, progress.InterventionActive, weekOf, weekOf,
	)
	return missing, err
}

func (repo progressRepository) CreateNote(ctx context.Context, note progress.Note, exec ...core.DBExecutor) (progress.Note, error) {
	e := repo.getExec(exec)
	q := `
INSERT INTO meeting_notes (id, student_id, kind, note_date, content, author_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := e.ExecContext(ctx, e.Rebind(q),
		note.ID, note.StudentID, note.Kind, note.NoteDate, note.Content, note.AuthorID, note.CreatedAt,
	)
	if err != nil {
		return progress.Note{}, core.NewStorageError("inserting note", err)
	}

	var stored progress.Note
	err = get(ctx, e, &stored, "note", note.ID, noteSelect+"\nWHERE n.id = ?", note.ID)
	return stored, err
}

func (repo progressRepository) QueryNotes(
	ctx context.Context,
	studentID string,
	from, to calendar.Date,
	exec ...core.DBExecutor,
) ([]progress.Note, error) {
	q := noteSelect + `
WHERE n.student_id = ? AND n.note_date >= ? AND n.note_date <= ?
ORDER BY n.note_date DESC, n.created_at DESC, n.id`

	notes := make([]progress.Note, 0)
	err := selectAll(ctx, repo.getExec(exec), &notes, "querying notes", q, studentID, from, to)
	return notes, err
}
