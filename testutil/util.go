package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/volatiletech/null/v8"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/storage/database"
)

// PrepareDB returns a fresh, migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return prepareDB(t, core.NewTestConfig())
}

// PrepareFileDB is like PrepareDB but backs the database with a file in a temp dir,
// so that it can serve several connections at once.
func PrepareFileDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Name = filepath.Join(t.TempDir(), "tiertrak.db")
	return prepareDB(t, conf)
}

func prepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	goose.SetLogger(goose.NopLogger())

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom rule and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	progress.InitValidators(validate, translator)
	return validate, translator
}

// Date parses a "YYYY-MM-DD" string, failing the test if it is invalid.
func Date(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.Parse(s)
	if err != nil {
		t.Fatalf("Date(%q) failed: %v", s, err)
	}
	return d
}

// DatePtr is like Date but returns a pointer.
func DatePtr(t *testing.T, s string) *calendar.Date {
	t.Helper()
	d := Date(t, s)
	return &d
}

// FreezeTime makes progress.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	orig := progress.NowFunc
	progress.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { progress.NowFunc = orig })
}

func exec(t *testing.T, db *sqlx.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(db.Rebind(query), args...); err != nil {
		t.Fatalf("exec(%s) failed: %v", query, err)
	}
}

func CreateTenant(t *testing.T, db *sqlx.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	exec(t, db, "INSERT INTO tenants (id, name) VALUES (?, ?)", id, name)
	return id
}

func CreateUser(t *testing.T, db *sqlx.DB, tenantID, name string) string {
	t.Helper()
	id := uuid.NewString()
	exec(t, db, "INSERT INTO users (id, tenant_id, name) VALUES (?, ?, ?)", id, tenantID, name)
	return id
}

func CreateStudent(t *testing.T, db *sqlx.DB, tenantID, firstName, lastName string, archived bool) progress.Student {
	t.Helper()
	s := progress.Student{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		FirstName:  firstName,
		LastName:   lastName,
		Grade:      null.StringFrom("5"),
		Tier:       2,
		IsArchived: archived,
	}
	exec(t, db,
		"INSERT INTO students (id, tenant_id, first_name, last_name, grade, tier, is_archived) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.ID, s.TenantID, s.FirstName, s.LastName, s.Grade, s.Tier, s.IsArchived,
	)
	return s
}

// CreateIntervention inserts an intervention. An empty status means active.
func CreateIntervention(
	t *testing.T,
	db *sqlx.DB,
	studentID, name string,
	start calendar.Date,
	status string,
	end *calendar.Date,
) progress.Intervention {
	t.Helper()
	if status == "" {
		status = progress.InterventionActive
	}
	iv := progress.Intervention{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Name:      name,
		Goal:      null.StringFrom("Read 90 wpm"),
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	var endVal interface{}
	if end != nil {
		endVal = *end
	}
	exec(t, db,
		"INSERT INTO interventions (id, student_id, name, goal, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		iv.ID, iv.StudentID, iv.Name, iv.Goal, iv.StartDate, endVal, iv.Status,
	)
	return iv
}

func CreateNote(
	t *testing.T,
	repo progress.Repository,
	studentID, kind string,
	date calendar.Date,
	content, authorID string,
	createdAt time.Time,
) progress.Note {
	t.Helper()
	note, err := repo.CreateNote(context.Background(), progress.Note{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Kind:      kind,
		NoteDate:  date,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}
	return note
}

// CreateEntry records progress through the repository, bypassing the service rules.
func CreateEntry(t *testing.T, repo progress.Repository, iv progress.Intervention, week calendar.Date, status string, rating *int, loggedBy string) progress.Entry {
	t.Helper()
	now := time.Now().UTC()
	entry, err := repo.UpsertEntry(context.Background(), progress.Entry{
		ID:             uuid.NewString(),
		InterventionID: iv.ID,
		StudentID:      iv.StudentID,
		WeekOf:         calendar.WeekOf(week),
		Status:         status,
		Rating:         null.IntFromPtr(rating),
		LoggedBy:       loggedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return entry
}

func IntPtr(i int) *int { return &i }
