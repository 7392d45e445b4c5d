package progress

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

var (
	NowFunc = time.Now       // mockable
	NewID   = uuid.NewString // mockable
)

type (
	ServiceInterface interface {
		Record(ctx context.Context, ne NewEntry) (Entry, error)
		Update(ctx context.Context, id string, ue UpdateEntry) (Entry, error)
		Delete(ctx context.Context, id string) (Entry, error)
		Get(ctx context.Context, id string) (Entry, error)
		GetForWeek(ctx context.Context, interventionID string, date calendar.Date) (Entry, error)
		ListForIntervention(ctx context.Context, interventionID string, from, to *calendar.Date) ([]LogEntry, error)
		FindMissingThisWeek(ctx context.Context, tenantID string, asOf *calendar.Date) (MissingReport, error)
		Summarize(ctx context.Context, studentID string, start, end *calendar.Date) (Summary, error)
		AddNote(ctx context.Context, nn NewNote) (Note, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		loc        *time.Location
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		validate:   validate,
		translator: translator,
		loc:        conf.Location(),
	}
}

// today is the current calendar day in the school's timezone.
func (svc *Service) today() calendar.Date {
	return calendar.Today(NowFunc(), svc.loc)
}

func (svc *Service) validationError(err error) error {
	return core.TranslateValidationErrors(err, svc.translator)
}

// Record stores the progress of an intervention for the week containing ne.Date.
// A second submission for the same week overwrites the first one.
func (svc *Service) Record(ctx context.Context, ne NewEntry) (Entry, error) {
	ne.clean()
	if err := ne.Validate(svc.validate); err != nil {
		return Entry{}, svc.validationError(err)
	}

	iv, err := svc.repo.GetIntervention(ctx, ne.InterventionID)
	if err != nil {
		return Entry{}, errors.Wrap(err, "getting intervention")
	}
	if iv.StudentID != ne.StudentID {
		return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: studentMismatchText})
	}

	now := NowFunc().UTC()
	entry := Entry{
		ID:             NewID(),
		InterventionID: ne.InterventionID,
		StudentID:      ne.StudentID,
		WeekOf:         calendar.WeekOf(*ne.Date),
		Status:         ne.Status,
		Rating:         null.IntFromPtr(ne.Rating),
		Response:       null.StringFromPtr(ne.Response),
		Notes:          null.StringFromPtr(ne.Notes),
		LoggedBy:       ne.LoggedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry, err = svc.repo.UpsertEntry(ctx, entry)
	if err != nil {
		return Entry{}, errors.Wrap(err, "upserting entry")
	}
	return entry, nil
}

// Update changes the fields present in ue. Switching to Student Absent clears the rating
// unless ue sets one, which is rejected.
func (svc *Service) Update(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	ue.clean()
	if err := ue.Validate(svc.validate); err != nil {
		return Entry{}, svc.validationError(err)
	}

	var updated Entry
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		entry, err := svc.repo.GetEntry(ctx, core.CleanString(id), tx)
		if err != nil {
			return errors.Wrap(err, "getting entry")
		}

		if ue.Status != nil {
			entry.Status = *ue.Status
		}
		if ue.Rating.Set {
			entry.Rating = ue.Rating.Value
		} else if entry.Status == StatusAbsent {
			entry.Rating = null.Int{}
		}
		if ue.Response.Set {
			entry.Response = ue.Response.Value
		}
		if ue.Notes.Set {
			entry.Notes = ue.Notes.Value
		}
		if entry.Status == StatusAbsent && entry.Rating.Valid {
			return core.NewValidationError(nil, core.FieldError{Field: "rating", Error: absentRatingText})
		}
		entry.LoggedBy = ue.LoggedBy
		entry.UpdatedAt = NowFunc().UTC()

		updated, err = svc.repo.UpdateEntry(ctx, entry, tx)
		return errors.Wrap(err, "updating entry")
	})
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// Delete removes the entry and returns it.
func (svc *Service) Delete(ctx context.Context, id string) (Entry, error) {
	var removed Entry
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		removed, err = svc.repo.DeleteEntry(ctx, core.CleanString(id), tx)
		return errors.Wrap(err, "deleting entry")
	})
	if err != nil {
		return Entry{}, err
	}
	return removed, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	entry, err := svc.repo.GetEntry(ctx, core.CleanString(id))
	if err != nil {
		return Entry{}, errors.Wrap(err, "getting entry")
	}
	return entry, nil
}

// GetForWeek returns the intervention's entry for the week containing date.
func (svc *Service) GetForWeek(ctx context.Context, interventionID string, date calendar.Date) (Entry, error) {
	entry, err := svc.repo.GetEntryForWeek(ctx, core.CleanString(interventionID), calendar.WeekOf(date))
	if err != nil {
		return Entry{}, errors.Wrap(err, "getting entry for week")
	}
	return entry, nil
}

// ListForIntervention returns the intervention's entries, week ascending.
// from and to are optional bounds; from includes the whole week it falls in.
func (svc *Service) ListForIntervention(ctx context.Context, interventionID string, from, to *calendar.Date) ([]LogEntry, error) {
	iv, err := svc.repo.GetIntervention(ctx, core.CleanString(interventionID))
	if err != nil {
		return nil, errors.Wrap(err, "getting intervention")
	}

	filter := EntryFilter{InterventionID: iv.ID}
	if from != nil {
		filter.From = calendar.WeekOf(*from)
	}
	if to != nil {
		filter.To = *to
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: endBeforeStartText})
	}

	entries, err := svc.repo.QueryEntries(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	return entries, nil
}

func (svc *Service) AddNote(ctx context.Context, nn NewNote) (Note, error) {
	nn.clean()
	if err := nn.Validate(svc.validate); err != nil {
		return Note{}, svc.validationError(err)
	}
	if _, err := svc.repo.GetStudent(ctx, nn.StudentID); err != nil {
		return Note{}, errors.Wrap(err, "getting student")
	}

	note, err := svc.repo.CreateNote(ctx, Note{
		ID:        NewID(),
		StudentID: nn.StudentID,
		Kind:      nn.Kind,
		NoteDate:  *nn.NoteDate,
		Content:   nn.Content,
		AuthorID:  nn.AuthorID,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Note{}, errors.Wrap(err, "creating note")
	}
	return note, nil
}
