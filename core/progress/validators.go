package progress

import (
	"strconv"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

var (
	// custom validation tags & texts
	statusTag  = "progress_status"
	statusText = "must be one of: " + StatusImplemented + ", " + StatusPartial + ", " + StatusNotImplemented + ", " + StatusAbsent

	ratingTag  = "rating_range"
	ratingText = "must be between 1 and 5"

	absentRatingTag  = "absent_rating"
	absentRatingText = "must be empty when the student is absent"

	studentMismatchText = "does not match the intervention's student"

	maxResponseLen = 100
	maxNotesLen    = 5000
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return IsValidStatus(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	core.RegisterCustomTranslation(validate, translator, ratingTag, ratingText)

	core.RegisterCustomTranslation(validate, translator, absentRatingTag, absentRatingText)

	validate.RegisterStructValidation(newEntryStructValidation, NewEntry{})
	validate.RegisterStructValidation(updateEntryStructValidation, UpdateEntry{})
}

type (
	NewEntry struct {
		InterventionID string         `json:"intervention_id" validate:"required"`
		StudentID      string         `json:"student_id" validate:"required"`
		Date           *calendar.Date `json:"date" validate:"required"`
		Status         string         `json:"status" validate:"required,progress_status"`
		Rating         *int           `json:"rating"`
		Response       *string        `json:"response" validate:"omitempty,max=100"`
		Notes          *string        `json:"notes" validate:"omitempty,max=5000"`
		LoggedBy       string         `json:"logged_by" validate:"required"`
	}

	// UpdateEntry changes only the fields present in the payload.
	// The intervention, student and week of an entry never change.
	UpdateEntry struct {
		Status   *string        `json:"status"`
		Rating   OptionalInt    `json:"rating"`
		Response OptionalString `json:"response"`
		Notes    OptionalString `json:"notes"`
		LoggedBy string         `json:"logged_by" validate:"required"`
	}

	NewNote struct {
		StudentID string         `json:"student_id" validate:"required"`
		Kind      string         `json:"kind" validate:"required,oneof=meeting progress"`
		NoteDate  *calendar.Date `json:"note_date" validate:"required"`
		Content   string         `json:"content" validate:"required,max=10000"`
		AuthorID  string         `json:"author_id" validate:"required"`
	}
)

func (ne *NewEntry) clean() {
	ne.InterventionID = core.CleanString(ne.InterventionID)
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.Status = core.CleanString(ne.Status)
	ne.LoggedBy = core.CleanString(ne.LoggedBy)
	ne.Response = cleanStringPtr(ne.Response)
	ne.Notes = cleanStringPtr(ne.Notes)
}

func (ne NewEntry) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

func (ue *UpdateEntry) clean() {
	if ue.Status != nil {
		s := core.CleanString(*ue.Status)
		ue.Status = &s
	}
	ue.LoggedBy = core.CleanString(ue.LoggedBy)
	if ue.Response.Value.Valid {
		ue.Response.Value = cleanNullString(ue.Response.Value.String)
	}
	if ue.Notes.Value.Valid {
		ue.Notes.Value = cleanNullString(ue.Notes.Value.String)
	}
}

func (ue UpdateEntry) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

func (nn *NewNote) clean() {
	nn.StudentID = core.CleanString(nn.StudentID)
	nn.Kind = core.CleanString(nn.Kind, true /* lower */)
	nn.Content = core.CleanString(nn.Content)
	nn.AuthorID = core.CleanString(nn.AuthorID)
}

func (nn NewNote) Validate(validate *validator.Validate) error {
	return validate.Struct(nn)
}

func newEntryStructValidation(sl validator.StructLevel) {
	ne := sl.Current().Interface().(NewEntry)
	if ne.Rating == nil {
		return
	}
	if r := *ne.Rating; !validRating(r) {
		sl.ReportError(r, "rating", "Rating", ratingTag, "")
	} else if ne.Status == StatusAbsent {
		sl.ReportError(r, "rating", "Rating", absentRatingTag, "")
	}
}

func updateEntryStructValidation(sl validator.StructLevel) {
	ue := sl.Current().Interface().(UpdateEntry)
	if ue.Status != nil && !IsValidStatus(*ue.Status) {
		sl.ReportError(*ue.Status, "status", "Status", statusTag, "")
	}
	if ue.Rating.Value.Valid {
		if r := ue.Rating.Value.Int; !validRating(r) {
			sl.ReportError(r, "rating", "Rating", ratingTag, "")
		} else if ue.Status != nil && *ue.Status == StatusAbsent {
			sl.ReportError(r, "rating", "Rating", absentRatingTag, "")
		}
	}
	if ue.Response.Value.Valid && utf8.RuneCountInString(ue.Response.Value.String) > maxResponseLen {
		sl.ReportError(ue.Response.Value.String, "response", "Response", "max", strconv.Itoa(maxResponseLen))
	}
	if ue.Notes.Value.Valid && utf8.RuneCountInString(ue.Notes.Value.String) > maxNotesLen {
		sl.ReportError(ue.Notes.Value.String, "notes", "Notes", "max", strconv.Itoa(maxNotesLen))
	}
}

func cleanStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := core.CleanString(*s)
	if c == "" {
		return nil
	}
	return &c
}

func cleanNullString(s string) null.String {
	c := core.CleanString(s)
	return null.NewString(c, c != "")
}

func validRating(r int) bool { return r >= 1 && r <= 5 }
