package echoapi

import (
	"encoding/json"
	"reflect"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
)

const invalidDateText = "must be a date formatted as YYYY-MM-DD"

var dateType = reflect.TypeOf(calendar.Date{})

// bindBody binds the request into dest. A JSON value of the wrong type for its field
// is reported as a field error instead of echo's raw decoder message.
func bindBody(ctx echo.Context, dest interface{}) error {
	err := ctx.Bind(dest)
	if err == nil {
		return nil
	}

	cause := err
	if herr, ok := err.(*echo.HTTPError); ok && herr.Internal != nil {
		cause = herr.Internal
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(cause, &typeErr) && typeErr.Field != "" {
		return core.NewValidationError(nil, core.FieldError{Field: typeErr.Field, Error: typeErrorText(typeErr.Type)})
	}
	return err
}

func typeErrorText(t reflect.Type) string {
	if t == nil {
		return "has an invalid type"
	}
	if t == dateType {
		return invalidDateText
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be a whole number"
	case reflect.String:
		return "must be a string"
	}
	return "has an invalid type"
}

// bindDates parses the optional date query params into dests.
// Every malformed param is reported as a field error.
func bindDates(ctx echo.Context, dests map[string]**calendar.Date) error {
	var flds []core.FieldError
	for param, dest := range dests {
		raw := core.CleanString(ctx.QueryParam(param))
		if raw == "" {
			continue
		}
		d, err := calendar.Parse(raw)
		if err != nil {
			flds = append(flds, core.FieldError{Field: param, Error: invalidDateText})
			continue
		}
		*dest = &d
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
