package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
)

type progressApi struct {
	svc progress.ServiceInterface
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc progress.ServiceInterface) {
	api := progressApi{svc: svc}

	pg := g.Group("/progress", jwt)
	pg.GET("/options", api.options)
	pg.POST("", api.record)
	pg.GET("/missing", api.missing, tenantMiddleware)
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id", api.update)
	pg.DELETE("/:id", api.destroy)

	g.GET("/interventions/:id/progress", api.queryIntervention, jwt)

	sg := g.Group("/students/:id", jwt)
	sg.GET("/progress-summary", api.summary)
	sg.POST("/notes", api.createNote)
}

// Handlers

func (api *progressApi) options(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, progress.GetOptions())
}

func (api *progressApi) record(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data progress.NewEntry
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	data.LoggedBy = id.UserID

	entry, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting progress entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *progressApi) update(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data progress.UpdateEntry
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntry")
	}
	data.LoggedBy = id.UserID

	entry, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *progressApi) destroy(ctx echo.Context) error {
	removed, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	return ctx.JSON(http.StatusOK, removed)
}

func (api *progressApi) queryIntervention(ctx echo.Context) error {
	var q struct {
		WeekOf *calendar.Date
		From   *calendar.Date
		To     *calendar.Date
	}
	if err := bindDates(ctx, map[string]**calendar.Date{"week_of": &q.WeekOf, "from": &q.From, "to": &q.To}); err != nil {
		return err
	}

	if q.WeekOf != nil {
		entry, err := api.svc.GetForWeek(ctx.Request().Context(), ctx.Param("id"), *q.WeekOf)
		if err != nil {
			return errors.Wrap(err, "getting progress for week")
		}
		return ctx.JSON(http.StatusOK, entry)
	}

	entries, err := api.svc.ListForIntervention(ctx.Request().Context(), ctx.Param("id"), q.From, q.To)
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *progressApi) missing(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var asOf *calendar.Date
	if err = bindDates(ctx, map[string]**calendar.Date{"as_of": &asOf}); err != nil {
		return err
	}

	report, err := api.svc.FindMissingThisWeek(ctx.Request().Context(), id.TenantID, asOf)
	if err != nil {
		return errors.Wrap(err, "finding missing logs")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *progressApi) summary(ctx echo.Context) error {
	var start, end *calendar.Date
	if err := bindDates(ctx, map[string]**calendar.Date{"start_date": &start, "end_date": &end}); err != nil {
		return err
	}

	summary, err := api.svc.Summarize(ctx.Request().Context(), ctx.Param("id"), start, end)
	if err != nil {
		return errors.Wrap(err, "summarizing progress")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *progressApi) createNote(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data progress.NewNote
	if err = bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	data.StudentID = ctx.Param("id")
	data.AuthorID = id.UserID

	note, err := api.svc.AddNote(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding note")
	}
	return ctx.JSON(http.StatusCreated, note)
}

