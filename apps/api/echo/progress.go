package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, deps *Deps) {
	api := progressApi{
		svc:      deps.ProgressSvc,
		validate: deps.Validate,
	}

	g.POST("", api.record)
	g.GET("/my", api.queryMine)
	g.GET("/student/:studentId", api.queryStudent)
	g.GET("/stats", api.myStats)
	g.GET("/stats/:studentId", api.studentStats)
	g.DELETE("/:lessonId", api.reset)
}

// record answers 201 when the row is created and 200 when an existing row is updated.
func (api *progressApi) record(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data progress.RecordProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, created, err := api.svc.Record(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, p)
}

func (api *progressApi) list(ctx echo.Context, studentID string) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	pagination := new(Pagination)
	pagination.Bind(ctx)
	filter := progress.QueryFilter{
		ModuleID:  ctx.QueryParam("module_id"),
		LevelID:   ctx.QueryParam("level_id"),
		Completed: queryBool(ctx, "completed"),
	}

	rows, pg, err := api.svc.ListForStudent(ctx.Request().Context(), actor, studentID, filter, pagination.Page)
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	if rows == nil {
		rows = []progress.Progress{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: rows, Pagination: pg})
}

func (api *progressApi) queryMine(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	return api.list(ctx, actor.ID)
}

func (api *progressApi) queryStudent(ctx echo.Context) error {
	return api.list(ctx, ctx.Param("studentId"))
}

func (api *progressApi) stats(ctx echo.Context, studentID string) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), actor, studentID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *progressApi) myStats(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	return api.stats(ctx, actor.ID)
}

func (api *progressApi) studentStats(ctx echo.Context) error {
	return api.stats(ctx, ctx.Param("studentId"))
}

func (api *progressApi) reset(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Reset(ctx.Request().Context(), actor, ctx.Param("lessonId")); err != nil {
		return errors.Wrap(err, "resetting progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}
