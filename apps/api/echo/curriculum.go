package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
)

type curriculumApi struct {
	svc      *curriculum.Service
	validate *validator.Validate
}

func registerCurriculumAPI(g *echo.Group, deps *Deps) {
	api := curriculumApi{
		svc:      deps.CurriculumSvc,
		validate: deps.Validate,
	}

	g.GET("/levels", api.queryLevels)
	g.POST("/levels", api.createLevel)
	g.GET("/levels/:id", api.retrieveLevel)
	g.PUT("/levels/:id", api.updateLevel)
	g.DELETE("/levels/:id", api.destroyLevel)

	g.GET("/modules", api.queryModules)
	g.POST("/modules", api.createModule)
	g.GET("/modules/:id", api.retrieveModule)
	g.PUT("/modules/:id", api.updateModule)
	g.DELETE("/modules/:id", api.destroyModule)

	g.GET("/lessons", api.queryLessons)
	g.POST("/lessons", api.createLesson)
	g.GET("/lessons/:id", api.retrieveLesson)
	g.PUT("/lessons/:id", api.updateLesson)
	g.DELETE("/lessons/:id", api.destroyLesson)
}

// Levels

func (api *curriculumApi) queryLevels(ctx echo.Context) error {
	pagination := new(Pagination)
	pagination.Bind(ctx)

	levels, pg, err := api.svc.QueryLevels(ctx.Request().Context(), pagination.Page)
	if err != nil {
		return errors.Wrap(err, "querying levels")
	}
	if levels == nil {
		levels = []curriculum.Level{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: levels, Pagination: pg})
}

func (api *curriculumApi) createLevel(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.NewLevel
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevel")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lvl, err := api.svc.CreateLevel(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating level")
	}
	return ctx.JSON(http.StatusCreated, lvl)
}

func (api *curriculumApi) retrieveLevel(ctx echo.Context) error {
	lvl, err := api.svc.GetLevel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *curriculumApi) updateLevel(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.UpdateLevel
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLevel")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lvl, err := api.svc.UpdateLevel(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *curriculumApi) destroyLevel(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLevel(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Modules

func (api *curriculumApi) queryModules(ctx echo.Context) error {
	pagination := new(Pagination)
	pagination.Bind(ctx)
	filter := curriculum.ModuleFilter{LevelID: ctx.QueryParam("level_id")}

	modules, pg, err := api.svc.QueryModules(ctx.Request().Context(), filter, pagination.Page)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if modules == nil {
		modules = []curriculum.Module{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: modules, Pagination: pg})
}

func (api *curriculumApi) createModule(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.NewModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *curriculumApi) retrieveModule(ctx echo.Context) error {
	mod, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *curriculumApi) updateModule(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.UpdateModule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.UpdateModule(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *curriculumApi) destroyModule(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteModule(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *curriculumApi) queryLessons(ctx echo.Context) error {
	pagination := new(Pagination)
	pagination.Bind(ctx)
	filter := curriculum.LessonFilter{
		ModuleID: ctx.QueryParam("module_id"),
		LevelID:  ctx.QueryParam("level_id"),
	}

	lessons, pg, err := api.svc.QueryLessons(ctx.Request().Context(), filter, pagination.Page)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []curriculum.Lesson{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: lessons, Pagination: pg})
}

func (api *curriculumApi) createLesson(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *curriculumApi) retrieveLesson(ctx echo.Context) error {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *curriculumApi) updateLesson(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data curriculum.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.UpdateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *curriculumApi) destroyLesson(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
