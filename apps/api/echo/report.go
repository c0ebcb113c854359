package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, deps *Deps) {
	api := reportApi{
		svc:      deps.ReportSvc,
		validate: deps.Validate,
	}

	g.GET("", api.query)
	g.POST("", api.generate)
	g.GET("/:id", api.retrieve)
}

func (api *reportApi) query(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	pagination := new(Pagination)
	pagination.Bind(ctx)
	filter := report.QueryFilter{
		ClassID:   ctx.QueryParam("class_id"),
		StudentID: ctx.QueryParam("student_id"),
	}

	reports, pg, err := api.svc.List(ctx.Request().Context(), actor, filter, ordering.Orderings, pagination.Page)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, ListResponse{Data: reports, Pagination: pg})
}

func (api *reportApi) generate(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}

	var data report.NewReport
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Generate(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "generating report")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	actor, err := getActor(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving report")
	}
	return ctx.JSON(http.StatusOK, r)
}
