package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core/group"
)

type groupApi struct {
	svc      *group.Service
	validate *validator.Validate
}

func registerGroupAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *group.Service, validate *validator.Validate) {
	api := groupApi{svc: svc, validate: validate}

	gg := g.Group("/groups", authed...)
	gg.GET("", api.query)
	gg.POST("", api.replace, teacherMiddleware())
	gg.POST("/generate", api.generate, teacherMiddleware())
}

// Handlers

func (api *groupApi) query(ctx echo.Context) error {
	groups, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) replace(ctx echo.Context) error {
	var data group.ReplaceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplaceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	groups, err := api.svc.Replace(ctx.Request().Context(), data.Groups)
	if err != nil {
		return errors.Wrap(err, "replacing groups")
	}
	return ctx.JSON(http.StatusCreated, groups)
}

func (api *groupApi) generate(ctx echo.Context) error {
	var data group.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	groups, err := api.svc.Generate(ctx.Request().Context(), data.GroupSize)
	if err != nil {
		return errors.Wrap(err, "generating groups")
	}
	return ctx.JSON(http.StatusCreated, groups)
}
