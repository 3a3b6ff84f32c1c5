package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/user"
)

type aiApi struct {
	svc      *group.Service
	logger   core.Logger
	validate *validator.Validate
}

func registerAIAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc *group.Service,
	logger core.Logger,
	validate *validator.Validate,
) {
	api := aiApi{svc: svc, logger: logger, validate: validate}

	ag := g.Group("/ai", append(authed, teacherMiddleware())...)
	ag.POST("/refine-groups", api.refineGroups)
}

// refineGroups annotates the groups proposed by the client. Nothing is saved.
func (api *aiApi) refineGroups(ctx echo.Context) error {
	var data group.RefineRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefineRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notes, err := api.svc.Refine(ctx.Request().Context(), data.Students, data.Groups)
	if err != nil {
		switch errors.Cause(err) {
		case group.ErrAnnotatorNotConfigured:
			return echo.NewHTTPError(http.StatusServiceUnavailable, group.ErrAnnotatorNotConfigured.Error())
		default:
			usr, _ := ctx.Get(contextUserKey).(user.User)
			api.logger.Error(fmt.Sprintf("refining groups: %v", err), err, usr)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if notes == nil {
		notes = map[string]string{}
	}
	return ctx.JSON(http.StatusOK, notes)
}
