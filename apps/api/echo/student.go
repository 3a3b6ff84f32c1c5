package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core/group"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

var (
	errStudentNotFound  = echo.NewHTTPError(http.StatusNotFound, student.ErrNotFound.Error())
	errStNotFoundInCtx  = errors.New("student object not found in echo.Context")
	errUsrNotFoundInCtx = errors.New("user not found in echo.Context")
)

type studentApi struct {
	svc      *student.Service
	groupSvc *group.Service
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc *student.Service,
	groupSvc *group.Service,
	validate *validator.Validate,
) {
	api := studentApi{
		svc:      svc,
		groupSvc: groupSvc,
		validate: validate,
	}

	sg := g.Group("/students", authed...)
	sg.GET("", api.query)
	sg.POST("", api.create, teacherMiddleware())
	sg.GET("/me", api.me)

	// detail endpoints
	dg := sg.Group("/:id", ctxStudentMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
}

// ProfileResponse is what a Student sees of themselves.
type ProfileResponse struct {
	Student student.Student `json:"student"`
	group.Membership
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := bindStudentFilter(ctx)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) me(ctx echo.Context) error {
	usr, ok := ctx.Get(contextUserKey).(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving user from context")
	}

	st, err := api.svc.GetForUser(ctx.Request().Context(), usr)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errStudentNotFound
		}
		return errors.Wrap(err, "finding student by user")
	}

	m, err := api.groupSvc.MembershipOf(ctx.Request().Context(), st)
	if err != nil {
		return errors.Wrap(err, "finding membership")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{Student: st, Membership: m})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.Update(ctx.Request().Context(), st.ID, data)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errStudentNotFound
		}
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), st.ID); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errStudentNotFound
		}
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, okResponse{OK: true})
}
