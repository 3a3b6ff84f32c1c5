package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
)

const contextObjectKey = "object"

// userMiddleware loads the User the token was issued to. It must run after the JWT middleware.
func userMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextUser(ctx, svc); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// teacherMiddleware must run after userMiddleware.
func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, ok := ctx.Get(contextUserKey).(user.User)
			if !ok {
				return errUserNotFound
			}
			if !usr.IsTeacher() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// ctxStudentMiddleware sets the Student identified by the `id` path param as the context object.
func ctxStudentMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					return errStudentNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set(contextObjectKey, st)
			return next(ctx)
		}
	}
}
