package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/user"
)

type authApi struct {
	svc      *user.Service
	validate *validator.Validate
	secret   string
	conf     *core.Config
}

func registerAuthAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	conf *core.Config,
	svc *user.Service,
	validate *validator.Validate,
) {
	api := authApi{
		svc:      svc,
		validate: validate,
		secret:   conf.SecretKey,
		conf:     conf,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.GET("/me", api.me, authed...)
}

type (
	LoginResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}
)

func (api *authApi) respondWithToken(ctx echo.Context, usr user.User) error {
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.secret)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{User: usr, Token: token})
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == user.ErrAuthenticationFailed {
			return errLoginFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	return api.respondWithToken(ctx, usr)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return api.respondWithToken(ctx, usr)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
