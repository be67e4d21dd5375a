package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/user"
)

type authApi struct {
	svc      user.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.Service, validate *validator.Validate) {
	api := authApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	tg := ag.Group("", jwt)
	tg.GET("/verify", api.verify)
	tg.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{Token: token, User: usr})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, claims, err := authenticate(ctx, data.Identifier, data.Password, data.Role, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: usr})
}

// verify confirms the bearer token and returns the live account behind it.
func (api *authApi) verify(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsActive {
		return user.ErrAccountDeactivated
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Identifier string    `json:"identifier" validate:"required"`
		Password   string    `json:"password" validate:"required"`
		Role       user.Role `json:"role" validate:"omitempty,userrole"`
	}

	AuthResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Identifier = core.CleanString(lr.Identifier, true /* lower */)
	lr.Role = user.Role(core.CleanString(string(lr.Role), true /* lower */))
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
