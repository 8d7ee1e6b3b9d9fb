package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (s *Server) registerUserAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", s.login)
	ug.POST("/password-reset", s.requestPasswordReset)
	ug.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.POST("/token-refresh", s.refreshTokenHandler)
	ag.GET("/me", s.me)
	ag.GET("/roles", s.roles)
	ag.GET("", s.queryUsers, s.directorMiddleware)
}

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	rctx := ctx.Request().Context()
	usr, err := s.deps.UserSvc.Authenticate(rctx, data.Email, data.Password)
	if err != nil {
		if errorIsInvalidCredentials(err) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating user")
	}

	token, err := s.generateToken(s.userClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	if _, err = s.deps.UserSvc.SetLastLogin(rctx, usr); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) refreshTokenHandler(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// requestPasswordReset answers the same whether the email is known or not.
func (s *Server) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "We have emailed you instructions for setting your password, " +
			"if an account exists with the email you entered.",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if _, err := s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your password has been reset."})
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) roles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, access.RoleOptions)
}

// queryUsers lists the profiles of the director's school.
func (s *Server) queryUsers(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}

	filter := user.QueryFilter{
		SchoolID: caller.SchoolID,
		Search:   ctx.QueryParam("search"),
	}
	for _, r := range ctx.QueryParams()["role"] {
		if role := access.ParseRole(r); role != access.RoleUnknown {
			filter.Roles = append(filter.Roles, role)
		}
	}
	if active, perr := strconv.ParseBool(ctx.QueryParam("is_active")); perr == nil {
		filter.IsActive = &active
	}

	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}
