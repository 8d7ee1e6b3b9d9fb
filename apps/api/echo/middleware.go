package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

// callerMiddleware re-loads the caller's profile on every request.
func (s *Server) callerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}

		usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
		if err != nil {
			if core.IsNotFound(err) {
				return errUnauthorized
			}
			return errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}

		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// directorMiddleware restricts a route to the director of a school.
func (s *Server) directorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		caller, err := getCaller(ctx)
		if err != nil {
			return err
		}
		if !s.deps.Resolver.CanManageSchool(caller) {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
