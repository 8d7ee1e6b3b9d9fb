package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/escuela/core/debug"
)

// debugContext renders how the caller's access was resolved for this request.
func (s *Server) debugContext(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, debug.Collect(ctx.Request().Context(), s.deps.Resolver, usr.Caller(), usr.Email))
}
