package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/attendance"
)

func (s *Server) registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	ag := g.Group("/attendance", authed...)
	ag.GET("/:classroomId/:date", s.roster)
	ag.PUT("/:classroomId/:date", s.saveAttendance)

	rg := g.Group("/reports/attendance", authed...)
	rg.GET("/classrooms/:id", s.classroomReport)
	rg.GET("/students/:id", s.studentReport)
}

func (s *Server) roster(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	roster, err := s.deps.AttendanceSvc.Roster(ctx.Request().Context(), caller, ctx.Param("classroomId"), ctx.Param("date"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, roster)
}

// saveAttendance stores the marks and answers with the updated roster.
func (s *Server) saveAttendance(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data attendance.SaveInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveInput")
	}

	rctx := ctx.Request().Context()
	classroomID, date := ctx.Param("classroomId"), ctx.Param("date")
	if err = s.deps.AttendanceSvc.Save(rctx, caller, classroomID, date, data); err != nil {
		return err
	}
	roster, err := s.deps.AttendanceSvc.Roster(rctx, caller, classroomID, date)
	if err != nil {
		return errors.Wrap(err, "getting roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (s *Server) classroomReport(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	report, err := s.deps.AttendanceSvc.DailyReport(
		ctx.Request().Context(), caller, ctx.Param("id"), ctx.QueryParam("from"), ctx.QueryParam("to"),
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (s *Server) studentReport(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	report, err := s.deps.AttendanceSvc.MonthlyReport(ctx.Request().Context(), caller, ctx.Param("id"), ctx.QueryParam("month"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}
