package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

type DashboardResponse struct {
	User   user.User      `json:"user"`
	School *school.School `json:"school,omitempty"`
	Counts school.Counts  `json:"counts"`
}

func (s *Server) registerSchoolAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	g.GET("/dashboard", s.dashboard, authed...)

	cg := g.Group("/classrooms", authed...)
	cg.GET("", s.listClassrooms)
	cg.POST("", s.createClassroom, s.directorMiddleware)
	cg.GET("/:id", s.retrieveClassroom)
	cg.PUT("/:id", s.updateClassroom, s.directorMiddleware)

	sg := g.Group("/students", authed...)
	sg.GET("", s.listStudents)
	sg.POST("", s.createStudent, s.directorMiddleware)
	sg.PUT("/:id", s.updateStudent, s.directorMiddleware)

	director := append(append([]echo.MiddlewareFunc{}, authed...), s.directorMiddleware)
	g.POST("/enrollments", s.enroll, director...)
	g.GET("/assignments", s.listAssignments, director...)
	g.POST("/assignments", s.assignTeacher, director...)
	g.GET("/guardians", s.listGuardianLinks, director...)
	g.POST("/guardians", s.linkGuardian, director...)
}

func (s *Server) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	resp := DashboardResponse{User: usr}
	if usr.SchoolID != "" {
		sch, err := s.deps.SchoolSvc.GetSchool(rctx, usr.SchoolID)
		if err != nil {
			return errors.Wrap(err, "getting school")
		}
		resp.School = &sch
	}
	if resp.Counts, err = s.deps.SchoolSvc.Counts(rctx, usr.Caller()); err != nil {
		return errors.Wrap(err, "counting scope")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) listClassrooms(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	classrooms, err := s.deps.SchoolSvc.ListClassrooms(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (s *Server) retrieveClassroom(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	cls, err := s.deps.SchoolSvc.GetClassroom(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *Server) createClassroom(ctx echo.Context) error {
	return s.saveClassroom(ctx, "", http.StatusCreated)
}

func (s *Server) updateClassroom(ctx echo.Context) error {
	return s.saveClassroom(ctx, ctx.Param("id"), http.StatusOK)
}

func (s *Server) saveClassroom(ctx echo.Context, id string, code int) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data school.ClassroomInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassroomInput")
	}
	data.ID = id

	cls, err := s.deps.SchoolSvc.SaveClassroom(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(code, cls)
}

// listStudents accepts an optional ?classroom= narrowing the listing.
func (s *Server) listStudents(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	students, err := s.deps.SchoolSvc.ListStudents(ctx.Request().Context(), caller, ctx.QueryParam("classroom"))
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *Server) createStudent(ctx echo.Context) error {
	return s.saveStudent(ctx, "", http.StatusCreated)
}

func (s *Server) updateStudent(ctx echo.Context) error {
	return s.saveStudent(ctx, ctx.Param("id"), http.StatusOK)
}

func (s *Server) saveStudent(ctx echo.Context, id string, code int) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data school.StudentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentInput")
	}
	data.ID = id

	st, err := s.deps.SchoolSvc.SaveStudent(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(code, st)
}

func (s *Server) enroll(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data school.EnrollmentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentInput")
	}
	enr, err := s.deps.SchoolSvc.Enroll(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (s *Server) listAssignments(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	assignments, err := s.deps.SchoolSvc.ListAssignments(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (s *Server) assignTeacher(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data school.AssignmentInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentInput")
	}
	assignment, err := s.deps.SchoolSvc.AssignTeacher(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, assignment)
}

func (s *Server) listGuardianLinks(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	links, err := s.deps.SchoolSvc.ListGuardianLinks(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing guardian links")
	}
	return ctx.JSON(http.StatusOK, links)
}

func (s *Server) linkGuardian(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data school.GuardianLinkInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuardianLinkInput")
	}
	link, err := s.deps.SchoolSvc.LinkGuardian(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, link)
}
