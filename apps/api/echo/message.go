package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/message"
)

func (s *Server) registerMessageAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	tg := g.Group("/threads", authed...)
	tg.GET("", s.listThreads)
	tg.POST("", s.createThread)
	tg.GET("/:id", s.retrieveThread)
	tg.POST("/:id/messages", s.postMessage)
}

// listThreads reads ?selector=all|general|<classroom ID>, defaulting to all.
func (s *Server) listThreads(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	selector := ctx.QueryParam("selector")
	if selector == "" {
		selector = message.SelectAll
	}

	threads, err := s.deps.MessageSvc.List(ctx.Request().Context(), caller, selector)
	if err != nil {
		return errors.Wrap(err, "listing threads")
	}
	return ctx.JSON(http.StatusOK, threads)
}

func (s *Server) createThread(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data message.NewThread
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewThread")
	}

	thread, err := s.deps.MessageSvc.Create(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, thread)
}

func (s *Server) retrieveThread(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	detail, err := s.deps.MessageSvc.Get(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *Server) postMessage(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data message.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}

	msg, err := s.deps.MessageSvc.Post(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}
