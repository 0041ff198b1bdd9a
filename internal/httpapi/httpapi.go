// Package httpapi exposes the webhook endpoint and a small operations
// surface over echo.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/service/handler"
	"wadigest/internal/service/summarize"
	"wadigest/internal/store"
)

// Server routes gateway webhooks into the dispatch handler and serves the
// operator endpoints.
type Server struct {
	echo      *echo.Echo
	handler   *handler.Handler
	scheduler *summarize.Scheduler
	messages  *store.MessageStore
	groups    *store.GroupStore
	log       waLog.Logger
}

// New creates the server and registers all routes.
func New(h *handler.Handler, sched *summarize.Scheduler, messages *store.MessageStore, groups *store.GroupStore, log waLog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		handler:   h,
		scheduler: sched,
		messages:  messages,
		groups:    groups,
		log:       log.Sub("HTTP"),
	}
	e.POST("/webhook", s.webhook)
	e.GET("/status", s.status)
	e.POST("/summarize/run", s.runSummaries)
	return s
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Infof("Listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// webhook ingests one gateway event. The gateway retries on non-2xx, so
// processing errors are logged and acknowledged anyway; the dedupe guard
// absorbs the redeliveries that still happen.
func (s *Server) webhook(c echo.Context) error {
	var p handler.Payload
	if err := c.Bind(&p); err != nil {
		s.log.Warnf("Malformed webhook payload: %v", err)
		return c.String(http.StatusOK, "ok")
	}
	if p.From != "" {
		if err := s.handler.HandleMessage(c.Request().Context(), &p); err != nil {
			s.log.Errorf("Webhook handling failed: %v", err)
		}
	}
	return c.String(http.StatusOK, "ok")
}

func (s *Server) status(c echo.Context) error {
	msgCount, err := s.messages.Count()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	groupCount, err := s.groups.Count()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"messages": msgCount,
		"groups":   groupCount,
	})
}

// runSummaries kicks off a summary cycle without waiting for the timer.
func (s *Server) runSummaries(c echo.Context) error {
	go func() {
		if err := s.scheduler.Run(context.Background()); err != nil {
			s.log.Errorf("Manual summary run failed: %v", err)
		}
	}()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}
