package server

import (
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/domain"
	"github.com/ucbridge/ha-integration-bridge/internal/remotesession"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.cfg.HTTPLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/ws", s.WebSocketHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controller, domain.HealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.HealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// WebSocketHandler upgrades the connection and spawns one remote
// session actor per accepted socket (spec.md §4.4).
func (s *Server) WebSocketHandler(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return err
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return remotesession.NewSessionActor(conn, s.controller, s.store, s.probeProvider, s.meta, s.logger)
	})
	pid := s.rootContext.Spawn(props)
	s.sessions.add(pid)
	s.rootContext.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &sessionWatcher{registry: s.sessions, target: pid}
	}))

	return nil
}
