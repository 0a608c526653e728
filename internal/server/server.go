// Package server builds the integration-facing HTTP server: the
// /healthcheck route and the /ws WebSocket upgrade endpoint each
// accepted connection's remote session actor is spawned from.
package server

import (
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/discovery"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
	"github.com/ucbridge/ha-integration-bridge/internal/remotesession"
)

type Server struct {
	cfg           config.IntegrationConfig
	rootContext   *actor.RootContext
	controller    *actor.PID
	store         *discovery.Store
	probeProvider remotesession.ProbeProvider
	meta          integration.DriverMetadata
	logger        *zap.Logger

	sessions *sessionRegistry
}

func NewServer(
	cfg config.IntegrationConfig,
	rootContext *actor.RootContext,
	controller *actor.PID,
	store *discovery.Store,
	probeProvider remotesession.ProbeProvider,
	meta integration.DriverMetadata,
	logger *zap.Logger,
) (*Server, *http.Server) {
	s := &Server{
		cfg:           cfg,
		rootContext:   rootContext,
		controller:    controller,
		store:         store,
		probeProvider: probeProvider,
		meta:          meta,
		logger:        logger,
		sessions:      newSessionRegistry(),
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, httpServer
}

// CloseSessions broadcasts Closing to every live remote session,
// called from cmd/bridge/main.go's graceful shutdown before the
// listener stops accepting new connections.
func (s *Server) CloseSessions(drain time.Duration) {
	deadline := time.Now().Add(drain)
	for _, pid := range s.sessions.snapshot() {
		s.rootContext.Stop(pid)
	}
	for time.Now().Before(deadline) && s.sessions.count() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
}
