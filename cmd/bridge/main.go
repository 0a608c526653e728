package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"

	"github.com/ucbridge/ha-integration-bridge/internal/actorutil"
	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/controller"
	"github.com/ucbridge/ha-integration-bridge/internal/discovery"
	"github.com/ucbridge/ha-integration-bridge/internal/hubclient"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
	"github.com/ucbridge/ha-integration-bridge/internal/remotesession"
	"github.com/ucbridge/ha-integration-bridge/internal/server"
)

const (
	driverName      = "ha-integration-bridge"
	driverID        = "ha-integration-bridge"
	driverDeveloper = "ucbridge"
	shutdownDrain   = 5 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "./configuration.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print the driver version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(versioninfo.Short())
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("config error", "error", err)
		return 2
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	store := discovery.NewStore(config.DataHome())

	hubProvider := func(hassCfg config.HassConfig, es *eventstream.EventStream) actor.Actor {
		return hubclient.NewHubClientActor(hassCfg, es, logger)
	}
	probeProvider := func(hassCfg config.HassConfig, onResult func(error)) actor.Actor {
		return hubclient.NewProbeActor(hassCfg, logger, onResult)
	}

	controllerProps := actor.PropsFromProducer(func() actor.Actor {
		return controller.NewControllerActor(cfg.Hass, hubProvider, logger)
	})
	controllerPID, err := root.SpawnNamed(controllerProps, controller.ActorID)
	if err != nil {
		logger.Error("spawn controller", zap.Error(err))
		return 1
	}

	meta := integration.DriverMetadata{
		DriverID:  driverID,
		Name:      driverName,
		Version:   versioninfo.Short(),
		Developer: driverDeveloper,
	}

	bridgeServer, httpServer := server.NewServer(cfg.Integration, root, controllerPID, store, remotesession.ProbeProvider(probeProvider), meta, logger)

	port, err := listenPort(cfg.Integration.ListenAddr())
	if err != nil {
		logger.Error("parse integration listen address", zap.Error(err))
		return 1
	}

	advert, err := discovery.Advertise(driverName, meta.Version, driverDeveloper, port, logger)
	if err != nil {
		logger.Warn("mdns advertise failed, continuing without discovery", zap.Error(err))
	}

	done := make(chan struct{})
	go gracefulShutdown(httpServer, bridgeServer, root, controllerPID, advert, logger, done)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("integration server listening", zap.String("addr", httpServer.Addr), zap.Bool("tls", cfg.Integration.TLSEnabled()))
		if cfg.Integration.TLSEnabled() {
			serveErr <- httpServer.ListenAndServeTLS(cfg.Integration.HTTPS.Certificate, cfg.Integration.HTTPS.PrivateKey)
			return
		}
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			<-done
			return 1
		}
	case <-done:
	}

	as.Shutdown()
	logger.Info("shutdown complete")
	return 0
}

func gracefulShutdown(
	httpServer *http.Server,
	bridgeServer *server.Server,
	root *actor.RootContext,
	controllerPID *actor.PID,
	advert *discovery.Advertisement,
	logger *zap.Logger,
	done chan struct{},
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down gracefully")
	advert.Shutdown()

	bridgeServer.CloseSessions(shutdownDrain)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced shutdown", zap.Error(err))
	}

	root.Stop(controllerPID)
	close(done)
}

func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return port, nil
}
