// Package actorutil holds small helpers shared by every actor in the
// bridge: message stashing while an actor is mid-transition, actor-system
// bootstrap, and per-actor logging.
package actorutil

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

// NewActorSystemWithZapLogger builds a protoactor ActorSystem whose
// internal diagnostic log lines (dead-letter warnings, supervisor
// decisions, mailbox stats) are routed through the same zap sink the
// rest of the process uses, via a tint-formatted slog bridge.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	slogLevel := slog.LevelInfo
	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.DPanicLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

// ActorLogger tags a logger with the actor's name, following the same
// "actor" field every actor in this bridge logs under.
func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}
