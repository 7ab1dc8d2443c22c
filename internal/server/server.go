package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/yasdi2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port             uint
	httpLog          bool
	rootContext      *actor.RootContext
	masterActor      *actor.PID
	requestTimeout   time.Duration
	detectionTimeout time.Duration
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: NewServer.detectionTimeout + 5*time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *Server {
	return &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
		// reads may queue behind a running detection
		requestTimeout:   time.Duration(cfg.Yasdi.DetectionTimeoutSeconds)*time.Second + 5*time.Second,
		detectionTimeout: time.Duration(cfg.Yasdi.DetectionTimeoutSeconds)*time.Second + 10*time.Second,
	}
}
