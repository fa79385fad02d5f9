package stream

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ServerConfig holds the listen settings for a stream server.
type ServerConfig struct {
	// Address is the host:port to serve on. Port 0 picks a free port;
	// Address() reports the bound one.
	Address string `json:"address"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ServerConfig) Validate(path string) error {
	if cfg.Address == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "address")
	}
	return nil
}

// A Server exposes one room over HTTP: viewers connect to /estimates and
// receive every published frame as a JSON text message. A server runs once;
// construct a new one to restart.
type Server struct {
	cfg        ServerConfig
	room       *Room
	httpServer *http.Server
	listener   net.Listener
	logger     golog.Logger

	activeBackgroundWorkers sync.WaitGroup
	mu                      sync.Mutex
	running                 bool
}

// NewServer wires a server around a fresh room.
func NewServer(cfg ServerConfig, logger golog.Logger) (*Server, error) {
	if err := cfg.Validate("stream"); err != nil {
		return nil, err
	}
	return &Server{
		cfg:    cfg,
		room:   NewRoom(logger),
		logger: logger,
	}, nil
}

// Room returns the room this server exposes; estimates published to it reach
// all connected viewers.
func (s *Server) Room() *Room {
	return s.room
}

// Address returns the bound listen address, or an empty string before Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener, starts the room, and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("stream server already started")
	}
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errors.Wrap(err, "listening for stream viewers")
	}
	if err := s.room.Start(); err != nil {
		utils.UncheckedError(listener.Close())
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/estimates", s.room)

	s.httpServer = &http.Server{
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Handler:        mux,
	}
	s.logger.Infow("serving estimate stream", "address", listener.Addr().String())
	s.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("stream server failed", "error", err)
		}
	}, s.activeBackgroundWorkers.Done)
	s.running = true
	return nil
}

// Stop refuses new viewers, disconnects the current ones, and waits for the
// serve loop to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.logger.Debug("closing estimate stream server")
	err := s.httpServer.Shutdown(ctx)
	s.room.Stop()
	s.activeBackgroundWorkers.Wait()
	s.running = false
	return err
}
