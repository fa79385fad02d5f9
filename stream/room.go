// Package stream broadcasts filter estimates to websocket viewers. A Room
// fans frames published by one estimation loop out to any number of
// connected viewers; a Server exposes a room over HTTP.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/ukf"
)

// A Frame is one broadcast sample: an estimate snapshot stamped with wall
// time. GainNorm is the Frobenius norm of the Kalman gain at that step.
type Frame struct {
	ukf.Estimate
	GainNorm float64   `json:"gain_norm"`
	Time     time.Time `json:"time"`
}

const (
	socketBufferSize = 1024
	// messageBufferSize bounds the per-viewer send queue; frames beyond it
	// are dropped for that viewer rather than stalling the broadcast.
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
}

// A Room owns the set of connected viewers and the broadcast loop feeding
// them. Viewers join by upgrading an HTTP request against the room and leave
// when their connection drops. A room runs once; construct a new one to
// restart.
type Room struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	clients map[*client]bool
	logger  golog.Logger

	statsMu sync.Mutex
	viewers int

	activeBackgroundWorkers sync.WaitGroup
	cancelCtx               context.Context
	cancel                  context.CancelFunc
	mu                      sync.Mutex
	running                 bool
}

// NewRoom makes a room ready to start.
func NewRoom(logger golog.Logger) *Room {
	cancelCtx, cancel := context.WithCancel(context.Background())
	return &Room{
		forward:   make(chan []byte),
		join:      make(chan *client),
		leave:     make(chan *client),
		clients:   make(map[*client]bool),
		logger:    logger,
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
}

// Start launches the broadcast loop.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("room already started")
	}
	if r.cancelCtx.Err() != nil {
		return errors.New("room already stopped; construct a new one")
	}
	r.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(r.run, r.activeBackgroundWorkers.Done)
	r.running = true
	return nil
}

func (r *Room) run() {
	for {
		select {
		case <-r.cancelCtx.Done():
			for cl := range r.clients {
				close(cl.send)
				utils.UncheckedError(cl.socket.Close())
			}
			r.clients = make(map[*client]bool)
			r.setViewers(0)
			return
		case cl := <-r.join:
			r.clients[cl] = true
			r.setViewers(len(r.clients))
			r.logger.Debugw("viewer joined", "viewers", len(r.clients))
		case cl := <-r.leave:
			if _, ok := r.clients[cl]; ok {
				delete(r.clients, cl)
				close(cl.send)
			}
			r.setViewers(len(r.clients))
			r.logger.Debugw("viewer left", "viewers", len(r.clients))
		case msg := <-r.forward:
			for cl := range r.clients {
				select {
				case cl.send <- msg:
				default:
					// viewer is not keeping up, drop the frame
				}
			}
		}
	}
}

// Publish hands a raw message to the broadcast loop. It returns immediately
// when the room has stopped.
func (r *Room) Publish(msg []byte) {
	select {
	case <-r.cancelCtx.Done():
	case r.forward <- msg:
	}
}

// PublishFrame marshals a frame and broadcasts it to all viewers.
func (r *Room) PublishFrame(frame Frame) error {
	msg, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	r.Publish(msg)
	return nil
}

// Viewers returns how many viewers are currently connected.
func (r *Room) Viewers() int {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.viewers
}

func (r *Room) setViewers(n int) {
	r.statsMu.Lock()
	r.viewers = n
	r.statsMu.Unlock()
}

// Stop disconnects all viewers and waits for the broadcast loop to finish.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.logger.Debug("closing estimate stream room")
	r.cancel()
	r.activeBackgroundWorkers.Wait()
	r.running = false
}

// ServeHTTP upgrades the request to a websocket and serves the viewer until
// it disconnects or the room stops.
func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		http.Error(w, "estimate stream is not running", http.StatusServiceUnavailable)
		return
	}

	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	cl := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}
	select {
	case <-r.cancelCtx.Done():
		utils.UncheckedError(socket.Close())
		return
	case r.join <- cl:
	}
	defer func() {
		select {
		case <-r.cancelCtx.Done():
		case r.leave <- cl:
		}
	}()
	utils.PanicCapturingGo(cl.write)
	cl.read()
}

// A client is one connected viewer: a socket plus its outbound frame queue.
type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// read drains inbound traffic until the viewer hangs up. Viewers are not
// expected to send anything; reading is what detects the disconnect.
func (c *client) read() {
	defer utils.UncheckedErrorFunc(c.socket.Close)
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

// write pumps queued frames to the socket until the queue closes.
func (c *client) write() {
	defer utils.UncheckedErrorFunc(c.socket.Close)
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
