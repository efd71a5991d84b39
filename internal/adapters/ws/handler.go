// Package ws bridges browser clients to game loops over websockets.
//
// The browser runs the camera and pose estimation and streams one frame
// message per video frame. Each connection owns one engine loop; replies
// leave through a bounded outbox drained by a single dispatcher, the only
// goroutine that writes data frames to the socket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/bodytap/internal/adapters/mq/queue"
	"github.com/okian/bodytap/internal/adapters/mq/worker"
	"github.com/okian/bodytap/internal/domain/model"
	"github.com/okian/bodytap/internal/domain/pose"
	"github.com/okian/bodytap/internal/domain/session"
	"github.com/okian/bodytap/internal/engine"
	"github.com/okian/bodytap/pkg/logger"
	"github.com/okian/bodytap/pkg/metrics"
)

const (
	defaultOutboxSize   = 256
	defaultEventReserve = 32
	defaultReadLimit    = 1 << 20
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second
)

// Registry tracks live sessions.
type Registry interface {
	// Open admits a new session and returns its id.
	Open(ctx context.Context) (string, error)
	// Update records the latest state of a session.
	Update(id string, st session.State)
	// Close forgets a session.
	Close(id string)
}

// Handler upgrades requests to websockets and runs one game per connection.
type Handler struct {
	registry Registry
	base     engine.Settings
	upgrader websocket.Upgrader

	outboxSize   int
	eventReserve int
	readLimit    int64
	writeTimeout time.Duration
	pongWait     time.Duration
	seed         *int64

	logger logger.Logger
}

// NewHandler creates a handler whose games start from base settings.
func NewHandler(reg Registry, base engine.Settings, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		base:     base,
		upgrader: websocket.Upgrader{
			// The page is served from the same binary; any origin may play.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		outboxSize:   defaultOutboxSize,
		eventReserve: defaultEventReserve,
		readLimit:    defaultReadLimit,
		writeTimeout: defaultWriteTimeout,
		pongWait:     defaultPongWait,
		logger:       logger.Get().Named("ws"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(h)
	}

	// Scenes always keep at least half of the outbox.
	h.eventReserve = min(h.eventReserve, h.outboxSize/2)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Warn(r.Context(), "upgrade failed", logger.Error(err))
		metrics.RecordErrorByComponent("ws", "upgrade")
		return
	}
	defer conn.Close()

	h.serve(context.WithoutCancel(r.Context()), conn)
}

func (h *Handler) serve(parent context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	conn.SetReadLimit(h.readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	settings, first, err := h.readStart(conn)
	if err != nil {
		h.reject(conn, err)
		return
	}

	id, err := h.registry.Open(ctx)
	if err != nil {
		metrics.RecordSessionRejected()
		h.reject(conn, err)
		return
	}
	defer h.registry.Close(id)

	log := h.logger.With(logger.String("session", id))
	c := newClient(id, conn, h.registry, h.outboxSize, h.eventReserve, h.writeTimeout, log)

	dispatcher := worker.NewDispatcher(c.outbox, worker.SenderFunc(c.send),
		worker.WithName("ws"), worker.WithLogger(log))
	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			// The client is unreachable; stop the game.
			cancel()
		}
	}()

	opts := []engine.Option{
		engine.WithEstimator(ClientEstimator{}),
		engine.WithExecutor(engine.InlineExecutor),
		engine.WithRenderer(c),
		engine.WithListener(c),
		engine.WithLogger(log),
	}
	if h.seed != nil {
		opts = append(opts, engine.WithSeed(*h.seed))
	}
	loop, err := engine.New(settings, opts...)
	if err != nil {
		// Settings were validated while reading the start message.
		log.Error(ctx, "build loop", logger.Error(err))
		c.push(ctx, TypeError, ErrorData{Message: err.Error()})
		h.finish(c, dispatcher)
		return
	}

	metrics.RecordSessionStarted()
	defer metrics.RecordSessionClosed()
	log.Info(ctx, "session opened",
		logger.String("region", string(settings.Region)),
		logger.String("difficulty", string(settings.Difficulty)),
	)
	c.push(ctx, TypeSession, SessionData{ID: id, Settings: settings})

	mailbox := NewMailbox()
	if first != nil {
		mailbox.Put(*first)
	}
	go h.read(ctx, conn, mailbox, c)
	go h.ping(ctx, conn)

	if err := loop.Run(ctx, mailbox); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn(ctx, "loop stopped", logger.Error(err))
	}
	mailbox.Close()
	if err := loop.Close(); err != nil {
		log.Warn(ctx, "close loop", logger.Error(err))
	}

	// The dispatcher still runs under ctx so the final messages go out.
	h.finish(c, dispatcher)
	cancel()
	log.Info(ctx, "session closed",
		logger.Int("score", loop.State().Score),
		logger.Int("dropped_frames", int(mailbox.Dropped())),
	)
}

// finish drains the outbox and says goodbye. The dispatcher's context must
// still be live for the drain to happen.
func (h *Handler) finish(c *client, d *worker.Dispatcher) {
	_ = c.outbox.Close()
	select {
	case <-d.Done():
	case <-time.After(h.writeTimeout):
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(h.writeTimeout))
}

// readStart reads the opening message and derives the game settings. A
// frame may open the connection directly; it then plays with the defaults
// and is returned for the loop.
func (h *Handler) readStart(conn *websocket.Conn) (engine.Settings, *engine.Frame, error) {
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		return engine.Settings{}, nil, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}

	switch env.Type {
	case TypeStart:
		var start StartMessage
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &start); err != nil {
				return engine.Settings{}, nil, fmt.Errorf("%w: %w", ErrInvalidStart, err)
			}
		}
		s, err := h.settings(start)
		return s, nil, err
	case TypeFrame:
		var fm FrameMessage
		if err := json.Unmarshal(env.Data, &fm); err != nil {
			return engine.Settings{}, nil, fmt.Errorf("%w: %w", ErrInvalidStart, err)
		}
		f := fm.Frame()
		s, err := h.settings(StartMessage{})
		return s, &f, err
	default:
		return engine.Settings{}, nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func (h *Handler) settings(start StartMessage) (engine.Settings, error) {
	s := h.base
	if start.Region != "" {
		s.Region = pose.Region(strings.ToLower(start.Region))
		if !s.Region.Valid() {
			return engine.Settings{}, fmt.Errorf("%w: region %q", ErrInvalidStart, start.Region)
		}
	}
	if start.Difficulty != "" {
		d, err := model.ParseDifficulty(start.Difficulty)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
		}
		s.Difficulty = d
	}
	if start.SessionSeconds < 0 {
		return engine.Settings{}, fmt.Errorf("%w: session_seconds %d", ErrInvalidStart, start.SessionSeconds)
	}
	if start.SessionSeconds > 0 {
		s.SessionDuration = time.Duration(start.SessionSeconds) * time.Second
	}
	if err := s.Validate(); err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	return s, nil
}

// read feeds frames into the mailbox until the client goes away.
func (h *Handler) read(ctx context.Context, conn *websocket.Conn, mb *Mailbox, c *client) {
	defer mb.Close()
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(ctx, "read stopped", logger.Error(err))
			}
			return
		}

		switch env.Type {
		case TypeFrame:
			var fm FrameMessage
			if err := json.Unmarshal(env.Data, &fm); err != nil {
				metrics.RecordErrorByComponent("ws", "decode")
				c.push(ctx, TypeError, ErrorData{Message: fmt.Sprintf("bad frame: %v", err)})
				continue
			}
			if !mb.Put(fm.Frame()) {
				return
			}
		case TypeStart:
			c.push(ctx, TypeError, ErrorData{Message: ErrAlreadyStarted.Error()})
		default:
			metrics.RecordErrorByComponent("ws", "unknown_type")
			c.push(ctx, TypeError, ErrorData{Message: fmt.Sprintf("%v: %q", ErrUnknownMessage, env.Type)})
		}
	}
}

// ping keeps the connection alive while the game runs.
func (h *Handler) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pongWait * 9 / 20)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}

// reject tells the client why it cannot play and closes politely.
func (h *Handler) reject(conn *websocket.Conn, err error) {
	h.logger.Warn(context.Background(), "connection rejected", logger.Error(err))
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	_ = conn.WriteJSON(queue.Message{Type: TypeError, Data: ErrorData{Message: err.Error()}})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""),
		time.Now().Add(h.writeTimeout))
}

// client is one connected player. Renderer and Listener calls come from the
// loop goroutine; send runs on the dispatcher.
type client struct {
	id       string
	conn     *websocket.Conn
	registry Registry
	outbox   *queue.InMemoryQueue
	timeout  time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	dropped int
}

func newClient(id string, conn *websocket.Conn, reg Registry, size, reserve int, timeout time.Duration, log logger.Logger) *client {
	return &client{
		id:       id,
		conn:     conn,
		registry: reg,
		outbox:   queue.NewInMemoryQueue(queue.WithCapacity(size), queue.WithReserve(reserve)),
		timeout:  timeout,
		logger:   log,
	}
}

// push queues one message without blocking. Scenes are droppable since the
// next frame replaces them; every other type may use the reserved slots.
func (c *client) push(ctx context.Context, typ string, data any) {
	m := queue.Message{Type: typ, Session: c.id, Data: data, Droppable: typ == TypeScene}
	if c.outbox.Enqueue(ctx, m) {
		return
	}
	c.mu.Lock()
	c.dropped++
	n := c.dropped
	c.mu.Unlock()
	if n == 1 || n%100 == 0 {
		c.logger.Warn(ctx, "outbox full, dropping", logger.String("type", typ), logger.Int("dropped", n))
	}
}

func (c *client) send(_ context.Context, m queue.Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(m)
}

// Render implements engine.Renderer.
func (c *client) Render(ctx context.Context, s engine.Scene) {
	c.registry.Update(c.id, s.State)
	c.push(ctx, TypeScene, sceneData(s, time.Now()))
}

// OnHit implements session.Listener.
func (c *client) OnHit(score int) {
	c.push(context.Background(), TypeHit, ValueData{Value: score})
}

// OnCountdownTick implements session.Listener.
func (c *client) OnCountdownTick(value int) {
	c.push(context.Background(), TypeCountdown, ValueData{Value: value})
}

// OnSessionEnd implements session.Listener.
func (c *client) OnSessionEnd(final int) {
	c.push(context.Background(), TypeEnd, ValueData{Value: final})
}
