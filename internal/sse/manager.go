package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snipstash/snipstash-server/internal/id"
	"github.com/snipstash/snipstash-server/internal/metrics"
)

const (
	queueSize         = 1000
	clientBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// Client is one open event stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	UserID      string
}

// Emitter is the write side of the manager, as seen by services.
type Emitter interface {
	Emit(event Event)
}

// Manager fans snippet events out to connected clients. Owner-addressed
// events reach only that owner's streams.
type Manager struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	queue     chan Event
	quit      chan struct{}
	closeQuit sync.Once
	running   sync.WaitGroup
	heartbeat time.Duration
}

// NewManager creates a Manager. Start must run before events flow.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		clients:   make(map[string]*Client),
		queue:     make(chan Event, queueSize),
		quit:      make(chan struct{}),
		heartbeat: heartbeatInterval,
	}
}

// Start runs the broadcast loop until ctx ends or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	m.running.Add(1)
	defer m.running.Done()

	m.logger.Info("SSE manager starting")

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event := <-m.queue:
			m.broadcast(event)
		case <-ticker.C:
			m.broadcast(NewHeartbeatEvent())
		case <-m.quit:
			m.drain()
			m.closeAll()
			return
		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAll()
			return
		}
	}
}

// drain delivers whatever is still queued.
func (m *Manager) drain() {
	for {
		select {
		case event := <-m.queue:
			m.broadcast(event)
		default:
			return
		}
	}
}

// Shutdown stops accepting events and waits for the broadcast loop to
// flush the queue and close every client, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeQuit.Do(func() {
		m.logger.Info("SSE manager shutdown initiated")
		close(m.quit)
	})

	done := make(chan struct{})
	go func() {
		m.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Covers a loop that never started.
		m.closeAll()
		return nil
	case <-ctx.Done():
		m.logger.Warn("SSE drain timed out, queued events lost")
		return ctx.Err()
	}
}

func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var delivered, dropped int
	for _, c := range m.clients {
		if event.UserID != "" && event.UserID != c.UserID {
			continue
		}
		select {
		case c.EventChan <- event:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		metrics.SSEEventsDropped.Add(float64(dropped))
		m.logger.Warn("dropped event for slow clients",
			slog.String("event_type", string(event.Type)),
			slog.Int("dropped", dropped))
	}
	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Int("delivered", delivered))
	}
}

// Connect registers a stream for userID.
func (m *Manager) Connect(userID string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixSSE)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		UserID:      userID,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[clientID] = c
	n := len(m.clients)
	m.mu.Unlock()

	metrics.SSEClients.Inc()
	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
		slog.Int("total_clients", n))
	return c, nil
}

// Disconnect removes a client. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
		closeClient(c)
	}
	n := len(m.clients)
	m.mu.Unlock()

	if !ok {
		return
	}
	metrics.SSEClients.Dec()
	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(c.ConnectedAt)),
		slog.Int("total_clients", n))
}

// Emit queues an event. Events emitted after Shutdown, or while the queue
// is full, are dropped.
func (m *Manager) Emit(event Event) {
	select {
	case <-m.quit:
		return
	default:
	}

	select {
	case m.queue <- event:
	default:
		metrics.SSEEventsDropped.Inc()
		m.logger.Error("SSE queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	n := len(m.clients)
	for _, c := range m.clients {
		closeClient(c)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	metrics.SSEClients.Sub(float64(n))
	m.logger.Info("all SSE clients disconnected", slog.Int("count", n))
}

// closeClient must be called with m.mu held for writing.
func closeClient(c *Client) {
	close(c.Done)
	close(c.EventChan)
}

// NopEmitter discards events.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(Event) {}
