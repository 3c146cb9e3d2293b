package stream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/buffer"
)

// TapKind is the kind id of Tap
const TapKind = "stream.websocket_tap"

const (
	defaultTapAddr   = "127.0.0.1:8765"
	defaultTapPath   = "/ws"
	clientQueueSize  = 64
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
	shutdownTimeout  = 5 * time.Second
	clientGaugeName  = "clients_connected"
	messageCountName = "messages_sent"
)

// TapConfig is the persisted configuration of Tap
type TapConfig struct {
	Label string `json:"label" schema:"type:string,description:Window label,category:basic"`
	Addr  string `json:"addr" schema:"type:string,description:Listen address,default:127.0.0.1:8765,category:basic"`
	Path  string `json:"path" schema:"type:string,description:WebSocket endpoint path,default:/ws"`
}

// Tap broadcasts every payload it receives to connected WebSocket clients
type Tap struct {
	*component.Base

	addr     string
	path     string
	upgrader websocket.Upgrader
	metrics  *metric.MetricsRegistry
	clientsG prometheus.Gauge
	sentC    prometheus.Counter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	shutdown chan struct{}
	wg       sync.WaitGroup

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	sent    atomic.Int64
	dropped atomic.Int64
}

type client struct {
	conn      *websocket.Conn
	queue     buffer.Buffer[[]byte]
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// NewTap is the factory for TapKind. The listener opens in Start.
func NewTap(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	cfg := TapConfig{Addr: defaultTapAddr, Path: defaultTapPath}
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultTapAddr
	}
	if cfg.Path == "" || cfg.Path[0] != '/' {
		cfg.Path = "/" + cfg.Path
	}

	t := &Tap{
		addr: cfg.Addr,
		path: cfg.Path,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		metrics: deps.MetricsRegistry,
		clients: make(map[*websocket.Conn]*client),
	}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        TapKind,
		DisplayName: "WebSocket tap",
		Label:       cfg.Label,
		Outputs:     component.NoOutputs,
		Accepts:     component.AllPortTypes(),
		Persist: func() map[string]any {
			return map[string]any{"addr": t.addr, "path": t.path}
		},
	}, deps)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddElement("status"); err != nil {
		_ = b.Close()
		return nil, err
	}
	t.Base = b
	b.OnClose(t.stop)
	return t, nil
}

// Start opens the listener and serves the WebSocket endpoint until the
// module closes or ctx ends.
func (t *Tap) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return errors.WrapTransient(err, "Tap", "Start", "listen on "+t.addr)
	}
	t.registerMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc(t.path, t.handleWebSocket)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	t.listener = ln
	t.shutdown = make(chan struct{})

	t.wg.Add(2)
	go t.serve(t.server, ln)
	go t.maintain(ctx, t.shutdown)

	t.Logger().Info("WebSocket tap listening", "addr", ln.Addr().String(), "path", t.path)
	return nil
}

func (t *Tap) registerMetrics() {
	if t.metrics == nil {
		return
	}
	labels := prometheus.Labels{"module_id": t.ID()}
	t.clientsG = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "visionflow", Subsystem: "websocket_tap", Name: clientGaugeName,
		Help: "Connected WebSocket clients", ConstLabels: labels,
	})
	t.sentC = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "visionflow", Subsystem: "websocket_tap", Name: messageCountName + "_total",
		Help: "Messages written to WebSocket clients", ConstLabels: labels,
	})
	if err := t.metrics.RegisterGauge(t.serviceName(), clientGaugeName, t.clientsG); err != nil {
		t.Logger().Warn("Client gauge not registered", "error", err)
		t.clientsG = nil
	}
	if err := t.metrics.RegisterCounter(t.serviceName(), messageCountName, t.sentC); err != nil {
		t.Logger().Warn("Message counter not registered", "error", err)
		t.sentC = nil
	}
}

func (t *Tap) serviceName() string { return "websocket_tap_" + t.ID() }

func (t *Tap) serve(server *http.Server, ln net.Listener) {
	defer t.wg.Done()
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		t.Logger().Error("WebSocket tap server failed", "error", err)
		t.metrics.CoreMetrics().RecordError(TapKind, "serve")
	}
}

// maintain pings clients so dead connections are noticed
func (t *Tap) maintain(ctx context.Context, shutdown chan struct{}) {
	defer t.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-shutdown:
			return
		case <-ticker.C:
			for _, c := range t.snapshot() {
				c.writeMu.Lock()
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := c.conn.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
				if err != nil {
					t.removeClient(c)
				}
			}
		}
	}
}

func (t *Tap) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.Logger().Debug("WebSocket upgrade failed", "error", err)
		return
	}
	queue, err := buffer.NewCircularBuffer[[]byte](clientQueueSize,
		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
		buffer.WithDropCallback[[]byte](func([]byte) { t.dropped.Add(1) }),
	)
	if err != nil {
		_ = conn.Close()
		return
	}

	c := &client{conn: conn, queue: queue, wake: make(chan struct{}, 1), done: make(chan struct{})}

	// stop snapshots clients after taking t.mu, so a client added here is
	// always seen by it
	t.mu.Lock()
	shutdown := t.shutdown
	if shutdown == nil {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.wg.Add(2)
	t.clientsMu.Lock()
	t.clients[conn] = c
	n := len(t.clients)
	t.clientsMu.Unlock()
	t.mu.Unlock()
	if t.clientsG != nil {
		t.clientsG.Set(float64(n))
	}
	t.Logger().Debug("WebSocket client connected", "remote", r.RemoteAddr, "clients", n)

	go t.writeLoop(c, shutdown)
	go t.readLoop(c)
}

// readLoop discards client messages and notices disconnects
func (t *Tap) readLoop(c *client) {
	defer t.wg.Done()
	defer t.removeClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (t *Tap) writeLoop(c *client, shutdown chan struct{}) {
	defer t.wg.Done()
	for {
		select {
		case <-shutdown:
			return
		case <-c.done:
			return
		case <-c.wake:
		}
		for {
			data, ok := c.queue.Read()
			if !ok {
				break
			}
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
			if err != nil {
				t.removeClient(c)
				return
			}
			t.sent.Add(1)
			if t.sentC != nil {
				t.sentC.Inc()
			}
		}
	}
}

func (t *Tap) removeClient(c *client) {
	c.closeOnce.Do(func() {
		t.clientsMu.Lock()
		delete(t.clients, c.conn)
		n := len(t.clients)
		t.clientsMu.Unlock()
		if t.clientsG != nil {
			t.clientsG.Set(float64(n))
		}
		_ = c.queue.Close()
		_ = c.conn.Close()
		close(c.done)
	})
}

func (t *Tap) snapshot() []*client {
	t.clientsMu.RLock()
	defer t.clientsMu.RUnlock()
	out := make([]*client, 0, len(t.clients))
	for _, c := range t.clients {
		out = append(out, c)
	}
	return out
}

// Input encodes msg and queues it for every client. It reports false only
// for payloads that cannot be encoded.
func (t *Tap) Input(msg component.Message) bool {
	data, err := Encode(msg, time.Now())
	if err != nil {
		t.Logger().Debug("Payload not broadcast", "error", err)
		return false
	}
	for _, c := range t.snapshot() {
		if err := c.queue.Write(data); err != nil {
			continue
		}
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// Addr returns the bound listen address, or nil before Start
func (t *Tap) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Path returns the WebSocket endpoint path
func (t *Tap) Path() string { return t.path }

// Clients returns the number of connected clients
func (t *Tap) Clients() int {
	t.clientsMu.RLock()
	defer t.clientsMu.RUnlock()
	return len(t.clients)
}

// Sent returns how many messages were written to clients
func (t *Tap) Sent() int64 { return t.sent.Load() }

// Dropped returns how many queued messages slow clients lost
func (t *Tap) Dropped() int64 { return t.dropped.Load() }

func (t *Tap) stop() error {
	t.mu.Lock()
	server, shutdown := t.server, t.shutdown
	t.server, t.shutdown, t.listener = nil, nil, nil
	t.mu.Unlock()
	if server == nil {
		return nil
	}

	close(shutdown)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)

	// hijacked connections are not closed by Shutdown
	for _, c := range t.snapshot() {
		t.removeClient(c)
	}
	t.wg.Wait()

	if t.metrics != nil {
		t.metrics.Unregister(t.serviceName(), clientGaugeName)
		t.metrics.Unregister(t.serviceName(), messageCountName)
	}
	if err != nil {
		return errors.Wrap(err, "Tap", "Close", "server shutdown")
	}
	return nil
}

// Register adds the stream kinds to reg
func Register(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        TapKind,
		DisplayName: "WebSocket tap",
		Description: "Broadcasts every received payload to WebSocket clients as JSON",
		Version:     "1.0.0",
		Factory:     NewTap,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(TapConfig{})),
		Outputs:     component.NoOutputs,
		Accepts:     component.AllPortTypes(),
	})
}
