package auctionhouse

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ============================================================================
// Sink
// ============================================================================

// Action is a reducer-style message dispatched to a Sink.
type Action struct {
	Type    string
	Payload any
}

// Sink consumes every action produced by a RealtimeClient.
type Sink interface {
	Dispatch(Action)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Action)

func (f SinkFunc) Dispatch(a Action) { f(a) }

// CloseInfo is the payload of a connectionClosed action.
type CloseInfo struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// ============================================================================
// Transport
// ============================================================================

// Conn is the subset of *websocket.Conn used by the client.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a Conn to the stream URL.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

type wsDialer struct {
	opts      *websocket.DialOptions
	readLimit int64
}

func (d *wsDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, d.opts)
	if err != nil {
		return nil, err
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	return conn, nil
}

// Credentials supplies the token appended to the stream URL.
// Token is called on every connect so a refreshed token is picked up by reconnects.
type Credentials interface {
	Token() string
}

// StaticToken is a fixed credential.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// ============================================================================
// Configuration
// ============================================================================

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultCablePath            = "/cable"
)

// RealtimeConfig configures a RealtimeClient. Values are fixed at construction.
type RealtimeConfig struct {
	Credentials Credentials
	// CablePath is appended to the URL when a token is present.
	CablePath string
	// MaxReconnectAttempts bounds automatic reconnects. Negative disables them.
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	DialTimeout          time.Duration
	WriteTimeout         time.Duration
	ReadLimit            int64
	DialOptions          *websocket.DialOptions
	Dialer               Dialer
	Logger               *zap.Logger
	Metrics              *Metrics
}

func (c *RealtimeConfig) defaults() {
	if c.CablePath == "" {
		c.CablePath = DefaultCablePath
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadLimit == 0 {
		c.ReadLimit = 1 << 20
	}
	if c.Dialer == nil {
		c.Dialer = &wsDialer{opts: c.DialOptions, readLimit: c.ReadLimit}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// RealtimeState represents the connection state.
type RealtimeState string

const (
	StateDisconnected RealtimeState = "disconnected"
	StateConnecting   RealtimeState = "connecting"
	StateConnected    RealtimeState = "connected"
	StateReconnecting RealtimeState = "reconnecting"
)

// BuildStreamURL appends the cable path and token query to base.
// Without a token base is returned unchanged.
func BuildStreamURL(base, token, cablePath string) string {
	if token == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + cablePath + "?token=" + url.QueryEscape(token)
	}
	u.Path = strings.TrimRight(u.Path, "/") + cablePath
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ============================================================================
// RealtimeClient
// ============================================================================

// RealtimeClient keeps one event stream open, reconnects after abnormal closures and
// routes decoded envelopes to a Sink and to subscribed handlers.
//
// Every exported method returns without waiting for the network, except Send which
// waits for at most WriteTimeout.
type RealtimeClient struct {
	config *RealtimeConfig
	log    *zap.Logger
	subs   *registry

	mu         sync.Mutex
	conn       Conn
	open       bool
	connecting bool
	attempts   int
	epoch      uint64 // bumped by Connect and Disconnect; stale goroutines and timers check it
	sink       Sink
	cancel     context.CancelFunc
	timer      *time.Timer
}

// NewRealtimeClient creates a client. config may be nil.
func NewRealtimeClient(config *RealtimeConfig) *RealtimeClient {
	var cfg RealtimeConfig
	if config != nil {
		cfg = *config
	}
	cfg.defaults()
	return &RealtimeClient{
		config: &cfg,
		log:    cfg.Logger.Named("realtime"),
		subs:   newRegistry(),
	}
}

// Connect opens the stream at endpoint and attaches sink. It is a no-op while a connection
// is open or being established.
func (c *RealtimeClient) Connect(endpoint string, sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(endpoint, sink)
}

func (c *RealtimeClient) connectLocked(endpoint string, sink Sink) {
	if c.conn != nil && c.open {
		c.log.Debug("already connected")
		return
	}
	if c.connecting {
		c.log.Debug("connect already in progress")
		return
	}

	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
	}

	c.epoch++
	c.sink = sink
	c.connecting = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go c.run(ctx, c.epoch, endpoint, sink)
}

func (c *RealtimeClient) run(ctx context.Context, epoch uint64, endpoint string, sink Sink) {
	var token string
	if c.config.Credentials != nil {
		token = c.config.Credentials.Token()
	}
	streamURL := BuildStreamURL(endpoint, token, c.config.CablePath)
	c.log.Info("connecting", zap.String("url", endpoint), zap.Bool("authenticated", token != ""))

	dialCtx, cancelDial := context.WithTimeout(ctx, c.config.DialTimeout)
	conn, err := c.config.Dialer.Dial(dialCtx, streamURL)
	cancelDial()

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "Client disconnect")
		}
		return
	}
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("dial failed", zap.String("url", endpoint), zap.Error(err))
		c.dispatch(sink, EventConnectionError, "WebSocket connection error: "+err.Error())
		c.closed(epoch, endpoint, sink, websocket.StatusAbnormalClosure, err.Error())
		return
	}
	c.conn = conn
	c.open = true
	c.attempts = 0
	c.mu.Unlock()

	c.config.Metrics.setConnected(true)
	c.log.Info("connected", zap.String("url", endpoint))
	c.dispatch(sink, EventConnectionOpened, nil)

	c.readLoop(ctx, epoch, endpoint, sink, conn)
}

func (c *RealtimeClient) readLoop(ctx context.Context, epoch uint64, endpoint string, sink Sink, conn Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			if epoch != c.epoch {
				c.mu.Unlock()
				return
			}
			c.conn = nil
			c.open = false
			c.mu.Unlock()
			c.config.Metrics.setConnected(false)

			code, reason, transport := closeDetails(err)
			if transport {
				c.log.Warn("stream error", zap.Error(err))
				c.dispatch(sink, EventConnectionError, "WebSocket connection error: "+err.Error())
			}
			c.closed(epoch, endpoint, sink, code, reason)
			return
		}

		c.config.Metrics.frameRead()
		c.route(sink, data)
	}
}

// closeDetails extracts the close code from a read error. Errors without a close
// frame are transport failures and report 1006.
func closeDetails(err error) (websocket.StatusCode, string, bool) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Reason, false
	}
	return websocket.StatusAbnormalClosure, err.Error(), true
}

func (c *RealtimeClient) closed(epoch uint64, endpoint string, sink Sink, code websocket.StatusCode, reason string) {
	c.log.Info("closed", zap.Int("code", int(code)), zap.String("reason", reason))
	c.dispatch(sink, EventConnectionClosed, CloseInfo{Code: int(code), Reason: reason})

	if code == websocket.StatusNormalClosure {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.attemptReconnectLocked(endpoint)
}

// AttemptReconnect increments the attempt counter and schedules Connect after the
// reconnect delay. It returns false once the counter has reached the maximum; from
// then on only an explicit Connect resumes the stream.
func (c *RealtimeClient) AttemptReconnect(endpoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptReconnectLocked(endpoint)
}

func (c *RealtimeClient) attemptReconnectLocked(endpoint string) bool {
	if c.attempts >= c.config.MaxReconnectAttempts {
		c.log.Warn("reconnect attempts exhausted", zap.Int("attempts", c.attempts))
		return false
	}
	c.attempts++
	c.config.Metrics.reconnectScheduled()
	c.log.Info("reconnecting",
		zap.Int("attempt", c.attempts),
		zap.Int("max", c.config.MaxReconnectAttempts),
		zap.Duration("delay", c.config.ReconnectDelay))

	epoch := c.epoch
	sink := c.sink
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.config.ReconnectDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if epoch != c.epoch {
			return
		}
		c.timer = nil
		c.connectLocked(endpoint, sink)
	})
	return true
}

func (c *RealtimeClient) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// HandleFrame decodes one frame and routes it exactly as if it had been read from the
// stream. Malformed frames are logged and dropped.
func (c *RealtimeClient) HandleFrame(data []byte) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	c.route(sink, data)
}

func (c *RealtimeClient) route(sink Sink, data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		c.config.Metrics.decodeFailed()
		c.log.Warn("dropping malformed frame", zap.Int("bytes", len(data)), zap.Error(err))
		return
	}
	c.log.Debug("event received", zap.String("event", env.Event), zap.String("name", env.Name))
	c.config.Metrics.routed(env.Name)

	if sink != nil {
		sink.Dispatch(Action{Type: env.ActionType(), Payload: env.Payload})
	}
	c.subs.emit(env.Event, env.Payload)
	if env.Name != env.Event {
		c.subs.emit(env.Name, env.Payload)
	}
}

func (c *RealtimeClient) dispatch(sink Sink, name string, payload any) {
	if sink != nil {
		sink.Dispatch(Action{Type: ActionPrefix + name, Payload: payload})
	}
}

// Send writes message if the stream is open. Strings and byte slices are sent as is,
// other values as JSON. While disconnected the message is dropped.
func (c *RealtimeClient) Send(message any) {
	c.mu.Lock()
	conn, open := c.conn, c.open
	c.mu.Unlock()

	if conn == nil || !open {
		c.config.Metrics.sendDropped()
		c.log.Warn("not connected, message dropped")
		return
	}

	data, err := encodeMessage(message)
	if err != nil {
		c.log.Error("cannot encode message", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.log.Warn("send failed", zap.Error(err))
	}
}

func encodeMessage(message any) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	default:
		return json.Marshal(m)
	}
}

// Subscribe registers h for eventName, which may be a wire name or a canonical name.
// The returned func removes exactly this registration.
func (c *RealtimeClient) Subscribe(eventName string, h EventHandler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	return c.subs.add(eventName, h)
}

// Disconnect closes the stream with a normal closure, cancels any pending reconnect
// and drops every subscription. Safe to call when already disconnected.
func (c *RealtimeClient) Disconnect() {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	conn, cancel, sink := c.conn, c.cancel, c.sink
	c.conn = nil
	c.open = false
	c.connecting = false
	c.attempts = 0
	c.cancel = nil
	c.mu.Unlock()

	c.subs.clear()

	if conn == nil {
		if cancel != nil {
			cancel()
		}
		return
	}

	c.config.Metrics.setConnected(false)
	c.log.Info("disconnecting")
	go func() {
		_ = conn.Close(websocket.StatusNormalClosure, "Client disconnect")
		if cancel != nil {
			cancel()
		}
	}()
	c.dispatch(sink, EventConnectionClosed, CloseInfo{Code: int(websocket.StatusNormalClosure), Reason: "Client disconnect"})
}

// IsConnected reports whether the stream is open.
func (c *RealtimeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.open
}

// Attempts returns the reconnect attempt counter.
func (c *RealtimeClient) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// State returns the current connection state.
func (c *RealtimeClient) State() RealtimeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.conn != nil && c.open:
		return StateConnected
	case c.connecting:
		return StateConnecting
	case c.timer != nil:
		return StateReconnecting
	default:
		return StateDisconnected
	}
}
