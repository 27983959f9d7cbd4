package livefeed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

const (
	DefaultURL         = "wss://api.youroute.com/ws"
	DefaultBaseDelay   = 1000 * time.Millisecond
	DefaultMaxAttempts = 5
	DefaultDialTimeout = 15 * time.Second
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnectWait
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnectWait:
		return "RECONNECT_WAIT"
	}

	return "UNKNOWN"
}

// Conn is a single open transport connection carrying whole frames
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Config struct {
	URL         string
	BaseDelay   time.Duration
	MaxAttempts int
	DialTimeout time.Duration
}

type Option func(*Client)

func WithDialer(dialer Dialer) Option {
	return func(c *Client) { c.dialer = dialer }
}

func WithRegistry(registry *Registry) Option {
	return func(c *Client) { c.registry = registry }
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithStateHook registers a callback for every state transition. It runs
// with the client lock held and must not call back into the client.
func WithStateHook(hook func(State)) Option {
	return func(c *Client) { c.onStateChange = hook }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client keeps one logical connection to the live feed endpoint and
// reconnects with exponential backoff after unexpected drops.
type Client struct {
	url         string
	maxAttempts int
	dialTimeout time.Duration

	dialer        Dialer
	registry      *Registry
	metrics       *Metrics
	onStateChange func(State)
	now           func() time.Time

	// writeMu serializes frames onto the connection without holding mu
	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	conn     Conn
	attempts int
	backoff  *backoff.ExponentialBackOff
	timer    *time.Timer
	err      error

	// generation is bumped by Connect and Disconnect so readers and timers
	// belonging to an older connection cycle stand down
	generation uint64
}

func NewClient(config Config, opts ...Option) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}

	c := &Client{
		url:         config.URL,
		maxAttempts: config.MaxAttempts,
		dialTimeout: config.DialTimeout,
		backoff:     newBackOff(config.BaseDelay),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if c.registry == nil {
		c.registry = NewRegistry(c.metrics)
	}
	if c.dialer == nil {
		c.dialer = &WebsocketDialer{}
	}

	return c
}

// newBackOff gives base, 2*base, 4*base, ... with no jitter and no elapsed limit
func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = base << 10
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Registry() *Registry {
	return c.registry
}

func (c *Client) Subscribe(topic Topic, handler Handler) func() {
	return c.registry.Subscribe(topic, handler)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Attempts returns the number of reconnect attempts since the last successful connection
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

// Err returns the terminal error once automatic reconnection has given up
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Connect opens the connection. A failed dial leaves the client waiting to
// retry, the returned error only reports this attempt.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}

	c.stopTimerLocked()
	if c.state == StateDisconnected {
		c.attempts = 0
		c.backoff.Reset()
		c.err = nil
	}

	c.generation++
	generation := c.generation
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	return c.dial(ctx, generation)
}

// Disconnect closes the connection and cancels any pending reconnect
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.generation++
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing live feed connection")
		}
	}

	log.Info().Str("url", c.url).Msg("Live feed disconnected")
}

func (c *Client) dial(ctx context.Context, generation uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(ctx, c.url)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return ErrClientDisconnected
	}

	if err != nil {
		transportErr := &TransportError{Op: "connect", Err: err}
		log.Error().Err(transportErr).Str("url", c.url).Msg("Error connecting to live feed")
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return transportErr
	}

	c.conn = conn
	c.attempts = 0
	c.backoff.Reset()
	c.err = nil
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	log.Info().Str("url", c.url).Msg("Live feed connected")

	go c.readLoop(conn, generation)

	return nil
}

func (c *Client) readLoop(conn Conn, generation uint64) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, generation, err)
			return
		}

		if !c.current(generation) {
			return
		}

		c.handleFrame(frame)
	}
}

func (c *Client) current(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return generation == c.generation
}

func (c *Client) handleFrame(frame []byte) {
	c.metrics.FramesReceived.Inc()

	message, err := Decode(frame)
	if err != nil {
		c.metrics.DecodeErrors.Inc()
		log.Error().Err(err).Int("size", len(frame)).Msg("Error parsing live feed message")
		return
	}

	c.registry.Dispatch(message)
}

func (c *Client) handleClose(conn Conn, generation uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Disconnect or a newer Connect already took over
	if generation != c.generation || c.conn != conn {
		return
	}

	c.conn = nil
	conn.Close()

	log.Warn().Err(cause).Str("url", c.url).Msg("Live feed connection closed")
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	if c.attempts >= c.maxAttempts {
		c.err = ErrMaxReconnectAttempts
		c.metrics.TerminalFailures.Inc()
		c.setStateLocked(StateDisconnected)
		log.Error().Int("attempts", c.attempts).Str("url", c.url).Msg("Max reconnection attempts reached")
		return
	}

	delay := c.backoff.NextBackOff()
	c.attempts++
	c.metrics.ReconnectAttempts.Inc()
	c.setStateLocked(StateReconnectWait)

	log.Info().
		Int("attempt", c.attempts).
		Int("max", c.maxAttempts).
		Str("delay", delay.String()).
		Msg("Scheduling live feed reconnect")

	generation := c.generation
	c.timer = time.AfterFunc(delay, func() {
		c.retry(generation)
	})
}

func (c *Client) retry(generation uint64) {
	c.mu.Lock()
	if generation != c.generation || c.state != StateReconnectWait {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.setStateLocked(StateConnecting)
	attempt := c.attempts
	c.mu.Unlock()

	log.Info().Int("attempt", attempt).Int("max", c.maxAttempts).Msg("Attempting to reconnect")

	c.dial(context.Background(), generation)
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) setStateLocked(state State) {
	if c.state == state {
		return
	}

	log.Debug().Str("from", c.state.String()).Str("to", state.String()).Msg("Live feed state change")

	c.state = state
	c.metrics.setConnected(state == StateConnected)

	if c.onStateChange != nil {
		c.onStateChange(state)
	}
}

// Send writes one envelope. Nothing reaches the transport unless the client
// is connected; callers must not assume delivery.
func (c *Client) Send(topic Topic, payload interface{}) error {
	frame, err := Encode(topic, payload, c.now())
	if err != nil {
		c.metrics.SendErrors.WithLabelValues(string(topic)).Inc()
		log.Error().Err(err).Str("topic", string(topic)).Msg("Error encoding live feed message")
		return err
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if !connected {
		c.metrics.SendErrors.WithLabelValues(string(topic)).Inc()
		log.Error().Str("topic", string(topic)).Msg("Live feed is not connected")
		return ErrNotConnected
	}

	// a stalled write is released by Disconnect closing conn
	c.writeMu.Lock()
	err = conn.WriteMessage(frame)
	c.writeMu.Unlock()

	if err != nil {
		transportErr := &TransportError{Op: "send", Err: err}
		c.metrics.SendErrors.WithLabelValues(string(topic)).Inc()
		log.Error().Err(transportErr).Str("topic", string(topic)).Msg("Error sending live feed message")
		return transportErr
	}

	c.metrics.Sent.WithLabelValues(string(topic)).Inc()

	return nil
}

func (c *Client) SendVehicleLocation(vehicle ctdf.Vehicle) error {
	return c.Send(TopicLocationUpdate, vehicle)
}

func (c *Client) SendRouteUpdate(route ctdf.Route) error {
	return c.Send(TopicRouteUpdate, route)
}

func (c *Client) SendStopUpdate(stop ctdf.Stop) error {
	return c.Send(TopicStopUpdate, stop)
}
