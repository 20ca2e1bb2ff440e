package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the broker session state.
type State int32

// Session states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is the slice of a live broker session used by publishers and
// subscription managers.
type Session interface {
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) (ReasonCode, error)
	Subscribe(ctx context.Context, filters []TopicFilter) (ReasonCode, error)
}

// ConnectionConfig tunes a ConnectionManager.
type ConnectionConfig struct {
	ClientID       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	Quiesce        time.Duration // Time given to in-flight work on Disconnect
}

// DefaultConnectionConfig returns the defaults used by NewRelay.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 10 * time.Second,
		Quiesce:        250 * time.Millisecond,
	}
}

// session tracks one established broker session.
type session struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newSession() *session {
	return &session{done: make(chan struct{})}
}

func (s *session) end(err error) bool {
	ended := false
	s.once.Do(func() {
		s.err = err
		close(s.done)
		ended = true
	})
	return ended
}

// ConnectionManager owns the broker session lifecycle.
//
// Connect moves Disconnected -> Connecting -> Connected. A transport failure
// or a non-zero acknowledgement returns to Disconnected without starting the
// delivery loop or running connected hooks. Once Connected, every hook
// registered with OnConnected runs exactly once, in order, before Connect
// returns. A lost session returns to Disconnected; reconnect policy belongs to
// the caller.
//
// The manager owns the Dispatcher that receives deliveries and closes it in Close.
type ConnectionManager struct {
	client     BrokerClient
	config     ConnectionConfig
	logger     Logger
	metrics    *Metrics
	dispatcher *Dispatcher

	mu          sync.Mutex // serializes Connect, Disconnect and Close
	state       atomic.Int32
	closed      bool
	current     atomic.Pointer[session]
	hooksMu     sync.Mutex
	onConnected []func(ctx context.Context)
}

// NewConnectionManager creates a manager for client.
func NewConnectionManager(client BrokerClient, config ConnectionConfig, logger Logger, metrics *Metrics) (*ConnectionManager, error) {
	if client == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerClient is required")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}
	if config.ConnectTimeout <= 0 {
		return nil, NewError(ErrCodeConfiguration, "connect timeout must be > 0")
	}

	c := &ConnectionManager{
		client:  client,
		config:  config,
		logger:  withComponent(logger, "connection"),
		metrics: metrics,
	}
	c.setState(StateDisconnected)
	return c, nil
}

// AttachDispatcher hands the delivery dispatcher to the manager, which starts
// it on the first successful connect and closes it in Close.
func (c *ConnectionManager) AttachDispatcher(d *Dispatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher = d
}

// OnConnected registers fn to run after every successful connect.
func (c *ConnectionManager) OnConnected(fn func(ctx context.Context)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.onConnected = append(c.onConnected, fn)
}

// State returns the current session state.
func (c *ConnectionManager) State() State {
	return State(c.state.Load())
}

// Connected reports whether a session is established.
func (c *ConnectionManager) Connected() bool {
	return c.State() == StateConnected
}

func (c *ConnectionManager) setState(s State) {
	c.state.Store(int32(s))
	c.metrics.setState(s)
}

type connectResult struct {
	code ReasonCode
	err  error
}

// Connect opens a session to endpoint and blocks until it is established,
// rejected, or the connect timeout elapses.
func (c *ConnectionManager) Connect(ctx context.Context, endpoint Endpoint, creds Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.State() != StateDisconnected {
		return ErrAlreadyConnected
	}
	if c.dispatcher == nil {
		return NewError(ErrCodeConfiguration, "no dispatcher attached")
	}

	c.setState(StateConnecting)
	c.logger.Infof("Connecting to broker at %s", endpoint)

	sess := newSession()
	opts := ConnectOptions{
		Endpoint:    endpoint,
		Credentials: creds,
		ClientID:    c.config.ClientID,
		KeepAlive:   c.config.KeepAlive,
		OnConnectionLost: func(err error) {
			c.handleLost(sess, err)
		},
	}

	// Published before the handshake so a loss reported mid-connect is not dropped.
	c.current.Store(sess)
	fail := func(err error) error {
		c.setState(StateDisconnected)
		sess.end(err)
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	results := make(chan connectResult, 1)
	go func() {
		code, err := c.client.Connect(connectCtx, opts)
		results <- connectResult{code: code, err: err}
	}()

	var res connectResult
	select {
	case res = <-results:
	case <-connectCtx.Done():
		go c.discardLateSession(results)
		c.logger.Errorf("Connection to %s timed out after %s", endpoint, c.config.ConnectTimeout)
		return fail(NewErrorWithCause(ErrCodeConnection,
			fmt.Sprintf("connect to %s timed out", endpoint), connectCtx.Err()))
	}

	if res.err != nil {
		c.logger.Errorf("Failed to connect to %s: %v", endpoint, res.err)
		return fail(NewErrorWithCause(ErrCodeConnection, fmt.Sprintf("failed to connect to %s", endpoint), res.err))
	}
	if !res.code.Success() {
		c.logger.Errorf("Failed to connect, return code %s", res.code)
		return fail(NewError(ErrCodeBrokerRejected, fmt.Sprintf("broker rejected connection with code %s", res.code)))
	}

	c.dispatcher.Start()
	if err := c.client.StartLoop(c.dispatcher.OnDelivered); err != nil {
		c.client.Disconnect(0)
		return fail(NewErrorWithCause(ErrCodeConnection, "failed to start delivery loop", err))
	}

	// handleLost only moves Connected to Disconnected; catch a loss that landed earlier.
	c.setState(StateConnected)
	select {
	case <-sess.done:
		c.setState(StateDisconnected)
		c.client.Disconnect(0)
		c.logger.Errorf("Connection to %s lost during connect: %v", endpoint, sess.err)
		return NewErrorWithCause(ErrCodeConnection,
			fmt.Sprintf("connection to %s lost during connect", endpoint), sess.err)
	default:
	}
	c.logger.Info("Connected to broker successfully")

	c.hooksMu.Lock()
	hooks := append([]func(context.Context){}, c.onConnected...)
	c.hooksMu.Unlock()
	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

// discardLateSession closes a session whose handshake finished after Connect gave up.
func (c *ConnectionManager) discardLateSession(results <-chan connectResult) {
	res := <-results
	if res.err == nil && res.code.Success() {
		c.logger.Warnf("Discarding session established after connect timeout")
		c.client.Disconnect(0)
	}
}

func (c *ConnectionManager) handleLost(sess *session, err error) {
	if c.current.Load() != sess || !sess.end(err) {
		return
	}
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.metrics.setState(StateDisconnected)
	}
	c.logger.Warnf("Connection to broker lost: %v", err)
}

// Wait blocks until the current session ends or ctx is done. It returns the
// loss cause, nil after a clean Disconnect, the error of a failed Connect, or
// ErrNotConnected before the first Connect.
func (c *ConnectionManager) Wait(ctx context.Context) error {
	sess := c.current.Load()
	if sess == nil {
		return ErrNotConnected
	}
	select {
	case <-sess.done:
		return sess.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends one message over the live session.
func (c *ConnectionManager) Publish(ctx context.Context, topic string, payload []byte, qos QoS) (ReasonCode, error) {
	if !c.Connected() {
		return 0, ErrNotConnected
	}
	return c.client.Publish(ctx, topic, payload, qos)
}

// Subscribe sends one subscribe request over the live session.
func (c *ConnectionManager) Subscribe(ctx context.Context, filters []TopicFilter) (ReasonCode, error) {
	if !c.Connected() {
		return 0, ErrNotConnected
	}
	return c.client.Subscribe(ctx, filters)
}

// Disconnect closes the current session. It is a no-op when disconnected.
func (c *ConnectionManager) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnect()
}

func (c *ConnectionManager) disconnect() {
	if c.State() != StateConnected {
		return
	}
	sess := c.current.Load()
	c.setState(StateDisconnected)
	if sess != nil {
		sess.end(nil)
	}
	c.client.Disconnect(c.config.Quiesce)
	c.logger.Info("Disconnected from broker")
}

// Close disconnects and drains the dispatcher. The manager cannot be
// reconnected afterwards.
func (c *ConnectionManager) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.disconnect()
	dispatcher := c.dispatcher
	c.mu.Unlock()

	if dispatcher != nil {
		return dispatcher.Close(ctx)
	}
	return nil
}
