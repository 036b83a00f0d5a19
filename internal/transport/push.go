package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
)

const (
	// DefaultHandshakeTimeout bounds the websocket upgrade.
	DefaultHandshakeTimeout = 5 * time.Second

	// SendQueueSize bounds the frames waiting for the writer on one
	// connection. Send fails fast once it is full.
	SendQueueSize = 64

	writeWait = 5 * time.Second
	closeWait = time.Second
)

// ErrSendQueueFull is delivered when the agent has stopped reading and the
// connection's send queue is full.
var ErrSendQueueFull = errors.New(errors.ErrTransport,
	"Push send queue is full",
	"The agent is not reading requests; press c to reconnect")

// PushOptions configures a PushChannel.
type PushOptions struct {
	// BaseURL is the agent root; the scheme is switched to ws or wss.
	BaseURL          string
	HandshakeTimeout time.Duration
	Dial             DialFunc
	Log              logger.Logger
}

// PushChannel multiplexes module requests over a single websocket.
//
// Send queues the module name for the connection's writer goroutine, which
// writes it as a text frame, so a stalled agent never blocks the caller.
// Answers come back as
// {moduleName, output} frames in whatever order the agent produces them and
// are posted to the receiver. When the connection drops the handle is
// cleared and nothing is delivered until Connect is called again.
type PushChannel struct {
	url    string
	dialer websocket.Dialer
	poster Poster
	log    logger.Logger

	mu       sync.Mutex
	conn     *pushConn
	receiver Handler
}

// pushConn is one open websocket with its writer. Only the writer goroutine
// writes data frames; gorilla allows one concurrent writer.
type pushConn struct {
	ws   *websocket.Conn
	out  chan outbound
	done chan struct{}
	once sync.Once
}

type outbound struct {
	module string
	h      Handler
}

func (pc *pushConn) stop() {
	pc.once.Do(func() { close(pc.done) })
}

// NewPushChannel creates an unconnected push channel.
func NewPushChannel(loop Poster, opts PushOptions) (*PushChannel, error) {
	wsURL, err := PushURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}

	c := &PushChannel{
		url: wsURL,
		dialer: websocket.Dialer{
			Subprotocols:     []string{Subprotocol},
			HandshakeTimeout: timeout,
		},
		poster: loop,
		log:    logger.OrDefault(opts.Log),
	}
	if opts.Dial != nil {
		c.dialer.NetDialContext = opts.Dial
	}
	return c, nil
}

// URL is the websocket endpoint.
func (c *PushChannel) URL() string {
	return c.url
}

// Mode always reports ModePush.
func (c *PushChannel) Mode() Mode {
	return ModePush
}

// SetReceiver sets the handler for every inbound frame. The router
// installs itself here.
func (c *PushChannel) SetReceiver(h Handler) {
	c.mu.Lock()
	c.receiver = h
	c.mu.Unlock()
}

// Ready reports whether a connection is open.
func (c *PushChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the websocket if it is not already open.
func (c *PushChannel) Connect(ctx context.Context) error {
	if c.Ready() {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Could not open push connection to "+c.url,
			"Check that the agent accepts websocket connections, or set transport: http")
	}

	pc := &pushConn{
		ws:   conn,
		out:  make(chan outbound, SendQueueSize),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	if c.conn != nil {
		// Lost a race with another Connect, keep the first connection.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = pc
	c.mu.Unlock()

	c.log.Debug("push connection open: %s (subprotocol %q)", c.url, conn.Subprotocol())
	go c.readLoop(pc)
	go c.writeLoop(pc)
	return nil
}

// Send queues module as a request frame and returns without waiting for the
// write. If the frame cannot be written, h is posted once: ErrNotConnected
// when there is no connection or the write fails, ErrSendQueueFull when the
// agent has stopped reading. Successful answers go to the receiver only.
func (c *PushChannel) Send(module string, h Handler) {
	c.mu.Lock()
	pc := c.conn
	err := ErrNotConnected
	if pc != nil {
		select {
		case pc.out <- outbound{module: module, h: h}:
			err = nil
		default:
			err = ErrSendQueueFull
		}
	}
	c.mu.Unlock()

	if err == nil {
		return
	}
	if pc != nil {
		c.log.Debug("push send for %s not queued: %s", module, errors.Short(err))
	}
	c.fail(outbound{module: module, h: h}, err)
}

// Close sends a close frame and releases the connection. The channel can be
// reopened with Connect.
func (c *PushChannel) Close() error {
	c.mu.Lock()
	pc := c.conn
	c.conn = nil
	c.mu.Unlock()

	if pc == nil {
		return nil
	}
	pc.stop()
	_ = pc.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	return pc.ws.Close()
}

func (c *PushChannel) readLoop(pc *pushConn) {
	for {
		_, data, err := pc.ws.ReadMessage()
		if err != nil {
			if c.drop(pc) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn("push connection lost: %v", err)
				} else {
					c.log.Info("push connection closed")
				}
			}
			return
		}

		resp, err := DecodeFrame(data)
		if err != nil {
			c.log.Warn("discarding push frame: %s", errors.Short(err))
			continue
		}

		c.mu.Lock()
		receiver := c.receiver
		c.mu.Unlock()
		if receiver == nil {
			continue
		}
		c.poster.Post(func() { receiver(resp) })
	}
}

// writeLoop writes queued frames until the connection stops. Frames still
// queued when it stops are failed back to their handlers.
func (c *PushChannel) writeLoop(pc *pushConn) {
	defer func() {
		for {
			select {
			case msg := <-pc.out:
				c.fail(msg, ErrNotConnected)
			default:
				return
			}
		}
	}()

	for {
		select {
		case <-pc.done:
			return
		case msg := <-pc.out:
			_ = pc.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := pc.ws.WriteMessage(websocket.TextMessage, []byte(msg.module)); err != nil {
				if c.drop(pc) {
					c.log.Warn("push write for %s failed: %v", msg.module, err)
				}
				c.fail(msg, ErrNotConnected)
				return
			}
		}
	}
}

// fail posts err to msg's handler on the loop.
func (c *PushChannel) fail(msg outbound, err error) {
	if msg.h == nil {
		return
	}
	resp := Response{Module: msg.module, Err: err}
	c.poster.Post(func() { msg.h(resp) })
}

// drop clears the handle if it still points at pc. Reports whether it did.
// Either loop may call it; the other sees the closed socket and exits.
func (c *PushChannel) drop(pc *pushConn) bool {
	c.mu.Lock()
	current := c.conn == pc
	if current {
		c.conn = nil
	}
	c.mu.Unlock()
	pc.stop()
	_ = pc.ws.Close()
	return current
}
