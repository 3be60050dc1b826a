package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/logger"
)

// ErrNotConnected is returned by Send and Receive before Connect.
var ErrNotConnected = errors.New("not connected")

// Conn is a lazily (re)connected stream to the renderer. Connect is cheap
// when the endpoint did not change, so callers invoke it before every
// operation. A broken stream is closed so the next Connect dials again.
type Conn struct {
	mu      sync.Mutex
	conn    net.Conn
	host    string
	port    int
	timeout time.Duration
	dialer  net.Dialer
	log     *zap.Logger
}

// NewConn creates an unconnected Conn. timeout bounds each dial; zero means
// no limit besides the context.
func NewConn(timeout time.Duration) *Conn {
	return &Conn{
		timeout: timeout,
		log:     logger.Named("network"),
	}
}

// Connect opens the stream to host:port. It returns true when a new stream
// was dialed: on the first call, after a failure, or when the endpoint
// changed.
func (c *Conn) Connect(ctx context.Context, host string, port int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && host == c.host && port == c.port {
		return false, nil
	}
	if c.conn != nil {
		c.log.Info("endpoint changed",
			zap.String("from", c.addr()), zap.String("to", net.JoinHostPort(host, strconv.Itoa(port))))
		if err := c.closeLocked(); err != nil {
			c.log.Debug("close previous stream", zap.Error(err))
		}
	}

	c.host, c.port = host, port
	addr := c.addr()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	c.conn = conn
	c.log.Debug("connected", zap.String("addr", addr))
	return true, nil
}

func (c *Conn) addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Connected reports whether a stream is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close shuts the stream down. The write side is closed first so the peer
// sees end of stream.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	var err error
	if tc, ok := c.conn.(*net.TCPConn); ok {
		err = tc.CloseWrite()
	}
	err = multierr.Append(err, c.conn.Close())
	c.conn = nil
	return err
}

// Send writes one frame.
func (c *Conn) Send(ctx context.Context, kind Kind, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	stop := c.watch(ctx)
	err := WriteFrame(c.conn, kind, payload)
	stop()
	if err != nil {
		return c.failLocked(fmt.Errorf("sending %s frame: %w", kind, err))
	}
	return nil
}

// Receive reads the next frame.
func (c *Conn) Receive(ctx context.Context) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return Frame{}, ErrNotConnected
	}
	stop := c.watch(ctx)
	f, err := ReadFrame(c.conn)
	stop()
	if err != nil {
		return Frame{}, c.failLocked(fmt.Errorf("receiving frame: %w", err))
	}
	return f, nil
}

// watch applies the context deadline to the stream and interrupts blocked
// I/O when ctx is canceled. The returned func clears both.
func (c *Conn) watch(ctx context.Context) func() {
	conn := c.conn
	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		stop()
		_ = conn.SetDeadline(time.Time{})
	}
}

// failLocked drops the stream when err means it cannot be used anymore.
func (c *Conn) failLocked(err error) error {
	if IsBrokenConn(err) {
		c.log.Warn("connection lost", zap.String("addr", c.addr()), zap.Error(err))
		if cerr := c.closeLocked(); cerr != nil {
			c.log.Debug("close broken stream", zap.Error(cerr))
		}
	}
	return err
}

// IsBrokenConn reports whether err means the stream is unusable: the peer
// went away, or the operation timed out or was canceled midway.
func IsBrokenConn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
