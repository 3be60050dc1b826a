// Package command sends structured commands and screenshot requests to the
// external renderer.
//
// Every operation connects lazily. On a transport failure the stream is
// closed, a warning is logged and the error is returned; nothing is retried.
package command

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/logger"
	"github.com/Faultbox/renderlink/internal/network"
	"github.com/Faultbox/renderlink/internal/network/packets"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// ErrUnexpectedKind is returned when the renderer answers with a frame kind
// the client does not handle.
var ErrUnexpectedKind = errors.New("unexpected frame kind")

// Client talks to one renderer endpoint.
type Client struct {
	conn *network.Conn
	host string
	port int
	// dials counts the streams opened so far.
	dials int
	log   *zap.Logger
}

// New creates a client for host:port over conn.
func New(conn *network.Conn, host string, port int) *Client {
	return &Client{
		conn: conn,
		host: host,
		port: port,
		log:  logger.Named("command"),
	}
}

// SetEndpoint changes the renderer address; the next operation reconnects.
func (c *Client) SetEndpoint(host string, port int) {
	c.host, c.port = host, port
}

// Endpoint returns the renderer address.
func (c *Client) Endpoint() (string, int) {
	return c.host, c.port
}

// Connect opens the stream if needed and reports whether a new stream was
// dialed.
func (c *Client) Connect(ctx context.Context) (bool, error) {
	fresh, err := c.conn.Connect(ctx, c.host, c.port)
	if err != nil {
		return false, c.fail("connect", err)
	}
	if fresh {
		c.dials++
	}
	return fresh, nil
}

// Dials returns the number of streams opened so far. A change between two
// calls means the renderer may have lost the state sent before.
func (c *Client) Dials() int {
	return c.dials
}

// Close closes the stream.
func (c *Client) Close() error {
	return c.conn.Close()
}

// fail tears the stream down after a transport error.
func (c *Client) fail(op string, err error) error {
	c.log.Warn("renderer unreachable",
		zap.String("op", op),
		zap.String("host", c.host),
		zap.Int("port", c.port),
		zap.Error(err))
	if cerr := c.conn.Close(); cerr != nil {
		c.log.Debug("close", zap.Error(cerr))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) send(ctx context.Context, op string, kind network.Kind, payload []byte) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	if err := c.conn.Send(ctx, kind, payload); err != nil {
		return c.fail(op, err)
	}
	return nil
}

func (c *Client) sendCmd(ctx context.Context, op string, cmd *xbuf.Cmd) error {
	payload, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.send(ctx, op, network.KindCommand, payload)
}

// SetEye moves the renderer camera.
func (c *Client) SetEye(ctx context.Context, eye xbuf.SetEye) error {
	return c.sendCmd(ctx, "setEye", &xbuf.Cmd{SetEye: &eye})
}

// SetData sends an export batch. Empty batches are not sent; the result
// reports whether a frame was written.
func (c *Client) SetData(ctx context.Context, b *xbuf.Batch) (bool, error) {
	if b == nil || b.Empty() {
		return false, nil
	}
	if err := c.sendCmd(ctx, "setData", &xbuf.Cmd{SetData: b}); err != nil {
		return false, err
	}
	c.log.Debug("setData sent",
		zap.Int("entities", b.EntityCount()),
		zap.Int("relations", len(b.Relations)))
	return true, nil
}

// ChangeAssetFolders sets the folders the renderer resolves textures from.
func (c *Client) ChangeAssetFolders(ctx context.Context, paths []string, register, unregisterOthers bool) error {
	return c.sendCmd(ctx, "changeAssetFolders", &xbuf.Cmd{ChangeAssetFolders: &xbuf.ChangeAssetFolders{
		Paths:            paths,
		Register:         register,
		UnregisterOthers: unregisterOthers,
	}})
}

// PlayAnimation sets the clips playing on the entity ref.
func (c *Client) PlayAnimation(ctx context.Context, ref string, names []string) error {
	return c.sendCmd(ctx, "playAnimation", &xbuf.Cmd{PlayAnimation: &xbuf.PlayAnimation{
		Ref:            ref,
		AnimationNames: names,
	}})
}

// Render moves the camera, asks for a width x height screenshot and waits
// for it. Log frames received meanwhile are logged and pings are answered.
func (c *Client) Render(ctx context.Context, eye xbuf.SetEye, width, height int) (*packets.RawScreenshot, error) {
	if err := c.SetEye(ctx, eye); err != nil {
		return nil, err
	}
	ask := packets.AskScreenshot{Width: uint32(width), Height: uint32(height)}
	if err := c.send(ctx, "askScreenshot", network.KindAskScreenshot, ask.Encode()); err != nil {
		return nil, err
	}

	for {
		f, err := c.receive(ctx, "render", true)
		if err != nil {
			return nil, err
		}
		if f.Kind == network.KindRawScreenshot {
			shot, err := packets.DecodeRawScreenshot(width, height, f.Payload)
			if err != nil {
				return nil, fmt.Errorf("render: %w", err)
			}
			return shot, nil
		}
	}
}

// Ping checks that the renderer answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.send(ctx, "ping", network.KindPingPong, nil); err != nil {
		return err
	}
	for {
		f, err := c.receive(ctx, "ping", false)
		if err != nil {
			return err
		}
		if f.Kind == network.KindPingPong {
			return nil
		}
	}
}

// receive returns the next frame that is not a log. Pings are answered
// first when answer is set. Kinds other than ping and screenshot are an
// error.
func (c *Client) receive(ctx context.Context, op string, answer bool) (network.Frame, error) {
	for {
		f, err := c.conn.Receive(ctx)
		if err != nil {
			return network.Frame{}, c.fail(op, err)
		}
		switch f.Kind {
		case network.KindLog:
			c.log.Info("renderer", zap.String("msg", string(f.Payload)))
		case network.KindPingPong:
			if answer {
				if err := c.send(ctx, op, network.KindPingPong, nil); err != nil {
					return network.Frame{}, err
				}
			}
			return f, nil
		case network.KindRawScreenshot:
			return f, nil
		default:
			return network.Frame{}, fmt.Errorf("%s: %w: %s", op, ErrUnexpectedKind, f.Kind)
		}
	}
}
