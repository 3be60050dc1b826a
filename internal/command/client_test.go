package command

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Faultbox/renderlink/internal/network"
	"github.com/Faultbox/renderlink/internal/network/packets"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// renderer is an in-process stand-in for the external renderer. Each test
// scripts it through the handle func, which runs on the accepted stream.
type renderer struct {
	host string
	port int
	done chan error
}

func startRenderer(t *testing.T, handle func(c net.Conn) error) *renderer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	r := &renderer{host: host, port: port, done: make(chan error, 1)}
	go func() {
		c, err := ln.Accept()
		if err != nil {
			r.done <- err
			return
		}
		defer c.Close()
		r.done <- handle(c)
	}()
	return r
}

func (r *renderer) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-r.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("renderer did not finish")
	}
}

func newClient(t *testing.T, r *renderer) *Client {
	t.Helper()
	c := New(network.NewConn(time.Second), r.host, r.port)
	t.Cleanup(func() { c.Close() })
	return c
}

// topField returns the number of the single top-level field of a Cmd.
func topField(t *testing.T, payload []byte) (protowire.Number, []byte) {
	t.Helper()
	num, typ, n := protowire.ConsumeTag(payload)
	require.Greater(t, n, 0)
	require.Equal(t, protowire.BytesType, typ)
	body, m := protowire.ConsumeBytes(payload[n:])
	require.Greater(t, m, 0)
	require.Equal(t, len(payload), n+m, "exactly one command")
	return num, body
}

func readCmd(c net.Conn) (network.Frame, error) {
	f, err := network.ReadFrame(c)
	if err != nil {
		return f, err
	}
	if f.Kind != network.KindCommand {
		return f, assert.AnError
	}
	return f, nil
}

func testEye() xbuf.SetEye {
	return xbuf.SetEye{
		Location:   math.Vec3{X: 1, Y: 2, Z: 3},
		Rotation:   math.QuatIdentity(),
		Projection: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		Near:       0.1,
		Far:        100,
	}
}

func TestSetDataSkipsEmptyBatch(t *testing.T) {
	// nothing listens here: an empty batch must not even connect
	c := New(network.NewConn(time.Second), "127.0.0.1", 1)
	sent, err := c.SetData(context.Background(), &xbuf.Batch{})
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = c.SetData(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestCommandsAreFramed(t *testing.T) {
	got := make(chan []byte, 4)
	r := startRenderer(t, func(c net.Conn) error {
		for i := 0; i < 4; i++ {
			f, err := readCmd(c)
			if err != nil {
				return err
			}
			got <- f.Payload
		}
		return nil
	})
	c := newClient(t, r)
	ctx := context.Background()

	require.NoError(t, c.SetEye(ctx, testEye()))
	b := &xbuf.Batch{}
	b.AddRelation(xbuf.TagNode, "a", xbuf.TagMesh, "b")
	sent, err := c.SetData(ctx, b)
	require.NoError(t, err)
	assert.True(t, sent)
	require.NoError(t, c.ChangeAssetFolders(ctx, []string{"/assets"}, true, true))
	require.NoError(t, c.PlayAnimation(ctx, "node1", []string{"Walk", "Wave"}))
	r.wait(t)

	for want := protowire.Number(1); want <= 4; want++ {
		num, _ := topField(t, <-got)
		assert.Equal(t, want, num)
	}
}

func TestPlayAnimationPayload(t *testing.T) {
	got := make(chan []byte, 1)
	r := startRenderer(t, func(c net.Conn) error {
		f, err := readCmd(c)
		got <- f.Payload
		return err
	})
	c := newClient(t, r)
	require.NoError(t, c.PlayAnimation(context.Background(), "node1", []string{"Walk"}))
	r.wait(t)

	num, body := topField(t, <-got)
	assert.Equal(t, protowire.Number(4), num)

	// ref=1 "node1", names=2 "Walk"
	fnum, _, n := protowire.ConsumeTag(body)
	assert.Equal(t, protowire.Number(1), fnum)
	ref, m := protowire.ConsumeString(body[n:])
	assert.Equal(t, "node1", ref)
	body = body[n+m:]
	fnum, _, n = protowire.ConsumeTag(body)
	assert.Equal(t, protowire.Number(2), fnum)
	name, _ := protowire.ConsumeString(body[n:])
	assert.Equal(t, "Walk", name)
}

func TestRender(t *testing.T) {
	pixels := []byte{
		0, 0, 255, 255, 0, 255, 0, 255,
		255, 0, 0, 255, 255, 255, 255, 255,
	}
	r := startRenderer(t, func(c net.Conn) error {
		if _, err := readCmd(c); err != nil {
			return err
		}
		f, err := network.ReadFrame(c)
		if err != nil {
			return err
		}
		ask, err := packets.DecodeAskScreenshot(f.Payload)
		if err != nil || f.Kind != network.KindAskScreenshot || ask.Width != 2 || ask.Height != 2 {
			return assert.AnError
		}
		if err := network.WriteFrame(c, network.KindLog, []byte("rendering")); err != nil {
			return err
		}
		if err := network.WriteFrame(c, network.KindPingPong, nil); err != nil {
			return err
		}
		pong, err := network.ReadFrame(c)
		if err != nil || pong.Kind != network.KindPingPong {
			return assert.AnError
		}
		return network.WriteFrame(c, network.KindRawScreenshot, pixels)
	})
	c := newClient(t, r)

	shot, err := c.Render(context.Background(), testEye(), 2, 2)
	require.NoError(t, err)
	r.wait(t)

	assert.Equal(t, 2, shot.Width)
	assert.Equal(t, pixels, shot.Pixels)
	red, _, _, _ := shot.At(0, 0)
	assert.Equal(t, uint8(255), red)
}

func TestRenderWrongSize(t *testing.T) {
	r := startRenderer(t, func(c net.Conn) error {
		for i := 0; i < 2; i++ {
			if _, err := network.ReadFrame(c); err != nil {
				return err
			}
		}
		return network.WriteFrame(c, network.KindRawScreenshot, make([]byte, 3))
	})
	c := newClient(t, r)

	_, err := c.Render(context.Background(), testEye(), 2, 2)
	assert.ErrorIs(t, err, packets.ErrBadSize)
	r.wait(t)
}

func TestRenderUnexpectedKind(t *testing.T) {
	r := startRenderer(t, func(c net.Conn) error {
		for i := 0; i < 2; i++ {
			if _, err := network.ReadFrame(c); err != nil {
				return err
			}
		}
		return network.WriteFrame(c, network.KindCommand, nil)
	})
	c := newClient(t, r)

	_, err := c.Render(context.Background(), testEye(), 1, 1)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
	r.wait(t)
}

func TestPing(t *testing.T) {
	r := startRenderer(t, func(c net.Conn) error {
		f, err := network.ReadFrame(c)
		if err != nil || f.Kind != network.KindPingPong {
			return assert.AnError
		}
		if err := network.WriteFrame(c, network.KindLog, []byte("hi")); err != nil {
			return err
		}
		return network.WriteFrame(c, network.KindPingPong, nil)
	})
	c := newClient(t, r)

	require.NoError(t, c.Ping(context.Background()))
	r.wait(t)
}

func TestTransportFailureClosesStream(t *testing.T) {
	r := startRenderer(t, func(c net.Conn) error {
		return nil // hang up immediately
	})
	c := newClient(t, r)
	ctx := context.Background()

	fresh, err := c.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	r.wait(t)

	_, err = c.Render(ctx, testEye(), 1, 1)
	require.Error(t, err)
	assert.True(t, network.IsBrokenConn(err))
	assert.False(t, c.conn.Connected())
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := New(network.NewConn(time.Second), "127.0.0.1", port)
	err = c.SetEye(context.Background(), testEye())
	assert.Error(t, err)

	c.SetEndpoint("localhost", 4242)
	host, p := c.Endpoint()
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 4242, p)
}
