// Package bridge drives the renderer from host events: scene updates are
// exported and pushed, draws fetch a screenshot, and NLA strip selection is
// mirrored as animation playback.
package bridge

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/command"
	"github.com/Faultbox/renderlink/internal/export"
	"github.com/Faultbox/renderlink/internal/logger"
	"github.com/Faultbox/renderlink/internal/network/packets"
	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/xbuf"
	"github.com/Faultbox/renderlink/pkg/xform"
)

// PixelSink receives rendered images.
type PixelSink interface {
	Draw(shot *packets.RawScreenshot) error
}

// PixelSinkFunc adapts a function to PixelSink.
type PixelSinkFunc func(shot *packets.RawScreenshot) error

// Draw calls f(shot).
func (f PixelSinkFunc) Draw(shot *packets.RawScreenshot) error {
	return f(shot)
}

// Bridge connects one scene session to one renderer.
type Bridge struct {
	client   *command.Client
	session  *export.Session
	listener *ChangeListener
	notified bool

	// dials is the client stream count seen by the last update.
	dials int
	// folders is the asset folder last announced on the current stream.
	folders string
	strips  map[string][]string
	log     *zap.Logger
}

// New creates a bridge.
func New(client *command.Client, session *export.Session) *Bridge {
	return &Bridge{
		client:   client,
		session:  session,
		listener: NewChangeListener(session),
		strips:   make(map[string][]string),
		log:      logger.Named("bridge"),
	}
}

// Listener returns the change listener to call after host updates.
func (b *Bridge) Listener() *ChangeListener {
	return b.listener
}

// Update pushes the pending changes of sc. The asset folder is announced on
// every new stream and whenever it changes. A new stream after a previous
// one also resets the session, so a restarted renderer gets the whole scene.
func (b *Bridge) Update(ctx context.Context, sc *scene.Scene) error {
	if !b.notified {
		b.listener.SceneUpdatePost(sc)
		b.notified = true
	}

	if _, err := b.client.Connect(ctx); err != nil {
		return err
	}
	if dials := b.client.Dials(); dials != b.dials {
		if b.dials > 0 {
			b.log.Info("renderer reconnected, sending full scene")
			b.session.Reset()
		}
		b.dials = dials
		b.folders = ""
	}

	assets := b.session.Options().AssetsPath
	if assets != b.folders {
		if err := b.client.ChangeAssetFolders(ctx, []string{assets}, true, true); err != nil {
			return err
		}
		b.folders = assets
	}

	batch, err := export.Export(ctx, b.session, sc)
	if err != nil {
		return err
	}
	for _, w := range batch.Warnings {
		b.log.Debug("export warning", zap.String("warning", w))
	}
	_, err = b.client.SetData(ctx, batch)
	return err
}

// Draw renders sc from eye and hands the image to sink, then mirrors the
// strip selection.
func (b *Bridge) Draw(ctx context.Context, sc *scene.Scene, eye xbuf.SetEye, width, height int, sink PixelSink) error {
	shot, err := b.client.Render(ctx, eye, width, height)
	if err != nil {
		return err
	}
	if err := sink.Draw(shot); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return b.CheckStripSelection(ctx, sc)
}

// CheckStripSelection sends playAnimation for every animated object whose
// selected strips on the active track changed since the last call.
func (b *Bridge) CheckStripSelection(ctx context.Context, sc *scene.Scene) error {
	var errs error
	for _, o := range sc.Objects {
		if o.Animation == nil || len(o.Animation.Tracks) == 0 {
			continue
		}
		selected := selectedStrips(o.Animation)
		id, err := b.session.IDOf(o.Handle)
		if err != nil {
			return err
		}
		if last, ok := b.strips[id]; ok && slices.Equal(last, selected) {
			continue
		}
		b.strips[id] = selected
		errs = multierr.Append(errs, b.client.PlayAnimation(ctx, id, selected))
	}
	return errs
}

// selectedStrips returns the sorted action names of the selected strips on
// the active track.
func selectedStrips(ad *scene.AnimationData) []string {
	names := []string{}
	track := ad.ActiveTrack()
	if track == nil {
		return names
	}
	for _, s := range track.Strips {
		if s.Select && s.Action != nil {
			names = append(names, s.Action.Name)
		}
	}
	sort.Strings(names)
	return names
}

// EyeFromCamera returns the eye of a camera object for a viewport of the
// given size. Objects without camera data use default lens settings.
func EyeFromCamera(o *scene.Object, width, height int) xbuf.SetEye {
	cam := o.Camera
	if cam == nil {
		cam = &scene.Camera{FOV: 0.8575, ClipStart: 0.1, ClipEnd: 100, OrthoScale: 7}
	}
	eye := xbuf.SetEye{
		Location:   xform.Vector(o.Location),
		Rotation:   xform.QuatZupToYup(xform.ZBackwardToForward(o.Rotation)),
		Projection: xform.Matrix4(cam.Projection(width, height)),
		Near:       cam.ClipStart,
		Far:        cam.ClipEnd,
		ProjMode:   xbuf.ProjPerspective,
	}
	if cam.Ortho {
		eye.ProjMode = xbuf.ProjOrthographic
	}
	return eye
}
