package export

import (
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// actions exports every NLA strip action of the animated objects. Sampling
// moves the scene through the action frames; the current action of each
// object and the scene frame are restored afterwards.
func (e *exporter) actions() error {
	frame := e.sc.Frame
	defer e.sc.SetFrame(frame)

	fps := e.sc.FPS
	if fps < 1 {
		fps = 1
	}
	for _, o := range e.sc.Objects {
		if o.Animation == nil {
			continue
		}
		if err := e.objectActions(o, fps); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) objectActions(o *scene.Object, fps float32) error {
	current := o.Animation.Action
	defer func() { o.Animation.Action = current }()

	oid, err := e.id(o.Handle)
	if err != nil {
		return err
	}
	for _, track := range o.Animation.Tracks {
		for _, strip := range track.Strips {
			a := strip.Action
			if a == nil {
				continue
			}
			aid, err := e.id(a.Handle)
			if err != nil {
				return err
			}
			if e.s.NeedUpdate(a.Handle) {
				if clip, ok := e.action(o, a, aid, fps); ok {
					e.batch.Animations = append(e.batch.Animations, clip)
				}
			}
			e.batch.AddRelation(xbuf.TagNode, oid, xbuf.TagAnimation, aid)
		}
	}
	return nil
}

func (e *exporter) action(o *scene.Object, a *scene.Action, id string, fps float32) (xbuf.AnimationClip, bool) {
	start, end := int(a.FrameStart), int(a.FrameEnd)
	clip := xbuf.AnimationClip{
		ID:       id,
		Name:     a.Name,
		Duration: toTime(float32(max(1, end+1-start)), fps),
	}
	switch a.IDRoot {
	case scene.RootObject:
		clip.TargetKind = xbuf.TargetNode
	case scene.RootArmature:
		clip.TargetKind = xbuf.TargetSkeleton
	default:
		e.warn(a.Name, "unsupported action root", zap.String("root", string(a.IDRoot)))
		return xbuf.AnimationClip{}, false
	}

	if e.s.opts.Animation == AnimationCurves {
		clip.Clips = e.curveClips(a, fps)
		return clip, true
	}

	samplers := e.samplers(o, a)
	o.Animation.Action = a
	for f := start; f <= end; f++ {
		e.sc.SetFrame(f)
		at := toTime(float32(f), fps)
		for _, s := range samplers {
			s.capture(at)
		}
	}
	for _, s := range samplers {
		s.flush()
		clip.Clips = append(clip.Clips, xbuf.Clip{Sampled: s.out})
	}
	return clip, true
}

// samplers returns one sampler per animated target: the object itself for
// object actions, then one per pose bone for armatures.
func (e *exporter) samplers(o *scene.Object, a *scene.Action) []*sampler {
	eps := e.s.opts.SampleEpsilon
	var out []*sampler
	if a.IDRoot == scene.RootObject {
		out = append(out, newSampler("", eps, o.MatrixLocal))
		if o.Type != scene.ObjectArmature {
			return out
		}
	}
	for i := range o.Pose {
		pb := &o.Pose[i]
		out = append(out, newSampler(pb.Name, eps, pb.MatrixBasis))
	}
	return out
}

// toTime converts a frame number to milliseconds.
func toTime(frame, fps float32) int32 {
	return int32(frame * 1000 / fps)
}

// sampler records a transform track, dropping runs of unchanged matrices. The
// last timestamp of a run is kept so interpolation holds the value until the
// change.
type sampler struct {
	out    *xbuf.SampledTransform
	eps    float32
	matrix func() math.Mat4

	prev   math.Mat4
	seen   bool
	heldAt int32
	held   bool
}

func newSampler(bone string, eps float32, matrix func() math.Mat4) *sampler {
	return &sampler{
		out:    &xbuf.SampledTransform{BoneName: bone},
		eps:    eps,
		matrix: matrix,
	}
}

func (s *sampler) capture(at int32) {
	s.add(at, s.matrix())
}

func (s *sampler) add(at int32, m math.Mat4) {
	if s.seen && m.ApproxEqual(s.prev, s.eps) {
		s.heldAt, s.held = at, true
		return
	}
	s.flush()
	s.prev, s.seen = m, true
	s.out.Append(at, matrixTransform(m))
}

// flush stores the pending end of a run of equal samples.
func (s *sampler) flush() {
	if s.held {
		s.out.Append(s.heldAt, matrixTransform(s.prev))
		s.held = false
	}
}

// channel maps a host curve index to a wire channel with a sign.
type channel struct {
	dst   int
	coeff float32
}

var (
	translationChannels = []channel{{0, 1}, {2, -1}, {1, 1}}
	scaleChannels       = []channel{{0, 1}, {2, 1}, {1, 1}}
	// host w, x, y, z -> wire w, x, z, -y
	rotationChannels = []channel{{0, 1}, {1, 1}, {3, -1}, {2, 1}}
)

// curveClips exports the keyframes of a, one TransformKeys per target.
func (e *exporter) curveClips(a *scene.Action, fps float32) []xbuf.Clip {
	var order []string
	targets := map[string]*xbuf.TransformKeys{}
	target := func(bone string) *xbuf.TransformKeys {
		tk, ok := targets[bone]
		if !ok {
			tk = &xbuf.TransformKeys{BoneName: bone}
			targets[bone] = tk
			order = append(order, bone)
		}
		return tk
	}

	for _, c := range a.Curves {
		bone, prop := scene.ParseDataPath(c.DataPath)
		var table []channel
		switch prop {
		case "location":
			table = translationChannels
		case "scale":
			table = scaleChannels
		case "rotation_quaternion":
			table = rotationChannels
		default:
			e.warn(a.Name, "unsupported curve", zap.String("path", c.DataPath))
			continue
		}
		if c.Index < 0 || c.Index >= len(table) || len(c.Keys) == 0 {
			e.warn(a.Name, "curve index out of range",
				zap.String("path", c.DataPath), zap.Int("index", c.Index))
			continue
		}
		ch := table[c.Index]
		kp := keyPoints(c, ch.coeff, fps)
		tk := target(bone)
		switch prop {
		case "location":
			tk.Translation[ch.dst] = kp
		case "scale":
			tk.Scale[ch.dst] = kp
		default:
			tk.Rotation[ch.dst] = kp
		}
	}

	out := make([]xbuf.Clip, 0, len(order))
	for _, bone := range order {
		out = append(out, xbuf.Clip{Keys: targets[bone]})
	}
	return out
}

// keyPoints converts a curve. Bezier handles are stored per segment with x
// normalized to the segment length.
func keyPoints(c *scene.FCurve, coeff, fps float32) *xbuf.KeyPoints {
	n := len(c.Keys)
	kp := &xbuf.KeyPoints{
		At:            make([]int32, n),
		Values:        make([]float32, n),
		Interpolation: make([]xbuf.Interpolation, n),
	}
	bezier := false
	for i, k := range c.Keys {
		kp.At[i] = toTime(k.Frame, fps)
		kp.Values[i] = k.Value * coeff
		switch k.Interpolation {
		case scene.InterpConstant:
			kp.Interpolation[i] = xbuf.InterpolationConstant
		case scene.InterpBezier:
			kp.Interpolation[i] = xbuf.InterpolationBezier
			bezier = true
		default:
			kp.Interpolation[i] = xbuf.InterpolationLinear
		}
	}
	if !bezier {
		return kp
	}

	kp.Bezier = make([]xbuf.BezierParams, n)
	for i := 0; i+1 < n; i++ {
		k0, k1 := c.Keys[i], c.Keys[i+1]
		span := k1.Frame - k0.Frame
		if span <= 0 {
			continue
		}
		kp.Bezier[i] = xbuf.BezierParams{
			H0X: (k0.HandleRight.X - k0.Frame) / span,
			H0Y: k0.HandleRight.Y * coeff,
			H1X: (k1.HandleLeft.X - k0.Frame) / span,
			H1Y: k1.HandleLeft.Y * coeff,
		}
	}
	return kp
}
