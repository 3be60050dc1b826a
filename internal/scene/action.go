package scene

import (
	"regexp"

	"github.com/Faultbox/renderlink/pkg/math"
)

// IDRoot is the kind of datablock an action was authored for.
type IDRoot string

const (
	RootObject   IDRoot = "OBJECT"
	RootArmature IDRoot = "ARMATURE"
)

// Interpolation is the curve shape between a keyframe and the next one.
type Interpolation int

const (
	InterpConstant Interpolation = iota
	InterpLinear
	InterpBezier
)

// Keyframe is one curve key. Handles are (frame, value) pairs.
type Keyframe struct {
	Frame         float32
	Value         float32
	Interpolation Interpolation
	HandleLeft    math.Vec2
	HandleRight   math.Vec2
}

// FCurve animates one component (Index) of the property at DataPath.
type FCurve struct {
	DataPath string
	Index    int
	Keys     []Keyframe
}

// Action is a set of curves over a frame range.
type Action struct {
	Handle     Handle
	Name       string
	IDRoot     IDRoot
	FrameStart float32
	FrameEnd   float32
	Curves     []*FCurve
	Updated    bool
}

// AddCurve appends a curve and returns it.
func (a *Action) AddCurve(path string, index int, keys ...Keyframe) *FCurve {
	c := &FCurve{DataPath: path, Index: index, Keys: keys}
	a.Curves = append(a.Curves, c)
	return c
}

// AnimationData links an object to its current action and NLA tracks.
type AnimationData struct {
	Action *Action
	Tracks []*NLATrack
}

// ActiveTrack returns the active track, or nil.
func (a *AnimationData) ActiveTrack() *NLATrack {
	for _, t := range a.Tracks {
		if t.Active {
			return t
		}
	}
	return nil
}

// NLATrack is an ordered list of strips.
type NLATrack struct {
	Name   string
	Active bool
	Strips []*NLAStrip
}

// NLAStrip places an action on a track.
type NLAStrip struct {
	Action *Action
	Select bool
}

var poseBonePath = regexp.MustCompile(`^pose\.bones\["([^"]*)"\]\.(.*)$`)

// ParseDataPath splits a curve path into the bone it targets (empty for the
// object itself) and the property name.
func ParseDataPath(path string) (bone, prop string) {
	if m := poseBonePath.FindStringSubmatch(path); m != nil {
		return m[1], m[2]
	}
	return "", path
}

// Evaluate returns the curve value at frame. Before the first key and after
// the last one the curve holds the boundary value.
func (c *FCurve) Evaluate(frame float32) float32 {
	keys := c.Keys
	if len(keys) == 0 {
		return 0
	}
	if len(keys) == 1 || frame <= keys[0].Frame {
		return keys[0].Value
	}

	// Find surrounding keyframes (keys are sorted by frame)
	var prev, next int
	for i := range keys {
		if keys[i].Frame > frame {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return keys[prev].Value
	}

	k0 := keys[prev]
	k1 := keys[next]
	switch k0.Interpolation {
	case InterpConstant:
		return k0.Value
	case InterpBezier:
		return bezierAt(k0, k1, frame)
	default:
		t := (frame - k0.Frame) / (k1.Frame - k0.Frame)
		return k0.Value + t*(k1.Value-k0.Value)
	}
}

// bezierAt solves the segment for x = frame by bisection, then evaluates y.
func bezierAt(k0, k1 Keyframe, frame float32) float32 {
	p0 := math.Vec2{X: k0.Frame, Y: k0.Value}
	p1 := k0.HandleRight
	p2 := k1.HandleLeft
	p3 := math.Vec2{X: k1.Frame, Y: k1.Value}

	cubic := func(a, b, c, d, t float32) float32 {
		u := 1 - t
		return u*u*u*a + 3*u*u*t*b + 3*u*t*t*c + t*t*t*d
	}

	lo, hi := float32(0), float32(1)
	t := float32(0.5)
	for i := 0; i < 30; i++ {
		t = (lo + hi) / 2
		if cubic(p0.X, p1.X, p2.X, p3.X, t) < frame {
			lo = t
		} else {
			hi = t
		}
	}
	return cubic(p0.Y, p1.Y, p2.Y, p3.Y, t)
}

// evaluate applies the action to the object transform and its pose.
func (o *Object) evaluate(a *Action, frame float32) {
	touched := map[*math.Quat]bool{}
	for _, c := range a.Curves {
		bone, prop := ParseDataPath(c.DataPath)
		loc, rot, scale := &o.Location, &o.Rotation, &o.Scale
		if bone != "" {
			pb := o.PoseBone(bone)
			if pb == nil {
				continue
			}
			loc, rot, scale = &pb.Location, &pb.Rotation, &pb.Scale
		}

		v := c.Evaluate(frame)
		switch prop {
		case "location":
			setVec3(loc, c.Index, v)
		case "scale":
			setVec3(scale, c.Index, v)
		case "rotation_quaternion":
			setQuat(rot, c.Index, v)
			touched[rot] = true
		}
	}
	for q := range touched {
		*q = q.Normalize()
	}
}

func setVec3(v *math.Vec3, i int, x float32) {
	switch i {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	case 2:
		v.Z = x
	}
}

// setQuat uses the host component order w, x, y, z.
func setQuat(q *math.Quat, i int, x float32) {
	switch i {
	case 0:
		q.W = x
	case 1:
		q.X = x
	case 2:
		q.Y = x
	case 3:
		q.Z = x
	}
}
