package xbuf

import (
	gomath "math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Faultbox/renderlink/pkg/math"
)

// The messages below are encoded in protobuf wire format with proto3 rules:
// zero scalars are omitted, repeated scalars are packed. Field numbers are
// listed next to each encoder.

type encoder struct {
	buf []byte
}

func (e *encoder) str(num protowire.Number, s string) {
	if s == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, s)
}

func (e *encoder) strs(num protowire.Number, ss []string) {
	for _, s := range ss {
		e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
		e.buf = protowire.AppendString(e.buf, s)
	}
}

func (e *encoder) f32(num protowire.Number, v float32) {
	if v == 0 {
		return
	}
	e.f32Always(num, v)
}

func (e *encoder) f32Always(num protowire.Number, v float32) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.Fixed32Type)
	e.buf = protowire.AppendFixed32(e.buf, gomath.Float32bits(v))
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.varintAlways(num, v)
}

func (e *encoder) varintAlways(num protowire.Number, v uint64) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

func (e *encoder) int32(num protowire.Number, v int32) {
	e.varint(num, uint64(int64(v)))
}

func (e *encoder) boolean(num protowire.Number, v bool) {
	e.varint(num, protowire.EncodeBool(v))
}

func (e *encoder) msg(num protowire.Number, fn func(*encoder)) {
	var sub encoder
	fn(&sub)
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, sub.buf)
}

func (e *encoder) packedF32(num protowire.Number, vs []float32) {
	if len(vs) == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendVarint(e.buf, uint64(len(vs)*4))
	for _, v := range vs {
		e.buf = protowire.AppendFixed32(e.buf, gomath.Float32bits(v))
	}
}

func (e *encoder) packedI32(num protowire.Number, vs []int32) {
	if len(vs) == 0 {
		return
	}
	var sub []byte
	for _, v := range vs {
		sub = protowire.AppendVarint(sub, uint64(int64(v)))
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, sub)
}

func (e *encoder) packedU32(num protowire.Number, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	var sub []byte
	for _, v := range vs {
		sub = protowire.AppendVarint(sub, uint64(v))
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, sub)
}

// Vec3: x=1 y=2 z=3
func (e *encoder) vec3(num protowire.Number, v math.Vec3) {
	e.msg(num, func(e *encoder) {
		e.f32(1, v.X)
		e.f32(2, v.Y)
		e.f32(3, v.Z)
	})
}

// Quaternion: x=1 y=2 z=3 w=4
func (e *encoder) quat(num protowire.Number, q math.Quat) {
	e.msg(num, func(e *encoder) {
		e.f32(1, q.X)
		e.f32(2, q.Y)
		e.f32(3, q.Z)
		e.f32(4, q.W)
	})
}

// Color: r=1 g=2 b=3 a=4
func (e *encoder) color(num protowire.Number, c Color) {
	e.msg(num, func(e *encoder) {
		e.f32(1, c.R)
		e.f32(2, c.G)
		e.f32(3, c.B)
		e.f32(4, c.A)
	})
}

// Transform: translation=1 rotation=2 scale=3
func (e *encoder) transform(num protowire.Number, t Transform) {
	e.msg(num, func(e *encoder) {
		e.vec3(1, t.Translation)
		e.quat(2, t.Rotation)
		e.vec3(3, t.Scale)
	})
}

// Relation: ref1=1 ref2=2 type1=3 type2=4
func (r Relation) appendTo(e *encoder) {
	e.str(1, r.Ref1)
	e.str(2, r.Ref2)
	e.str(3, r.Type1)
	e.str(4, r.Type2)
}

// Marshal encodes the relation on its own.
func (r Relation) Marshal() []byte {
	var e encoder
	r.appendTo(&e)
	return e.buf
}

// Node: id=1 name=2 transform=3
func (n *Node) appendTo(e *encoder) {
	e.str(1, n.ID)
	e.str(2, n.Name)
	e.transform(3, n.Transform)
}

// Mesh: id=1 name=2 primitive=3 vertexArrays=4 indexArrays=5 skin=6
// VertexArray: attrib=1 step=2 values=3; IndexArray: step=1 values=2
// Skin: boneCount=1 boneIndex=2 boneWeight=3
func (m *Mesh) appendTo(e *encoder) {
	e.str(1, m.ID)
	e.str(2, m.Name)
	e.int32(3, int32(m.Primitive))
	for i := range m.VertexArrays {
		va := &m.VertexArrays[i]
		e.msg(4, func(e *encoder) {
			e.int32(1, int32(va.Attrib))
			e.int32(2, va.Step)
			e.packedF32(3, va.Floats)
		})
	}
	for i := range m.IndexArrays {
		ia := &m.IndexArrays[i]
		e.msg(5, func(e *encoder) {
			e.int32(1, ia.Step)
			e.packedU32(2, ia.Ints)
		})
	}
	if m.Skin != nil {
		e.msg(6, func(e *encoder) {
			e.packedI32(1, m.Skin.BoneCount)
			e.packedI32(2, m.Skin.BoneIndex)
			e.packedF32(3, m.Skin.BoneWeight)
		})
	}
}

// Texture: id=1 rpath=2
func (e *encoder) texture(num protowire.Number, t *Texture) {
	if t == nil {
		return
	}
	e.msg(num, func(e *encoder) {
		e.str(1, t.ID)
		e.str(2, t.RPath)
	})
}

// Material: id=1 name=2 color=3 specular=4 specular_power=5 emission=6
// color_map=7 specular_map=8 emission_map=9 opacity_map=10 normal_map=11 shadeless=12
func (m *Material) appendTo(e *encoder) {
	e.str(1, m.ID)
	e.str(2, m.Name)
	e.color(3, m.Color)
	if m.Specular != nil {
		e.color(4, *m.Specular)
		e.f32(5, m.SpecularPower)
	}
	if m.Emission != nil {
		e.color(6, *m.Emission)
	}
	e.texture(7, m.ColorMap)
	e.texture(8, m.SpecularMap)
	e.texture(9, m.EmissionMap)
	e.texture(10, m.OpacityMap)
	e.texture(11, m.NormalMap)
	e.boolean(12, m.Shadeless)
}

// Light: id=1 name=2 kind=3 color=4 intensity=5 spot_angle=6 radial_distance=7 cast_shadow=8
// SpotAngle: max=1 linear_begin=2
// RadialDistance: max=1 falloff=2 scale=3 constant=4 linear=5 quadratic=6 linear_end=7
func (l *Light) appendTo(e *encoder) {
	e.str(1, l.ID)
	e.str(2, l.Name)
	e.int32(3, int32(l.Kind))
	e.color(4, l.Color)
	e.f32(5, l.Intensity)
	if sa := l.SpotAngle; sa != nil {
		e.msg(6, func(e *encoder) {
			e.f32(1, sa.Max)
			e.f32(2, sa.LinearBegin)
		})
	}
	if rd := l.RadialDistance; rd != nil {
		e.msg(7, func(e *encoder) {
			e.f32(1, rd.Max)
			e.int32(2, int32(rd.Falloff))
			e.f32(3, rd.Scale)
			e.f32(4, rd.Constant)
			e.f32(5, rd.Linear)
			e.f32(6, rd.Quadratic)
			e.f32(7, rd.LinearEnd)
		})
	}
	e.boolean(8, l.CastShadow)
}

// Skeleton: id=1 name=2 bones=3 bones_graph=4; Bone: id=1 name=2 transform=3
func (s *Skeleton) appendTo(e *encoder) {
	e.str(1, s.ID)
	e.str(2, s.Name)
	for i := range s.Bones {
		b := &s.Bones[i]
		e.msg(3, func(e *encoder) {
			e.str(1, b.ID)
			e.str(2, b.Name)
			e.transform(3, b.Transform)
		})
	}
	for _, r := range s.BonesGraph {
		e.msg(4, r.appendTo)
	}
}

// SampledTransform: bone_name=1 at=2 translation_xyz=3..5 scale_xyz=6..8 rotation_wxyz=9..12
func (s *SampledTransform) appendTo(e *encoder) {
	e.str(1, s.BoneName)
	e.packedI32(2, s.At)
	e.packedF32(3, s.TranslationX)
	e.packedF32(4, s.TranslationY)
	e.packedF32(5, s.TranslationZ)
	e.packedF32(6, s.ScaleX)
	e.packedF32(7, s.ScaleY)
	e.packedF32(8, s.ScaleZ)
	e.packedF32(9, s.RotationW)
	e.packedF32(10, s.RotationX)
	e.packedF32(11, s.RotationY)
	e.packedF32(12, s.RotationZ)
}

// KeyPoints: at=1 values=2 interpolation=3 bezier_params=4
// BezierParams: h0_x=1 h0_y=2 h1_x=3 h1_y=4
func (e *encoder) keyPoints(num protowire.Number, kp *KeyPoints) {
	if kp == nil {
		return
	}
	e.msg(num, func(e *encoder) {
		e.packedI32(1, kp.At)
		e.packedF32(2, kp.Values)
		interp := make([]int32, len(kp.Interpolation))
		for i, v := range kp.Interpolation {
			interp[i] = int32(v)
		}
		e.packedI32(3, interp)
		for _, bp := range kp.Bezier {
			e.msg(4, func(e *encoder) {
				e.f32(1, bp.H0X)
				e.f32(2, bp.H0Y)
				e.f32(3, bp.H1X)
				e.f32(4, bp.H1Y)
			})
		}
	})
}

// TransformKeys: bone_name=1 translation=2 scale=3 rotation=4
// translation/scale: x=1 y=2 z=3; rotation: w=1 x=2 y=3 z=4
func (k *TransformKeys) appendTo(e *encoder) {
	e.str(1, k.BoneName)
	vec := func(num protowire.Number, ch [3]*KeyPoints) {
		if ch[0] == nil && ch[1] == nil && ch[2] == nil {
			return
		}
		e.msg(num, func(e *encoder) {
			for i, kp := range ch {
				e.keyPoints(protowire.Number(i+1), kp)
			}
		})
	}
	vec(2, k.Translation)
	vec(3, k.Scale)
	if k.Rotation != [4]*KeyPoints{} {
		e.msg(4, func(e *encoder) {
			for i, kp := range k.Rotation {
				e.keyPoints(protowire.Number(i+1), kp)
			}
		})
	}
}

// AnimationClip: id=1 name=2 target_kind=3 duration=4 clips=5
// Clip: sampled_transform=1 transforms=2
func (a *AnimationClip) appendTo(e *encoder) {
	e.str(1, a.ID)
	e.str(2, a.Name)
	e.int32(3, int32(a.TargetKind))
	e.int32(4, a.Duration)
	for i := range a.Clips {
		c := &a.Clips[i]
		e.msg(5, func(e *encoder) {
			if c.Sampled != nil {
				e.msg(1, c.Sampled.appendTo)
			}
			if c.Keys != nil {
				e.msg(2, c.Keys.appendTo)
			}
		})
	}
}

// CustomParams: id=1 params=2
// Param: name=1 then one of vbool=2 vstring=3 vfloat=4 vint=5 vvec3=6 vquat=7
func (c *CustomParams) appendTo(e *encoder) {
	e.str(1, c.ID)
	for i := range c.Params {
		p := &c.Params[i]
		e.msg(2, func(e *encoder) {
			e.str(1, p.Name)
			switch p.Kind {
			case ParamBool:
				e.varintAlways(2, protowire.EncodeBool(p.Bool))
			case ParamString:
				e.buf = protowire.AppendTag(e.buf, 3, protowire.BytesType)
				e.buf = protowire.AppendString(e.buf, p.String)
			case ParamFloat:
				e.f32Always(4, p.Float)
			case ParamInt:
				e.varintAlways(5, uint64(p.Int))
			case ParamVec3:
				e.vec3(6, p.Vec3)
			case ParamQuat:
				e.quat(7, p.Quat)
			}
		})
	}
}

// Data: relations=1 tobjects=2 meshes=3 materials=4 lights=5 skeletons=6
// animations=7 custom_params=8
func (b *Batch) appendTo(e *encoder) {
	for _, r := range b.Relations {
		e.msg(1, r.appendTo)
	}
	for i := range b.Nodes {
		e.msg(2, b.Nodes[i].appendTo)
	}
	for i := range b.Meshes {
		e.msg(3, b.Meshes[i].appendTo)
	}
	for i := range b.Materials {
		e.msg(4, b.Materials[i].appendTo)
	}
	for i := range b.Lights {
		e.msg(5, b.Lights[i].appendTo)
	}
	for i := range b.Skeletons {
		e.msg(6, b.Skeletons[i].appendTo)
	}
	for i := range b.Animations {
		e.msg(7, b.Animations[i].appendTo)
	}
	for i := range b.CustomParams {
		e.msg(8, b.CustomParams[i].appendTo)
	}
}

// Marshal encodes the batch as a Data message.
func (b *Batch) Marshal() []byte {
	var e encoder
	b.appendTo(&e)
	return e.buf
}

// SetEye: location=1 rotation=2 projection=3 near=4 far=5 proj_mode=6
// ChangeAssetFolders: path=1 register=2 unregister_other=3
// PlayAnimation: ref=1 animations_names=2
// Cmd: set_eye=1 set_data=2 change_asset_folders=3 play_animation=4

// Marshal encodes the command envelope.
func (c *Cmd) Marshal() ([]byte, error) {
	if c.count() != 1 {
		return nil, ErrInvalidCmd
	}
	var e encoder
	switch {
	case c.SetEye != nil:
		se := c.SetEye
		e.msg(1, func(e *encoder) {
			e.vec3(1, se.Location)
			e.quat(2, se.Rotation)
			e.msg(3, func(e *encoder) {
				e.packedF32(1, se.Projection[:])
			})
			e.f32(4, se.Near)
			e.f32(5, se.Far)
			e.int32(6, int32(se.ProjMode))
		})
	case c.SetData != nil:
		e.msg(2, c.SetData.appendTo)
	case c.ChangeAssetFolders != nil:
		caf := c.ChangeAssetFolders
		e.msg(3, func(e *encoder) {
			e.strs(1, caf.Paths)
			e.boolean(2, caf.Register)
			e.boolean(3, caf.UnregisterOthers)
		})
	case c.PlayAnimation != nil:
		pa := c.PlayAnimation
		e.msg(4, func(e *encoder) {
			e.str(1, pa.Ref)
			e.strs(2, pa.AnimationNames)
		})
	}
	return e.buf, nil
}
