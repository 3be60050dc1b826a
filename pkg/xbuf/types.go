// Package xbuf defines the records exchanged with the external renderer and
// their protobuf wire encoding.
package xbuf

import "github.com/Faultbox/renderlink/pkg/math"

// Entity type tags used in relations. Tags are compared lexicographically
// when a relation is canonicalized.
const (
	TagNode         = "TObject"
	TagMesh         = "Mesh"
	TagMaterial     = "Material"
	TagLight        = "Light"
	TagSkeleton     = "Skeleton"
	TagAnimation    = "AnimationKF"
	TagCustomParams = "CustomParams"
)

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// RGB returns an opaque color.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// Transform is a local transform in wire convention.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// Node is a placed scene object.
type Node struct {
	ID        string
	Name      string
	Transform Transform
}

// Primitive is the mesh topology.
type Primitive int32

const (
	PrimitiveTriangles Primitive = 0
)

// VertexAttrib identifies the content of a vertex array.
type VertexAttrib int32

const (
	AttribPosition     VertexAttrib = 0
	AttribNormal       VertexAttrib = 1
	AttribBitangent    VertexAttrib = 2
	AttribTangentFrame VertexAttrib = 3
	AttribColor        VertexAttrib = 4
	AttribTexCoord     VertexAttrib = 5 // AttribTexCoord+n for channel n, up to MaxTexCoords
)

// MaxTexCoords is the number of texture coordinate channels that are exported.
const MaxTexCoords = 9

// Per-vertex strides of the vertex arrays.
const (
	StridePosition     = 3
	StrideNormal       = 3
	StrideTangentFrame = 4
	StrideColor        = 4
	StrideTexCoord     = 2
	StrideTriangle     = 3
)

// VertexArray is a flat float buffer with a fixed per-vertex step.
type VertexArray struct {
	Attrib VertexAttrib
	Step   int32
	Floats []float32
}

// VertexCount returns the number of vertices held by the array.
func (a *VertexArray) VertexCount() int {
	if a.Step == 0 {
		return 0
	}
	return len(a.Floats) / int(a.Step)
}

// IndexArray is a flat integer buffer, Step indices per primitive.
type IndexArray struct {
	Step int32
	Ints []uint32
}

// Skin holds per-vertex bone influences. BoneCount has one entry per vertex;
// BoneIndex and BoneWeight hold sum(BoneCount) entries.
type Skin struct {
	BoneCount  []int32
	BoneIndex  []int32
	BoneWeight []float32
}

// Mesh is one material bucket of a source mesh.
type Mesh struct {
	ID           string
	Name         string
	Primitive    Primitive
	VertexArrays []VertexArray
	IndexArrays  []IndexArray
	Skin         *Skin
}

// VertexArray returns the array holding attrib, or nil.
func (m *Mesh) VertexArray(attrib VertexAttrib) *VertexArray {
	for i := range m.VertexArrays {
		if m.VertexArrays[i].Attrib == attrib {
			return &m.VertexArrays[i]
		}
	}
	return nil
}

// Texture references an image by path relative to the assets root.
type Texture struct {
	ID    string
	RPath string
}

// Material describes surface appearance.
type Material struct {
	ID            string
	Name          string
	Color         Color
	Specular      *Color
	SpecularPower float32
	Emission      *Color
	ColorMap      *Texture
	SpecularMap   *Texture
	EmissionMap   *Texture
	OpacityMap    *Texture
	NormalMap     *Texture
	Shadeless     bool
}

// LightKind is the light emission model.
type LightKind int32

const (
	LightDirectional LightKind = 1
	LightPoint       LightKind = 2
	LightSpot        LightKind = 3
)

// SpotAngle bounds the cone of a spot light. Intensity fades linearly from
// LinearBegin (as a fraction of Max) to Max.
type SpotAngle struct {
	Max         float32
	LinearBegin float32
}

// Falloff is the radial attenuation model.
type Falloff int32

const (
	FalloffNone Falloff = iota
	FalloffInverse
	FalloffInverseSquare
)

// RadialDistance describes attenuation with distance.
type RadialDistance struct {
	Max       float32
	Falloff   Falloff
	Scale     float32
	Constant  float32
	Linear    float32
	Quadratic float32
	// LinearEnd is set to 1 when intensity reaches zero at the sphere radius Max.
	LinearEnd float32
}

// Light is a light source. Its placement comes from the related Node.
type Light struct {
	ID             string
	Name           string
	Kind           LightKind
	Color          Color
	Intensity      float32
	SpotAngle      *SpotAngle
	RadialDistance *RadialDistance
	CastShadow     bool
}

// Bone is a skeleton joint with a parent-relative transform.
type Bone struct {
	ID        string
	Name      string
	Transform Transform
}

// Skeleton is an ordered bone list; BonesGraph holds parent->child pairs
// (Ref1 parent, Ref2 child).
type Skeleton struct {
	ID         string
	Name       string
	Bones      []Bone
	BonesGraph []Relation
}

// TargetKind tells which entity an animation drives.
type TargetKind int32

const (
	TargetNode     TargetKind = 0
	TargetSkeleton TargetKind = 1
)

// SampledTransform holds one track of sampled transforms as parallel arrays.
// At is in milliseconds.
type SampledTransform struct {
	BoneName     string
	At           []int32
	TranslationX []float32
	TranslationY []float32
	TranslationZ []float32
	ScaleX       []float32
	ScaleY       []float32
	ScaleZ       []float32
	RotationW    []float32
	RotationX    []float32
	RotationY    []float32
	RotationZ    []float32
}

// Len returns the number of stored samples.
func (s *SampledTransform) Len() int {
	return len(s.At)
}

// Append stores one sample.
func (s *SampledTransform) Append(at int32, t Transform) {
	s.At = append(s.At, at)
	s.TranslationX = append(s.TranslationX, t.Translation.X)
	s.TranslationY = append(s.TranslationY, t.Translation.Y)
	s.TranslationZ = append(s.TranslationZ, t.Translation.Z)
	s.ScaleX = append(s.ScaleX, t.Scale.X)
	s.ScaleY = append(s.ScaleY, t.Scale.Y)
	s.ScaleZ = append(s.ScaleZ, t.Scale.Z)
	s.RotationW = append(s.RotationW, t.Rotation.W)
	s.RotationX = append(s.RotationX, t.Rotation.X)
	s.RotationY = append(s.RotationY, t.Rotation.Y)
	s.RotationZ = append(s.RotationZ, t.Rotation.Z)
}

// Interpolation between two keypoints.
type Interpolation int32

const (
	InterpolationLinear   Interpolation = 0
	InterpolationConstant Interpolation = 1
	InterpolationBezier   Interpolation = 2
)

// BezierParams holds the handles of one bezier segment; x is normalized to the
// segment duration, y is in value space.
type BezierParams struct {
	H0X, H0Y float32
	H1X, H1Y float32
}

// KeyPoints is one animated scalar channel.
type KeyPoints struct {
	At            []int32
	Values        []float32
	Interpolation []Interpolation
	Bezier        []BezierParams
}

// TransformKeys holds keyframed channels for one target. Nil channels are not animated.
type TransformKeys struct {
	BoneName    string
	Translation [3]*KeyPoints
	Scale       [3]*KeyPoints
	Rotation    [4]*KeyPoints // w, x, y, z
}

// Clip is one animated target of an animation: either sampled or keyframed.
type Clip struct {
	Sampled *SampledTransform
	Keys    *TransformKeys
}

// AnimationClip is an action exported for one node or skeleton.
type AnimationClip struct {
	ID         string
	Name       string
	TargetKind TargetKind
	Duration   int32
	Clips      []Clip
}

// ParamKind is the type of a custom parameter value.
type ParamKind int

const (
	ParamBool ParamKind = iota
	ParamString
	ParamFloat
	ParamInt
	ParamVec3
	ParamQuat
)

// Param is a named typed value; only the field matching Kind is meaningful.
type Param struct {
	Name   string
	Kind   ParamKind
	Bool   bool
	String string
	Float  float32
	Int    int64
	Vec3   math.Vec3
	Quat   math.Quat
}

// CustomParams is an ordered list of user parameters attached to an entity.
type CustomParams struct {
	ID     string
	Params []Param
}
