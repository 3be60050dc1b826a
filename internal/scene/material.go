package scene

import "github.com/Faultbox/renderlink/pkg/math"

// TextureUse is the material channel a texture slot feeds.
type TextureUse int

const (
	UseColor TextureUse = iota
	UseSpecular
	UseEmission
	UseOpacity
	UseNormal
)

// Material is a legacy diffuse/specular surface description.
type Material struct {
	Handle            Handle
	Name              string
	DiffuseColor      [3]float32
	DiffuseIntensity  float32
	SpecularColor     [3]float32
	SpecularIntensity float32
	SpecularHardness  float32
	Emit              float32
	Shadeless         bool
	TextureSlots      []TextureSlot
	Updated           bool
}

// TextureSlot binds a texture to a material channel.
type TextureSlot struct {
	Texture *Texture
	Use     TextureUse
	// UVLayer names the texture coordinate channel; empty means the first one.
	UVLayer  string
	Disabled bool
}

// NormalMapSlot returns the first enabled normal map slot, or nil.
func (m *Material) NormalMapSlot() *TextureSlot {
	for i := range m.TextureSlots {
		s := &m.TextureSlots[i]
		if !s.Disabled && s.Use == UseNormal && s.Texture != nil {
			return s
		}
	}
	return nil
}

// Texture is an image, either packed into the scene or stored on disk.
type Texture struct {
	Handle Handle
	Name   string
	// FilePath is the image location; for packed images only its base name is used.
	FilePath string
	Packed   []byte
	Updated  bool
}

// IsPacked reports whether the image bytes live in the scene.
func (t *Texture) IsPacked() bool {
	return len(t.Packed) > 0
}

// LightType is the host light model.
type LightType int

const (
	LightPoint LightType = iota
	LightSun
	LightSpot
	LightArea
	LightHemi
)

// LightFalloff is the host attenuation model of point and spot lights.
type LightFalloff int

const (
	FalloffConstant LightFalloff = iota
	FalloffInverseLinear
	FalloffInverseSquare
	FalloffLinearQuadraticWeighted
)

// Light is lamp data.
type Light struct {
	Handle               Handle
	Name                 string
	Type                 LightType
	Color                [3]float32
	Energy               float32
	Distance             float32
	SpotSize             float32
	SpotBlend            float32
	Falloff              LightFalloff
	LinearAttenuation    float32
	QuadraticAttenuation float32
	UseSphere            bool
	UseShadow            bool
	Updated              bool
}

// Camera is camera data.
type Camera struct {
	Handle Handle
	Name   string
	// FOV is the vertical field of view in radians.
	FOV        float32
	ClipStart  float32
	ClipEnd    float32
	Ortho      bool
	OrthoScale float32
}

// Projection returns the projection matrix for a viewport of the given size.
func (c *Camera) Projection(width, height int) math.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	if c.Ortho {
		h := c.OrthoScale / 2
		w := h * aspect
		return math.Ortho(-w, w, -h, h, c.ClipStart, c.ClipEnd)
	}
	return math.Perspective(c.FOV, aspect, c.ClipStart, c.ClipEnd)
}
