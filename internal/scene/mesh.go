package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/renderlink/pkg/math"
)

// Mesh is polygon data shared by mesh objects.
type Mesh struct {
	Handle   Handle
	Name     string
	Vertices []Vertex
	Faces    []Face
	// UVLayers names the texture coordinate channels, in channel order.
	UVLayers []string
	// HasColors is set when faces carry per-corner vertex colors.
	HasColors bool
	Updated   bool
}

// Vertex is a shared mesh vertex.
type Vertex struct {
	Co     math.Vec3
	Normal math.Vec3
	Groups []GroupWeight
}

// GroupWeight is the membership of a vertex in an object vertex group.
type GroupWeight struct {
	Group  int
	Weight float32
}

// Face is a polygon with per-corner attributes.
type Face struct {
	Vertices      []int
	MaterialIndex int
	// Colors has one RGB entry per corner when the mesh has colors.
	Colors [][3]float32
	// UVs is indexed by channel then corner.
	UVs [][]math.Vec2
}

// UVLayer returns the channel index of the named layer, or -1.
func (m *Mesh) UVLayer(name string) int {
	for i, n := range m.UVLayers {
		if n == name {
			return i
		}
	}
	return -1
}

// TangentBasis is the per-corner surface frame for one UV channel.
type TangentBasis struct {
	Tangent   math.Vec3
	Bitangent math.Vec3
	Normal    math.Vec3
}

// CalcTangents computes a tangent frame per face corner from the UV channel
// uv. The result is indexed by face then corner. Faces with degenerate UVs
// get a tangent perpendicular to the vertex normal.
func (m *Mesh) CalcTangents(uv int) [][]TangentBasis {
	out := make([][]TangentBasis, len(m.Faces))
	for fi := range m.Faces {
		f := &m.Faces[fi]
		out[fi] = make([]TangentBasis, len(f.Vertices))
		if len(f.Vertices) < 3 {
			continue
		}

		var faceT, faceB math.Vec3
		ok := false
		if uv >= 0 && uv < len(f.UVs) && len(f.UVs[uv]) == len(f.Vertices) {
			faceT, faceB, ok = triangleTangent(
				m.Vertices[f.Vertices[0]].Co, m.Vertices[f.Vertices[1]].Co, m.Vertices[f.Vertices[2]].Co,
				f.UVs[uv][0], f.UVs[uv][1], f.UVs[uv][2],
			)
		}

		for ci, vi := range f.Vertices {
			n := m.Vertices[vi].Normal.Normalize()
			t := faceT
			if !ok {
				t = anyPerpendicular(n)
			}
			// Gram-Schmidt against the vertex normal.
			t = t.Sub(n.Scale(n.Dot(t)))
			if t.Length() < 1e-8 {
				t = anyPerpendicular(n)
			}
			t = t.Normalize()
			b := n.Cross(t)
			if ok && b.Dot(faceB) < 0 {
				b = b.Scale(-1)
			}
			out[fi][ci] = TangentBasis{Tangent: t, Bitangent: b, Normal: n}
		}
	}
	return out
}

func triangleTangent(p0, p1, p2 math.Vec3, uv0, uv1, uv2 math.Vec2) (t, b math.Vec3, ok bool) {
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	d1 := uv1.Sub(uv0)
	d2 := uv2.Sub(uv0)

	det := d1.X*d2.Y - d2.X*d1.Y
	if math32.Abs(det) < 1e-12 {
		return math.Vec3{}, math.Vec3{}, false
	}
	r := 1 / det
	t = e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(r)
	b = e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(r)
	return t, b, true
}

func anyPerpendicular(n math.Vec3) math.Vec3 {
	axis := math.Vec3{X: 1}
	if math32.Abs(n.X) > 0.9 {
		axis = math.Vec3{Y: 1}
	}
	return axis.Sub(n.Scale(n.Dot(axis))).Normalize()
}
