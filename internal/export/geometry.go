package export

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
	"github.com/Faultbox/renderlink/pkg/xform"
)

// corner addresses one triangle vertex: a face and a corner of that face.
type corner struct {
	face   int
	corner int
}

// bucket holds the triangle corners of the faces using one material index.
type bucket struct {
	material int
	corners  []corner
}

// triangulate returns the corner triples of an n-gon as a fan around corner
// 0. A quad gives [0,1,2] and [0,2,3].
func triangulate(n int) [][3]int {
	if n < 3 {
		return nil
	}
	tris := make([][3]int, 0, n-2)
	for i := 1; i+1 < n; i++ {
		tris = append(tris, [3]int{0, i, i + 1})
	}
	return tris
}

// bucketFaces splits the triangulated faces by material index, in ascending
// index order. Empty buckets are not returned.
func bucketFaces(m *scene.Mesh) []bucket {
	byMat := make(map[int]*bucket)
	for fi, f := range m.Faces {
		tris := triangulate(len(f.Vertices))
		if len(tris) == 0 {
			continue
		}
		b := byMat[f.MaterialIndex]
		if b == nil {
			b = &bucket{material: f.MaterialIndex}
			byMat[f.MaterialIndex] = b
		}
		for _, tri := range tris {
			for _, c := range tri {
				b.corners = append(b.corners, corner{face: fi, corner: c})
			}
		}
	}

	out := make([]bucket, 0, len(byMat))
	for _, b := range byMat {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].material < out[j].material })
	return out
}

func bucketID(geometryID string, material int) string {
	return fmt.Sprintf("%s_%d", geometryID, material)
}

// buildMesh emits the de-indexed vertex arrays of one bucket.
func (e *exporter) buildMesh(o *scene.Object, geometryID string, b bucket, groupToBone []int32) *xbuf.Mesh {
	m := o.Mesh
	n := len(b.corners)
	out := &xbuf.Mesh{
		ID:        bucketID(geometryID, b.material),
		Name:      m.Name,
		Primitive: xbuf.PrimitiveTriangles,
	}

	positions := make([]float32, 0, n*xbuf.StridePosition)
	normals := make([]float32, 0, n*xbuf.StrideNormal)
	for _, c := range b.corners {
		v := &m.Vertices[m.Faces[c.face].Vertices[c.corner]]
		positions = appendVec3(positions, xform.Vector(v.Co))
		normals = appendVec3(normals, xform.Vector(v.Normal))
	}
	out.VertexArrays = append(out.VertexArrays,
		xbuf.VertexArray{Attrib: xbuf.AttribPosition, Step: xbuf.StridePosition, Floats: positions},
		xbuf.VertexArray{Attrib: xbuf.AttribNormal, Step: xbuf.StrideNormal, Floats: normals},
	)

	if m.HasColors {
		colors := make([]float32, 0, n*xbuf.StrideColor)
		for _, c := range b.corners {
			rgb := [3]float32{1, 1, 1}
			if f := &m.Faces[c.face]; c.corner < len(f.Colors) {
				rgb = f.Colors[c.corner]
			}
			colors = append(colors, rgb[0], rgb[1], rgb[2], 1)
		}
		out.VertexArrays = append(out.VertexArrays,
			xbuf.VertexArray{Attrib: xbuf.AttribColor, Step: xbuf.StrideColor, Floats: colors})
	}

	channels := min(len(m.UVLayers), xbuf.MaxTexCoords)
	for ch := 0; ch < channels; ch++ {
		uvs := make([]float32, 0, n*xbuf.StrideTexCoord)
		for _, c := range b.corners {
			var uv math.Vec2
			if f := &m.Faces[c.face]; ch < len(f.UVs) && c.corner < len(f.UVs[ch]) {
				uv = f.UVs[ch][c.corner]
			}
			uvs = append(uvs, uv.X, uv.Y)
		}
		out.VertexArrays = append(out.VertexArrays, xbuf.VertexArray{
			Attrib: xbuf.AttribTexCoord + xbuf.VertexAttrib(ch),
			Step:   xbuf.StrideTexCoord,
			Floats: uvs,
		})
	}

	out.VertexArrays = append(out.VertexArrays, xbuf.VertexArray{
		Attrib: xbuf.AttribTangentFrame,
		Step:   xbuf.StrideTangentFrame,
		Floats: e.tangentFrames(o, b),
	})

	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}
	out.IndexArrays = []xbuf.IndexArray{{Step: xbuf.StrideTriangle, Ints: indices}}

	out.Skin = e.skin(o, b, groupToBone)

	if e.s.opts.WeldVertices {
		weld(out)
	}
	return out
}

// tangentFrames returns one x, y, z, w quaternion per corner. A material with
// a normal map bound to an existing UV channel gets the tangent basis of that
// channel; otherwise the frame is the shortest arc from +Z to the normal.
func (e *exporter) tangentFrames(o *scene.Object, b bucket) []float32 {
	m := o.Mesh
	out := make([]float32, 0, len(b.corners)*xbuf.StrideTangentFrame)

	var basis [][]scene.TangentBasis
	if mat := slotMaterial(o, b.material); mat != nil {
		if slot := mat.NormalMapSlot(); slot != nil {
			uv := 0
			if slot.UVLayer != "" {
				uv = m.UVLayer(slot.UVLayer)
			}
			if uv >= 0 && uv < len(m.UVLayers) {
				basis = m.CalcTangents(uv)
			} else {
				e.warn(mat.Name, "normal map uses a missing uv layer", zap.String("uv", slot.UVLayer))
			}
		}
	}

	for _, c := range b.corners {
		var q math.Quat
		if basis != nil {
			q = basisFrame(basis[c.face][c.corner])
		} else {
			v := &m.Vertices[m.Faces[c.face].Vertices[c.corner]]
			q = normalFrame(xform.Vector(v.Normal).Normalize())
		}
		out = append(out, q.X, q.Y, q.Z, q.W)
	}
	return out
}

var (
	frameReference = math.Vec3{Z: 1}
	frameFlip      = math.QuatFromAxisAngle(math.Vec3{X: 1}, math32.Pi)
)

// normalFrame is the minimal rotation taking +Z onto n; n = -Z turns about X.
func normalFrame(n math.Vec3) math.Quat {
	if n.Length() == 0 {
		return math.QuatIdentity()
	}
	if n.Dot(frameReference) <= -1+1e-6 {
		return frameFlip
	}
	return math.QuatFromTo(frameReference, n)
}

// basisFrame converts a host tangent basis to a wire rotation. A mirrored
// basis is stored with a negative w.
func basisFrame(tb scene.TangentBasis) math.Quat {
	t := xform.Vector(tb.Tangent)
	n := xform.Vector(tb.Normal)
	b := n.Cross(t)
	mirrored := b.Dot(xform.Vector(tb.Bitangent)) < 0

	q := math.QuatFromBasis(t, b, n).Normalize()
	if q.W < 0 {
		q = math.Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	if mirrored {
		q = math.Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	return q
}

func appendVec3(dst []float32, v math.Vec3) []float32 {
	return append(dst, v.X, v.Y, v.Z)
}
