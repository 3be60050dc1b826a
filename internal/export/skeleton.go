package export

import (
	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
	"github.com/Faultbox/renderlink/pkg/xform"
)

// skeleton serializes the rest pose of a. Bones keep the armature order, which
// lists parents before children; skin bone indices refer to the same order.
func (e *exporter) skeleton(id string, a *scene.Armature) (xbuf.Skeleton, error) {
	sk := xbuf.Skeleton{
		ID:    id,
		Name:  a.Name,
		Bones: make([]xbuf.Bone, 0, len(a.Bones)),
	}

	for _, b := range a.Bones {
		bid, err := e.id(b.Handle)
		if err != nil {
			return xbuf.Skeleton{}, err
		}
		rest := b.MatrixLocal
		if b.Parent != nil {
			rest = b.Parent.MatrixLocal.Inverse().Mul(b.MatrixLocal)
		}
		sk.Bones = append(sk.Bones, xbuf.Bone{
			ID:        bid,
			Name:      b.Name,
			Transform: matrixTransform(rest),
		})
		if b.Parent != nil {
			pid, err := e.id(b.Parent.Handle)
			if err != nil {
				return xbuf.Skeleton{}, err
			}
			sk.BonesGraph = append(sk.BonesGraph, xbuf.Relation{Ref1: pid, Ref2: bid})
		}
	}
	return sk, nil
}

// matrixTransform decomposes a host matrix into a wire transform.
func matrixTransform(m math.Mat4) xbuf.Transform {
	t, r, s := m.Decompose()
	return xbuf.Transform{
		Translation: xform.Vector(t),
		Rotation:    xform.Quaternion(r),
		Scale:       xform.Scale(s),
	}
}
