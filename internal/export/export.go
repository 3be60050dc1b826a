// Package export turns a host scene into xbuf batches.
//
// Export walks the scene once and serializes only the entities the session
// tracker reports dirty. Relations are emitted for every visited association
// so the receiver can rebuild the graph from any batch.
package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/xbuf"
	"github.com/Faultbox/renderlink/pkg/xform"
)

// Export builds the batch for the current state of sc. Only identifier
// collisions and context cancellation fail the export; other problems are
// logged and recorded in Batch.Warnings.
func Export(ctx context.Context, s *Session, sc *scene.Scene) (*xbuf.Batch, error) {
	e := &exporter{
		s:     s,
		sc:    sc,
		batch: &xbuf.Batch{},
		log:   s.log,
	}

	passes := []struct {
		name string
		run  func() error
	}{
		{"nodes", e.nodes},
		{"geometries", e.geometries},
		{"materials", e.materials},
		{"lights", e.lights},
		{"skeletons", e.skeletons},
		{"actions", e.actions},
	}
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.run(); err != nil {
			return nil, fmt.Errorf("export %s: %w", p.name, err)
		}
	}

	e.log.Debug("exported",
		zap.Int("entities", e.batch.EntityCount()),
		zap.Int("relations", len(e.batch.Relations)),
		zap.Int("warnings", len(e.batch.Warnings)))
	return e.batch, nil
}

type exporter struct {
	s     *Session
	sc    *scene.Scene
	batch *xbuf.Batch
	log   *zap.Logger
}

func (e *exporter) id(h scene.Handle) (string, error) {
	return e.s.IDOf(h)
}

func (e *exporter) warn(entity, msg string, fields ...zap.Field) {
	e.log.Warn(msg, append([]zap.Field{zap.String("entity", entity)}, fields...)...)
	e.batch.Warnf("%s: %s", entity, msg)
}

func (e *exporter) visible(o *scene.Object) bool {
	if e.s.opts.Preview {
		return !o.HideViewport
	}
	return !o.HideRender
}

func (e *exporter) nodes() error {
	for _, o := range e.sc.Objects {
		if !e.visible(o) || !e.s.NeedUpdate(o.Handle) {
			continue
		}
		id, err := e.id(o.Handle)
		if err != nil {
			return err
		}
		e.batch.Nodes = append(e.batch.Nodes, xbuf.Node{
			ID:        id,
			Name:      o.Name,
			Transform: nodeTransform(o),
		})
		if o.Parent != nil {
			pid, err := e.id(o.Parent.Handle)
			if err != nil {
				return err
			}
			e.batch.AddRelation(xbuf.TagNode, pid, xbuf.TagNode, id)
		}
		e.customParams(o, id)
	}
	return nil
}

// nodeTransform converts the local transform. Lights look down -Z in the host
// and need the forward flip before the axis change.
func nodeTransform(o *scene.Object) xbuf.Transform {
	t := xbuf.Transform{
		Translation: xform.Vector(o.Location),
		Scale:       xform.Scale(o.Scale),
	}
	if o.Type == scene.ObjectLight {
		t.Rotation = xform.QuatZupToYup(xform.ZBackwardToForward(o.Rotation))
	} else {
		t.Rotation = xform.Quaternion(o.Rotation)
	}
	return t
}

func (e *exporter) geometries() error {
	for _, o := range e.sc.Objects {
		if !e.visible(o) {
			continue
		}
		switch o.Type {
		case scene.ObjectMesh:
			if err := e.geometry(o); err != nil {
				return err
			}
		case scene.ObjectLight:
			if err := e.light(o); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) geometry(o *scene.Object) error {
	m := o.Mesh
	if m == nil || len(m.Faces) == 0 {
		return nil
	}
	oid, err := e.id(o.Handle)
	if err != nil {
		return err
	}
	gid, err := e.id(m.Handle)
	if err != nil {
		return err
	}

	buckets := bucketFaces(m)
	if e.s.NeedUpdate(m.Handle) {
		groupToBone := e.groupToBone(o)
		for _, b := range buckets {
			mesh := e.buildMesh(o, gid, b, groupToBone)
			e.batch.Meshes = append(e.batch.Meshes, *mesh)
		}
	}
	for _, b := range buckets {
		mid := bucketID(gid, b.material)
		e.batch.AddRelation(xbuf.TagNode, oid, xbuf.TagMesh, mid)
		if mat := slotMaterial(o, b.material); mat != nil {
			matID, err := e.id(mat.Handle)
			if err != nil {
				return err
			}
			e.batch.AddRelation(xbuf.TagMesh, mid, xbuf.TagMaterial, matID)
		}
	}
	return nil
}

func (e *exporter) materials() error {
	for _, o := range e.sc.Objects {
		if !e.visible(o) || o.Type != scene.ObjectMesh {
			continue
		}
		oid, err := e.id(o.Handle)
		if err != nil {
			return err
		}
		for _, mat := range o.MaterialSlots {
			if mat == nil {
				continue
			}
			if e.s.NeedUpdate(mat.Handle) {
				m, err := e.material(mat)
				if err != nil {
					return err
				}
				e.batch.Materials = append(e.batch.Materials, m)
			}
			mid, err := e.id(mat.Handle)
			if err != nil {
				return err
			}
			e.batch.AddRelation(xbuf.TagNode, oid, xbuf.TagMaterial, mid)
		}
	}
	return nil
}

func (e *exporter) lights() error {
	for _, o := range e.sc.Objects {
		if !e.visible(o) || o.Type != scene.ObjectLight {
			continue
		}
		if err := e.light(o); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) light(o *scene.Object) error {
	l := o.Light
	if l == nil {
		return nil
	}
	oid, err := e.id(o.Handle)
	if err != nil {
		return err
	}
	lid, err := e.id(l.Handle)
	if err != nil {
		return err
	}
	if e.s.NeedUpdate(l.Handle) {
		e.batch.Lights = append(e.batch.Lights, exportLight(lid, l))
	}
	e.batch.AddRelation(xbuf.TagNode, oid, xbuf.TagLight, lid)
	return nil
}

func (e *exporter) skeletons() error {
	for _, o := range e.sc.Objects {
		if o.Type != scene.ObjectArmature || o.Armature == nil {
			continue
		}
		a := o.Armature
		sid, err := e.id(a.Handle)
		if err != nil {
			return err
		}
		if e.s.NeedUpdate(a.Handle) {
			sk, err := e.skeleton(sid, a)
			if err != nil {
				return err
			}
			e.batch.Skeletons = append(e.batch.Skeletons, sk)
		}
		oid, err := e.id(o.Handle)
		if err != nil {
			return err
		}
		e.batch.AddRelation(xbuf.TagNode, oid, xbuf.TagSkeleton, sid)
	}
	return nil
}

func slotMaterial(o *scene.Object, index int) *scene.Material {
	if index < 0 || index >= len(o.MaterialSlots) {
		return nil
	}
	return o.MaterialSlots[index]
}
