package export

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// skin returns the bone influences of every corner of the bucket, or nil when
// the object is not deformed by an armature (nil groupToBone).
func (e *exporter) skin(o *scene.Object, b bucket, groupToBone []int32) *xbuf.Skin {
	if groupToBone == nil {
		return nil
	}

	m := o.Mesh
	sk := &xbuf.Skin{BoneCount: make([]int32, 0, len(b.corners))}
	for _, c := range b.corners {
		v := &m.Vertices[m.Faces[c.face].Vertices[c.corner]]
		appendInfluence(sk, v.Groups, groupToBone)
	}
	return sk
}

// groupToBone maps vertex group indices of o to bone indices by name; -1 marks
// a group without a bone. It returns nil when o has no armature.
func (e *exporter) groupToBone(o *scene.Object) []int32 {
	ao := o.ArmatureObject
	if ao == nil || ao.Armature == nil {
		return nil
	}
	a := ao.Armature
	out := make([]int32, len(o.VertexGroups))
	for i, name := range o.VertexGroups {
		out[i] = int32(a.BoneIndex(name))
		if out[i] < 0 {
			e.warn(o.Name, "vertex group can't be bound to a bone",
				zap.String("group", name), zap.String("armature", a.Name))
		}
	}
	return out
}

// appendInfluence adds the normalized influences of one vertex, strongest
// first. Unmapped groups and non-positive weights are dropped; a vertex with
// nothing left gets a count of 0.
func appendInfluence(sk *xbuf.Skin, groups []scene.GroupWeight, groupToBone []int32) {
	sorted := make([]scene.GroupWeight, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })

	var total float32
	start := len(sk.BoneIndex)
	for _, g := range sorted {
		if g.Group < 0 || g.Group >= len(groupToBone) {
			continue
		}
		bone := groupToBone[g.Group]
		if bone < 0 || g.Weight <= 0 {
			continue
		}
		total += g.Weight
		sk.BoneIndex = append(sk.BoneIndex, bone)
		sk.BoneWeight = append(sk.BoneWeight, g.Weight)
	}

	count := len(sk.BoneIndex) - start
	if total > 0 {
		norm := 1 / total
		for i := start; i < len(sk.BoneWeight); i++ {
			sk.BoneWeight[i] *= norm
		}
	}
	sk.BoneCount = append(sk.BoneCount, int32(count))
}
