package scene

import "github.com/Faultbox/renderlink/pkg/math"

// Armature is a bone hierarchy in rest position.
type Armature struct {
	Handle  Handle
	Name    string
	Bones   []*Bone
	Updated bool
}

// Bone is an armature joint. MatrixLocal is the rest transform in armature space.
type Bone struct {
	Handle      Handle
	Name        string
	Parent      *Bone
	MatrixLocal math.Mat4
}

// BoneIndex returns the position of the named bone in Bones, or -1. Bones
// always lists a parent before its children.
func (a *Armature) BoneIndex(name string) int {
	for i, b := range a.Bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}
