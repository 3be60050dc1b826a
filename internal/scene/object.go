package scene

import (
	"fmt"
	"strings"

	"github.com/Faultbox/renderlink/pkg/math"
)

// ObjectType is the kind of data an object carries.
type ObjectType int

const (
	ObjectEmpty ObjectType = iota
	ObjectMesh
	ObjectLight
	ObjectArmature
	ObjectCamera
)

var objectTypeNames = [...]string{"empty", "mesh", "light", "armature", "camera"}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("ObjectType(%d)", int(t))
}

// ParseObjectType maps a type name to an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	if s == "" {
		return ObjectEmpty, nil
	}
	for i, name := range objectTypeNames {
		if strings.EqualFold(s, name) {
			return ObjectType(i), nil
		}
	}
	return ObjectEmpty, fmt.Errorf("unknown object type %q", s)
}

// Object is a placed entity of the scene.
type Object struct {
	Handle Handle
	Name   string
	Type   ObjectType
	Parent *Object

	// Local transform, host convention (Z up, Y forward).
	Location math.Vec3
	Rotation math.Quat
	Scale    math.Vec3

	HideRender   bool
	HideViewport bool

	// Host update flags, set when the object or its data changed.
	Updated     bool
	UpdatedData bool

	Mesh     *Mesh
	Light    *Light
	Armature *Armature
	Camera   *Camera

	// ArmatureObject is the armature object deforming this mesh object.
	ArmatureObject *Object
	// VertexGroups names the groups referenced by mesh vertex weights.
	VertexGroups  []string
	MaterialSlots []*Material

	Props     []Prop
	Animation *AnimationData
	// Pose holds one entry per armature bone, in bone order.
	Pose []PoseBone
}

// Data returns the handle of the object data, or 0 for empty objects.
func (o *Object) Data() Handle {
	switch {
	case o.Mesh != nil:
		return o.Mesh.Handle
	case o.Light != nil:
		return o.Light.Handle
	case o.Armature != nil:
		return o.Armature.Handle
	case o.Camera != nil:
		return o.Camera.Handle
	}
	return 0
}

// MatrixLocal returns the parent-relative transform.
func (o *Object) MatrixLocal() math.Mat4 {
	return math.Compose(o.Location, o.Rotation, o.Scale)
}

// MatrixWorld returns the transform relative to the scene root.
func (o *Object) MatrixWorld() math.Mat4 {
	m := o.MatrixLocal()
	for p := o.Parent; p != nil; p = p.Parent {
		m = p.MatrixLocal().Mul(m)
	}
	return m
}

// PoseBone returns the pose channel of the named bone, or nil.
func (o *Object) PoseBone(name string) *PoseBone {
	for i := range o.Pose {
		if o.Pose[i].Name == name {
			return &o.Pose[i]
		}
	}
	return nil
}

// ResetPose allocates one rest pose channel per armature bone.
func (o *Object) ResetPose() {
	if o.Armature == nil {
		return
	}
	o.Pose = make([]PoseBone, len(o.Armature.Bones))
	for i, b := range o.Armature.Bones {
		o.Pose[i] = PoseBone{Name: b.Name, Rotation: identityQuat(), Scale: unitScale()}
	}
}

// PoseBone is the animated offset of a bone from its rest position.
type PoseBone struct {
	Name     string
	Location math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// MatrixBasis returns the pose offset relative to the rest pose.
func (p *PoseBone) MatrixBasis() math.Mat4 {
	return math.Compose(p.Location, p.Rotation, p.Scale)
}

// Prop is a user-defined property. Value holds bool, string, float64, int64,
// math.Vec3, math.Quat or any other value the host could store.
type Prop struct {
	Name  string
	Value any
}

func identityQuat() math.Quat {
	return math.QuatIdentity()
}

func unitScale() math.Vec3 {
	return math.Vec3{X: 1, Y: 1, Z: 1}
}
