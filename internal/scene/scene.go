// Package scene is the in-memory host scene read by the exporter.
//
// Every entity gets a Handle from the scene arena when it is created. Handles
// are never reused within a scene and are carried over by Reload, so exporter
// side tables keyed by handle survive edits of the underlying data.
package scene

import "github.com/Faultbox/renderlink/pkg/math"

// Handle identifies one host entity for the lifetime of a scene.
type Handle uint64

// Arena hands out handles.
type Arena struct {
	next Handle
}

// Alloc returns a fresh handle. The zero handle is never returned.
func (a *Arena) Alloc() Handle {
	a.next++
	return a.next
}

// Scene is the root of the host data.
type Scene struct {
	Name  string
	FPS   float32
	Frame int

	Objects   []*Object
	Meshes    []*Mesh
	Materials []*Material
	Textures  []*Texture
	Lights    []*Light
	Armatures []*Armature
	Cameras   []*Camera
	Actions   []*Action

	// Camera is the active camera object, if any.
	Camera *Object

	// AnimationPlaying is set while the host plays the timeline.
	AnimationPlaying bool

	arena Arena
	// handles and digests are keyed by kind and name, see Reload.
	handles map[string]Handle
	digests map[string]string
}

// New creates an empty scene at frame 1, 24 fps.
func New(name string) *Scene {
	return &Scene{Name: name, FPS: 24, Frame: 1}
}

// NewObject adds an object with an identity transform.
func (s *Scene) NewObject(name string, typ ObjectType) *Object {
	o := &Object{
		Handle:   s.arena.Alloc(),
		Name:     name,
		Type:     typ,
		Rotation: identityQuat(),
		Scale:    unitScale(),
	}
	s.Objects = append(s.Objects, o)
	return o
}

// NewMesh adds an empty mesh datablock.
func (s *Scene) NewMesh(name string) *Mesh {
	m := &Mesh{Handle: s.arena.Alloc(), Name: name}
	s.Meshes = append(s.Meshes, m)
	return m
}

// NewMaterial adds a white material.
func (s *Scene) NewMaterial(name string) *Material {
	m := &Material{
		Handle:           s.arena.Alloc(),
		Name:             name,
		DiffuseColor:     [3]float32{0.8, 0.8, 0.8},
		DiffuseIntensity: 0.8,
		SpecularColor:    [3]float32{1, 1, 1},
		SpecularHardness: 50,
	}
	s.Materials = append(s.Materials, m)
	return m
}

// NewTexture adds an image texture.
func (s *Scene) NewTexture(name string) *Texture {
	t := &Texture{Handle: s.arena.Alloc(), Name: name}
	s.Textures = append(s.Textures, t)
	return t
}

// NewLight adds a white point light.
func (s *Scene) NewLight(name string, typ LightType) *Light {
	l := &Light{
		Handle:   s.arena.Alloc(),
		Name:     name,
		Type:     typ,
		Color:    [3]float32{1, 1, 1},
		Energy:   1,
		Distance: 25,
	}
	s.Lights = append(s.Lights, l)
	return l
}

// NewArmature adds an armature without bones.
func (s *Scene) NewArmature(name string) *Armature {
	a := &Armature{Handle: s.arena.Alloc(), Name: name}
	s.Armatures = append(s.Armatures, a)
	return a
}

// AddBone appends a bone to the armature. parent may be nil.
func (s *Scene) AddBone(a *Armature, name string, parent *Bone, bind math.Mat4) *Bone {
	b := &Bone{Handle: s.arena.Alloc(), Name: name, Parent: parent, MatrixLocal: bind}
	a.Bones = append(a.Bones, b)
	return b
}

// NewCamera adds a perspective camera.
func (s *Scene) NewCamera(name string) *Camera {
	c := &Camera{
		Handle:     s.arena.Alloc(),
		Name:       name,
		FOV:        0.8575,
		ClipStart:  0.1,
		ClipEnd:    100,
		OrthoScale: 7,
	}
	s.Cameras = append(s.Cameras, c)
	return c
}

// NewAction adds an action covering frames [start, end].
func (s *Scene) NewAction(name string, root IDRoot, start, end float32) *Action {
	a := &Action{Handle: s.arena.Alloc(), Name: name, IDRoot: root, FrameStart: start, FrameEnd: end}
	s.Actions = append(s.Actions, a)
	return a
}

// Object returns the object with the given name, or nil.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Action returns the action with the given name, or nil.
func (s *Scene) Action(name string) *Action {
	for _, a := range s.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// SetFrame moves the scene to frame and re-evaluates the current action of
// every animated object.
func (s *Scene) SetFrame(frame int) {
	s.Frame = frame
	for _, o := range s.Objects {
		if o.Animation == nil || o.Animation.Action == nil {
			continue
		}
		o.evaluate(o.Animation.Action, float32(frame))
	}
}

// ClearUpdated resets the host update flags after a change notification.
func (s *Scene) ClearUpdated() {
	for _, o := range s.Objects {
		o.Updated = false
		o.UpdatedData = false
	}
	for _, m := range s.Meshes {
		m.Updated = false
	}
	for _, m := range s.Materials {
		m.Updated = false
	}
	for _, t := range s.Textures {
		t.Updated = false
	}
	for _, l := range s.Lights {
		l.Updated = false
	}
	for _, a := range s.Armatures {
		a.Updated = false
	}
	for _, a := range s.Actions {
		a.Updated = false
	}
}
