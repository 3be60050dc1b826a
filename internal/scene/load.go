package scene

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/renderlink/pkg/math"
)

// ErrUnknownReference is returned when a document names an entity it does not define.
var ErrUnknownReference = errors.New("unknown reference")

type sceneDoc struct {
	Name      string        `yaml:"name"`
	FPS       float32       `yaml:"fps"`
	Frame     int           `yaml:"frame"`
	Camera    string        `yaml:"camera"`
	Textures  []textureDoc  `yaml:"textures"`
	Materials []materialDoc `yaml:"materials"`
	Meshes    []meshDoc     `yaml:"meshes"`
	Lights    []lightDoc    `yaml:"lights"`
	Armatures []armatureDoc `yaml:"armatures"`
	Cameras   []cameraDoc   `yaml:"cameras"`
	Actions   []actionDoc   `yaml:"actions"`
	Objects   []objectDoc   `yaml:"objects"`
}

type textureDoc struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
	// Packed is the base64 encoded image.
	Packed string `yaml:"packed,omitempty"`
}

type slotDoc struct {
	Texture  string `yaml:"texture"`
	Use      string `yaml:"use"`
	UV       string `yaml:"uv,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

type materialDoc struct {
	Name              string      `yaml:"name"`
	Diffuse           *[3]float32 `yaml:"diffuse,omitempty"`
	DiffuseIntensity  *float32    `yaml:"diffuse_intensity,omitempty"`
	Specular          *[3]float32 `yaml:"specular,omitempty"`
	SpecularIntensity float32     `yaml:"specular_intensity"`
	Hardness          *float32    `yaml:"hardness,omitempty"`
	Emit              float32     `yaml:"emit"`
	Shadeless         bool        `yaml:"shadeless"`
	Textures          []slotDoc   `yaml:"textures,omitempty"`
}

type weightDoc struct {
	Group  int     `yaml:"group"`
	Weight float32 `yaml:"weight"`
}

type faceDoc struct {
	V        []int          `yaml:"v,flow"`
	Material int            `yaml:"material"`
	Colors   [][3]float32   `yaml:"colors,omitempty"`
	UV       [][][2]float32 `yaml:"uv,omitempty"`
}

type meshDoc struct {
	Name     string        `yaml:"name"`
	Vertices [][3]float32  `yaml:"vertices"`
	Normals  [][3]float32  `yaml:"normals,omitempty"`
	Weights  [][]weightDoc `yaml:"weights,omitempty"`
	UVLayers []string      `yaml:"uv_layers,omitempty"`
	Faces    []faceDoc     `yaml:"faces"`
}

type lightDoc struct {
	Name                 string      `yaml:"name"`
	Type                 string      `yaml:"type"`
	Color                *[3]float32 `yaml:"color,omitempty"`
	Energy               *float32    `yaml:"energy,omitempty"`
	Distance             *float32    `yaml:"distance,omitempty"`
	SpotSize             float32     `yaml:"spot_size"`
	SpotBlend            float32     `yaml:"spot_blend"`
	Falloff              string      `yaml:"falloff,omitempty"`
	LinearAttenuation    float32     `yaml:"linear_attenuation"`
	QuadraticAttenuation float32     `yaml:"quadratic_attenuation"`
	Sphere               bool        `yaml:"sphere"`
	Shadow               bool        `yaml:"shadow"`
}

type boneDoc struct {
	Name     string      `yaml:"name"`
	Parent   string      `yaml:"parent,omitempty"`
	Location [3]float32  `yaml:"location"`
	Rotation *[4]float32 `yaml:"rotation,omitempty"`
	Scale    *[3]float32 `yaml:"scale,omitempty"`
}

type armatureDoc struct {
	Name  string    `yaml:"name"`
	Bones []boneDoc `yaml:"bones"`
}

type cameraDoc struct {
	Name       string   `yaml:"name"`
	FOV        *float32 `yaml:"fov,omitempty"`
	ClipStart  *float32 `yaml:"clip_start,omitempty"`
	ClipEnd    *float32 `yaml:"clip_end,omitempty"`
	Ortho      bool     `yaml:"ortho"`
	OrthoScale *float32 `yaml:"ortho_scale,omitempty"`
}

type keyDoc struct {
	Frame         float32     `yaml:"frame"`
	Value         float32     `yaml:"value"`
	Interpolation string      `yaml:"interpolation,omitempty"`
	Left          *[2]float32 `yaml:"left,omitempty"`
	Right         *[2]float32 `yaml:"right,omitempty"`
}

type curveDoc struct {
	Path  string   `yaml:"path"`
	Index int      `yaml:"index"`
	Keys  []keyDoc `yaml:"keys"`
}

type actionDoc struct {
	Name       string     `yaml:"name"`
	IDRoot     string     `yaml:"id_root,omitempty"`
	FrameRange [2]float32 `yaml:"frame_range"`
	Curves     []curveDoc `yaml:"curves"`
}

type stripDoc struct {
	Action string `yaml:"action"`
	Select bool   `yaml:"select"`
}

type trackDoc struct {
	Name   string     `yaml:"name"`
	Active bool       `yaml:"active"`
	Strips []stripDoc `yaml:"strips"`
}

type animDoc struct {
	Action string     `yaml:"action,omitempty"`
	Tracks []trackDoc `yaml:"tracks,omitempty"`
}

type poseDoc struct {
	Bone     string      `yaml:"bone"`
	Location [3]float32  `yaml:"location"`
	Rotation *[4]float32 `yaml:"rotation,omitempty"`
	Scale    *[3]float32 `yaml:"scale,omitempty"`
}

type objectDoc struct {
	Name         string      `yaml:"name"`
	Type         string      `yaml:"type"`
	Data         string      `yaml:"data,omitempty"`
	Parent       string      `yaml:"parent,omitempty"`
	Location     [3]float32  `yaml:"location"`
	Rotation     *[4]float32 `yaml:"rotation,omitempty"`
	Scale        *[3]float32 `yaml:"scale,omitempty"`
	HideRender   bool        `yaml:"hide_render,omitempty"`
	HideViewport bool        `yaml:"hide_viewport,omitempty"`
	Materials    []string    `yaml:"materials,omitempty"`
	Armature     string      `yaml:"armature,omitempty"`
	VertexGroups []string    `yaml:"vertex_groups,omitempty"`
	Props        yaml.Node   `yaml:"props,omitempty"`
	Animation    *animDoc    `yaml:"animation,omitempty"`
	Pose         []poseDoc   `yaml:"pose,omitempty"`
}

// Load reads a YAML scene document.
func Load(r io.Reader) (*Scene, error) {
	return Reload(r, nil)
}

// LoadFile reads a YAML scene document from path.
func LoadFile(path string) (*Scene, error) {
	return ReloadFile(path, nil)
}

// ReloadFile is Reload on the content of path.
func ReloadFile(path string, prev *Scene) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Reload(f, prev)
}

// Reload reads a YAML scene document. Entities with the same kind and name as
// an entity of prev keep its handle; update flags are set on every entity whose
// description differs from the one prev was built from. A nil prev marks
// everything updated.
func Reload(r io.Reader, prev *Scene) (*Scene, error) {
	var doc sceneDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}

	b := &builder{
		s:    New(doc.Name),
		prev: prev,
	}
	b.s.handles = make(map[string]Handle)
	b.s.digests = make(map[string]string)
	if prev != nil {
		b.s.arena = prev.arena
	}
	if err := b.build(&doc); err != nil {
		return nil, err
	}
	return b.s, nil
}

type builder struct {
	s    *Scene
	prev *Scene

	textures  map[string]*Texture
	materials map[string]*Material
	meshes    map[string]*Mesh
	lights    map[string]*Light
	armatures map[string]*Armature
	cameras   map[string]*Camera
	actions   map[string]*Action
}

// track registers an entity under kind/name. It returns the handle to use
// and whether the description changed since prev.
func (b *builder) track(kind, name string, fresh Handle, doc any) (Handle, bool) {
	key := kind + "/" + name
	digest := digestOf(doc)
	b.s.digests[key] = digest

	h := fresh
	changed := true
	if b.prev != nil {
		if old, ok := b.prev.handles[key]; ok {
			h = old
			changed = b.prev.digests[key] != digest
		}
	}
	b.s.handles[key] = h
	return h, changed
}

func digestOf(doc any) string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return ""
	}
	_ = enc.Close()
	return buf.String()
}

func (b *builder) build(doc *sceneDoc) error {
	s := b.s
	if doc.FPS > 0 {
		s.FPS = doc.FPS
	}
	if doc.Frame != 0 {
		s.Frame = doc.Frame
	}

	b.textures = make(map[string]*Texture)
	for i := range doc.Textures {
		d := &doc.Textures[i]
		t := s.NewTexture(d.Name)
		t.Handle, t.Updated = b.track("texture", d.Name, t.Handle, d)
		t.FilePath = d.File
		if d.Packed != "" {
			data, err := base64.StdEncoding.DecodeString(d.Packed)
			if err != nil {
				return fmt.Errorf("texture %q: %w", d.Name, err)
			}
			t.Packed = data
		}
		b.textures[d.Name] = t
	}

	b.materials = make(map[string]*Material)
	for i := range doc.Materials {
		if err := b.material(&doc.Materials[i]); err != nil {
			return err
		}
	}

	b.meshes = make(map[string]*Mesh)
	for i := range doc.Meshes {
		if err := b.mesh(&doc.Meshes[i]); err != nil {
			return err
		}
	}

	b.lights = make(map[string]*Light)
	for i := range doc.Lights {
		if err := b.light(&doc.Lights[i]); err != nil {
			return err
		}
	}

	b.armatures = make(map[string]*Armature)
	for i := range doc.Armatures {
		if err := b.armature(&doc.Armatures[i]); err != nil {
			return err
		}
	}

	b.cameras = make(map[string]*Camera)
	for i := range doc.Cameras {
		d := &doc.Cameras[i]
		c := s.NewCamera(d.Name)
		c.Handle, _ = b.track("camera", d.Name, c.Handle, d)
		setIf(&c.FOV, d.FOV)
		setIf(&c.ClipStart, d.ClipStart)
		setIf(&c.ClipEnd, d.ClipEnd)
		setIf(&c.OrthoScale, d.OrthoScale)
		c.Ortho = d.Ortho
		b.cameras[d.Name] = c
	}

	b.actions = make(map[string]*Action)
	for i := range doc.Actions {
		if err := b.action(&doc.Actions[i]); err != nil {
			return err
		}
	}

	for i := range doc.Objects {
		if err := b.object(&doc.Objects[i]); err != nil {
			return err
		}
	}
	// Parents may be declared after their children.
	for i := range doc.Objects {
		d := &doc.Objects[i]
		if d.Parent == "" {
			continue
		}
		p := s.Object(d.Parent)
		if p == nil {
			return fmt.Errorf("object %q: %w: parent %q", d.Name, ErrUnknownReference, d.Parent)
		}
		s.Objects[i].Parent = p
	}
	for i := range doc.Objects {
		d := &doc.Objects[i]
		if d.Armature == "" {
			continue
		}
		a := s.Object(d.Armature)
		if a == nil || a.Type != ObjectArmature {
			return fmt.Errorf("object %q: %w: armature object %q", d.Name, ErrUnknownReference, d.Armature)
		}
		s.Objects[i].ArmatureObject = a
	}

	if doc.Camera != "" {
		s.Camera = s.Object(doc.Camera)
		if s.Camera == nil || s.Camera.Camera == nil {
			return fmt.Errorf("%w: camera object %q", ErrUnknownReference, doc.Camera)
		}
	}

	s.SetFrame(s.Frame)
	return nil
}

func (b *builder) material(d *materialDoc) error {
	m := b.s.NewMaterial(d.Name)
	m.Handle, m.Updated = b.track("material", d.Name, m.Handle, d)
	if d.Diffuse != nil {
		m.DiffuseColor = *d.Diffuse
	}
	setIf(&m.DiffuseIntensity, d.DiffuseIntensity)
	if d.Specular != nil {
		m.SpecularColor = *d.Specular
	}
	m.SpecularIntensity = d.SpecularIntensity
	setIf(&m.SpecularHardness, d.Hardness)
	m.Emit = d.Emit
	m.Shadeless = d.Shadeless

	for _, sd := range d.Textures {
		t, ok := b.textures[sd.Texture]
		if !ok {
			return fmt.Errorf("material %q: %w: texture %q", d.Name, ErrUnknownReference, sd.Texture)
		}
		use, err := parseTextureUse(sd.Use)
		if err != nil {
			return fmt.Errorf("material %q: %w", d.Name, err)
		}
		m.TextureSlots = append(m.TextureSlots, TextureSlot{Texture: t, Use: use, UVLayer: sd.UV, Disabled: sd.Disabled})
	}
	b.materials[d.Name] = m
	return nil
}

func (b *builder) mesh(d *meshDoc) error {
	m := b.s.NewMesh(d.Name)
	m.Handle, m.Updated = b.track("mesh", d.Name, m.Handle, d)
	m.UVLayers = d.UVLayers

	m.Vertices = make([]Vertex, len(d.Vertices))
	for i, co := range d.Vertices {
		m.Vertices[i].Co = vec3(co)
		if i < len(d.Normals) {
			m.Vertices[i].Normal = vec3(d.Normals[i]).Normalize()
		}
		if i < len(d.Weights) {
			for _, w := range d.Weights[i] {
				m.Vertices[i].Groups = append(m.Vertices[i].Groups, GroupWeight{Group: w.Group, Weight: w.Weight})
			}
		}
	}

	m.Faces = make([]Face, len(d.Faces))
	for i, fd := range d.Faces {
		for _, vi := range fd.V {
			if vi < 0 || vi >= len(m.Vertices) {
				return fmt.Errorf("mesh %q face %d: vertex %d out of range", d.Name, i, vi)
			}
		}
		f := Face{Vertices: fd.V, MaterialIndex: fd.Material}
		if len(fd.Colors) > 0 {
			if len(fd.Colors) != len(fd.V) {
				return fmt.Errorf("mesh %q face %d: %d colors for %d corners", d.Name, i, len(fd.Colors), len(fd.V))
			}
			f.Colors = fd.Colors
			m.HasColors = true
		}
		for ch, uvs := range fd.UV {
			if len(uvs) != len(fd.V) {
				return fmt.Errorf("mesh %q face %d: channel %d has %d uvs for %d corners", d.Name, i, ch, len(uvs), len(fd.V))
			}
			corners := make([]math.Vec2, len(uvs))
			for c, uv := range uvs {
				corners[c] = math.Vec2{X: uv[0], Y: uv[1]}
			}
			f.UVs = append(f.UVs, corners)
		}
		m.Faces[i] = f
	}

	for i := len(m.UVLayers); i < maxChannels(m.Faces); i++ {
		m.UVLayers = append(m.UVLayers, defaultUVName(i))
	}
	if len(d.Normals) == 0 {
		m.computeNormals()
	}
	b.meshes[d.Name] = m
	return nil
}

func maxChannels(faces []Face) int {
	n := 0
	for _, f := range faces {
		n = max(n, len(f.UVs))
	}
	return n
}

func defaultUVName(i int) string {
	if i == 0 {
		return "UVMap"
	}
	return fmt.Sprintf("UVMap.%03d", i)
}

// computeNormals sets smooth vertex normals from area weighted face normals.
func (m *Mesh) computeNormals() {
	sums := make([]math.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		n := newellNormal(m, f.Vertices)
		for _, vi := range f.Vertices {
			sums[vi] = sums[vi].Add(n)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = sums[i].Normalize()
	}
}

func newellNormal(m *Mesh, idx []int) math.Vec3 {
	var n math.Vec3
	for i := range idx {
		a := m.Vertices[idx[i]].Co
		c := m.Vertices[idx[(i+1)%len(idx)]].Co
		n.X += (a.Y - c.Y) * (a.Z + c.Z)
		n.Y += (a.Z - c.Z) * (a.X + c.X)
		n.Z += (a.X - c.X) * (a.Y + c.Y)
	}
	return n
}

func (b *builder) light(d *lightDoc) error {
	typ, err := parseLightType(d.Type)
	if err != nil {
		return fmt.Errorf("light %q: %w", d.Name, err)
	}
	falloff, err := parseFalloff(d.Falloff)
	if err != nil {
		return fmt.Errorf("light %q: %w", d.Name, err)
	}
	l := b.s.NewLight(d.Name, typ)
	l.Handle, l.Updated = b.track("light", d.Name, l.Handle, d)
	if d.Color != nil {
		l.Color = *d.Color
	}
	setIf(&l.Energy, d.Energy)
	setIf(&l.Distance, d.Distance)
	l.SpotSize = d.SpotSize
	l.SpotBlend = d.SpotBlend
	l.Falloff = falloff
	l.LinearAttenuation = d.LinearAttenuation
	l.QuadraticAttenuation = d.QuadraticAttenuation
	l.UseSphere = d.Sphere
	l.UseShadow = d.Shadow
	b.lights[d.Name] = l
	return nil
}

func (b *builder) armature(d *armatureDoc) error {
	a := b.s.NewArmature(d.Name)
	a.Handle, a.Updated = b.track("armature", d.Name, a.Handle, d)
	for i := range d.Bones {
		bd := &d.Bones[i]
		var parent *Bone
		if bd.Parent != "" {
			pi := a.BoneIndex(bd.Parent)
			if pi < 0 {
				return fmt.Errorf("armature %q bone %q: %w: parent %q (parents must come first)",
					d.Name, bd.Name, ErrUnknownReference, bd.Parent)
			}
			parent = a.Bones[pi]
		}
		bind := math.Compose(vec3(bd.Location), quatOr(bd.Rotation), scaleOr(bd.Scale))
		bone := b.s.AddBone(a, bd.Name, parent, bind)
		bone.Handle, _ = b.track("bone", d.Name+"/"+bd.Name, bone.Handle, bd)
	}
	b.armatures[d.Name] = a
	return nil
}

func (b *builder) action(d *actionDoc) error {
	root := IDRoot(strings.ToUpper(d.IDRoot))
	if root == "" {
		root = RootObject
	}
	a := b.s.NewAction(d.Name, root, d.FrameRange[0], d.FrameRange[1])
	a.Handle, a.Updated = b.track("action", d.Name, a.Handle, d)
	for _, cd := range d.Curves {
		keys := make([]Keyframe, len(cd.Keys))
		for i, kd := range cd.Keys {
			interp, err := parseInterpolation(kd.Interpolation)
			if err != nil {
				return fmt.Errorf("action %q curve %s[%d]: %w", d.Name, cd.Path, cd.Index, err)
			}
			keys[i] = Keyframe{Frame: kd.Frame, Value: kd.Value, Interpolation: interp}
		}
		autoHandles(keys)
		for i, kd := range cd.Keys {
			if kd.Left != nil {
				keys[i].HandleLeft = math.Vec2{X: kd.Left[0], Y: kd.Left[1]}
			}
			if kd.Right != nil {
				keys[i].HandleRight = math.Vec2{X: kd.Right[0], Y: kd.Right[1]}
			}
		}
		a.AddCurve(cd.Path, cd.Index, keys...)
	}
	b.actions[d.Name] = a
	return nil
}

// autoHandles places flat handles a third of the way to the neighbour keys.
func autoHandles(keys []Keyframe) {
	for i := range keys {
		k := &keys[i]
		left, right := float32(1), float32(1)
		if i > 0 {
			left = (k.Frame - keys[i-1].Frame) / 3
		}
		if i+1 < len(keys) {
			right = (keys[i+1].Frame - k.Frame) / 3
		}
		k.HandleLeft = math.Vec2{X: k.Frame - left, Y: k.Value}
		k.HandleRight = math.Vec2{X: k.Frame + right, Y: k.Value}
	}
}

func (b *builder) object(d *objectDoc) error {
	typ, err := ParseObjectType(d.Type)
	if err != nil {
		return fmt.Errorf("object %q: %w", d.Name, err)
	}
	s := b.s
	o := s.NewObject(d.Name, typ)
	o.Handle, o.Updated = b.track("object", d.Name, o.Handle, d)
	o.Location = vec3(d.Location)
	o.Rotation = quatOr(d.Rotation)
	o.Scale = scaleOr(d.Scale)
	o.HideRender = d.HideRender
	o.HideViewport = d.HideViewport
	o.VertexGroups = d.VertexGroups

	missing := func(what, name string) error {
		return fmt.Errorf("object %q: %w: %s %q", d.Name, ErrUnknownReference, what, name)
	}
	switch typ {
	case ObjectMesh:
		if o.Mesh = b.meshes[d.Data]; o.Mesh == nil {
			return missing("mesh", d.Data)
		}
		o.UpdatedData = o.Mesh.Updated
	case ObjectLight:
		if o.Light = b.lights[d.Data]; o.Light == nil {
			return missing("light", d.Data)
		}
		o.UpdatedData = o.Light.Updated
	case ObjectArmature:
		if o.Armature = b.armatures[d.Data]; o.Armature == nil {
			return missing("armature", d.Data)
		}
		o.UpdatedData = o.Armature.Updated
		o.ResetPose()
		for _, pd := range d.Pose {
			pb := o.PoseBone(pd.Bone)
			if pb == nil {
				return missing("bone", pd.Bone)
			}
			pb.Location = vec3(pd.Location)
			pb.Rotation = quatOr(pd.Rotation)
			pb.Scale = scaleOr(pd.Scale)
		}
	case ObjectCamera:
		if o.Camera = b.cameras[d.Data]; o.Camera == nil {
			return missing("camera", d.Data)
		}
	}

	for _, name := range d.Materials {
		m, ok := b.materials[name]
		if !ok {
			return missing("material", name)
		}
		o.MaterialSlots = append(o.MaterialSlots, m)
	}

	if o.Props, err = decodeProps(&d.Props); err != nil {
		return fmt.Errorf("object %q: %w", d.Name, err)
	}

	if ad := d.Animation; ad != nil {
		o.Animation = &AnimationData{}
		if ad.Action != "" {
			if o.Animation.Action = b.actions[ad.Action]; o.Animation.Action == nil {
				return missing("action", ad.Action)
			}
		}
		for _, td := range ad.Tracks {
			track := &NLATrack{Name: td.Name, Active: td.Active}
			for _, sd := range td.Strips {
				a, ok := b.actions[sd.Action]
				if !ok {
					return missing("action", sd.Action)
				}
				track.Strips = append(track.Strips, &NLAStrip{Action: a, Select: sd.Select})
			}
			o.Animation.Tracks = append(o.Animation.Tracks, track)
		}
	}
	return nil
}

// decodeProps keeps the document order of the props mapping. Sequences of 3
// numbers become vectors, sequences of 4 become w, x, y, z quaternions.
func decodeProps(n *yaml.Node) ([]Prop, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("props must be a mapping, line %d", n.Line)
	}
	props := make([]Prop, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		v, err := decodeProp(val)
		if err != nil {
			return nil, fmt.Errorf("prop %q: %w", key.Value, err)
		}
		props = append(props, Prop{Name: key.Value, Value: v})
	}
	return props, nil
}

func decodeProp(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!bool":
			var v bool
			err := n.Decode(&v)
			return v, err
		case "!!int":
			var v int64
			err := n.Decode(&v)
			return v, err
		case "!!float":
			var v float64
			err := n.Decode(&v)
			return v, err
		case "!!str":
			return n.Value, nil
		}
		return nil, nil
	case yaml.SequenceNode:
		var fs []float32
		if err := n.Decode(&fs); err == nil {
			switch len(fs) {
			case 3:
				return math.Vec3{X: fs[0], Y: fs[1], Z: fs[2]}, nil
			case 4:
				return math.Quat{W: fs[0], X: fs[1], Y: fs[2], Z: fs[3]}, nil
			}
		}
		var v []any
		err := n.Decode(&v)
		return v, err
	default:
		var v any
		err := n.Decode(&v)
		return v, err
	}
}

func parseTextureUse(s string) (TextureUse, error) {
	switch strings.ToLower(s) {
	case "", "color", "diffuse":
		return UseColor, nil
	case "specular":
		return UseSpecular, nil
	case "emission", "emit":
		return UseEmission, nil
	case "opacity", "alpha":
		return UseOpacity, nil
	case "normal":
		return UseNormal, nil
	}
	return 0, fmt.Errorf("unknown texture use %q", s)
}

func parseLightType(s string) (LightType, error) {
	switch strings.ToLower(s) {
	case "", "point":
		return LightPoint, nil
	case "sun":
		return LightSun, nil
	case "spot":
		return LightSpot, nil
	case "area":
		return LightArea, nil
	case "hemi":
		return LightHemi, nil
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

func parseFalloff(s string) (LightFalloff, error) {
	switch strings.ToLower(s) {
	case "", "constant":
		return FalloffConstant, nil
	case "inverse_linear":
		return FalloffInverseLinear, nil
	case "inverse_square":
		return FalloffInverseSquare, nil
	case "linear_quadratic_weighted":
		return FalloffLinearQuadraticWeighted, nil
	}
	return 0, fmt.Errorf("unknown falloff %q", s)
}

func parseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return InterpLinear, nil
	case "constant":
		return InterpConstant, nil
	case "bezier":
		return InterpBezier, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

func setIf(dst *float32, v *float32) {
	if v != nil {
		*dst = *v
	}
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func quatOr(a *[4]float32) math.Quat {
	if a == nil {
		return math.QuatIdentity()
	}
	return math.Quat{W: a[0], X: a[1], Y: a[2], Z: a[3]}.Normalize()
}

func scaleOr(a *[3]float32) math.Vec3 {
	if a == nil {
		return unitScale()
	}
	return vec3(*a)
}
