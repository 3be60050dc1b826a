package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

func exportScene(t *testing.T, s *Session, sc *scene.Scene) (*xbuf.Batch, error) {
	t.Helper()
	return Export(context.Background(), s, sc)
}

func loadDemo(t *testing.T) *scene.Scene {
	t.Helper()
	sc, err := scene.LoadFile(filepath.Join("..", "scene", "testdata", "demo.yaml"))
	require.NoError(t, err)
	return sc
}

func mustID(t *testing.T, s *Session, h scene.Handle) string {
	t.Helper()
	id, err := s.IDOf(h)
	require.NoError(t, err)
	return id
}

func TestExportDemo(t *testing.T) {
	sc := loadDemo(t)
	assets := t.TempDir()
	s := NewSession(Options{AssetsPath: assets})

	b, err := exportScene(t, s, sc)
	require.NoError(t, err)
	assert.Empty(t, b.Warnings)

	floor := sc.Object("Floor")
	rig := sc.Object("RigObject")
	spot := sc.Object("Spot")
	floorID := mustID(t, s, floor.Handle)
	rigID := mustID(t, s, rig.Handle)

	t.Run("nodes", func(t *testing.T) {
		var names []string
		for _, n := range b.Nodes {
			names = append(names, n.Name)
		}
		assert.ElementsMatch(t, []string{"Floor", "RigObject", "Spot", "Camera"}, names)
		assert.Contains(t, b.Relations, xbuf.NewRelation(xbuf.TagNode, rigID, xbuf.TagNode, floorID))
		assert.Equal(t, xbuf.Relation{Type1: xbuf.TagNode, Ref1: rigID, Type2: xbuf.TagNode, Ref2: floorID},
			xbuf.NewRelation(xbuf.TagNode, rigID, xbuf.TagNode, floorID))
	})

	t.Run("mesh", func(t *testing.T) {
		require.Len(t, b.Meshes, 1)
		m := b.Meshes[0]
		gid := mustID(t, s, floor.Mesh.Handle)
		assert.Equal(t, gid+"_0", m.ID)
		assert.Equal(t, 6, m.VertexArray(xbuf.AttribPosition).VertexCount())
		assert.NotNil(t, m.VertexArray(xbuf.AttribColor))
		assert.NotNil(t, m.VertexArray(xbuf.AttribTexCoord))
		assert.Equal(t, 6, m.VertexArray(xbuf.AttribTangentFrame).VertexCount())
		assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.IndexArrays[0].Ints)
		require.NotNil(t, m.Skin)
		assert.Equal(t, []int32{1, 2, 1, 1, 1, 0}, m.Skin.BoneCount)
		assert.Contains(t, b.Relations, xbuf.NewRelation(xbuf.TagNode, floorID, xbuf.TagMesh, m.ID))
	})

	t.Run("materials", func(t *testing.T) {
		require.Len(t, b.Materials, 2)
		red, glow := b.Materials[0], b.Materials[1]
		assert.Equal(t, "Red", red.Name)
		assert.Equal(t, xbuf.RGB(0.5, 0, 0), red.Color)
		require.NotNil(t, red.Specular)
		assert.Equal(t, xbuf.RGB(0.5, 0.5, 0.5), *red.Specular)
		assert.Equal(t, float32(30), red.SpecularPower)
		require.NotNil(t, red.ColorMap)
		assert.Equal(t, "Textures/checker.png", red.ColorMap.RPath)
		assert.FileExists(t, filepath.Join(assets, "Textures", "checker.png"))

		assert.Equal(t, "Glow", glow.Name)
		require.NotNil(t, glow.Emission)
		assert.Equal(t, xbuf.RGB(2, 2, 2), *glow.Emission)

		assert.Contains(t, b.Relations,
			xbuf.NewRelation(xbuf.TagNode, floorID, xbuf.TagMaterial, red.ID))
		assert.Contains(t, b.Relations,
			xbuf.NewRelation(xbuf.TagMesh, b.Meshes[0].ID, xbuf.TagMaterial, red.ID))
	})

	t.Run("light", func(t *testing.T) {
		require.Len(t, b.Lights, 1)
		l := b.Lights[0]
		assert.Equal(t, xbuf.LightSpot, l.Kind)
		assert.Equal(t, float32(2), l.Intensity)
		assert.True(t, l.CastShadow)
		require.NotNil(t, l.SpotAngle)
		assert.InDelta(t, 0.6, l.SpotAngle.Max, 1e-6)
		assert.InDelta(t, 0.75, l.SpotAngle.LinearBegin, 1e-6)
		require.NotNil(t, l.RadialDistance)
		assert.Equal(t, xbuf.FalloffInverseSquare, l.RadialDistance.Falloff)
		assert.Equal(t, float32(30), l.RadialDistance.Max)
		assert.Contains(t, b.Relations,
			xbuf.NewRelation(xbuf.TagNode, mustID(t, s, spot.Handle), xbuf.TagLight, l.ID))
	})

	t.Run("skeleton", func(t *testing.T) {
		require.Len(t, b.Skeletons, 1)
		sk := b.Skeletons[0]
		require.Len(t, sk.Bones, 2)
		assert.Equal(t, "root", sk.Bones[0].Name)
		assert.Equal(t, "arm", sk.Bones[1].Name)
		assert.True(t, sk.Bones[1].Transform.Translation.ApproxEqual(math.Vec3{Y: 1}, 1e-6))
		require.Len(t, sk.BonesGraph, 1)
		assert.Equal(t, sk.Bones[0].ID, sk.BonesGraph[0].Ref1)
		assert.Equal(t, sk.Bones[1].ID, sk.BonesGraph[0].Ref2)
		assert.Contains(t, b.Relations, xbuf.NewRelation(xbuf.TagNode, rigID, xbuf.TagSkeleton, sk.ID))
	})

	t.Run("animations", func(t *testing.T) {
		require.Len(t, b.Animations, 2)
		slide, wave := b.Animations[0], b.Animations[1]

		assert.Equal(t, "Slide", slide.Name)
		assert.Equal(t, xbuf.TargetNode, slide.TargetKind)
		assert.Equal(t, int32(400), slide.Duration)
		require.Len(t, slide.Clips, 1)
		assert.Equal(t, 10, slide.Clips[0].Sampled.Len())

		assert.Equal(t, "Wave", wave.Name)
		assert.Equal(t, xbuf.TargetSkeleton, wave.TargetKind)
		require.Len(t, wave.Clips, 2)
		assert.Equal(t, "root", wave.Clips[0].Sampled.BoneName)
		assert.Equal(t, []int32{40, 200}, wave.Clips[0].Sampled.At)
		assert.Equal(t, "arm", wave.Clips[1].Sampled.BoneName)
		assert.Equal(t, 5, wave.Clips[1].Sampled.Len())

		assert.Contains(t, b.Relations, xbuf.NewRelation(xbuf.TagNode, floorID, xbuf.TagAnimation, slide.ID))
		assert.Contains(t, b.Relations, xbuf.NewRelation(xbuf.TagNode, rigID, xbuf.TagAnimation, wave.ID))
		assert.Equal(t, 1, sc.Frame)
	})

	t.Run("params", func(t *testing.T) {
		require.Len(t, b.CustomParams, 1)
		cp := b.CustomParams[0]
		assert.Equal(t, "params_"+floorID, cp.ID)
		var names []string
		for _, p := range cp.Params {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"enabled", "label", "speed", "count", "dir", "spin"}, names)
		assert.Equal(t, xbuf.ParamInt, cp.Params[3].Kind)
		assert.Equal(t, int64(3), cp.Params[3].Int)
		assert.Equal(t, xbuf.ParamQuat, cp.Params[5].Kind)
	})

	t.Run("encodes", func(t *testing.T) {
		assert.NotEmpty(t, b.Marshal())
	})
}

func TestExportIsIncremental(t *testing.T) {
	sc := loadDemo(t)
	s := NewSession(Options{AssetsPath: t.TempDir()})

	first, err := exportScene(t, s, sc)
	require.NoError(t, err)

	second, err := exportScene(t, s, sc)
	require.NoError(t, err)
	assert.Zero(t, second.EntityCount())
	assert.ElementsMatch(t, first.Relations, append(second.Relations, paramsRelations(first)...))

	floor := sc.Object("Floor")
	s.MarkDirty(floor.Handle)
	s.MarkDirty(floor.Mesh.Handle)
	third, err := exportScene(t, s, sc)
	require.NoError(t, err)
	require.Len(t, third.Nodes, 1)
	assert.Equal(t, "Floor", third.Nodes[0].Name)
	assert.Len(t, third.Meshes, 1)
	assert.Empty(t, third.Materials)
}

// paramsRelations returns the relations only emitted along with a node.
func paramsRelations(b *xbuf.Batch) []xbuf.Relation {
	var out []xbuf.Relation
	for _, r := range b.Relations {
		if r.Type1 == xbuf.TagCustomParams || r.Type2 == xbuf.TagCustomParams {
			out = append(out, r)
		}
		if r.Type1 == xbuf.TagNode && r.Type2 == xbuf.TagNode {
			out = append(out, r)
		}
	}
	return out
}

func TestExportPreviewVisibility(t *testing.T) {
	sc := loadDemo(t)
	ghost := sc.Object("Ghost")
	ghost.HideViewport = true
	sc.Object("Camera").HideViewport = true

	s := NewSession(Options{AssetsPath: t.TempDir(), Preview: true})
	b, err := exportScene(t, s, sc)
	require.NoError(t, err)

	var names []string
	for _, n := range b.Nodes {
		names = append(names, n.Name)
	}
	assert.NotContains(t, names, "Camera")
	assert.NotContains(t, names, "Ghost")
	assert.Len(t, names, 3)
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Export(ctx, NewSession(Options{}), loadDemo(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportCollision(t *testing.T) {
	s := NewSession(Options{AssetsPath: t.TempDir()})
	s.ids.hash = func(scene.Handle) string { return "fixed" }

	_, err := exportScene(t, s, loadDemo(t))
	assert.ErrorIs(t, err, ErrIDCollision)
}

func TestExportCurves(t *testing.T) {
	sc := loadDemo(t)
	s := NewSession(Options{AssetsPath: t.TempDir(), Animation: AnimationCurves})
	b, err := exportScene(t, s, sc)
	require.NoError(t, err)
	require.Len(t, b.Animations, 2)

	slide := b.Animations[0]
	require.Len(t, slide.Clips, 1)
	keys := slide.Clips[0].Keys
	require.NotNil(t, keys)
	assert.Empty(t, keys.BoneName)
	require.NotNil(t, keys.Translation[0])
	assert.Equal(t, []int32{40, 400}, keys.Translation[0].At)
	assert.Equal(t, []float32{0, 9}, keys.Translation[0].Values)
	assert.Nil(t, keys.Translation[1])

	wave := b.Animations[1]
	require.Len(t, wave.Clips, 1)
	rot := wave.Clips[0].Keys
	assert.Equal(t, "arm", rot.BoneName)
	require.NotNil(t, rot.Rotation[0])
	require.NotNil(t, rot.Rotation[1])
	assert.Equal(t, []float32{1, 0.7071}, rot.Rotation[0].Values)
}

func TestExportCurvesSkipsEuler(t *testing.T) {
	sc := scene.New("test")
	o := sc.NewObject("Cube", scene.ObjectEmpty)
	a := sc.NewAction("Turn", scene.RootObject, 1, 2)
	a.AddCurve("rotation_euler", 2, scene.Keyframe{Frame: 1}, scene.Keyframe{Frame: 2, Value: 1})
	a.AddCurve("location", 1, scene.Keyframe{Frame: 1}, scene.Keyframe{Frame: 2, Value: 1})
	o.Animation = &scene.AnimationData{Tracks: []*scene.NLATrack{
		{Strips: []*scene.NLAStrip{{Action: a}}},
	}}

	s := NewSession(Options{Animation: AnimationCurves})
	b, err := exportScene(t, s, sc)
	require.NoError(t, err)
	require.Len(t, b.Warnings, 1)
	require.Len(t, b.Animations, 1)
	keys := b.Animations[0].Clips[0].Keys
	// host Y maps to wire -Z
	require.NotNil(t, keys.Translation[2])
	assert.Equal(t, []float32{0, -1}, keys.Translation[2].Values)
}

func TestExportLight(t *testing.T) {
	tests := []struct {
		name    string
		light   scene.Light
		kind    xbuf.LightKind
		falloff xbuf.Falloff
		linear  float32
		quad    float32
	}{
		{"sun", scene.Light{Type: scene.LightSun}, xbuf.LightDirectional, xbuf.FalloffNone, 0, 0},
		{"hemi", scene.Light{Type: scene.LightHemi}, xbuf.LightDirectional, xbuf.FalloffNone, 0, 0},
		{"point inverse", scene.Light{Type: scene.LightPoint, Falloff: scene.FalloffInverseLinear},
			xbuf.LightPoint, xbuf.FalloffInverse, 0, 0},
		{"weighted linear", scene.Light{Type: scene.LightPoint, Falloff: scene.FalloffLinearQuadraticWeighted,
			LinearAttenuation: 0.3}, xbuf.LightPoint, xbuf.FalloffInverse, 0.3, 0},
		{"weighted quadratic", scene.Light{Type: scene.LightPoint, Falloff: scene.FalloffLinearQuadraticWeighted,
			LinearAttenuation: 0.3, QuadraticAttenuation: 0.6}, xbuf.LightPoint, xbuf.FalloffInverseSquare, 0.3, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := exportLight("id", &tt.light)
			assert.Equal(t, tt.kind, l.Kind)
			require.NotNil(t, l.RadialDistance)
			assert.Equal(t, tt.falloff, l.RadialDistance.Falloff)
			assert.Equal(t, tt.linear, l.RadialDistance.Linear)
			assert.Equal(t, tt.quad, l.RadialDistance.Quadratic)
			assert.Nil(t, l.SpotAngle)
		})
	}

	l := exportLight("id", &scene.Light{Type: scene.LightPoint, UseSphere: true, Distance: 5})
	assert.Equal(t, float32(1), l.RadialDistance.LinearEnd)
	assert.Equal(t, float32(5), l.RadialDistance.Max)
}

func TestTextureOnDisk(t *testing.T) {
	assets := t.TempDir()
	outside := t.TempDir()
	png, err := os.ReadFile(filepath.Join("..", "scene", "testdata", "pixel.png"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "img", "a.png"), png, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "b.png"), png, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "notes.txt"), []byte("not an image"), 0o644))

	sc := scene.New("test")
	mat := sc.NewMaterial("Mat")
	inside := sc.NewTexture("Inside")
	inside.FilePath = "img/a.png"
	copied := sc.NewTexture("Copied")
	copied.FilePath = filepath.Join(outside, "b.png")
	text := sc.NewTexture("Text")
	text.FilePath = filepath.Join(outside, "notes.txt")
	missing := sc.NewTexture("Missing")
	missing.FilePath = filepath.Join(outside, "nope.png")
	mat.TextureSlots = []scene.TextureSlot{
		{Texture: inside, Use: scene.UseColor},
		{Texture: copied, Use: scene.UseNormal},
		{Texture: text, Use: scene.UseSpecular},
		{Texture: missing, Use: scene.UseEmission},
	}

	e := &exporter{s: NewSession(Options{AssetsPath: assets}), sc: sc, batch: &xbuf.Batch{}}
	e.log = e.s.log
	out, err := e.material(mat)
	require.NoError(t, err)

	require.NotNil(t, out.ColorMap)
	assert.Equal(t, "img/a.png", out.ColorMap.RPath)
	require.NotNil(t, out.NormalMap)
	assert.Equal(t, "Textures/b.png", out.NormalMap.RPath)
	assert.FileExists(t, filepath.Join(assets, "Textures", "b.png"))
	assert.Nil(t, out.SpecularMap)
	assert.Nil(t, out.EmissionMap)
	assert.Len(t, e.batch.Warnings, 2)
}

func TestMaterialWithoutSpecular(t *testing.T) {
	sc := scene.New("test")
	mat := sc.NewMaterial("Flat")
	mat.SpecularIntensity = 0
	mat.Shadeless = true

	e := &exporter{s: NewSession(Options{}), sc: sc, batch: &xbuf.Batch{}}
	e.log = e.s.log
	out, err := e.material(mat)
	require.NoError(t, err)
	assert.Nil(t, out.Specular)
	assert.Zero(t, out.SpecularPower)
	assert.Nil(t, out.Emission)
	assert.True(t, out.Shadeless)
	assert.InDelta(t, 0.64, out.Color.R, 1e-6)
}

func TestCustomParamsFilter(t *testing.T) {
	o := &scene.Object{Props: []scene.Prop{
		{Name: "cycles_visibility", Value: true},
		{Name: "_RNA_UI", Value: "x"},
		{Name: "list", Value: []any{1, 2}},
		{Name: "ok", Value: 2},
	}}
	e := &exporter{s: NewSession(Options{}), batch: &xbuf.Batch{}}
	e.customParams(o, "n1")

	require.Len(t, e.batch.CustomParams, 1)
	cp := e.batch.CustomParams[0]
	assert.Equal(t, "params_n1", cp.ID)
	require.Len(t, cp.Params, 1)
	assert.Equal(t, xbuf.Param{Name: "ok", Kind: xbuf.ParamInt, Int: 2}, cp.Params[0])
	assert.Equal(t, []xbuf.Relation{xbuf.NewRelation(xbuf.TagNode, "n1", xbuf.TagCustomParams, "params_n1")},
		e.batch.Relations)

	e = &exporter{s: NewSession(Options{}), batch: &xbuf.Batch{}}
	e.customParams(&scene.Object{Props: []scene.Prop{{Name: "_x", Value: 1}}}, "n2")
	assert.Empty(t, e.batch.CustomParams)
	assert.Empty(t, e.batch.Relations)
}

const skinnedScene = `
name: skinned
materials:
  - name: A
  - name: B
meshes:
  - name: Body
    vertices: [[0, 0, 0], [1, 0, 0], [0, 1, 0], [1, 1, 0]]
    weights:
      - [{group: 0, weight: 1}]
      - [{group: 0, weight: 1}]
      - [{group: 1, weight: 1}]
      - [{group: 0, weight: 1}]
    faces:
      - v: [0, 1, 2]
        material: 0
      - v: [1, 3, 2]
        material: 1
armatures:
  - name: Rig
    bones:
      - name: root
      - name: a
        parent: root
      - name: a_child
        parent: a
      - name: b
        parent: root
objects:
  - name: Body
    type: mesh
    data: Body
    materials: [A, B]
    armature: RigObject
    vertex_groups: [b, missing]
  - name: RigObject
    type: armature
    data: Rig
`

func TestSkinFollowsArmatureBoneOrder(t *testing.T) {
	sc, err := scene.Load(strings.NewReader(skinnedScene))
	require.NoError(t, err)

	b, err := exportScene(t, NewSession(Options{AssetsPath: t.TempDir()}), sc)
	require.NoError(t, err)

	require.Len(t, b.Skeletons, 1)
	var names []string
	for _, bone := range b.Skeletons[0].Bones {
		names = append(names, bone.Name)
	}
	assert.Equal(t, []string{"root", "a", "a_child", "b"}, names)

	require.Len(t, b.Meshes, 2)
	skin := b.Meshes[0].Skin
	require.NotNil(t, skin)
	assert.Equal(t, []int32{1, 1, 0}, skin.BoneCount)
	require.Equal(t, []int32{3, 3}, skin.BoneIndex)
	assert.Equal(t, "b", b.Skeletons[0].Bones[skin.BoneIndex[0]].Name)
}

func TestUnmappedGroupWarnsOncePerMesh(t *testing.T) {
	sc, err := scene.Load(strings.NewReader(skinnedScene))
	require.NoError(t, err)

	b, err := exportScene(t, NewSession(Options{AssetsPath: t.TempDir()}), sc)
	require.NoError(t, err)
	require.Len(t, b.Meshes, 2)

	n := 0
	for _, w := range b.Warnings {
		if strings.Contains(w, "vertex group can't be bound") {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestPackedTextureRetriedAfterWriteFailure(t *testing.T) {
	png, err := os.ReadFile(filepath.Join("..", "scene", "testdata", "pixel.png"))
	require.NoError(t, err)
	assets := t.TempDir()
	// A file where the Textures directory should be makes the write fail.
	blocker := filepath.Join(assets, texturesDir)
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sc := scene.New("test")
	mat := sc.NewMaterial("Mat")
	tex := sc.NewTexture("Pixel")
	tex.FilePath = "pixel.png"
	tex.Packed = png

	e := &exporter{s: NewSession(Options{AssetsPath: assets}), sc: sc, batch: &xbuf.Batch{}}
	e.log = e.s.log
	out, err := e.texture(mat, tex)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Len(t, e.batch.Warnings, 1)

	require.NoError(t, os.Remove(blocker))
	out, err = e.texture(mat, tex)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Textures/pixel.png", out.RPath)
	assert.FileExists(t, filepath.Join(assets, texturesDir, "pixel.png"))
	assert.False(t, e.s.NeedUpdate(tex.Handle))
}
