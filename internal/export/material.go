package export

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// texturesDir is where textures are placed under the assets root.
const texturesDir = "Textures"

func (e *exporter) material(mat *scene.Material) (xbuf.Material, error) {
	id, err := e.id(mat.Handle)
	if err != nil {
		return xbuf.Material{}, err
	}
	out := xbuf.Material{ID: id, Name: mat.Name, Shadeless: mat.Shadeless}

	k := mat.DiffuseIntensity
	d := mat.DiffuseColor
	out.Color = xbuf.RGB(d[0]*k, d[1]*k, d[2]*k)

	k = mat.SpecularIntensity
	s := mat.SpecularColor
	if spec := xbuf.RGB(s[0]*k, s[1]*k, s[2]*k); spec.R > 0 || spec.G > 0 || spec.B > 0 {
		out.Specular = &spec
		out.SpecularPower = mat.SpecularHardness
	}

	if mat.Emit > 0 {
		em := xbuf.RGB(mat.Emit, mat.Emit, mat.Emit)
		out.Emission = &em
	}

	for _, slot := range mat.TextureSlots {
		if slot.Disabled || slot.Texture == nil {
			continue
		}
		tex, err := e.texture(mat, slot.Texture)
		if err != nil {
			return xbuf.Material{}, err
		}
		if tex == nil {
			continue
		}
		switch slot.Use {
		case scene.UseColor:
			out.ColorMap = tex
		case scene.UseSpecular:
			out.SpecularMap = tex
		case scene.UseEmission:
			out.EmissionMap = tex
		case scene.UseOpacity:
			out.OpacityMap = tex
		case scene.UseNormal:
			out.NormalMap = tex
		}
	}
	return out, nil
}

// texture returns the reference to t, writing packed images under the assets
// root when t is dirty. A nil result means the image could not be used and a
// warning was recorded.
func (e *exporter) texture(mat *scene.Material, t *scene.Texture) (*xbuf.Texture, error) {
	id, err := e.id(t.Handle)
	if err != nil {
		return nil, err
	}
	root := e.s.opts.AssetsPath

	if t.IsPacked() {
		if !filetype.IsImage(t.Packed) {
			e.warn(mat.Name, "packed texture is not an image", zap.String("texture", t.Name))
			return nil, nil
		}
		name := filepath.Base(t.FilePath)
		if t.FilePath == "" {
			kind, _ := filetype.Match(t.Packed)
			name = t.Name + "." + kind.Extension
		}
		rpath := path.Join(texturesDir, name)
		if e.s.NeedUpdate(t.Handle) {
			if err := writeAsset(root, rpath, t.Packed); err != nil {
				e.warn(mat.Name, "failed to write packed texture", zap.String("texture", t.Name), zap.Error(err))
				e.s.MarkDirty(t.Handle)
				return nil, nil
			}
		}
		return &xbuf.Texture{ID: id, RPath: rpath}, nil
	}

	src := t.FilePath
	if src == "" {
		e.warn(mat.Name, "texture has no image", zap.String("texture", t.Name))
		return nil, nil
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}
	head, err := readHead(src)
	if err != nil {
		e.warn(mat.Name, "texture file is not readable", zap.String("path", src), zap.Error(err))
		return nil, nil
	}
	if !filetype.IsImage(head) {
		e.warn(mat.Name, "texture file is not an image", zap.String("path", src))
		return nil, nil
	}

	if rel, err := filepath.Rel(root, src); err == nil && !strings.HasPrefix(rel, "..") {
		return &xbuf.Texture{ID: id, RPath: filepath.ToSlash(rel)}, nil
	}

	rpath := path.Join(texturesDir, filepath.Base(src))
	if e.s.NeedUpdate(t.Handle) {
		data, err := os.ReadFile(src)
		if err == nil {
			err = writeAsset(root, rpath, data)
		}
		if err != nil {
			e.warn(mat.Name, "failed to copy texture", zap.String("path", src), zap.Error(err))
			e.s.MarkDirty(t.Handle)
			return nil, nil
		}
	}
	return &xbuf.Texture{ID: id, RPath: rpath}, nil
}

// readHead returns the first bytes of a file, enough for type detection.
func readHead(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

func writeAsset(root, rpath string, data []byte) error {
	dst := filepath.Join(root, filepath.FromSlash(rpath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
