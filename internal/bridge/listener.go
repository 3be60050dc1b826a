package bridge

import (
	"github.com/Faultbox/renderlink/internal/export"
	"github.com/Faultbox/renderlink/internal/scene"
)

// ChangeListener forwards host update flags to the session tracker. It is
// meant to run after every host scene update.
type ChangeListener struct {
	session *export.Session
	first   bool
}

// NewChangeListener creates a listener; its first notification marks the
// whole scene dirty.
func NewChangeListener(s *export.Session) *ChangeListener {
	return &ChangeListener{session: s, first: true}
}

// SceneUpdatePost marks the updated objects, their data, their actions and
// the materials of mesh objects. Nothing happens while an animation is playing.
func (l *ChangeListener) SceneUpdatePost(sc *scene.Scene) {
	if sc.AnimationPlaying {
		return
	}
	for _, o := range sc.Objects {
		if o.Updated || l.first {
			l.session.MarkDirty(o.Handle)
		}
		if d := o.Data(); d != 0 && (o.UpdatedData || l.first) {
			l.session.MarkDirty(d)
		}
		l.markActions(o.Animation)
		if o.Type != scene.ObjectMesh {
			continue
		}
		for _, mat := range o.MaterialSlots {
			if mat == nil {
				continue
			}
			if mat.Updated || l.first {
				l.session.MarkDirty(mat.Handle)
			}
			for _, slot := range mat.TextureSlots {
				if t := slot.Texture; t != nil && (t.Updated || l.first) {
					l.session.MarkDirty(t.Handle)
				}
			}
		}
	}
	l.first = false
}

func (l *ChangeListener) markActions(ad *scene.AnimationData) {
	if ad == nil {
		return
	}
	mark := func(a *scene.Action) {
		if a != nil && (a.Updated || l.first) {
			l.session.MarkDirty(a.Handle)
		}
	}
	mark(ad.Action)
	for _, t := range ad.Tracks {
		for _, st := range t.Strips {
			mark(st.Action)
		}
	}
}
