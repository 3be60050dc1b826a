package export

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Faultbox/renderlink/internal/scene"
)

// ErrIDCollision is returned when two handles map to the same identifier.
var ErrIDCollision = errors.New("identity collision")

// DefaultNamespace seeds identifiers when Options.Namespace is unset.
var DefaultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Faultbox/renderlink"))

// Registry assigns stable identifiers to scene handles. An identifier is a
// name-based UUID of the handle, so it depends on identity only.
type Registry struct {
	ids    map[scene.Handle]string
	owners map[string]scene.Handle
	hash   func(scene.Handle) string
}

// NewRegistry creates a registry deriving identifiers within ns.
func NewRegistry(ns uuid.UUID) *Registry {
	return &Registry{
		ids:    make(map[scene.Handle]string),
		owners: make(map[string]scene.Handle),
		hash: func(h scene.Handle) string {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(h))
			return uuid.NewSHA1(ns, buf[:]).String()
		},
	}
}

// IDOf returns the identifier of h, computing it on first use.
func (r *Registry) IDOf(h scene.Handle) (string, error) {
	if id, ok := r.ids[h]; ok {
		return id, nil
	}
	id := r.hash(h)
	if other, ok := r.owners[id]; ok && other != h {
		return "", fmt.Errorf("%w: handles %d and %d both map to %s", ErrIDCollision, other, h, id)
	}
	r.ids[h] = id
	r.owners[id] = h
	return id, nil
}

// Len returns the number of memoized identifiers.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Tracker remembers which entities changed since they were last exported.
type Tracker struct {
	dirty map[scene.Handle]bool
}

// NewTracker creates an empty tracker; every handle starts dirty.
func NewTracker() *Tracker {
	return &Tracker{dirty: make(map[scene.Handle]bool)}
}

// NeedUpdate reports whether h was dirty (or never seen), then stores
// !markClean as its new state.
func (t *Tracker) NeedUpdate(h scene.Handle, markClean bool) bool {
	old, seen := t.dirty[h]
	t.dirty[h] = !markClean
	return !seen || old
}

// MarkDirty flags h for the next export.
func (t *Tracker) MarkDirty(h scene.Handle) {
	t.NeedUpdate(h, false)
}

// Forget drops the state of h; it will be reported dirty again.
func (t *Tracker) Forget(h scene.Handle) {
	delete(t.dirty, h)
}
