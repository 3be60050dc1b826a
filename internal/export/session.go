package export

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/logger"
	"github.com/Faultbox/renderlink/internal/scene"
)

// AnimationMode selects how actions are exported.
type AnimationMode string

const (
	// AnimationSampled samples the evaluated pose at every frame.
	AnimationSampled AnimationMode = "sampled"
	// AnimationCurves exports the action keyframes.
	AnimationCurves AnimationMode = "curves"
)

// Options configures an exporter session.
type Options struct {
	// AssetsPath is the root packed textures are written under.
	AssetsPath string
	// Preview uses viewport visibility instead of render visibility.
	Preview bool
	// WeldVertices merges identical de-indexed vertices of each mesh.
	WeldVertices  bool
	Animation     AnimationMode
	SampleEpsilon float32
	// Namespace seeds the identifiers; zero means DefaultNamespace.
	Namespace uuid.UUID
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		AssetsPath:    "/tmp",
		Animation:     AnimationSampled,
		SampleEpsilon: 1e-6,
	}
}

// Session holds the state shared by successive exports of one scene: the
// identifier registry and the change tracker. It must not be used by more
// than one export at a time.
type Session struct {
	opts    Options
	ids     *Registry
	tracker *Tracker
	log     *zap.Logger
}

// NewSession creates a session. Zero option fields take their defaults.
func NewSession(opts Options) *Session {
	def := DefaultOptions()
	if opts.AssetsPath == "" {
		opts.AssetsPath = def.AssetsPath
	}
	if opts.Animation == "" {
		opts.Animation = def.Animation
	}
	if opts.SampleEpsilon <= 0 {
		opts.SampleEpsilon = def.SampleEpsilon
	}
	if opts.Namespace == uuid.Nil {
		opts.Namespace = DefaultNamespace
	}
	return &Session{
		opts:    opts,
		ids:     NewRegistry(opts.Namespace),
		tracker: NewTracker(),
		log:     logger.Named("export"),
	}
}

// Options returns the session options.
func (s *Session) Options() Options {
	return s.opts
}

// IDOf returns the stable identifier of h.
func (s *Session) IDOf(h scene.Handle) (string, error) {
	return s.ids.IDOf(h)
}

// NeedUpdate reports whether h must be serialized and marks it clean.
func (s *Session) NeedUpdate(h scene.Handle) bool {
	return s.tracker.NeedUpdate(h, true)
}

// MarkDirty flags h for the next export.
func (s *Session) MarkDirty(h scene.Handle) {
	s.tracker.MarkDirty(h)
}

// Forget drops the change state of h.
func (s *Session) Forget(h scene.Handle) {
	s.tracker.Forget(h)
}

// SetLogger replaces the session logger.
func (s *Session) SetLogger(l *zap.Logger) {
	s.log = l
}

// Reset marks every entity dirty again, keeping identifiers. Used when the
// receiver may have lost its state.
func (s *Session) Reset() {
	s.tracker = NewTracker()
}
