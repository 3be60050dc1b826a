package xbuf

import (
	"errors"

	"github.com/Faultbox/renderlink/pkg/math"
)

// ErrInvalidCmd is returned when a Cmd does not carry exactly one command.
var ErrInvalidCmd = errors.New("command must carry exactly one of setEye, setData, changeAssetFolders, playAnimation")

// ProjMode selects the camera projection.
type ProjMode int32

const (
	ProjPerspective  ProjMode = 0
	ProjOrthographic ProjMode = 1
)

// SetEye moves the renderer camera. Location and Rotation are in wire convention.
type SetEye struct {
	Location   math.Vec3
	Rotation   math.Quat
	Projection [16]float32
	Near       float32
	Far        float32
	ProjMode   ProjMode
}

// ChangeAssetFolders tells the renderer where to resolve texture paths.
type ChangeAssetFolders struct {
	Paths            []string
	Register         bool
	UnregisterOthers bool
}

// PlayAnimation lists the clips currently active on a target.
type PlayAnimation struct {
	Ref            string
	AnimationNames []string
}

// Cmd is the envelope of a structured-command frame. Exactly one field is set.
type Cmd struct {
	SetEye             *SetEye
	SetData            *Batch
	ChangeAssetFolders *ChangeAssetFolders
	PlayAnimation      *PlayAnimation
}

func (c *Cmd) count() int {
	n := 0
	if c.SetEye != nil {
		n++
	}
	if c.SetData != nil {
		n++
	}
	if c.ChangeAssetFolders != nil {
		n++
	}
	if c.PlayAnimation != nil {
		n++
	}
	return n
}
