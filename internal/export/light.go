package export

import (
	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

func exportLight(id string, l *scene.Light) xbuf.Light {
	out := xbuf.Light{
		ID:         id,
		Name:       l.Name,
		Color:      xbuf.RGB(l.Color[0], l.Color[1], l.Color[2]),
		Intensity:  l.Energy,
		CastShadow: l.UseShadow,
	}

	switch l.Type {
	case scene.LightSun, scene.LightArea, scene.LightHemi:
		out.Kind = xbuf.LightDirectional
	case scene.LightSpot:
		out.Kind = xbuf.LightSpot
		out.SpotAngle = &xbuf.SpotAngle{
			Max:         l.SpotSize * 0.5,
			LinearBegin: 1 - l.SpotBlend,
		}
	default:
		out.Kind = xbuf.LightPoint
	}

	rd := &xbuf.RadialDistance{Max: l.Distance}
	switch l.Falloff {
	case scene.FalloffInverseLinear:
		rd.Falloff, rd.Scale = xbuf.FalloffInverse, 1
	case scene.FalloffInverseSquare:
		rd.Falloff, rd.Scale = xbuf.FalloffInverseSquare, 1
	case scene.FalloffLinearQuadraticWeighted:
		rd.Scale, rd.Constant, rd.Linear = 1, 1, l.LinearAttenuation
		if l.QuadraticAttenuation == 0 {
			rd.Falloff = xbuf.FalloffInverse
		} else {
			rd.Falloff = xbuf.FalloffInverseSquare
			rd.Quadratic = l.QuadraticAttenuation
		}
	}
	if l.UseSphere {
		rd.LinearEnd = 1
	}
	out.RadialDistance = rd
	return out
}
