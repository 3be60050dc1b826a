package export

import (
	"strings"

	"github.com/Faultbox/renderlink/internal/scene"
	"github.com/Faultbox/renderlink/pkg/math"
	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// customParams exports the user properties of o. Keys starting with "_" or
// "cycles" belong to the host and are skipped, as are values of unsupported
// types.
func (e *exporter) customParams(o *scene.Object, nodeID string) {
	var params []xbuf.Param
	for _, p := range o.Props {
		if strings.HasPrefix(p.Name, "_") || strings.HasPrefix(p.Name, "cycles") {
			continue
		}
		if param, ok := toParam(p); ok {
			params = append(params, param)
		}
	}
	if len(params) == 0 {
		return
	}

	cp := xbuf.CustomParams{ID: "params_" + nodeID, Params: params}
	e.batch.CustomParams = append(e.batch.CustomParams, cp)
	e.batch.AddRelation(xbuf.TagNode, nodeID, xbuf.TagCustomParams, cp.ID)
}

func toParam(p scene.Prop) (xbuf.Param, bool) {
	out := xbuf.Param{Name: p.Name}
	switch v := p.Value.(type) {
	case bool:
		out.Kind, out.Bool = xbuf.ParamBool, v
	case string:
		out.Kind, out.String = xbuf.ParamString, v
	case float64:
		out.Kind, out.Float = xbuf.ParamFloat, float32(v)
	case float32:
		out.Kind, out.Float = xbuf.ParamFloat, v
	case int64:
		out.Kind, out.Int = xbuf.ParamInt, v
	case int:
		out.Kind, out.Int = xbuf.ParamInt, int64(v)
	case math.Vec3:
		out.Kind, out.Vec3 = xbuf.ParamVec3, v
	case math.Quat:
		out.Kind, out.Quat = xbuf.ParamQuat, v
	default:
		return out, false
	}
	return out, true
}
