package transport

import "google.golang.org/protobuf/types/known/structpb"

// errorEnvelope builds a {"type": "error", "message": ...} response, per
// spec.md §6's error-response shape.
func errorEnvelope(err error) *structpb.Struct {
	s, _ := structpb.NewStruct(map[string]any{
		"type":    "error",
		"message": err.Error(),
	})
	return s
}

func envelope(fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		// Only reachable if a handler puts a non-JSON-representable value
		// into the map; treat it the same as any other dispatch failure.
		return errorEnvelope(err)
	}
	return s
}

func fieldString(req *structpb.Struct, name string) string {
	v, ok := req.Fields[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func fieldNumber(req *structpb.Struct, name string) (float64, bool) {
	v, ok := req.Fields[name]
	if !ok {
		return 0, false
	}
	if v.GetKind() == nil {
		return 0, false
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, false
	}
	return v.GetNumberValue(), true
}

func fieldBool(req *structpb.Struct, name string) bool {
	v, ok := req.Fields[name]
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

func fieldStringList(req *structpb.Struct, name string) []string {
	v, ok := req.Fields[name]
	if !ok {
		return nil
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil
	}
	out := make([]string, 0, len(lv.Values))
	for _, item := range lv.Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

func fieldStringMap(req *structpb.Struct, name string) map[string]string {
	v, ok := req.Fields[name]
	if !ok {
		return nil
	}
	sv := v.GetStructValue()
	if sv == nil {
		return nil
	}
	out := make(map[string]string, len(sv.Fields))
	for k, fv := range sv.Fields {
		out[k] = fv.GetStringValue()
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
