package proto

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Code is one entry of the Codes reply.
type Code struct {
	Hash      string
	Label     string
	Kind      string
	Code      string
	Remaining uint32
	Pinned    bool
	Error     string
}

// CodesToStruct packs codes as {"codes": [{hash, label, kind, code,
// remaining, pinned, error}, ...]}.
func CodesToStruct(codes []Code) (*structpb.Struct, error) {
	list := make([]any, 0, len(codes))
	for _, c := range codes {
		list = append(list, map[string]any{
			"hash":      c.Hash,
			"label":     c.Label,
			"kind":      c.Kind,
			"code":      c.Code,
			"remaining": c.Remaining,
			"pinned":    c.Pinned,
			"error":     c.Error,
		})
	}
	return structpb.NewStruct(map[string]any{"codes": list})
}

// CodesFromStruct reverses CodesToStruct.
func CodesFromStruct(s *structpb.Struct) ([]Code, error) {
	v, ok := s.GetFields()["codes"]
	if !ok {
		return nil, fmt.Errorf("codes reply: missing codes field")
	}
	values := v.GetListValue().GetValues()

	out := make([]Code, 0, len(values))
	for i, item := range values {
		f := item.GetStructValue().GetFields()
		if f == nil {
			return nil, fmt.Errorf("codes reply: item %d is not an object", i)
		}
		out = append(out, Code{
			Hash:      f["hash"].GetStringValue(),
			Label:     f["label"].GetStringValue(),
			Kind:      f["kind"].GetStringValue(),
			Code:      f["code"].GetStringValue(),
			Remaining: uint32(f["remaining"].GetNumberValue()),
			Pinned:    f["pinned"].GetBoolValue(),
			Error:     f["error"].GetStringValue(),
		})
	}
	return out, nil
}
