package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hanpama/usergraph/internal/store"
)

func serializeLeaf(typeName string, value any) (any, error) {
	switch typeName {
	case "String", "ID":
		if s, ok := value.(string); ok {
			return s, nil
		}
	case "Int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		}
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "UUID":
		switch v := value.(type) {
		case string:
			return v, nil
		case uuid.UUID:
			return v.String(), nil
		}
	case "MemberTypeId":
		if s, ok := value.(string); ok && (s == store.MemberTypeBasic || s == store.MemberTypeBusiness) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s cannot represent value %v (%T)", typeName, value, value)
}
