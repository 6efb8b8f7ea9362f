package toolcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// maxSchemaDepth bounds recursion into nested payloads; below the floor the
// schema just says "whatever is here".
const maxSchemaDepth = 4

// InferSchema derives a JSON Schema document from an unmarshaled JSON value.
// The result is compiled before being returned, so stored schemas are always
// themselves valid and the sampled value validates against them.
func InferSchema(value any) (map[string]any, error) {
	schema := inferNode(value, 0)

	// Compile-check the schema and validate the source value against it.
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("toolcache: marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("toolcache: reload schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inferred.json", doc); err != nil {
		return nil, fmt.Errorf("toolcache: add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("inferred.json")
	if err != nil {
		return nil, fmt.Errorf("toolcache: compile schema: %w", err)
	}
	if err := compiled.Validate(value); err != nil {
		return nil, fmt.Errorf("toolcache: inferred schema rejects its own source: %w", err)
	}
	return schema, nil
}

func inferNode(value any, depth int) map[string]any {
	if depth >= maxSchemaDepth {
		return map[string]any{}
	}
	switch v := value.(type) {
	case map[string]any:
		properties := make(map[string]any, len(v))
		required := make([]string, 0, len(v))
		for key, child := range v {
			properties[key] = inferNode(child, depth+1)
			required = append(required, key)
		}
		sort.Strings(required)
		node := map[string]any{"type": "object", "properties": properties}
		if len(required) > 0 {
			node["required"] = required
		}
		return node
	case []any:
		node := map[string]any{"type": "array"}
		if len(v) > 0 {
			// Items are typed from the first element; heterogeneous arrays
			// would need a union, which is more schema than a digest needs.
			if homogeneous(v) {
				node["items"] = inferNode(v[0], depth+1)
			}
		}
		return node
	case string:
		return map[string]any{"type": "string"}
	case bool:
		return map[string]any{"type": "boolean"}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return map[string]any{"type": "integer"}
		}
		return map[string]any{"type": "number"}
	case nil:
		return map[string]any{"type": "null"}
	default:
		return map[string]any{}
	}
}

// homogeneous reports whether every element shares the first element's JSON
// type (with integers and numbers considered distinct).
func homogeneous(values []any) bool {
	kind := jsonKind(values[0])
	for _, v := range values[1:] {
		if jsonKind(v) != kind {
			return false
		}
	}
	return true
}

func jsonKind(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return "integer"
		}
		return "number"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
