package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/okian/calmate/internal/domain/apperr"
)

// Validate checks raw tool arguments against def: the payload must be a JSON
// object, required fields must be present and non-null, and every declared
// field must carry its declared type. Nested objects and array items are
// checked recursively. Undeclared fields are ignored. Enums are advisory.
func Validate(def jsonschema.Definition, raw json.RawMessage) error {
	const op = "assistant.validate"
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return apperr.Invalid(op, fmt.Sprintf("arguments are not valid JSON: %v", err))
	}
	if err := check(def, value, "arguments"); err != nil {
		return apperr.Invalid(op, err.Error())
	}
	return nil
}

func check(def jsonschema.Definition, value any, path string) error {
	switch def.Type {
	case jsonschema.Object:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s must be an object", path)
		}
		for _, name := range def.Required {
			if v, ok := obj[name]; !ok || v == nil {
				return fmt.Errorf("%s.%s is required", path, name)
			}
		}
		// sorted so the first reported problem is deterministic
		names := make([]string, 0, len(def.Properties))
		for name := range def.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v, ok := obj[name]
			if !ok || v == nil {
				continue
			}
			if err := check(def.Properties[name], v, path+"."+name); err != nil {
				return err
			}
		}
	case jsonschema.Array:
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s must be an array", path)
		}
		if def.Items == nil {
			return nil
		}
		for i, v := range arr {
			if err := check(*def.Items, v, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case jsonschema.String:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s must be a string", path)
		}
	case jsonschema.Number:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s must be a number", path)
		}
	case jsonschema.Integer:
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("%s must be an integer", path)
		}
	case jsonschema.Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", path)
		}
	}
	return nil
}
