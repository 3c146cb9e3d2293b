package component

import (
	"fmt"
	"sort"
)

// ConfigSchema describes the persistent parameters of a module kind
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes a single parameter
type PropertySchema struct {
	Type        string   `json:"type"` // "string", "int", "bool", "float", "enum", "array", "object"
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
	Category    string   `json:"category,omitempty"` // "basic" or "advanced"
}

// ValidationError represents a validation error for one parameter.
//
// Codes: "required", "min", "max", "enum", "type".
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidateConfig checks params against schema. Unknown fields are allowed so
// that older workspace files keep loading.
func ValidateConfig(config map[string]any, schema ConfigSchema) []ValidationError {
	var errs []ValidationError

	for _, field := range schema.Required {
		if _, exists := config[field]; !exists {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("Field %q is required", field),
				Code:    "required",
			})
		}
	}

	for name, value := range config {
		prop, exists := schema.Properties[name]
		if !exists {
			continue
		}

		if err := validateType(name, value, prop); err != nil {
			errs = append(errs, *err)
			continue
		}

		if len(prop.Enum) > 0 {
			if err := validateEnum(name, value, prop.Enum); err != nil {
				errs = append(errs, *err)
			}
		}

		if prop.Type == "int" || prop.Type == "float" {
			n, _ := asFloat(value)
			if prop.Minimum != nil && n < float64(*prop.Minimum) {
				errs = append(errs, ValidationError{
					Field:   name,
					Message: fmt.Sprintf("Field %q must be >= %d", name, *prop.Minimum),
					Code:    "min",
				})
			}
			if prop.Maximum != nil && n > float64(*prop.Maximum) {
				errs = append(errs, ValidationError{
					Field:   name,
					Message: fmt.Sprintf("Field %q must be <= %d", name, *prop.Maximum),
					Code:    "max",
				})
			}
		}
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func validateType(field string, value any, prop PropertySchema) *ValidationError {
	var ok bool
	var want string
	switch prop.Type {
	case "string", "enum":
		_, ok = value.(string)
		want = "a string"
	case "int":
		var n float64
		n, ok = asFloat(value)
		ok = ok && n == float64(int64(n))
		want = "an integer"
	case "float":
		_, ok = asFloat(value)
		want = "a number"
	case "bool":
		_, ok = value.(bool)
		want = "a boolean"
	case "array":
		_, ok = value.([]any)
		want = "an array"
	case "object":
		_, ok = value.(map[string]any)
		want = "an object"
	default:
		return nil
	}
	if ok {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Field %q must be %s", field, want),
		Code:    "type",
	}
}

func validateEnum(field string, value any, allowed []string) *ValidationError {
	s, _ := value.(string)
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Field %q must be one of: %v", field, allowed),
		Code:    "enum",
	}
}

// SortedPropertyNames returns property names with "basic" properties first,
// alphabetical within each category. No category counts as "advanced".
func SortedPropertyNames(schema ConfigSchema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	basic := func(name string) bool { return schema.Properties[name].Category == "basic" }
	sort.Slice(names, func(i, j int) bool {
		if basic(names[i]) != basic(names[j]) {
			return basic(names[i])
		}
		return names[i] < names[j]
	})
	return names
}
