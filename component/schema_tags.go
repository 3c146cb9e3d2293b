package component

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/c360/visionflow/errors"
)

// SchemaDirectives is the parsed form of a `schema` struct tag.
//
//	Threshold int `json:"threshold" schema:"type:int,description:Cut level,min:0,max:255,default:128"`
type SchemaDirectives struct {
	Type        string
	Description string
	Category    string
	Default     any
	Required    bool
	Hidden      bool
	Min         *int
	Max         *int
	Enum        []string
}

var schemaTypes = map[string]bool{
	"string": true, "int": true, "bool": true, "float": true,
	"enum": true, "array": true, "object": true,
}

// ParseSchemaTag parses comma-separated directives. Key-value pairs use a
// colon, enum values are pipe-separated, and required/hidden are flags.
func ParseSchemaTag(tag string) (SchemaDirectives, error) {
	var d SchemaDirectives
	if strings.TrimSpace(tag) == "" {
		return d, errors.WrapInvalid(errors.ErrInvalidConfig, "SchemaTag", "Parse", "empty tag")
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if !hasValue {
			switch key {
			case "required":
				d.Required = true
			case "hidden":
				d.Hidden = true
			default:
				return d, errors.WrapInvalid(fmt.Errorf("unknown flag %q", key), "SchemaTag", "Parse", "flag")
			}
			continue
		}

		switch key {
		case "type":
			d.Type = value
		case "description":
			d.Description = value
		case "category":
			d.Category = value
		case "default":
			d.Default = value
		case "enum":
			d.Enum = strings.Split(value, "|")
		case "min", "max":
			n, err := strconv.Atoi(value)
			if err != nil {
				return d, errors.WrapInvalid(err, "SchemaTag", "Parse", key+" value")
			}
			if key == "min" {
				d.Min = &n
			} else {
				d.Max = &n
			}
		default:
			return d, errors.WrapInvalid(fmt.Errorf("unknown directive %q", key), "SchemaTag", "Parse", "directive")
		}
	}

	if !schemaTypes[d.Type] {
		return d, errors.WrapInvalid(fmt.Errorf("invalid type %q", d.Type), "SchemaTag", "Parse", "type directive")
	}
	return d, nil
}

// GenerateConfigSchema builds a schema from the `json` and `schema` tags of a
// struct type. Call once per kind at registration. Fields with a bad tag are
// skipped.
func GenerateConfigSchema(configType reflect.Type) ConfigSchema {
	schema := ConfigSchema{
		Properties: make(map[string]PropertySchema),
		Required:   []string{},
	}

	if configType.Kind() == reflect.Ptr {
		configType = configType.Elem()
	}
	if configType.Kind() != reflect.Struct {
		return schema
	}

	for i := 0; i < configType.NumField(); i++ {
		field := configType.Field(i)

		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		tag := field.Tag.Get("schema")
		if tag == "" {
			continue
		}
		d, err := ParseSchemaTag(tag)
		if err != nil || d.Hidden {
			continue
		}

		description := d.Description
		if description == "" {
			description = name
		}
		schema.Properties[name] = PropertySchema{
			Type:        d.Type,
			Description: description,
			Category:    d.Category,
			Default:     convertDefault(d.Default, d.Type),
			Minimum:     d.Min,
			Maximum:     d.Max,
			Enum:        d.Enum,
		}
		if d.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

func convertDefault(value any, fieldType string) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch fieldType {
	case "int":
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return nil
	case "float":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	case "bool":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return nil
	case "array", "object":
		return nil
	default:
		return s
	}
}
