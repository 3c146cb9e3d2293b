package component

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/c360/visionflow/errors"
)

// Limits applied to module parameters and ids
const (
	MaxStringLength = 1024
	MaxJSONSize     = 1024 * 1024
	maxDepth        = 10
	maxArraySize    = 10000
)

// ValidateKindName checks kind ids: letters, digits, '_', '-' and '.'
// separating namespace segments, e.g. "basic_ui.hello_world".
func ValidateKindName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateKindName", "empty name")
	}
	if len(name) > MaxStringLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateKindName", "name too long")
	}
	for i, r := range name {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.'
		if !valid || (r == '.' && (i == 0 || i == len(name)-1)) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrInvalidConfig, name),
				"ConfigValidator", "ValidateKindName", "invalid name characters")
		}
	}
	return nil
}

// ValidateFactoryConfig checks raw parameters for size, nesting depth, array
// length and control characters before a factory sees them.
func ValidateFactoryConfig(rawConfig []byte) error {
	if len(rawConfig) > MaxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(rawConfig), MaxJSONSize),
			"ConfigValidator", "ValidateConfig", "size check")
	}
	if len(bytes.TrimSpace(rawConfig)) == 0 {
		return nil
	}

	var value any
	dec := json.NewDecoder(bytes.NewReader(rawConfig))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateConfig", "JSON parsing")
	}
	return validateValue(value, 0)
}

func validateValue(value any, depth int) error {
	if depth > maxDepth {
		return errors.WrapInvalid(fmt.Errorf("JSON depth exceeds maximum %d", maxDepth),
			"ConfigValidator", "validateValue", "depth check")
	}

	switch v := value.(type) {
	case string:
		return validateString(v)
	case []any:
		if len(v) > maxArraySize {
			return errors.WrapInvalid(fmt.Errorf("array size %d exceeds maximum %d", len(v), maxArraySize),
				"ConfigValidator", "validateValue", "array size check")
		}
		for _, elem := range v {
			if err := validateValue(elem, depth+1); err != nil {
				return err
			}
		}
	case map[string]any:
		for key, elem := range v {
			if err := validateString(key); err != nil {
				return err
			}
			if err := validateValue(elem, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateString(s string) error {
	if len(s) > MaxStringLength {
		return errors.WrapInvalid(fmt.Errorf("string length %d exceeds maximum %d", len(s), MaxStringLength),
			"ConfigValidator", "validateString", "string length check")
	}
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return errors.WrapInvalid(fmt.Errorf("string contains control character: 0x%02x", r),
				"ConfigValidator", "validateString", "control character check")
		}
	}
	return nil
}

// SafeUnmarshal validates rawConfig and decodes it into target. Empty input
// leaves target untouched. Targets implementing Validatable are validated
// after decoding.
func SafeUnmarshal(rawConfig []byte, target any) error {
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "config validation")
	}
	if reflect.TypeOf(target).Kind() != reflect.Ptr {
		return errors.WrapInvalid(fmt.Errorf("target must be a pointer, got %T", target),
			"ConfigValidator", "SafeUnmarshal", "target type check")
	}
	if len(bytes.TrimSpace(rawConfig)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rawConfig, target); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "SafeUnmarshal", "JSON unmarshaling")
	}
	if v, ok := target.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return errors.WrapInvalid(err, "ConfigValidator", "SafeUnmarshal", "struct validation")
		}
	}
	return nil
}

// Validatable is implemented by configs that can self-validate
type Validatable interface {
	Validate() error
}
