package model

import (
	"errors"
	"fmt"
	"strings"
)

// Wizard limits carried over from the form layer.
const (
	MaxNameLength   = 100
	MaxCustomFields = 50
	MaxPromptLength = 2000
)

// ErrInvalid wraps all validation failures so callers can map them to a
// single rejection path.
var ErrInvalid = errors.New("invalid batch")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks a batch draft against the wizard rules: non-empty bounded
// name, known enums, and the custom-schema invariant (exactly one of
// fields/prompt for custom batches, neither for pretrained).
func Validate(b Batch) error {
	if strings.TrimSpace(b.Name) == "" {
		return invalidf("name is required")
	}
	if len(b.Name) > MaxNameLength {
		return invalidf("name exceeds %d characters", MaxNameLength)
	}
	if b.Model != ModelFlagship && b.Model != ModelLocal {
		return invalidf("unknown model %q", b.Model)
	}

	switch b.Type {
	case BatchPretrained:
		if b.ProcessingMethod != "" || b.CustomFields != nil || b.CustomPrompt != "" {
			return invalidf("pretrained batches cannot carry a custom schema")
		}
	case BatchCustom:
		switch b.ProcessingMethod {
		case MethodStructure:
			if b.CustomPrompt != "" {
				return invalidf("structure-method batches cannot carry a prompt")
			}
			if err := validateFields(b.CustomFields); err != nil {
				return err
			}
		case MethodPrompt:
			if b.CustomFields != nil {
				return invalidf("prompt-method batches cannot carry custom fields")
			}
			if strings.TrimSpace(b.CustomPrompt) == "" {
				return invalidf("prompt is required")
			}
			if len(b.CustomPrompt) > MaxPromptLength {
				return invalidf("prompt exceeds %d characters", MaxPromptLength)
			}
		default:
			return invalidf("unknown processing method %q", b.ProcessingMethod)
		}
	default:
		return invalidf("unknown batch type %q", b.Type)
	}

	return nil
}

func validateFields(fields []CustomField) error {
	if len(fields) == 0 {
		return invalidf("at least one custom field is required")
	}
	if len(fields) > MaxCustomFields {
		return invalidf("custom fields exceed %d entries", MaxCustomFields)
	}
	named := 0
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		named++
		if !knownFieldType(f.Type) {
			return invalidf("field %d has unknown type %q", i, f.Type)
		}
	}
	if named == 0 {
		return invalidf("at least one custom field must be named")
	}
	return nil
}

func knownFieldType(t FieldType) bool {
	for _, known := range FieldTypes() {
		if t == known {
			return true
		}
	}
	return false
}
