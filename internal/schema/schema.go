package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Type is the declared type of a schema field
type Type int

const (
	String Type = iota + 1
	Number
)

func (t Type) String() string {
	switch t {
	case String:
		return "String"
	case Number:
		return "Number"
	default:
		return "Unknown"
	}
}

// Mode selects which rules apply during validation
type Mode int

const (
	// Full checks every field, including required ones. Used on create.
	Full Mode = iota
	// Partial checks only the fields present in the document. Used on update.
	Partial
)

// Document is a loosely typed candidate record decoded from a request body
type Document map[string]any

// Bound is a numeric limit together with the message reported when it is violated
type Bound struct {
	Limit   float64
	Message string
}

// Field declares the constraints of a single document field
type Field struct {
	Name            string
	Type            Type
	Required        bool
	RequiredMessage string
	Trim            bool

	// Length bounds apply to String fields, value bounds to Number fields.
	MinLength *Bound
	MaxLength *Bound
	Min       *Bound
	Max       *Bound
}

// Schema is an ordered set of field declarations
type Schema struct {
	Name   string
	Fields []Field
}

var validate = validator.New()

// Validate checks doc against the schema and returns the normalized document.
// Keys not declared by the schema are dropped. Fields are reported in
// declaration order, at most one error per field.
func (s Schema) Validate(doc Document, mode Mode) (Document, error) {
	out := make(Document, len(s.Fields))
	var errs []FieldError

	for _, f := range s.Fields {
		raw, present := doc[f.Name]
		if raw == nil || f.blank(raw) {
			present = false
		}

		if !present {
			if mode == Full && f.Required {
				errs = append(errs, f.requiredError())
			}
			continue
		}

		value, fieldErr := f.check(raw)
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
			continue
		}
		out[f.Name] = value
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Schema: s.Name, Errors: errs}
	}
	return out, nil
}

// blank reports whether raw is an empty string given for a Number field, which counts as unset
func (f Field) blank(raw any) bool {
	str, ok := raw.(string)
	return ok && f.Type == Number && strings.TrimSpace(str) == ""
}

func (f Field) check(raw any) (any, *FieldError) {
	switch f.Type {
	case String:
		str, err := castString(raw)
		if err != nil {
			return nil, f.castError(raw)
		}
		if f.Trim {
			str = strings.TrimSpace(str)
		}
		if f.Required && validate.Var(str, "required") != nil {
			return nil, ptr(f.requiredError())
		}
		if f.MinLength != nil && validate.Var(str, fmt.Sprintf("min=%d", int(f.MinLength.Limit))) != nil {
			return nil, &FieldError{Field: f.Name, Rule: "minlength", Message: f.MinLength.Message}
		}
		if f.MaxLength != nil && validate.Var(str, fmt.Sprintf("max=%d", int(f.MaxLength.Limit))) != nil {
			return nil, &FieldError{Field: f.Name, Rule: "maxlength", Message: f.MaxLength.Message}
		}
		return str, nil

	case Number:
		num, err := castNumber(raw)
		if err != nil {
			return nil, f.castError(raw)
		}
		if f.Min != nil && validate.Var(num, "gte="+formatFloat(f.Min.Limit)) != nil {
			return nil, &FieldError{Field: f.Name, Rule: "min", Message: f.Min.Message}
		}
		if f.Max != nil && validate.Var(num, "lte="+formatFloat(f.Max.Limit)) != nil {
			return nil, &FieldError{Field: f.Name, Rule: "max", Message: f.Max.Message}
		}
		return num, nil
	}

	return nil, &FieldError{Field: f.Name, Rule: "type", Message: fmt.Sprintf("unsupported type for path %q", f.Name)}
}

func (f Field) requiredError() FieldError {
	msg := f.RequiredMessage
	if msg == "" {
		msg = fmt.Sprintf("Path `%s` is required.", f.Name)
	}
	return FieldError{Field: f.Name, Rule: "required", Message: msg}
}

func (f Field) castError(raw any) *FieldError {
	return &FieldError{
		Field:   f.Name,
		Rule:    "type",
		Message: CastMessage(f.Type, raw, f.Name),
	}
}

// CastMessage formats the error reported when value cannot be read as t
func CastMessage(t Type, value any, path string) string {
	return fmt.Sprintf("Cast to %s failed for value \"%v\" at path \"%s\"", t, value, path)
}

// ParseNumber reads a numeric value the same way Number fields do
func ParseNumber(raw any) (float64, error) {
	return castNumber(raw)
}

func castString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return formatFloat(v), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("cannot cast %T to string", raw)
	}
}

func castNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a finite number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot cast %T to number", raw)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func ptr[T any](v T) *T {
	return &v
}
