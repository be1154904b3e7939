package pkg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Field declares the JSON kind expected at a dotted path of the document.
type Field struct {
	Path     string
	Kind     Kind
	Optional bool
}

type Schema []Field

// ValidationError lists what failed, either for the whole document or per
// field path.
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func newValidationError() *ValidationError {
	return &ValidationError{FormErrors: []string{}, FieldErrors: map[string][]string{}}
}

func (e *ValidationError) Error() string {
	parts := append([]string{}, e.FormErrors...)
	paths := make([]string, 0, len(e.FieldErrors))
	for path := range e.FieldErrors {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		parts = append(parts, fmt.Sprintf("%s: %s", path, strings.Join(e.FieldErrors[path], ", ")))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(path, message string) {
	e.FieldErrors[path] = append(e.FieldErrors[path], message)
}

func (e *ValidationError) empty() bool {
	return len(e.FormErrors) == 0 && len(e.FieldErrors) == 0
}

// Validate decodes raw into dto. Kinds declared by schema are checked on the
// generic document first, then the `validate` tags of dto are evaluated.
// A nil result means dto is fully populated and valid.
func Validate(raw []byte, schema Schema, dto any) *ValidationError {
	verr := newValidationError()

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		verr.FormErrors = append(verr.FormErrors, "Malformed JSON body")
		return verr
	}
	if decoder.More() {
		verr.FormErrors = append(verr.FormErrors, "Malformed JSON body")
		return verr
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		verr.FormErrors = append(verr.FormErrors, fmt.Sprintf("Expected object, received %s", describe(doc)))
		return verr
	}

	failed := map[string]bool{}
	for _, field := range schema {
		checkField(obj, field, verr, failed)
	}

	// Only values of the right kind reach the typed decode.
	for path := range failed {
		remove(obj, strings.Split(path, "."))
	}
	cleaned, err := json.Marshal(obj)
	if err != nil {
		verr.FormErrors = append(verr.FormErrors, err.Error())
		return verr
	}
	if err := json.Unmarshal(cleaned, dto); err != nil {
		verr.FormErrors = append(verr.FormErrors, err.Error())
		return verr
	}

	if err := validate.Struct(dto); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			verr.FormErrors = append(verr.FormErrors, err.Error())
			return verr
		}
		for _, fe := range fieldErrs {
			path := fe.Namespace()
			if i := strings.Index(path, "."); i >= 0 {
				path = path[i+1:]
			}
			if coveredBy(path, failed) {
				continue
			}
			verr.add(path, message(fe))
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}

func checkField(obj map[string]any, field Field, verr *ValidationError, failed map[string]bool) {
	segments := strings.Split(field.Path, ".")
	current := obj
	for i, segment := range segments {
		path := strings.Join(segments[:i+1], ".")
		if coveredBy(path, failed) {
			return
		}
		value, present := current[segment]
		if !present {
			if !field.Optional {
				verr.add(path, "Required")
				failed[path] = true
			}
			return
		}
		if i < len(segments)-1 {
			next, ok := value.(map[string]any)
			if !ok {
				verr.add(path, fmt.Sprintf("Expected object, received %s", describe(value)))
				failed[path] = true
				return
			}
			current = next
			continue
		}
		normalized, msg, ok := checkKind(value, field.Kind)
		if !ok {
			verr.add(path, msg)
			failed[path] = true
			continue
		}
		current[segment] = normalized
	}
}

// checkKind returns value in the form the typed decode accepts. Integers
// written with a fraction or exponent (1e3, 25.0) come back in plain digits.
func checkKind(value any, kind Kind) (any, string, bool) {
	switch kind {
	case KindString:
		if _, ok := value.(string); ok {
			return value, "", true
		}
		return nil, fmt.Sprintf("Expected string, received %s", describe(value)), false
	case KindBoolean:
		if _, ok := value.(bool); ok {
			return value, "", true
		}
		return nil, fmt.Sprintf("Expected boolean, received %s", describe(value)), false
	case KindInteger:
		n, ok := value.(json.Number)
		if !ok {
			return nil, fmt.Sprintf("Expected number, received %s", describe(value)), false
		}
		f, _, err := big.ParseFloat(n.String(), 10, 256, big.ToNearestEven)
		if err != nil || !f.IsInt() {
			return nil, "Expected integer, received float", false
		}
		i, acc := f.Int64()
		if acc != big.Exact || i > math.MaxInt || i < math.MinInt {
			if f.Sign() > 0 {
				return nil, fmt.Sprintf("Number must be less than or equal to %d", math.MaxInt), false
			}
			return nil, fmt.Sprintf("Number must be greater than or equal to %d", math.MinInt), false
		}
		return json.Number(strconv.FormatInt(i, 10)), "", true
	}
	return nil, fmt.Sprintf("Unknown kind %s", kind), false
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func remove(obj map[string]any, segments []string) {
	if len(segments) == 1 {
		delete(obj, segments[0])
		return
	}
	if next, ok := obj[segments[0]].(map[string]any); ok {
		remove(next, segments[1:])
	}
}

// coveredBy reports whether path or one of its parents already failed.
func coveredBy(path string, failed map[string]bool) bool {
	for p := path; ; {
		if failed[p] {
			return true
		}
		i := strings.LastIndex(p, ".")
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "email":
		return "Invalid email"
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
