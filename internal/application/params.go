package application

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"linear-mcp-server/internal/domain"
)

// validate reports struct fields by their JSON (argument) names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeFieldPattern extracts the field name from mapstructure type and
// decode hook errors.
var decodeFieldPattern = regexp.MustCompile(`'([^']+)' expected|decoding '([^']+)':`)

// rejectFractionalInts refuses JSON numbers with a fractional part for
// integer fields; mapstructure would otherwise truncate them.
func rejectFractionalInts(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if f, ok := data.(float64); ok && f != math.Trunc(f) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}

// decodeArgs decodes tool arguments into out, a pointer to a struct whose
// json tags name the arguments, and validates it. Every failure is returned
// as a ParamsError listing the offending fields.
func decodeArgs(tool string, args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Squash:     true,
		DecodeHook: mapstructure.DecodeHookFuncType(rejectFractionalInts),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}

	if err := decoder.Decode(args); err != nil {
		var fields []string
		for _, m := range decodeFieldPattern.FindAllStringSubmatch(err.Error(), -1) {
			if m[1] != "" {
				fields = append(fields, m[1])
			} else {
				fields = append(fields, m[2])
			}
		}
		return &domain.ParamsError{Tool: tool, Fields: fields, Reason: "malformed arguments"}
	}

	if err := validate.Struct(out); err != nil {
		return validationError(tool, err)
	}
	return nil
}

// validationError converts validator errors into a ParamsError.
func validationError(tool string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &domain.ParamsError{Tool: tool, Reason: err.Error()}
	}

	fields := make([]string, 0, len(verrs))
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldPath(fe.Namespace())
		fields = append(fields, name)
		reasons = append(reasons, describe(name, fe))
	}
	return &domain.ParamsError{Tool: tool, Fields: fields, Reason: strings.Join(reasons, "; ")}
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describe(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "url":
		return name + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

// getStringParam extracts a string parameter from the arguments map.
// Returns a ParamsError if the parameter is required but missing, empty or
// not a string.
func getStringParam(tool string, args map[string]interface{}, name string, required bool) (string, error) {
	value, exists := args[name]
	if !exists || value == nil {
		if required {
			return "", &domain.ParamsError{Tool: tool, Fields: []string{name}, Reason: name + " is required"}
		}
		return "", nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", &domain.ParamsError{Tool: tool, Fields: []string{name}, Reason: name + " must be a string"}
	}
	if required && strValue == "" {
		return "", &domain.ParamsError{Tool: tool, Fields: []string{name}, Reason: name + " is required"}
	}

	return strValue, nil
}
