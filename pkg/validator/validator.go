package validator

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var (
	global         *validator.Validate
	phoneRegex     = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	regNumberRegex = regexp.MustCompile(`^(SHACK|WORK)\d{9,}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrInvalidEmail       = "Invalid email address"
	ErrInvalidPhone       = "Invalid phone number"
	ErrNotAllowed         = "Value is not allowed"
	ErrUnknownValidation  = "Unknown validation error"
)

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every failed rule; its message is the first one.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message + ": " + e.Fields[0].Field
}

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("regnumber", validateRegNumber)
	_ = v.RegisterValidation("positive", validatePositive)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func validateRegNumber(fl validator.FieldLevel) bool {
	return regNumberRegex.MatchString(fl.Field().String())
}

func validatePositive(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int() > 0
	case reflect.Float32, reflect.Float64:
		return fl.Field().Float() > 0
	}
	return false
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return nil
	}
	out := &Error{Fields: make([]FieldError, 0, len(vErrors))}
	for _, ve := range vErrors {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(ve.Namespace()), Message: message(ve)})
	}
	return out
}

// fieldPath drops the top-level struct name from a namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return ErrFieldRequired
	case "max":
		if ve.Kind() == reflect.String || ve.Kind() == reflect.Slice {
			return ErrFieldExceedsMaxLen
		}
		return ErrFieldExceedsMaxVal
	case "min":
		if ve.Kind() == reflect.String || ve.Kind() == reflect.Slice {
			return ErrFieldBelowMinLen
		}
		return ErrFieldBelowMinVal
	case "lt", "lte":
		return ErrFieldExceedsMaxVal
	case "gt", "gte":
		return ErrFieldBelowMinVal
	case "email":
		return ErrInvalidEmail
	case "phone":
		return ErrInvalidPhone
	case "oneof":
		return ErrNotAllowed + " (one of: " + ve.Param() + ")"
	case "regnumber":
		return ErrInvalidFormat
	case "positive":
		return "Value must be positive"
	}
	return ErrUnknownValidation
}
