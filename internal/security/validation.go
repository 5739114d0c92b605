package security

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule on a submitted form, phrased for display.
type FieldError struct {
	Field   string // form field name
	Tag     string // validator tag that failed
	Param   string // tag parameter, e.g. "8" for min=8
	Message string // human readable message
}

// ValidationError collects every FieldError of one form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, " ")
}

// First returns the first message, which the pages show as the form banner.
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// ValidationService checks form DTOs before any backend call is made.
// Messages are safe to show to users.
type ValidationService struct {
	config   *SecurityConfig
	validate *validator.Validate
}

// NewValidationService creates a validation service with the given configuration.
func NewValidationService(config *SecurityConfig) *ValidationService {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report form field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})

	return &ValidationService{config: config, validate: v}
}

// Struct validates a tagged DTO. It returns nil or a *ValidationError.
func (v *ValidationService) Struct(form interface{}) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		})
	}
	return out
}

// ValidateDate checks an ISO 8601 calendar date ("2025-01-15").
func (v *ValidationService) ValidateDate(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required.", label(field))
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("%s must be a valid date (YYYY-MM-DD).", label(field))
	}
	return nil
}

// ValidatePasswordPair checks a new password and its confirmation.
func (v *ValidationService) ValidatePasswordPair(password, confirm string, min int) error {
	if len(password) < min {
		return fmt.Errorf("Password must be at least %d characters.", min)
	}
	if password != confirm {
		return errors.New("Passwords do not match.")
	}
	return nil
}

// SanitizeString trims whitespace and strips control characters other than newline and tab.
func (v *ValidationService) SanitizeString(input string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}

func message(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required."
	case "email":
		return "Please enter a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s cannot be less than %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return "Passwords do not match."
	case "isodate":
		return name + " must be a valid date (YYYY-MM-DD)."
	default:
		return name + " is invalid."
	}
}

// label turns "firstName" or "plate_num" into "First name" / "Plate num".
func label(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
