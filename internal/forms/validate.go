// Package forms holds the guest-facing form contracts: the RSVP reply and the
// photo details sent with an upload. The same rules run in the guest client
// and on the server.
package forms

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern = regexp.MustCompile(`^[A-Za-z ÄÖÜäöüß\-]+$`)
	phonePattern      = regexp.MustCompile(`^[+]?[0-9 \-()]{10,}$`)
)

// FieldErrors maps a json field name to a human-readable violation.
// A nil or empty map means the form is valid.
type FieldErrors map[string]string

// Fields returns the violated field names in a stable order.
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ValidationError is returned by the Parse functions when any rule fails.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Fields(), ", ")
}

var fieldLabels = map[string]string{
	"name":           "Name",
	"email":          "Email",
	"phone":          "Phone number",
	"attendance":     "Attendance",
	"mealPreference": "Meal preference",
	"allergies":      "Allergies",
	"plusOneName":    "Plus-one name",
	"plusOneMeal":    "Plus-one meal",
	"message":        "Message",
	"guestName":      "Name",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Both patterns are only ever registered with valid functions.
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(rsvpRules, rsvpCandidate{})

	return v
}

// check runs the registered rules over s and collects one message per
// violated field.
func check(s any) FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"form": "Form could not be validated"}
	}

	errs := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe.Field(), fe.Tag(), fe.Param())
	}
	return errs
}

func message(field, tag, param string) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	switch tag {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "email":
		return label + " must be a valid email address"
	case "phone":
		return label + " must be a valid phone number"
	case "personname":
		return label + " may only contain letters, spaces and hyphens"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	default:
		return label + " is invalid"
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
