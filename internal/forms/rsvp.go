package forms

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

type Attendance string

const (
	AttendanceYes Attendance = "yes"
	AttendanceNo  Attendance = "no"
)

// RSVPSubmission is the reply as it arrives from a guest. Nothing in it is
// trusted; ParseRSVP turns it into an RSVP.
type RSVPSubmission struct {
	Name           string  `json:"name,omitempty" doc:"Guest name, 2-50 letters, spaces or hyphens" example:"Anna Muster"`
	Email          string  `json:"email,omitempty" doc:"Contact email" example:"anna@example.com"`
	Phone          *string `json:"phone,omitempty" doc:"Optional phone number" example:"+49 170 1234567"`
	Attendance     string  `json:"attendance,omitempty" doc:"Whether the guest attends: yes or no"`
	MealPreference *string `json:"mealPreference,omitempty" doc:"Required when attending: meat, fish, vegetarian or vegan"`
	Allergies      *string `json:"allergies,omitempty" doc:"Allergies or intolerances, up to 500 characters"`
	PlusOne        bool    `json:"plusOne,omitempty" doc:"Whether the guest brings a companion"`
	PlusOneName    *string `json:"plusOneName,omitempty" doc:"Required with a plus-one"`
	PlusOneMeal    *string `json:"plusOneMeal,omitempty" doc:"Required with a plus-one"`
	Message        *string `json:"message,omitempty" doc:"Note to the couple, up to 1000 characters"`
}

// RSVP is a reply that passed every rule. Optional text fields are nil
// rather than empty.
type RSVP struct {
	Name      string
	Email     string
	Phone     *string
	Allergies *string
	Message   *string
	Reply     Reply
}

// Reply is either Attending or NotAttending.
type Reply interface {
	attendance() Attendance
}

// Attending always carries a meal; a plus-one is optional but complete.
type Attending struct {
	Meal    Meal
	PlusOne *PlusOne
}

type NotAttending struct{}

type PlusOne struct {
	Name string
	Meal Meal
}

func (Attending) attendance() Attendance    { return AttendanceYes }
func (NotAttending) attendance() Attendance { return AttendanceNo }

// Attendance reports the reply. A zero RSVP has no reply and counts as a
// decline.
func (r RSVP) Attendance() Attendance {
	if r.Reply == nil {
		return AttendanceNo
	}
	return r.Reply.attendance()
}

// rsvpCandidate is the normalized submission the rules run against. Text is
// trimmed and meal values that match no menu entry are dropped.
type rsvpCandidate struct {
	Name           string `json:"name" validate:"required,min=2,max=50,personname"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,phone"`
	Attendance     string `json:"attendance" validate:"required,oneof=yes no"`
	MealPreference Meal   `json:"mealPreference"`
	Allergies      string `json:"allergies" validate:"max=500"`
	PlusOne        bool   `json:"plusOne"`
	PlusOneName    string `json:"plusOneName"`
	PlusOneMeal    Meal   `json:"plusOneMeal"`
	Message        string `json:"message" validate:"max=1000"`
}

func newRSVPCandidate(s RSVPSubmission) rsvpCandidate {
	meal, _ := ParseMeal(deref(s.MealPreference))
	plusOneMeal, _ := ParseMeal(deref(s.PlusOneMeal))

	return rsvpCandidate{
		Name:           strings.TrimSpace(s.Name),
		Email:          strings.TrimSpace(s.Email),
		Phone:          deref(s.Phone),
		Attendance:     strings.TrimSpace(s.Attendance),
		MealPreference: meal,
		Allergies:      deref(s.Allergies),
		PlusOne:        s.PlusOne,
		PlusOneName:    deref(s.PlusOneName),
		PlusOneMeal:    plusOneMeal,
		Message:        deref(s.Message),
	}
}

// rsvpRules holds the cross-field requirements. They only apply to guests
// who attend; a decline never needs a meal or plus-one details.
func rsvpRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(rsvpCandidate)
	if Attendance(c.Attendance) != AttendanceYes {
		return
	}

	if !c.MealPreference.Valid() {
		sl.ReportError(c.MealPreference, "mealPreference", "MealPreference", "required", "")
	}

	if !c.PlusOne {
		return
	}
	switch n := len([]rune(c.PlusOneName)); {
	case n == 0:
		sl.ReportError(c.PlusOneName, "plusOneName", "PlusOneName", "required", "")
	case n < 2:
		sl.ReportError(c.PlusOneName, "plusOneName", "PlusOneName", "min", "2")
	}
	if !c.PlusOneMeal.Valid() {
		sl.ReportError(c.PlusOneMeal, "plusOneMeal", "PlusOneMeal", "required", "")
	}
}

// ValidateRSVP runs every rule and reports all violated fields. It returns
// nil for a valid submission and never panics on malformed input.
func ValidateRSVP(s RSVPSubmission) FieldErrors {
	return check(newRSVPCandidate(s))
}

// ParseRSVP validates s and builds the typed reply.
func ParseRSVP(s RSVPSubmission) (RSVP, error) {
	c := newRSVPCandidate(s)
	if errs := check(c); len(errs) > 0 {
		return RSVP{}, &ValidationError{Fields: errs}
	}

	r := RSVP{
		Name:      c.Name,
		Email:     c.Email,
		Phone:     optional(c.Phone),
		Allergies: optional(c.Allergies),
		Message:   optional(c.Message),
		Reply:     NotAttending{},
	}

	if Attendance(c.Attendance) == AttendanceYes {
		attending := Attending{Meal: c.MealPreference}
		if c.PlusOne {
			attending.PlusOne = &PlusOne{Name: c.PlusOneName, Meal: c.PlusOneMeal}
		}
		r.Reply = attending
	}

	return r, nil
}
