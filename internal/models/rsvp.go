package models

import (
	"github.com/gdg-garage/wedding-api/internal/forms"
	"gorm.io/gorm"
)

// RSVP is the stored reply. Fields that do not apply to the reply are NULL.
type RSVP struct {
	gorm.Model
	Name           string  `json:"name"`
	Email          string  `json:"email" gorm:"index"`
	Phone          *string `json:"phone"`
	Attendance     string  `json:"attendance" gorm:"index"`
	MealPreference *string `json:"meal_preference"`
	Allergies      *string `json:"allergies"`
	PlusOne        bool    `json:"plus_one"`
	PlusOneName    *string `json:"plus_one_name"`
	PlusOneMeal    *string `json:"plus_one_meal"`
	Message        *string `json:"message"`
}

func NewRSVP(r forms.RSVP) RSVP {
	record := RSVP{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Attendance: string(r.Attendance()),
		Allergies:  r.Allergies,
		Message:    r.Message,
	}

	if attending, ok := r.Reply.(forms.Attending); ok {
		record.MealPreference = mealCode(attending.Meal)
		if attending.PlusOne != nil {
			record.PlusOne = true
			record.PlusOneName = &attending.PlusOne.Name
			record.PlusOneMeal = mealCode(attending.PlusOne.Meal)
		}
	}

	return record
}

func (r RSVP) Attending() bool {
	return r.Attendance == string(forms.AttendanceYes)
}

// Meal resolves the stored meal code, MealNone if unset.
func (r RSVP) Meal() forms.Meal {
	return parseMeal(r.MealPreference)
}

func (r RSVP) PlusOneMealChoice() forms.Meal {
	return parseMeal(r.PlusOneMeal)
}

func mealCode(m forms.Meal) *string {
	if !m.Valid() {
		return nil
	}
	code := m.String()
	return &code
}

func parseMeal(code *string) forms.Meal {
	if code == nil {
		return forms.MealNone
	}
	m, _ := forms.ParseMeal(*code)
	return m
}
