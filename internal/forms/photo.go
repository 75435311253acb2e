package forms

import "strings"

// PhotoDetails is the text sent along with a guest photo.
type PhotoDetails struct {
	GuestName string `json:"guestName" validate:"required,min=2,max=50"`
	Message   string `json:"message" validate:"max=1000"`
}

func (d PhotoDetails) normalize() PhotoDetails {
	return PhotoDetails{
		GuestName: strings.TrimSpace(d.GuestName),
		Message:   strings.TrimSpace(d.Message),
	}
}

func ValidatePhotoDetails(d PhotoDetails) FieldErrors {
	return check(d.normalize())
}

// ParsePhotoDetails validates d and returns it trimmed, with an empty
// message reported as nil.
func ParsePhotoDetails(d PhotoDetails) (guestName string, message *string, err error) {
	n := d.normalize()
	if errs := check(n); len(errs) > 0 {
		return "", nil, &ValidationError{Fields: errs}
	}
	return n.GuestName, optional(n.Message), nil
}
