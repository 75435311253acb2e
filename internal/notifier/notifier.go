package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gdg-garage/wedding-api/internal/models"
)

type Notifier interface {
	NotifyRSVP(ctx context.Context, rsvp models.RSVP) error
	NotifyPhoto(ctx context.Context, photo models.Photo) error
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyRSVP(ctx context.Context, rsvp models.RSVP) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRSVP(ctx, rsvp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyPhoto(ctx context.Context, photo models.Photo) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyPhoto(ctx, photo); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rsvpSummary renders the reply as plain text lines shared by all channels.
func rsvpSummary(rsvp models.RSVP) []string {
	lines := []string{
		fmt.Sprintf("Name: %s", rsvp.Name),
		fmt.Sprintf("Email: %s", rsvp.Email),
	}
	if rsvp.Phone != nil {
		lines = append(lines, fmt.Sprintf("Phone: %s", *rsvp.Phone))
	}

	if !rsvp.Attending() {
		lines = append(lines, "Attending: no")
	} else {
		lines = append(lines, "Attending: yes", fmt.Sprintf("Meal: %s", rsvp.Meal().Label()))
		if rsvp.PlusOne && rsvp.PlusOneName != nil {
			lines = append(lines, fmt.Sprintf("Plus-one: %s (%s)", *rsvp.PlusOneName, rsvp.PlusOneMealChoice().Label()))
		}
	}

	if rsvp.Allergies != nil {
		lines = append(lines, fmt.Sprintf("Allergies: %s", *rsvp.Allergies))
	}
	if rsvp.Message != nil {
		lines = append(lines, fmt.Sprintf("Message: %s", *rsvp.Message))
	}
	return lines
}

func photoSummary(photo models.Photo) []string {
	lines := []string{
		fmt.Sprintf("From: %s", photo.GuestName),
		fmt.Sprintf("File: %s (%s)", photo.OriginalName, photo.MimeType),
	}
	if photo.Message != nil {
		lines = append(lines, fmt.Sprintf("Message: %s", *photo.Message))
	}
	return lines
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
