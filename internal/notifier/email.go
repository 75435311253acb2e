package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/gdg-garage/wedding-api/internal/models"
	"github.com/resend/resend-go/v3"
)

// emailSender is the part of the Resend client used here.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailNotifier confirms a reply to the guest and copies the couple on new
// replies and photos.
type EmailNotifier struct {
	sender      emailSender
	from        string
	coupleEmail string
	coupleNames string
	siteURL     string
}

func NewEmailNotifier(apiKey, from, coupleEmail, coupleNames, siteURL string) *EmailNotifier {
	return &EmailNotifier{
		sender:      resend.NewClient(apiKey).Emails,
		from:        from,
		coupleEmail: coupleEmail,
		coupleNames: coupleNames,
		siteURL:     siteURL,
	}
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:Georgia,serif;color:#3b3b3b;">
  <h2>{{.Heading}}</h2>
  {{if .Intro}}<p>{{.Intro}}</p>{{end}}
  <ul>
  {{range .Lines}}<li>{{.}}</li>
  {{end}}</ul>
  <p><a href="{{.SiteURL}}">{{.SiteURL}}</a></p>
</body>
</html>`))

type emailContent struct {
	Heading string
	Intro   string
	Lines   []string
	SiteURL string
}

func (n *EmailNotifier) NotifyRSVP(ctx context.Context, rsvp models.RSVP) error {
	lines := rsvpSummary(rsvp)

	intro := fmt.Sprintf("Thank you for your reply! We have noted the following for the wedding of %s.", n.coupleNames)
	if !rsvp.Attending() {
		intro = fmt.Sprintf("Thank you for letting us know. We are sorry you can't join the wedding of %s.", n.coupleNames)
	}
	err := n.send(ctx, rsvp.Email, "Your RSVP – "+n.coupleNames, emailContent{
		Heading: "Hello " + rsvp.Name,
		Intro:   intro,
		Lines:   lines,
	})
	if n.coupleEmail == "" {
		return err
	}

	// The couple gets their copy even when the guest address bounced.
	return errors.Join(err, n.send(ctx, n.coupleEmail, "New RSVP from "+rsvp.Name, emailContent{
		Heading: "New RSVP",
		Lines:   lines,
	}))
}

func (n *EmailNotifier) NotifyPhoto(ctx context.Context, photo models.Photo) error {
	if n.coupleEmail == "" {
		return nil
	}
	return n.send(ctx, n.coupleEmail, "New photo from "+photo.GuestName, emailContent{
		Heading: "A new photo is waiting for approval",
		Lines:   photoSummary(photo),
	})
}

func (n *EmailNotifier) send(ctx context.Context, to, subject string, content emailContent) error {
	content.SiteURL = n.siteURL

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, content); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    html.String(),
	}
	if _, err := n.sender.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
