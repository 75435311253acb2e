package submitter

import (
	"context"
	"errors"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/gdg-garage/wedding-api/internal/imaging"
)

// RSVPForm owns the fields of one RSVP form.
type RSVPForm struct {
	machine
	client *Client

	fieldsMu sync.Mutex
	fields   forms.RSVPSubmission
}

func NewRSVPForm(client *Client, opts Options) *RSVPForm {
	f := &RSVPForm{client: client}
	f.init(opts, "rsvp_form")
	return f
}

func (f *RSVPForm) Set(s forms.RSVPSubmission) {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	f.fields = s
}

func (f *RSVPForm) Fields() forms.RSVPSubmission {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	return f.fields
}

// Submit validates the form and sends it. It returns ErrSubmissionInFlight
// while another submission of this form runs, and a *Failure when the
// submission ended in Failed.
func (f *RSVPForm) Submit(ctx context.Context) (Receipt, error) {
	if err := f.begin(); err != nil {
		return Receipt{}, err
	}

	s := f.Fields()
	if errs := forms.ValidateRSVP(s); len(errs) > 0 {
		failure := &Failure{Message: msgInvalid, Fields: errs}
		f.fail(failure)
		return Receipt{}, failure
	}

	receipt, failure := f.send(ctx, func(ctx context.Context) (Receipt, error) {
		return f.client.PostRSVP(ctx, s)
	})
	if failure != nil {
		f.fail(failure)
		return Receipt{}, failure
	}

	f.Set(forms.RSVPSubmission{})
	f.succeed(receipt)
	return receipt, nil
}

// Image is a file picked or captured by the guest.
type Image struct {
	Filename string
	Source   imaging.Source
}

// PhotoForm owns the selected image and the details of one photo form.
type PhotoForm struct {
	machine
	client     *Client
	normalizer *imaging.Normalizer

	fieldsMu sync.Mutex
	details  forms.PhotoDetails
	image    *Image
}

func NewPhotoForm(client *Client, normalizer *imaging.Normalizer, opts Options) *PhotoForm {
	f := &PhotoForm{client: client, normalizer: normalizer}
	f.init(opts, "photo_form")
	return f
}

func (f *PhotoForm) SetDetails(d forms.PhotoDetails) {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	f.details = d
}

func (f *PhotoForm) Select(img Image) {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	f.image = &img
}

// Selected returns the chosen image, or nil once the form was cleared.
func (f *PhotoForm) Selected() *Image {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	return f.image
}

func (f *PhotoForm) Details() forms.PhotoDetails {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	return f.details
}

func (f *PhotoForm) clear() {
	f.fieldsMu.Lock()
	defer f.fieldsMu.Unlock()
	f.details = forms.PhotoDetails{}
	f.image = nil
}

func (f *PhotoForm) Submit(ctx context.Context) (Receipt, error) {
	if err := f.begin(); err != nil {
		return Receipt{}, err
	}

	details, img := f.Details(), f.Selected()
	if errs := f.validate(details, img); len(errs) > 0 {
		failure := &Failure{Message: msgInvalid, Fields: errs}
		f.fail(failure)
		return Receipt{}, failure
	}

	f.set(Normalizing)
	out, err := f.normalizer.Normalize(img.Source)
	if err != nil {
		// Check already passed, so this does not happen; send the original.
		f.log.Warn().Err(err).Msg("normalization rejected a checked image")
		out = imaging.Result{Data: img.Source.Data, MimeType: img.Source.MimeType}
	}
	if out.Normalized {
		f.log.Debug().
			Int("width", out.Width).
			Int("height", out.Height).
			Int64("size", out.Size).
			Msg("image normalized")
	}

	guestName, message, _ := forms.ParsePhotoDetails(details)
	upload := PhotoUpload{
		GuestName: guestName,
		Filename:  img.Filename,
		MimeType:  imaging.BaseMimeType(out.MimeType),
		Data:      out.Data,
	}
	if message != nil {
		upload.Message = *message
	}

	receipt, failure := f.send(ctx, func(ctx context.Context) (Receipt, error) {
		return f.client.UploadPhoto(ctx, upload)
	})
	if failure != nil {
		f.fail(failure)
		return Receipt{}, failure
	}

	f.clear()
	f.succeed(receipt)
	return receipt, nil
}

// validate checks the details and the image type and size. No pixel data is
// read here.
func (f *PhotoForm) validate(details forms.PhotoDetails, img *Image) forms.FieldErrors {
	errs := forms.ValidatePhotoDetails(details)
	if errs == nil {
		errs = forms.FieldErrors{}
	}

	if img == nil {
		errs["image"] = "Please choose a photo"
	} else if err := f.normalizer.Check(img.Source); err != nil {
		errs["image"] = imageMessage(err, f.normalizer.Options().MaxFileSize)
	}
	return errs
}

func imageMessage(err error, limit int64) string {
	switch {
	case errors.Is(err, imaging.ErrFileTooLarge):
		return "Photo is too large, the limit is " + humanize.IBytes(uint64(limit))
	case errors.Is(err, imaging.ErrUnsupportedType):
		return "Only JPEG, PNG, WebP or HEIC photos can be uploaded"
	default:
		return "Photo cannot be uploaded"
	}
}
