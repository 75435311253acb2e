// Command guest submits an RSVP or a photo to the wedding API from the
// command line, using the same rules as the website forms.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/gdg-garage/wedding-api/internal/imaging"
	"github.com/gdg-garage/wedding-api/internal/submitter"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usage = `Usage: guest <command> [flags]

Commands:
  rsvp    reply to the invitation
  photo   share a photo with the couple

Run "guest <command> --help" for the flags of a command.
`

var extensionTypes = map[string]string{
	".jpg":  imaging.MimeJPEG,
	".jpeg": imaging.MimeJPEG,
	".png":  imaging.MimePNG,
	".webp": imaging.MimeWebP,
	".heic": imaging.MimeHEIC,
	".heif": imaging.MimeHEIF,
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "rsvp":
		err = runRSVP(ctx, os.Args[2:], log)
	case "photo":
		err = runPhoto(ctx, os.Args[2:], log)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(1)
	}
}

// newFlags returns a flag set whose values can also come from WEDDING_*
// environment variables, e.g. WEDDING_SERVER.
func newFlags(name string) (*pflag.FlagSet, *viper.Viper) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("server", "http://127.0.0.1:8080", "Base URL of the wedding API")
	fs.String("log-level", "info", "Log level")

	v := viper.New()
	v.SetEnvPrefix("WEDDING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return fs, v
}

func parse(fs *pflag.FlagSet, v *viper.Viper, args []string, log *zerolog.Logger) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if level, err := zerolog.ParseLevel(v.GetString("log-level")); err == nil {
		*log = log.Level(level)
	}
	return nil
}

func runRSVP(ctx context.Context, args []string, log zerolog.Logger) error {
	fs, v := newFlags("rsvp")
	fs.String("name", "", "Your name")
	fs.String("email", "", "Your email address")
	fs.String("phone", "", "Phone number")
	fs.String("attendance", "", "yes or no")
	fs.String("meal", "", "Meal: meat, fish, vegetarian or vegan")
	fs.String("allergies", "", "Allergies or intolerances")
	fs.Bool("plus-one", false, "Bring a companion")
	fs.String("plus-one-name", "", "Companion's name")
	fs.String("plus-one-meal", "", "Companion's meal")
	fs.String("message", "", "A note to the couple")
	if err := parse(fs, v, args, &log); err != nil {
		return err
	}

	form := submitter.NewRSVPForm(
		submitter.NewClient(v.GetString("server"), nil),
		submitter.Options{Presenter: &consolePresenter{log: log}, Logger: log},
	)
	form.Set(forms.RSVPSubmission{
		Name:           v.GetString("name"),
		Email:          v.GetString("email"),
		Phone:          flagValue(fs, v, "phone"),
		Attendance:     v.GetString("attendance"),
		MealPreference: flagValue(fs, v, "meal"),
		Allergies:      flagValue(fs, v, "allergies"),
		PlusOne:        v.GetBool("plus-one"),
		PlusOneName:    flagValue(fs, v, "plus-one-name"),
		PlusOneMeal:    flagValue(fs, v, "plus-one-meal"),
		Message:        flagValue(fs, v, "message"),
	})

	_, err := form.Submit(ctx)
	return err
}

func runPhoto(ctx context.Context, args []string, log zerolog.Logger) error {
	fs, v := newFlags("photo")
	fs.String("file", "", "Path of the photo")
	fs.String("name", "", "Your name")
	fs.String("message", "", "A note to the couple")
	fs.Bool("capture", false, "Use the camera capture limits (10 MiB, HEIC allowed)")
	fs.Int("viewport", 0, "Viewport width the photo is shown at, in CSS pixels")
	fs.Float64("dpr", 1, "Device pixel ratio of the displaying screen")
	if err := parse(fs, v, args, &log); err != nil {
		return err
	}

	opts := imaging.GenericOptions()
	if v.GetBool("capture") {
		opts = imaging.CaptureOptions()
	}
	if fs.Changed("viewport") || fs.Changed("dpr") {
		opts.MaxDimension = imaging.AdaptiveMaxDimension(v.GetInt("viewport"), v.GetFloat64("dpr"))
	}

	form := submitter.NewPhotoForm(
		submitter.NewClient(v.GetString("server"), nil),
		imaging.NewNormalizer(opts, log),
		submitter.Options{Presenter: &consolePresenter{log: log}, Logger: log},
	)
	form.SetDetails(forms.PhotoDetails{
		GuestName: v.GetString("name"),
		Message:   v.GetString("message"),
	})

	if path := v.GetString("file"); path != "" {
		img, err := readImage(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("cannot read photo")
			return err
		}
		form.Select(img)
	}

	_, err := form.Submit(ctx)
	return err
}

func readImage(path string) (submitter.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return submitter.Image{}, err
	}

	mimeType, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mimeType = http.DetectContentType(data)
	}

	return submitter.Image{
		Filename: filepath.Base(path),
		Source: imaging.Source{
			Data:     data,
			MimeType: mimeType,
			Size:     int64(len(data)),
		},
	}, nil
}

// flagValue maps an unset or empty optional flag to nil.
func flagValue(fs *pflag.FlagSet, v *viper.Viper, name string) *string {
	s := v.GetString(name)
	if s == "" && !fs.Changed(name) {
		return nil
	}
	return &s
}

type consolePresenter struct {
	log zerolog.Logger
}

func (p *consolePresenter) StateChanged(s submitter.State) {
	p.log.Debug().Stringer("state", s).Msg("submission state")
	if s == submitter.Normalizing {
		p.log.Info().Msg("Preparing photo...")
	}
}

func (p *consolePresenter) Succeeded(r submitter.Receipt) {
	p.log.Info().Uint("id", r.ID).Msg(r.Message)
}

func (p *consolePresenter) Failed(f *submitter.Failure) {
	ev := p.log.Error()
	for field, msg := range f.Fields {
		ev = ev.Str(field, msg)
	}
	ev.Msg(f.Message)
}
