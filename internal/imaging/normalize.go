// Package imaging prepares guest photos for upload: it rejects files of the
// wrong type or size and shrinks large images to a bounded resolution.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
	MimeHEIC = "image/heic"
	MimeHEIF = "image/heif"

	DefaultMaxDimension = 1920
	DefaultQuality      = 0.8
	DefaultThreshold    = 1 << 20

	// MaxPixels bounds the decoded size. Larger images are sent as they are.
	MaxPixels = 50_000_000
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrFileTooLarge    = errors.New("image file too large")

	errNoEncoder     = errors.New("no encoder for image type")
	errTooManyPixels = errors.New("image dimensions exceed the decode budget")
)

// Source is an image as selected or captured by the guest.
type Source struct {
	Data     []byte
	MimeType string
	Size     int64
}

func (s Source) size() int64 {
	if s.Size > 0 {
		return s.Size
	}
	return int64(len(s.Data))
}

// Result is the image that goes on the wire. When Normalized is false, Data
// is the source bytes unchanged.
type Result struct {
	Data       []byte
	MimeType   string
	Size       int64
	Width      int
	Height     int
	Normalized bool
}

type Options struct {
	// MaxDimension bounds the longer side in pixels.
	MaxDimension int
	// Quality is the JPEG encode quality in (0, 1].
	Quality float64
	// MaxFileSize is the hard upper bound on the source size.
	MaxFileSize int64
	// Threshold is the source size at or below which no work is done.
	Threshold    int64
	AllowedTypes []string
}

// CaptureOptions is the profile used by the photo capture flow.
func CaptureOptions() Options {
	return Options{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
		MaxFileSize:  10 << 20,
		Threshold:    DefaultThreshold,
		AllowedTypes: []string{MimeJPEG, MimePNG, MimeWebP, MimeHEIC, MimeHEIF},
	}
}

// GenericOptions is the profile of the generic file validator.
func GenericOptions() Options {
	o := CaptureOptions()
	o.MaxFileSize = 15 << 20
	o.AllowedTypes = []string{MimeJPEG, MimePNG, MimeWebP}
	return o
}

// AdaptiveMaxDimension sizes the bound to the displaying device: twice the
// viewport width, capped at 2560 px on high density screens and 1920 px
// elsewhere.
func AdaptiveMaxDimension(viewportWidth int, devicePixelRatio float64) int {
	limit := DefaultMaxDimension
	if devicePixelRatio >= 2 {
		limit = 2560
	}
	if viewportWidth <= 0 {
		return limit
	}
	return min(2*viewportWidth, limit)
}

// BaseMimeType strips parameters and normalizes case.
func BaseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Check applies the type and size limits of opts without touching pixel data.
func Check(opts Options, mimeType string, size int64) error {
	base := BaseMimeType(mimeType)
	allowed := false
	for _, t := range opts.AllowedTypes {
		if t == base {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, base)
	}
	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		return fmt.Errorf("%w: %s exceeds the %s limit", ErrFileTooLarge,
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(opts.MaxFileSize)))
	}
	return nil
}

// TargetSize scales w×h down so the longer side equals maxDim, keeping the
// aspect ratio. Images already within the bound are returned as is.
func TargetSize(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, int(math.Round(float64(h)*float64(maxDim)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(maxDim)/float64(h)))), maxDim
}

type Normalizer struct {
	opts Options
	log  zerolog.Logger
}

func NewNormalizer(opts Options, log zerolog.Logger) *Normalizer {
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = DefaultQuality
	}
	return &Normalizer{
		opts: opts,
		log:  log.With().Str("component", "imaging").Logger(),
	}
}

func (n *Normalizer) Options() Options {
	return n.opts
}

func (n *Normalizer) Check(src Source) error {
	return Check(n.opts, src.MimeType, src.size())
}

// Normalize returns an upload-ready version of src. Only Check failures are
// returned as errors; a file that cannot be decoded or re-encoded is passed
// through unchanged.
func (n *Normalizer) Normalize(src Source) (Result, error) {
	if err := n.Check(src); err != nil {
		return Result{}, err
	}

	original := Result{
		Data:     src.Data,
		MimeType: src.MimeType,
		Size:     src.size(),
	}

	if src.size() <= n.opts.Threshold {
		return original, nil
	}
	if !canEncode(src.MimeType) {
		// Only the header is read; WebP reports its size here.
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data)); err == nil {
			original.Width, original.Height = cfg.Width, cfg.Height
		}
		n.log.Debug().Str("mime_type", src.MimeType).Msg("no encoder for image type, uploading original")
		return original, nil
	}

	out, resized, err := n.normalize(src)
	if err != nil {
		n.log.Warn().Err(err).
			Str("mime_type", src.MimeType).
			Int64("size", src.size()).
			Msg("image normalization failed, uploading original")
		return original, nil
	}

	// Re-encoding without resizing is only worth it when it saves bytes.
	if !resized && out.Size > original.Size {
		return original, nil
	}
	return out, nil
}

func canEncode(mimeType string) bool {
	switch BaseMimeType(mimeType) {
	case MimeJPEG, MimePNG:
		return true
	default:
		return false
	}
}

func (n *Normalizer) normalize(src Source) (Result, bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return Result{}, false, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Result{}, false, fmt.Errorf("%w: %dx%d", errTooManyPixels, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return Result{}, false, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	w, h := TargetSize(bounds.Dx(), bounds.Dy(), n.opts.MaxDimension)
	resized := w != bounds.Dx() || h != bounds.Dy()
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	switch base := BaseMimeType(src.MimeType); base {
	case MimeJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(n.opts.Quality * 100))})
	case MimePNG:
		err = (&png.Encoder{CompressionLevel: png.BestCompression}).Encode(&buf, img)
	default:
		err = fmt.Errorf("%w: %s", errNoEncoder, base)
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("encode: %w", err)
	}

	return Result{
		Data:       buf.Bytes(),
		MimeType:   src.MimeType,
		Size:       int64(buf.Len()),
		Width:      w,
		Height:     h,
		Normalized: true,
	}, resized, nil
}
