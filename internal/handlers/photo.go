package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"
	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/gdg-garage/wedding-api/internal/imaging"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/gdg-garage/wedding-api/internal/models"
	"github.com/gdg-garage/wedding-api/internal/notifier"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const uploadsPath = "/uploads/"

var photoExtensions = map[string]string{
	imaging.MimeJPEG: ".jpg",
	imaging.MimePNG:  ".png",
	imaging.MimeWebP: ".webp",
	imaging.MimeHEIC: ".heic",
	imaging.MimeHEIF: ".heif",
}

type PhotoHandler struct {
	db          *gorm.DB
	notifier    notifier.Notifier
	authHandler *auth.AdminAuth
	metrics     *metrics.Metrics
	uploadDir   string
	limits      imaging.Options
}

func NewPhotoHandler(db *gorm.DB, notifier notifier.Notifier, authHandler *auth.AdminAuth, metrics *metrics.Metrics, uploadDir string, maxSize int64) *PhotoHandler {
	// The server only enforces type and size. Images are stored as received.
	limits := imaging.CaptureOptions()
	limits.MaxFileSize = maxSize

	return &PhotoHandler{
		db:          db,
		notifier:    notifier,
		authHandler: authHandler,
		metrics:     metrics,
		uploadDir:   uploadDir,
		limits:      limits,
	}
}

// MaxBodyBytes leaves room for the form fields next to the largest image.
func (h *PhotoHandler) MaxBodyBytes() int64 {
	return h.limits.MaxFileSize + 1<<20
}

type UploadPhotoRequest struct {
	RawBody multipart.Form
}

type UploadPhotoResponse struct {
	Body struct {
		Success bool   `json:"success"`
		ID      uint   `json:"id"`
		Message string `json:"message"`
	}
}

func (h *PhotoHandler) HandleUpload(ctx context.Context, input *UploadPhotoRequest) (*UploadPhotoResponse, error) {
	log := zerolog.Ctx(ctx)

	details := forms.PhotoDetails{
		GuestName: formValue(input.RawBody, "guestName"),
		Message:   formValue(input.RawBody, "message"),
	}
	fields := forms.ValidatePhotoDetails(details)
	if fields == nil {
		fields = forms.FieldErrors{}
	}

	var header *multipart.FileHeader
	if files := input.RawBody.File["image"]; len(files) > 0 {
		header = files[0]
	}

	mimeType := ""
	if header == nil {
		fields["image"] = "Please choose a photo"
	} else {
		mimeType = imaging.BaseMimeType(header.Header.Get("Content-Type"))
		if err := imaging.Check(h.limits, mimeType, header.Size); err != nil {
			if errors.Is(err, imaging.ErrFileTooLarge) {
				h.metrics.PhotoUploads.WithLabelValues("too_large").Inc()
				return nil, huma.NewError(http.StatusRequestEntityTooLarge, "Photo is too large, the limit is "+humanize.IBytes(uint64(h.limits.MaxFileSize)))
			}
			fields["image"] = "Only JPEG, PNG, WebP or HEIC photos can be uploaded"
		}
	}

	if len(fields) > 0 {
		h.metrics.PhotoUploads.WithLabelValues("rejected").Inc()
		return nil, fieldErrors(fields)
	}

	guestName, message, err := forms.ParsePhotoDetails(details)
	if err != nil {
		return nil, validationError(err)
	}

	filename := uuid.NewString() + photoExtensions[mimeType]
	size, err := h.store(header, filename)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("failed to store photo")
		return nil, huma.Error500InternalServerError("Your photo could not be saved, please try again later")
	}

	photo := models.Photo{
		Filename:     filename,
		OriginalName: filepath.Base(header.Filename),
		MimeType:     mimeType,
		FileSize:     size,
		GuestName:    guestName,
		Message:      message,
	}
	if err := h.db.WithContext(ctx).Create(&photo).Error; err != nil {
		os.Remove(filepath.Join(h.uploadDir, filename))
		log.Error().Err(err).Msg("failed to create photo record")
		return nil, huma.Error500InternalServerError("Your photo could not be saved, please try again later")
	}

	h.metrics.PhotoUploads.WithLabelValues("accepted").Inc()
	log.Info().Uint("photo_id", photo.ID).Int64("size", size).Msg("photo uploaded")

	if h.notifier != nil {
		notify(ctx, h.metrics, "photo", func(ctx context.Context) error {
			return h.notifier.NotifyPhoto(ctx, photo)
		})
	}

	res := &UploadPhotoResponse{}
	res.Body.Success = true
	res.Body.ID = photo.ID
	res.Body.Message = "Thank you! Your photo will appear in the gallery once it has been approved"
	return res, nil
}

func (h *PhotoHandler) store(header *multipart.FileHeader, filename string) (int64, error) {
	src, err := header.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(h.uploadDir, filename)
	dest, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(dest, io.LimitReader(src, h.limits.MaxFileSize+1))
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > h.limits.MaxFileSize {
		err = imaging.ErrFileTooLarge
	}
	if err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to save file: %w", err)
	}
	return n, nil
}

func formValue(form multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

type PhotoResponse struct {
	ID        uint      `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	GuestName string    `json:"guestName"`
	Message   *string   `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AdminPhotoResponse struct {
	PhotoResponse
	Approved bool `json:"approved"`
}

func newPhotoResponse(p models.Photo) PhotoResponse {
	return PhotoResponse{
		ID:        p.ID,
		Filename:  p.Filename,
		URL:       uploadsPath + p.Filename,
		GuestName: p.GuestName,
		Message:   p.Message,
		CreatedAt: p.CreatedAt,
	}
}

type ListPhotosOutput struct {
	Body []PhotoResponse
}

func (h *PhotoHandler) HandleListApproved(ctx context.Context, input *struct{}) (*ListPhotosOutput, error) {
	var photos []models.Photo
	if err := h.db.WithContext(ctx).Where("approved = ?", true).Order("created_at desc").Find(&photos).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list photos")
	}

	res := &ListPhotosOutput{Body: make([]PhotoResponse, 0, len(photos))}
	for _, p := range photos {
		res.Body = append(res.Body, newPhotoResponse(p))
	}
	return res, nil
}

type AdminListPhotosInput struct {
	auth.AdminInput
}

type AdminListPhotosOutput struct {
	Body []AdminPhotoResponse
}

func (h *PhotoHandler) HandleAdminList(ctx context.Context, input *AdminListPhotosInput) (*AdminListPhotosOutput, error) {
	if err := h.authHandler.Authorize(ctx, input.AdminInput); err != nil {
		return nil, err
	}

	var photos []models.Photo
	if err := h.db.WithContext(ctx).Order("created_at desc").Find(&photos).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list photos")
	}

	res := &AdminListPhotosOutput{Body: make([]AdminPhotoResponse, 0, len(photos))}
	for _, p := range photos {
		res.Body = append(res.Body, AdminPhotoResponse{PhotoResponse: newPhotoResponse(p), Approved: p.Approved})
	}
	return res, nil
}

type PhotoIDInput struct {
	auth.AdminInput
	ID uint `path:"id"`
}

type AdminPhotoOutput struct {
	Body AdminPhotoResponse
}

func (h *PhotoHandler) HandleToggleApproval(ctx context.Context, input *PhotoIDInput) (*AdminPhotoOutput, error) {
	if err := h.authHandler.Authorize(ctx, input.AdminInput); err != nil {
		return nil, err
	}

	var photo models.Photo
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&photo, input.ID).Error; err != nil {
			return err
		}
		photo.Approved = !photo.Approved
		return tx.Save(&photo).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Photo not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to update photo")
	}

	action := "unapprove"
	if photo.Approved {
		action = "approve"
	}
	h.metrics.Moderations.WithLabelValues(action).Inc()

	return &AdminPhotoOutput{Body: AdminPhotoResponse{PhotoResponse: newPhotoResponse(photo), Approved: photo.Approved}}, nil
}

func (h *PhotoHandler) HandleDelete(ctx context.Context, input *PhotoIDInput) (*struct{}, error) {
	if err := h.authHandler.Authorize(ctx, input.AdminInput); err != nil {
		return nil, err
	}

	var photo models.Photo
	if err := h.db.WithContext(ctx).First(&photo, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Photo not found")
		}
		return nil, huma.Error500InternalServerError("Failed to delete photo")
	}

	if err := h.db.WithContext(ctx).Unscoped().Delete(&photo).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete photo")
	}

	if err := os.Remove(filepath.Join(h.uploadDir, photo.Filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("filename", photo.Filename).Msg("failed to remove photo file")
	}
	h.metrics.Moderations.WithLabelValues("delete").Inc()

	return nil, nil
}

// ServeFile serves a stored image. Pending photos are only visible to admins.
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename != filepath.Base(filename) {
		http.NotFound(w, r)
		return
	}

	var photo models.Photo
	if err := h.db.WithContext(r.Context()).Where("filename = ?", filename).First(&photo).Error; err != nil {
		http.NotFound(w, r)
		return
	}
	if !photo.Approved && !h.authHandler.IsAdmin(r) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", photo.MimeType)
	http.ServeFile(w, r, filepath.Join(h.uploadDir, photo.Filename))
}
