package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/gdg-garage/wedding-api/internal/models"
	"github.com/gdg-garage/wedding-api/internal/notifier"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type RSVPHandler struct {
	db          *gorm.DB
	notifier    notifier.Notifier
	authHandler *auth.AdminAuth
	metrics     *metrics.Metrics
}

func NewRSVPHandler(db *gorm.DB, notifier notifier.Notifier, authHandler *auth.AdminAuth, metrics *metrics.Metrics) *RSVPHandler {
	return &RSVPHandler{db: db, notifier: notifier, authHandler: authHandler, metrics: metrics}
}

type SubmitRSVPRequest struct {
	Body forms.RSVPSubmission
}

type SubmitRSVPResponse struct {
	Body struct {
		ID      uint   `json:"id"`
		Message string `json:"message"`
	}
}

func (h *RSVPHandler) HandleSubmit(ctx context.Context, input *SubmitRSVPRequest) (*SubmitRSVPResponse, error) {
	reply, err := forms.ParseRSVP(input.Body)
	if err != nil {
		h.metrics.RSVPs.WithLabelValues("rejected", attendanceLabel(input.Body.Attendance)).Inc()
		return nil, validationError(err)
	}

	record := models.NewRSVP(reply)
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to store rsvp")
		return nil, huma.Error500InternalServerError("Your reply could not be saved, please try again later")
	}

	h.metrics.RSVPs.WithLabelValues("accepted", record.Attendance).Inc()
	zerolog.Ctx(ctx).Info().Uint("rsvp_id", record.ID).Str("attendance", record.Attendance).Msg("rsvp received")

	if h.notifier != nil {
		notify(ctx, h.metrics, "rsvp", func(ctx context.Context) error {
			return h.notifier.NotifyRSVP(ctx, record)
		})
	}

	res := &SubmitRSVPResponse{}
	res.Body.ID = record.ID
	res.Body.Message = "Thank you, your reply has been received"
	if !record.Attending() {
		res.Body.Message = "Thank you for letting us know"
	}
	return res, nil
}

func attendanceLabel(s string) string {
	switch forms.Attendance(s) {
	case forms.AttendanceYes, forms.AttendanceNo:
		return s
	default:
		return "invalid"
	}
}

type RSVPResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone,omitempty"`
	Attendance     string    `json:"attendance"`
	MealPreference *string   `json:"mealPreference,omitempty"`
	Allergies      *string   `json:"allergies,omitempty"`
	PlusOne        bool      `json:"plusOne"`
	PlusOneName    *string   `json:"plusOneName,omitempty"`
	PlusOneMeal    *string   `json:"plusOneMeal,omitempty"`
	Message        *string   `json:"message,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RSVPSummary struct {
	Replies   int            `json:"replies"`
	Attending int            `json:"attending"`
	Declined  int            `json:"declined"`
	Guests    int            `json:"guests" doc:"Attending guests including plus-ones"`
	Meals     map[string]int `json:"meals" doc:"Meal counts by display name"`
}

type ListRSVPsInput struct {
	auth.AdminInput
}

type ListRSVPsOutput struct {
	Body struct {
		Summary RSVPSummary    `json:"summary"`
		RSVPs   []RSVPResponse `json:"rsvps"`
	}
}

func (h *RSVPHandler) HandleAdminList(ctx context.Context, input *ListRSVPsInput) (*ListRSVPsOutput, error) {
	if err := h.authHandler.Authorize(ctx, input.AdminInput); err != nil {
		return nil, err
	}

	var records []models.RSVP
	if err := h.db.WithContext(ctx).Order("created_at desc").Find(&records).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list RSVPs")
	}

	res := &ListRSVPsOutput{}
	res.Body.Summary = summarize(records)
	res.Body.RSVPs = make([]RSVPResponse, 0, len(records))
	for _, r := range records {
		res.Body.RSVPs = append(res.Body.RSVPs, RSVPResponse{
			ID:             r.ID,
			Name:           r.Name,
			Email:          r.Email,
			Phone:          r.Phone,
			Attendance:     r.Attendance,
			MealPreference: r.MealPreference,
			Allergies:      r.Allergies,
			PlusOne:        r.PlusOne,
			PlusOneName:    r.PlusOneName,
			PlusOneMeal:    r.PlusOneMeal,
			Message:        r.Message,
			CreatedAt:      r.CreatedAt,
		})
	}
	return res, nil
}

func summarize(records []models.RSVP) RSVPSummary {
	s := RSVPSummary{Replies: len(records), Meals: map[string]int{}}
	for _, m := range forms.Meals() {
		s.Meals[m.Label()] = 0
	}

	for _, r := range records {
		if !r.Attending() {
			s.Declined++
			continue
		}
		s.Attending++
		s.Guests++
		if m := r.Meal(); m.Valid() {
			s.Meals[m.Label()]++
		}
		if r.PlusOne {
			s.Guests++
			if m := r.PlusOneMealChoice(); m.Valid() {
				s.Meals[m.Label()]++
			}
		}
	}
	return s
}
