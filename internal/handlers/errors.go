package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/rs/zerolog"
)

const notifyTimeout = 10 * time.Second

// fieldErrors renders per-field violations as a 400 with one detail per
// field, located at body.<field>.
func fieldErrors(fields forms.FieldErrors) error {
	details := make([]error, 0, len(fields))
	for _, field := range fields.Fields() {
		details = append(details, &huma.ErrorDetail{
			Location: "body." + field,
			Message:  fields[field],
		})
	}
	return huma.Error400BadRequest("Validation failed", details...)
}

func validationError(err error) error {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		return fieldErrors(verr.Fields)
	}
	return huma.Error400BadRequest("Invalid request")
}

// notify delivers a notification without letting its failure reach the
// guest. It outlives a cancelled request.
func notify(ctx context.Context, m *metrics.Metrics, kind string, send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("kind", kind).Msg("notification failed")
		m.Notifications.WithLabelValues(kind).Inc()
	}
}
