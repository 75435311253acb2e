// Package submitter drives a guest submission from the form to the API:
// validate, optionally normalize the photo, send once, report back.
package submitter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdg-garage/wedding-api/internal/forms"
	"github.com/rs/zerolog"
)

const DefaultDisplayWindow = 5 * time.Second

const (
	msgInvalid      = "Please correct the highlighted fields"
	msgConnectivity = "We could not reach the server. Please check your connection and try again"
	msgServer       = "Something went wrong, please try again later"
)

var ErrSubmissionInFlight = errors.New("a submission is already in progress")

type State int

const (
	Idle State = iota
	Validating
	Normalizing
	Sending
	Success
	Failed
)

var stateNames = [...]string{
	Idle:        "idle",
	Validating:  "validating",
	Normalizing: "normalizing",
	Sending:     "sending",
	Success:     "success",
	Failed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Failure is what a guest sees when a submission does not go through.
// Fields is set for validation failures, local or reported by the server.
type Failure struct {
	Message string
	Fields  forms.FieldErrors
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Presenter is the presentation layer. Calls arrive from the submitting
// goroutine and, for the revert to Idle, from a timer goroutine. State
// changes are delivered one at a time in order; a callback must not submit
// the same form.
type Presenter interface {
	StateChanged(State)
	Succeeded(Receipt)
	Failed(*Failure)
}

type nopPresenter struct{}

func (nopPresenter) StateChanged(State) {}
func (nopPresenter) Succeeded(Receipt)  {}
func (nopPresenter) Failed(*Failure)    {}

type Options struct {
	Presenter Presenter
	// DisplayWindow is how long Success or Failed stays up before the form
	// returns to Idle.
	DisplayWindow time.Duration
	Logger        zerolog.Logger
}

// machine holds the state shared by both forms. Exactly one submission runs
// at a time per form.
type machine struct {
	inFlight atomic.Bool

	// notifyMu orders state callbacks; mu guards the fields below it.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state   State
	revert  *time.Timer
	attempt uint64

	presenter Presenter
	window    time.Duration
	log       zerolog.Logger
}

func (m *machine) init(opts Options, component string) {
	m.presenter = opts.Presenter
	m.window = opts.DisplayWindow
	m.log = opts.Logger.With().Str("component", component).Logger()
	if m.presenter == nil {
		m.presenter = nopPresenter{}
	}
	if m.window <= 0 {
		m.window = DefaultDisplayWindow
	}
}

func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) begin() error {
	if !m.inFlight.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}

	m.mu.Lock()
	m.attempt++
	if m.revert != nil {
		m.revert.Stop()
		m.revert = nil
	}
	m.mu.Unlock()

	m.set(Validating)
	return nil
}

func (m *machine) set(s State) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.presenter.StateChanged(s)
}

func (m *machine) succeed(r Receipt) {
	m.set(Success)
	m.presenter.Succeeded(r)
	m.finish()
}

func (m *machine) fail(f *Failure) {
	m.set(Failed)
	m.presenter.Failed(f)
	m.finish()
}

// finish releases the in-flight guard and schedules the return to Idle.
func (m *machine) finish() {
	m.mu.Lock()
	attempt := m.attempt
	m.revert = time.AfterFunc(m.window, func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()

		m.mu.Lock()
		if m.attempt != attempt {
			m.mu.Unlock()
			return
		}
		m.state = Idle
		m.revert = nil
		m.mu.Unlock()
		m.presenter.StateChanged(Idle)
	})
	m.mu.Unlock()

	m.inFlight.Store(false)
}

// send issues the single request of a submission. It is not cancelled with
// the caller's context once started.
func (m *machine) send(ctx context.Context, do func(context.Context) (Receipt, error)) (Receipt, *Failure) {
	m.set(Sending)

	receipt, err := do(context.WithoutCancel(ctx))
	if err == nil {
		return receipt, nil
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		m.log.Warn().Int("status", apiErr.Status).Str("message", apiErr.Message).Msg("submission rejected")
		msg := apiErr.Message
		if apiErr.Status >= 500 || msg == "" {
			msg = msgServer
		}
		return Receipt{}, &Failure{Message: msg, Fields: apiErr.Fields, Err: err}
	case errors.Is(err, ErrConnectivity):
		m.log.Warn().Err(err).Msg("submission failed to send")
		return Receipt{}, &Failure{Message: msgConnectivity, Err: err}
	default:
		m.log.Error().Err(err).Msg("submission failed")
		return Receipt{}, &Failure{Message: msgServer, Err: err}
	}
}
