// Package tracking sends funnel analytics events. Delivery is fire-and-forget:
// failures are logged and counted, never returned to the caller.
package tracking

import (
	"context"
	"sync"
	"time"

	"loan-funnel/internal/common/hubspot"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/metrics"
)

const (
	EventVerificationAttempted = "phone_verification_attempted"
	EventVerificationResent    = "verification_code_resent"
	EventVerificationReenter   = "phone_verification_reenter"
	EventManualVerification    = "manual_verification_selected"
	EventApplicationSubmitted  = "application_submitted"

	FormStepPhoneVerification = "phone_verification"
)

// Event is one analytics event for the visitor identified by Email.
type Event struct {
	Name                 string
	Email                string
	FormStep             string
	Phone                string
	VerificationAttempts int
	Extra                map[string]interface{}
}

// Properties flattens the event into the tracking payload.
func (e Event) Properties() map[string]interface{} {
	props := map[string]interface{}{}
	if e.FormStep != "" {
		props["form_step"] = e.FormStep
	}
	if e.Phone != "" {
		props["phone"] = e.Phone
	}
	if e.FormStep == FormStepPhoneVerification {
		props["verification_attempts"] = e.VerificationAttempts
	}
	for k, v := range e.Extra {
		props[k] = v
	}
	return props
}

type Tracker interface {
	Track(ctx context.Context, event Event)
}

// EventSender is the delivery backend, implemented by *hubspot.CRMClient.
type EventSender interface {
	SendEvent(ctx context.Context, event *hubspot.Event) error
}

// AsyncTracker delivers events on background goroutines with their own timeout.
type AsyncTracker struct {
	sender  EventSender
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewAsyncTracker(sender EventSender, timeout time.Duration, log logger.Logger) *AsyncTracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncTracker{
		sender:  sender,
		timeout: timeout,
		logger:  logger.ForComponent(log, "tracking"),
		now:     time.Now,
	}
}

// Track returns immediately. The request context only contributes values;
// its cancellation does not abort delivery.
func (t *AsyncTracker) Track(ctx context.Context, event Event) {
	payload := &hubspot.Event{
		EventName:  event.Name,
		Email:      event.Email,
		OccurredAt: t.now().UTC().Format(time.RFC3339),
		Properties: event.Properties(),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()

		if err := t.sender.SendEvent(sendCtx, payload); err != nil {
			metrics.TrackingEvents.WithLabelValues(event.Name, "failed").Inc()
			t.logger.Warn("tracking event not delivered", map[string]interface{}{
				"event": event.Name,
				"error": err,
			})
			return
		}
		metrics.TrackingEvents.WithLabelValues(event.Name, "sent").Inc()
	}()
}

// Wait blocks until in-flight events finish. Used on shutdown.
func (t *AsyncTracker) Wait() {
	t.wg.Wait()
}

// NoopTracker drops every event.
type NoopTracker struct{}

func (NoopTracker) Track(context.Context, Event) {}

// RecordingTracker keeps events in memory for tests and local development.
type RecordingTracker struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingTracker) Track(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *RecordingTracker) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names lists recorded event names in order.
func (r *RecordingTracker) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
