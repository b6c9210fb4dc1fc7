// Package funnel runs the application steps on top of the state gate:
// submission, phone verification, manual verification and call scheduling.
package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/metrics"
	"loan-funnel/internal/common/validation"
	"loan-funnel/internal/gate"
	"loan-funnel/internal/leads"
	"loan-funnel/internal/models"
	"loan-funnel/internal/tracking"
	"loan-funnel/internal/verification"
	"loan-funnel/internal/workflow"

	"github.com/google/uuid"
)

const DefaultManualAfterAttempts = 2

type Options struct {
	ManualAfterAttempts int
	SchedulerEnabled    bool
	// MinimumAge applies to the birth date on submit and re-entry.
	MinimumAge int
	Clock      func() time.Time
	NewID      func() string
	Logger     logger.Logger
}

// Deps are the collaborators of Service. Tracker, Leads and Decider are optional.
type Deps struct {
	Gates   *gate.Factory
	Codes   *verification.Codes
	SMS     verification.Sender
	Decider workflow.Decider
	Tracker tracking.Tracker
	Leads   leads.Recorder
}

type Service struct {
	gates   *gate.Factory
	codes   *verification.Codes
	sms     verification.Sender
	decider workflow.Decider
	tracker tracking.Tracker
	leads   leads.Recorder
	rules   validation.Rules
	opts    Options
	log     logger.Logger
}

func NewService(deps Deps, opts Options) *Service {
	if opts.ManualAfterAttempts <= 0 {
		opts.ManualAfterAttempts = DefaultManualAfterAttempts
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log := logger.ForComponent(opts.Logger, "funnel")

	if deps.Decider == nil {
		deps.Decider = workflow.NewApproveDecider()
	}
	if deps.Tracker == nil {
		deps.Tracker = tracking.NoopTracker{}
	}
	if deps.Leads == nil {
		deps.Leads = leads.NewPipeline(opts.Logger)
	}
	if deps.SMS == nil {
		deps.SMS = verification.LogSender{Logger: opts.Logger}
	}

	return &Service{
		gates:   deps.Gates,
		codes:   deps.Codes,
		sms:     deps.SMS,
		decider: deps.Decider,
		tracker: deps.Tracker,
		leads:   deps.Leads,
		rules:   validation.Rules{MinimumAge: opts.MinimumAge, Now: opts.Clock},
		opts:    opts,
		log:     log,
	}
}

// Gate returns the state gate of a session.
func (s *Service) Gate(sessionID string) *gate.Gate {
	return s.gates.ForSession(sessionID)
}

func (s *Service) SchedulerEnabled() bool {
	return s.opts.SchedulerEnabled
}

// ManualOffered reports whether rec may switch to manual verification.
func (s *Service) ManualOffered(rec *models.ApplicationRecord) bool {
	return awaitingCode(rec) && rec.VerificationAttempts >= s.opts.ManualAfterAttempts
}

type SubmitResult struct {
	Record   *models.ApplicationRecord `json:"record"`
	CodeSent bool                      `json:"codeSent"`
}

// Submit validates the form, records a new pending application and texts
// the verification code. A failed SMS leaves the application in place so
// the visitor can ask for a resend.
func (s *Service) Submit(ctx context.Context, sessionID string, doc map[string]interface{}) (*SubmitResult, error) {
	result := s.rules.ValidateSubmission(doc)
	if !result.Valid {
		return nil, apperrors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	form, err := decodeForm(doc)
	if err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}

	rec, err := s.Gate(sessionID).Start(ctx, s.opts.NewID(), form)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeApplicationBlocked) {
			metrics.ApplicationsRefused.WithLabelValues("blocked").Inc()
		}
		return nil, err
	}
	metrics.ApplicationsSubmitted.WithLabelValues(form.LoanPurpose).Inc()

	sent := s.sendCode(ctx, sessionID, form.Phone, "submit") == nil

	s.tracker.Track(ctx, tracking.Event{
		Name:  tracking.EventApplicationSubmitted,
		Email: form.Email,
		Extra: map[string]interface{}{
			"loan_amount":  form.LoanAmount,
			"loan_purpose": form.LoanPurpose,
		},
	})
	s.recordLead(ctx, leads.StageSubmitted, rec)

	return &SubmitResult{Record: rec, CodeSent: sent}, nil
}

// Verify checks a submitted SMS code. The format is checked before any
// store access; a matching code asks the decider for the final status.
func (s *Service) Verify(ctx context.Context, sessionID, code string) (*gate.Snapshot, error) {
	if !validation.ValidateSMSCode(code) {
		metrics.VerificationAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewInvalidVerificationCodeError("code must be exactly 6 digits")
	}

	g := s.Gate(sessionID)
	rec, err := s.pendingRecord(ctx, g)
	if err != nil {
		return nil, err
	}

	s.tracker.Track(ctx, verificationEvent(tracking.EventVerificationAttempted, rec))

	rec, err = g.Update(ctx, "RecordVerificationAttempt", func(r *models.ApplicationRecord) error {
		r.VerificationAttempts++
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.codes.Check(ctx, sessionID, code)
	if err != nil {
		return nil, err
	}
	metrics.VerificationAttempts.WithLabelValues(result.String()).Inc()

	switch result {
	case verification.CodeExpired, verification.CodeExhausted:
		return nil, apperrors.NewVerificationCodeExpiredError()
	case verification.CodeMismatch:
		return nil, apperrors.NewVerificationCodeMismatchError(rec.VerificationAttempts)
	}

	status, err := s.decider.Decide(ctx, rec)
	if err != nil {
		return nil, err
	}

	rec, err = g.Update(ctx, "RecordDecision", func(r *models.ApplicationRecord) error {
		if !awaitingCode(r) {
			return apperrors.NewVerificationNotPendingError()
		}
		r.Status = status
		r.SMSVerificationPending = false
		r.FormData.SMSCode = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ApplicationDecisions.WithLabelValues(string(status)).Inc()

	if err := s.codes.Clear(ctx, sessionID); err != nil {
		s.log.Warn("verification code not cleared", map[string]interface{}{"error": err})
	}
	s.recordLead(ctx, leads.StageDecided, rec)

	s.log.Info("application decided", map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"status":        string(status),
		"attempts":      rec.VerificationAttempts,
	})
	return g.Snapshot(ctx)
}

// Resend issues and texts a new code.
func (s *Service) Resend(ctx context.Context, sessionID string) error {
	rec, err := s.pendingRecord(ctx, s.Gate(sessionID))
	if err != nil {
		return err
	}

	s.tracker.Track(ctx, verificationEvent(tracking.EventVerificationResent, rec))
	return s.sendCode(ctx, sessionID, rec.FormData.Phone, "resend")
}

// Reenter replaces the phone number and birth date, then texts a new code
// to the new number.
func (s *Service) Reenter(ctx context.Context, sessionID, phone, birthDate string) (*models.ApplicationRecord, error) {
	if !validation.ValidatePhone(phone) {
		return nil, apperrors.NewValidationFailedError("phone: must be a valid US phone number")
	}
	if err := s.rules.ValidateBirthDate(birthDate); err != nil {
		return nil, apperrors.NewValidationFailedError("birthDate: " + err.Error())
	}

	g := s.Gate(sessionID)
	rec, err := s.pendingRecord(ctx, g)
	if err != nil {
		return nil, err
	}

	s.tracker.Track(ctx, verificationEvent(tracking.EventVerificationReenter, rec))

	rec, err = g.Update(ctx, "ReenterContact", func(r *models.ApplicationRecord) error {
		if !awaitingCode(r) {
			return apperrors.NewVerificationNotPendingError()
		}
		r.FormData.Phone = phone
		r.FormData.BirthDate = birthDate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendCode(ctx, sessionID, phone, "reenter"); err != nil {
		return rec, err
	}
	return rec, nil
}

// ChooseManual moves an application with enough failed attempts to manual
// verification. The status stays pending until an agent decides.
func (s *Service) ChooseManual(ctx context.Context, sessionID string) (*gate.Snapshot, error) {
	g := s.Gate(sessionID)
	rec, err := s.pendingRecord(ctx, g)
	if err != nil {
		return nil, err
	}
	if !s.ManualOffered(rec) {
		return nil, apperrors.NewValidationFailedError(
			fmt.Sprintf("manual verification is offered after %d attempts", s.opts.ManualAfterAttempts))
	}

	s.tracker.Track(ctx, verificationEvent(tracking.EventManualVerification, rec))

	_, err = g.Update(ctx, "ChooseManualVerification", func(r *models.ApplicationRecord) error {
		if !awaitingCode(r) {
			return apperrors.NewVerificationNotPendingError()
		}
		r.SMSVerificationPending = false
		r.ManualVerification = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.codes.Clear(ctx, sessionID); err != nil {
		s.log.Warn("verification code not cleared", map[string]interface{}{"error": err})
	}
	return g.Snapshot(ctx)
}

// Schedule books a callback for an approved application.
func (s *Service) Schedule(ctx context.Context, sessionID string, at time.Time) (*gate.Snapshot, error) {
	if !s.opts.SchedulerEnabled {
		return nil, apperrors.NewSchedulerDisabledError()
	}

	g := s.Gate(sessionID)
	ok, err := g.IsApplicationSuccessful(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewScheduleInvalidError("only approved applications can schedule a call")
	}

	if err := g.SetScheduledTime(ctx, at); err != nil {
		return nil, err
	}
	return g.Snapshot(ctx)
}

func (s *Service) pendingRecord(ctx context.Context, g *gate.Gate) (*models.ApplicationRecord, error) {
	rec, err := g.GetApplicationData(ctx)
	if err != nil {
		return nil, err
	}
	if !awaitingCode(rec) {
		return nil, apperrors.NewVerificationNotPendingError()
	}
	return rec, nil
}

func (s *Service) sendCode(ctx context.Context, sessionID, phone, reason string) error {
	code, err := s.codes.Issue(ctx, sessionID)
	if err == nil {
		err = s.sms.SendCode(ctx, phone, code)
	}
	if apperrors.HasCode(err, apperrors.ErrCodeSMSRateLimited) {
		metrics.SMSSent.WithLabelValues(reason, "rate_limited").Inc()
		return err
	}
	if err != nil {
		metrics.SMSSent.WithLabelValues(reason, "failed").Inc()
		s.log.Warn("verification code not delivered", map[string]interface{}{
			"reason": reason,
			"error":  err,
		})
		return err
	}
	metrics.SMSSent.WithLabelValues(reason, "sent").Inc()
	return nil
}

func (s *Service) recordLead(ctx context.Context, stage leads.Stage, rec *models.ApplicationRecord) {
	// sinks log their own failures
	_ = s.leads.Record(ctx, stage, rec)
}

func awaitingCode(rec *models.ApplicationRecord) bool {
	return rec != nil && rec.Status == models.StatusPending && rec.SMSVerificationPending
}

func verificationEvent(name string, rec *models.ApplicationRecord) tracking.Event {
	return tracking.Event{
		Name:                 name,
		Email:                rec.FormData.Email,
		FormStep:             tracking.FormStepPhoneVerification,
		Phone:                rec.FormData.Phone,
		VerificationAttempts: rec.VerificationAttempts,
	}
}

func decodeForm(doc map[string]interface{}) (models.FormData, error) {
	var form models.FormData
	raw, err := json.Marshal(doc)
	if err != nil {
		return form, err
	}
	if err := json.Unmarshal(raw, &form); err != nil {
		return form, fmt.Errorf("decode form: %w", err)
	}

	form.FirstName = validation.SanitizeText(form.FirstName)
	form.LastName = validation.SanitizeText(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	form.SMSCode = ""
	return form, nil
}
