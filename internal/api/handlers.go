package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"loan-funnel/internal/blocked"
	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/metrics"
	"loan-funnel/internal/gate"
	"loan-funnel/internal/tags"

	"github.com/gin-gonic/gin"
)

type verifyRequest struct {
	Code string `json:"code"`
}

type contactRequest struct {
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

type scheduleRequest struct {
	ScheduledTime time.Time `json:"scheduledTime"`
}

type confirmResetRequest struct {
	Token string `json:"token"`
}

// verificationSummary is shown on the phone verification step.
type verificationSummary struct {
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
}

type stateResponse struct {
	*gate.Snapshot
	ManualVerificationOffered bool                 `json:"manualVerificationOffered"`
	SchedulerEnabled          bool                 `json:"schedulerEnabled"`
	Summary                   *verificationSummary `json:"verificationSummary,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[check.Name] = err.Error()
			s.log.Warn("readiness check failed", map[string]interface{}{
				"check": check.Name,
				"error": err,
			})
			continue
		}
		results[check.Name] = "ok"
	}

	c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": results})
}

// shell renders the page with injected tags and the session's current route.
func (s *Server) shell(c *gin.Context) {
	snap, err := s.funnel.Gate(sessionID(c)).Snapshot(c.Request.Context())
	if err != nil {
		s.errs.Respond(c, err)
		return
	}

	var buf bytes.Buffer
	if err := tags.Render(&buf, s.page, tags.ShellData{Title: s.opts.PageTitle, Route: string(snap.Route)}); err != nil {
		s.errs.Respond(c, apperrors.NewInternalError(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) state(c *gin.Context) {
	snap, err := s.funnel.Gate(sessionID(c)).Snapshot(c.Request.Context())
	if err != nil {
		s.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, s.stateOf(snap))
}

func (s *Server) stateOf(snap *gate.Snapshot) stateResponse {
	resp := stateResponse{
		Snapshot:         snap,
		SchedulerEnabled: s.funnel.SchedulerEnabled(),
	}
	if snap.Record != nil {
		resp.ManualVerificationOffered = s.funnel.ManualOffered(snap.Record)
		if snap.SMSPending {
			resp.Summary = &verificationSummary{
				Phone:     snap.Record.FormData.Phone,
				BirthDate: blocked.FormatBirthDate(snap.Record.FormData.BirthDate),
			}
		}
	}
	return resp
}

func (s *Server) submit(c *gin.Context) {
	var doc map[string]interface{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		s.errs.Respond(c, apperrors.NewValidationFailedError("request body must be a JSON object"))
		return
	}

	result, err := s.funnel.Submit(c.Request.Context(), sessionID(c), doc)
	if err != nil {
		s.errs.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"record":   result.Record,
		"codeSent": result.CodeSent,
		"route":    gate.RouteVerify,
	})
}

func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errs.Respond(c, apperrors.NewInvalidVerificationCodeError("request body must contain a code"))
		return
	}

	snap, err := s.funnel.Verify(c.Request.Context(), sessionID(c), req.Code)
	if err != nil {
		s.respondVerification(c, err)
		return
	}
	c.JSON(http.StatusOK, s.stateOf(snap))
}

func (s *Server) resend(c *gin.Context) {
	if err := s.funnel.Resend(c.Request.Context(), sessionID(c)); err != nil {
		s.respondVerification(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) reenter(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errs.Respond(c, apperrors.NewValidationFailedError("request body must contain phone and birthDate"))
		return
	}

	rec, err := s.funnel.Reenter(c.Request.Context(), sessionID(c), req.Phone, req.BirthDate)
	if err != nil && rec == nil {
		s.respondVerification(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":   rec,
		"codeSent": err == nil,
	})
}

func (s *Server) manualVerification(c *gin.Context) {
	snap, err := s.funnel.ChooseManual(c.Request.Context(), sessionID(c))
	if err != nil {
		s.respondVerification(c, err)
		return
	}
	c.JSON(http.StatusOK, s.stateOf(snap))
}

// respondVerification sends a session that is no longer verifying back to
// the start route instead of reporting an error body only.
func (s *Server) respondVerification(c *gin.Context, err error) {
	if apperrors.HasCode(err, apperrors.ErrCodeVerificationNotPending) {
		stdErr, _ := apperrors.As(err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), gin.H{
			"error":    stdErr,
			"redirect": gate.RouteStart,
		})
		return
	}
	s.errs.Respond(c, err)
}

func (s *Server) blockedView(c *gin.Context) {
	g := s.funnel.Gate(sessionID(c))
	snap, err := g.Snapshot(c.Request.Context())
	if err != nil {
		s.errs.Respond(c, err)
		return
	}
	if snap.Record == nil {
		s.errs.Respond(c, apperrors.NewApplicationNotFoundError())
		return
	}

	view := s.blocked.Build(snap.Record, snap.At, s.visitorLocation(c))
	c.JSON(http.StatusOK, gin.H{
		"route":   snap.Route,
		"blocked": snap.Blocked,
		"view":    view,
	})
}

func (s *Server) schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ScheduledTime.IsZero() {
		s.errs.Respond(c, apperrors.NewScheduleInvalidError("scheduledTime must be an RFC 3339 timestamp"))
		return
	}

	snap, err := s.funnel.Schedule(c.Request.Context(), sessionID(c), req.ScheduledTime)
	if err != nil {
		s.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, s.stateOf(snap))
}

func (s *Server) beginReset(c *gin.Context) {
	token, err := s.funnel.Gate(sessionID(c)).BeginReset(c.Request.Context())
	if err != nil {
		s.errs.Respond(c, err)
		return
	}
	metrics.Resets.WithLabelValues("requested").Inc()

	c.JSON(http.StatusOK, gin.H{
		"warning":      gate.ResetWarning,
		"confirmToken": token,
	})
}

func (s *Server) confirmReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errs.Respond(c, apperrors.NewResetNotConfirmedError("request body must contain the confirmation token"))
		return
	}

	if err := s.funnel.Gate(sessionID(c)).ConfirmReset(c.Request.Context(), req.Token); err != nil {
		s.errs.Respond(c, err)
		return
	}
	metrics.Resets.WithLabelValues("confirmed").Inc()

	c.JSON(http.StatusOK, gin.H{"route": gate.RouteStart})
}

// visitorLocation reads the browser timezone from ?tz= or X-Timezone.
func (s *Server) visitorLocation(c *gin.Context) *time.Location {
	name := c.Query("tz")
	if name == "" {
		name = c.GetHeader("X-Timezone")
	}
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return s.opts.DefaultTimezone
}
