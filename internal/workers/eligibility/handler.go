// internal/workers/eligibility/handler.go
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
	"loan-funnel/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "check-loan-eligibility"
)

const (
	ReasonUnderage        = "UNDERAGE"
	ReasonInvalidBirth    = "INVALID_BIRTH_DATE"
	ReasonBelowThreshold  = "SCORE_BELOW_THRESHOLD"
	ReasonAmountOutOfBand = "AMOUNT_OUT_OF_RANGE"
)

type Handler struct {
	config   *Config
	activity *registry.Activity
	logger   logger.Logger
}

// NewHandler builds the job handler. activity may be nil, in which case job
// variables are not schema-checked.
func NewHandler(config *Config, activity *registry.Activity, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Handler{
		config:   config,
		activity: activity,
		logger:   logger.ForComponent(log, "eligibility").WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}
	if h.activity != nil {
		if err := h.activity.ValidateInput(vars); err != nil {
			h.failJob(client, job, "INVALID_INPUT", err.Error())
			return
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "ELIGIBILITY_CHECK_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// Execute scores the application and decides it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("applicationId is required")
	}

	breakdown := ScoreBreakdown{
		Amount:     amountScore(input.LoanAmount),
		Employment: employmentScore(input.EmploymentStatus),
		Property:   propertyScore(input.PropertyStatus),
		Education:  educationScore(input.EducationLevel),
	}
	score := breakdown.Amount + breakdown.Employment + breakdown.Property + breakdown.Education

	var reasons []string
	switch age, err := ageOn(input.BirthDate, h.config.Clock()); {
	case err != nil:
		reasons = append(reasons, ReasonInvalidBirth)
	case age < h.config.MinimumAge:
		reasons = append(reasons, ReasonUnderage)
	}
	if input.LoanAmount < 500 || input.LoanAmount > 100000 {
		reasons = append(reasons, ReasonAmountOutOfBand)
	}
	if score < h.config.ApproveThreshold {
		reasons = append(reasons, ReasonBelowThreshold)
	}

	approved := len(reasons) == 0
	status := models.StatusUnsuccessful
	if approved {
		status = models.StatusSuccessful
	}

	h.logger.Info("eligibility decided", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"score":         score,
		"status":        string(status),
		"manual":        input.Manual,
		"reasons":       reasons,
	})

	return &Output{
		Status:           string(status),
		Approved:         approved,
		EligibilityScore: score,
		ScoreBreakdown:   breakdown,
		Reasons:          reasons,
	}, nil
}

// Smaller loans score higher (max 30).
func amountScore(amount float64) int {
	switch {
	case amount <= 0:
		return 0
	case amount <= 5000:
		return 30
	case amount <= 15000:
		return 25
	case amount <= 35000:
		return 15
	default:
		return 5
	}
}

// max 35
func employmentScore(status string) int {
	switch status {
	case "employed", "employed_full_time", "military":
		return 35
	case "employed_part_time", "self_employed":
		return 25
	case "retired":
		return 20
	case "other":
		return 10
	default:
		return 0
	}
}

// max 20
func propertyScore(status string) int {
	switch status {
	case "own_with_mortgage":
		return 20
	case "rent":
		return 10
	default:
		return 5
	}
}

// max 15
func educationScore(level string) int {
	switch level {
	case "bachelors", "masters", "doctorate", "other_grad_degree":
		return 15
	case "associate", "certificate":
		return 10
	case "high_school", "still_enrolled":
		return 5
	default:
		return 0
	}
}

func ageOn(birthDate string, now time.Time) (int, error) {
	born, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0, err
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err})
	}
}
