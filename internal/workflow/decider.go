// Package workflow asks the eligibility process for a decision on a
// verified application.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
)

// Decider returns the final status for an application whose phone has been verified.
type Decider interface {
	Decide(ctx context.Context, rec *models.ApplicationRecord) (models.ApplicationStatus, error)
}

// ProcessRunner starts a process instance and waits for its result variables.
type ProcessRunner interface {
	RunProcess(ctx context.Context, processID string, variables map[string]interface{}) (map[string]interface{}, error)
}

// StaticDecider always answers with the same status. Used when no
// workflow engine is configured.
type StaticDecider struct {
	Status models.ApplicationStatus
}

func NewApproveDecider() *StaticDecider {
	return &StaticDecider{Status: models.StatusSuccessful}
}

func (d *StaticDecider) Decide(context.Context, *models.ApplicationRecord) (models.ApplicationStatus, error) {
	return d.Status, nil
}

// ZeebeDecider runs the eligibility BPMN process with the form data as
// variables and reads back either a "status" or an "approved" variable.
type ZeebeDecider struct {
	runner    ProcessRunner
	processID string
	log       logger.Logger
}

func NewZeebeDecider(runner ProcessRunner, processID string, log logger.Logger) *ZeebeDecider {
	return &ZeebeDecider{
		runner:    runner,
		processID: processID,
		log:       logger.ForComponent(log, "workflow"),
	}
}

func (d *ZeebeDecider) Decide(ctx context.Context, rec *models.ApplicationRecord) (models.ApplicationStatus, error) {
	if rec == nil {
		return "", fmt.Errorf("decide: no application")
	}

	vars, err := d.runner.RunProcess(ctx, d.processID, Variables(rec))
	if err != nil {
		d.log.Error("eligibility process failed", map[string]interface{}{
			"applicationId": rec.ApplicationID,
			"processId":     d.processID,
			"error":         err,
		})
		return "", err
	}

	status, err := statusFromVariables(vars)
	if err != nil {
		return "", err
	}

	d.log.Info("eligibility decided", map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"status":        string(status),
	})
	return status, nil
}

// Variables builds the process input for rec.
func Variables(rec *models.ApplicationRecord) map[string]interface{} {
	f := rec.FormData
	return map[string]interface{}{
		"applicationId":    rec.ApplicationID,
		"submittedAt":      rec.Timestamp,
		"loanAmount":       f.LoanAmount,
		"loanPurpose":      f.LoanPurpose,
		"employmentStatus": f.EmploymentStatus,
		"propertyStatus":   f.PropertyStatus,
		"educationLevel":   f.EducationLevel,
		"birthDate":        f.BirthDate,
		"email":            f.Email,
		"manual":           rec.ManualVerification,
	}
}

func statusFromVariables(vars map[string]interface{}) (models.ApplicationStatus, error) {
	if raw, ok := vars["status"].(string); ok {
		status := models.ApplicationStatus(strings.ToLower(raw))
		if status == models.StatusSuccessful || status == models.StatusUnsuccessful {
			return status, nil
		}
		return "", fmt.Errorf("eligibility process returned unknown status %q", raw)
	}

	if approved, ok := vars["approved"].(bool); ok {
		if approved {
			return models.StatusSuccessful, nil
		}
		return models.StatusUnsuccessful, nil
	}

	return "", fmt.Errorf("eligibility process returned no decision")
}
