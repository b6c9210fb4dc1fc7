package eligibility

import (
	"context"
	"testing"
	"time"

	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
	"loan-funnel/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func createTestHandler(t *testing.T) *Handler {
	cfg := LoadConfig()
	cfg.Clock = func() time.Time { return fixedNow }
	return NewHandler(cfg, nil, logger.NewTestLogger(t))
}

func createTestInput() *Input {
	return &Input{
		ApplicationID:    "app-1",
		LoanAmount:       12000,
		LoanPurpose:      "debt_consolidation",
		EmploymentStatus: "employed",
		PropertyStatus:   "rent",
		EducationLevel:   "bachelors",
		BirthDate:        "1990-05-17",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(in *Input)
		wantStatus  string
		wantScore   int
		wantReasons []string
	}{
		{
			name:       "approved",
			mutate:     func(*Input) {},
			wantStatus: "successful",
			wantScore:  25 + 35 + 10 + 15,
		},
		{
			name: "low score declined",
			mutate: func(in *Input) {
				in.LoanAmount = 90000
				in.EmploymentStatus = "not_employed"
				in.EducationLevel = ""
			},
			wantStatus:  "unsuccessful",
			wantScore:   5 + 0 + 10 + 0,
			wantReasons: []string{ReasonBelowThreshold},
		},
		{
			name:        "underage declined",
			mutate:      func(in *Input) { in.BirthDate = "2009-01-01" },
			wantStatus:  "unsuccessful",
			wantScore:   85,
			wantReasons: []string{ReasonUnderage},
		},
		{
			name:        "eighteenth birthday tomorrow",
			mutate:      func(in *Input) { in.BirthDate = "2008-06-16" },
			wantStatus:  "unsuccessful",
			wantScore:   85,
			wantReasons: []string{ReasonUnderage},
		},
		{
			name:       "eighteen today",
			mutate:     func(in *Input) { in.BirthDate = "2008-06-15" },
			wantStatus: "successful",
			wantScore:  85,
		},
		{
			name:        "bad birth date",
			mutate:      func(in *Input) { in.BirthDate = "05/17/1990" },
			wantStatus:  "unsuccessful",
			wantScore:   85,
			wantReasons: []string{ReasonInvalidBirth},
		},
		{
			name:        "amount above range",
			mutate:      func(in *Input) { in.LoanAmount = 250000 },
			wantStatus:  "unsuccessful",
			wantScore:   5 + 35 + 10 + 15,
			wantReasons: []string{ReasonAmountOutOfBand},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			in := createTestInput()
			tt.mutate(in)

			out, err := h.Execute(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantStatus == "successful", out.Approved)
			assert.Equal(t, tt.wantScore, out.EligibilityScore)
			assert.Equal(t, tt.wantReasons, out.Reasons)
		})
	}
}

func TestHandler_Execute_RequiresApplicationID(t *testing.T) {
	h := createTestHandler(t)
	in := createTestInput()
	in.ApplicationID = ""

	_, err := h.Execute(context.Background(), in)
	assert.Error(t, err)
}

func TestHandler_Execute_CancelledContext(t *testing.T) {
	h := createTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, createTestInput())
	assert.ErrorIs(t, err, context.Canceled)
}

// The process output must be readable by the funnel's decider.
func TestOutput_MatchesDeciderVariables(t *testing.T) {
	h := createTestHandler(t)

	rec := models.NewApplicationRecord("app-9", models.FormData{
		LoanAmount:       4000,
		EmploymentStatus: "military",
		PropertyStatus:   "own_with_mortgage",
		EducationLevel:   "masters",
		BirthDate:        "1985-02-01",
	}, fixedNow)

	vars := workflow.Variables(rec)
	in := &Input{
		ApplicationID:    vars["applicationId"].(string),
		LoanAmount:       vars["loanAmount"].(float64),
		EmploymentStatus: vars["employmentStatus"].(string),
		PropertyStatus:   vars["propertyStatus"].(string),
		EducationLevel:   vars["educationLevel"].(string),
		BirthDate:        vars["birthDate"].(string),
	}

	out, err := h.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 100, out.EligibilityScore)
	assert.Equal(t, string(models.StatusSuccessful), out.Status)
}

func TestScoreTables(t *testing.T) {
	assert.Equal(t, 0, amountScore(0))
	assert.Equal(t, 30, amountScore(5000))
	assert.Equal(t, 15, amountScore(35000))
	assert.Equal(t, 25, employmentScore("self_employed"))
	assert.Equal(t, 0, employmentScore("unknown"))
	assert.Equal(t, 5, propertyScore(""))
	assert.Equal(t, 10, educationScore("certificate"))
}
