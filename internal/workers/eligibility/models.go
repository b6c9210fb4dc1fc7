// internal/workers/eligibility/models.go
package eligibility

// Input mirrors the variables the funnel sends when it starts the decision process.
type Input struct {
	ApplicationID    string  `json:"applicationId"`
	SubmittedAt      int64   `json:"submittedAt"`
	LoanAmount       float64 `json:"loanAmount"`
	LoanPurpose      string  `json:"loanPurpose"`
	EmploymentStatus string  `json:"employmentStatus"`
	PropertyStatus   string  `json:"propertyStatus"`
	EducationLevel   string  `json:"educationLevel"`
	BirthDate        string  `json:"birthDate"`
	Manual           bool    `json:"manual"`
}

type Output struct {
	Status           string         `json:"status"`
	Approved         bool           `json:"approved"`
	EligibilityScore int            `json:"eligibilityScore"`
	ScoreBreakdown   ScoreBreakdown `json:"scoreBreakdown"`
	Reasons          []string       `json:"reasons,omitempty"`
}

type ScoreBreakdown struct {
	Amount     int `json:"amount"`
	Employment int `json:"employment"`
	Property   int `json:"property"`
	Education  int `json:"education"`
}
