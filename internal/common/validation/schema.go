package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"loan-funnel/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	smsCodePattern = regexp.MustCompile(`^\d{6}$`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern   = regexp.MustCompile(`^\+?[\d\s\-\(\)\.]{10,}$`)
)

// submissionSchema describes the form payload accepted by POST /api/application.
func submissionSchema() map[string]interface{} {
	str := func(min, max int) map[string]interface{} {
		return map[string]interface{}{"type": "string", "minLength": min, "maxLength": max}
	}
	enum := func(values []string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "enum": values}
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"loanAmount": map[string]interface{}{
				"type":    "number",
				"minimum": 500,
				"maximum": 100000,
			},
			"loanPurpose":      enum(models.LoanPurposes),
			"employmentStatus": enum(models.EmploymentStatuses),
			"propertyStatus":   enum(models.PropertyStatuses),
			"educationLevel":   enum(models.EducationLevels),
			"firstName":        str(1, 100),
			"lastName":         str(1, 100),
			"email":            str(3, 254),
			"phone":            str(10, 20),
			"birthDate": map[string]interface{}{
				"type":    "string",
				"pattern": `^\d{4}-\d{2}-\d{2}$`,
			},
			"promoSmsConsent": map[string]interface{}{"type": "boolean"},
			"tcpaConsent":     map[string]interface{}{"type": "boolean"},
		},
		"required": []interface{}{
			"loanAmount", "loanPurpose", "firstName", "lastName",
			"email", "phone", "birthDate", "tcpaConsent",
		},
	}
}

// ValidateSubmission checks a decoded form payload against the submission schema
// and the field rules the schema cannot express.
func ValidateSubmission(doc map[string]interface{}) *ValidationResult {
	return Rules{}.ValidateSubmission(doc)
}

// ValidateSubmission checks doc with the receiver's age and clock settings.
func (r Rules) ValidateSubmission(doc map[string]interface{}) *ValidationResult {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(submissionSchema()),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "SCHEMA_ERROR",
		}}}
	}

	errs := []ValidationError{}
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}

	if email, ok := doc["email"].(string); ok && !ValidateEmail(email) {
		errs = append(errs, ValidationError{Field: "email", Message: "invalid email address", Code: "INVALID_EMAIL"})
	}
	if phone, ok := doc["phone"].(string); ok && !ValidatePhone(phone) {
		errs = append(errs, ValidationError{Field: "phone", Message: "invalid phone number", Code: "INVALID_PHONE"})
	}
	if birthDate, ok := doc["birthDate"].(string); ok {
		if err := r.ValidateBirthDate(birthDate); err != nil {
			errs = append(errs, ValidationError{Field: "birthDate", Message: err.Error(), Code: "INVALID_BIRTH_DATE"})
		}
	}
	if consent, ok := doc["tcpaConsent"].(bool); ok && !consent {
		errs = append(errs, ValidationError{Field: "tcpaConsent", Message: "consent is required", Code: "CONSENT_REQUIRED"})
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateSMSCode accepts exactly six ASCII digits.
func ValidateSMSCode(code string) bool {
	return smsCodePattern.MatchString(code)
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	_, err := NormalizePhone(phone)
	return err == nil
}

// NormalizePhone converts a US phone number to E.164 (+1XXXXXXXXXX).
func NormalizePhone(phone string) (string, error) {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}

	switch {
	case len(digits) == 10:
		return "+1" + string(digits), nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + string(digits), nil
	default:
		return "", fmt.Errorf("phone number must have 10 digits")
	}
}

// DefaultMinimumAge is the youngest applicant the funnel accepts.
const DefaultMinimumAge = 18

// Rules carries the configurable parts of form validation. The zero value
// uses DefaultMinimumAge and time.Now.
type Rules struct {
	MinimumAge int
	Now        func() time.Time
}

func (r Rules) minimumAge() int {
	if r.MinimumAge <= 0 {
		return DefaultMinimumAge
	}
	return r.MinimumAge
}

func (r Rules) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// ValidateBirthDate applies the default rules.
func ValidateBirthDate(birthDate string) error {
	return Rules{}.ValidateBirthDate(birthDate)
}

// ValidateBirthDate requires a real YYYY-MM-DD date in the past belonging to
// someone at least MinimumAge years old.
func (r Rules) ValidateBirthDate(birthDate string) error {
	t, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return fmt.Errorf("birth date must be YYYY-MM-DD")
	}
	now := r.now()
	if !t.Before(now) {
		return fmt.Errorf("birth date must be in the past")
	}
	if minAge := r.minimumAge(); AgeOn(t, now) < minAge {
		return fmt.Errorf("applicant must be at least %d years old", minAge)
	}
	return nil
}

// AgeOn returns completed years between birth and on, by calendar date.
func AgeOn(birth, on time.Time) int {
	by, bm, bd := birth.Date()
	oy, om, od := on.Date()
	age := oy - by
	if om < bm || (om == bm && od < bd) {
		age--
	}
	return age
}
