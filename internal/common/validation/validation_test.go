package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"loanAmount":       float64(25000),
		"loanPurpose":      "debt_consolidation",
		"employmentStatus": "employed_full_time",
		"propertyStatus":   "rent",
		"educationLevel":   "bachelors",
		"firstName":        "Jane",
		"lastName":         "Doe",
		"email":            "jane@example.com",
		"phone":            "(555) 123-4567",
		"birthDate":        "1990-05-17",
		"promoSmsConsent":  true,
		"tcpaConsent":      true,
	}
}

// ==========================
// SMS code
// ==========================

func TestValidateSMSCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12a456", false},
		{"12345", false},
		{"1234567", false},
		{"", false},
		{" 23456", false},
		{"12345\n", false},
		{"١٢٣٤٥٦", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSMSCode(tt.code))
		})
	}
}

// ==========================
// Submission schema
// ==========================

func TestValidateSubmission(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(doc map[string]interface{})
		wantValid bool
		wantField string
	}{
		{
			name:      "valid",
			mutate:    func(doc map[string]interface{}) {},
			wantValid: true,
		},
		{
			name:      "missing email",
			mutate:    func(doc map[string]interface{}) { delete(doc, "email") },
			wantField: "(root)",
		},
		{
			name:      "unknown loan purpose",
			mutate:    func(doc map[string]interface{}) { doc["loanPurpose"] = "yacht" },
			wantField: "loanPurpose",
		},
		{
			name:      "amount too small",
			mutate:    func(doc map[string]interface{}) { doc["loanAmount"] = float64(10) },
			wantField: "loanAmount",
		},
		{
			name:      "bad email",
			mutate:    func(doc map[string]interface{}) { doc["email"] = "not-an-email" },
			wantField: "email",
		},
		{
			name:      "short phone",
			mutate:    func(doc map[string]interface{}) { doc["phone"] = "555-1234-12" },
			wantField: "phone",
		},
		{
			name:      "impossible birth date",
			mutate:    func(doc map[string]interface{}) { doc["birthDate"] = "1990-02-31" },
			wantField: "birthDate",
		},
		{
			name:      "underage applicant",
			mutate:    func(doc map[string]interface{}) { doc["birthDate"] = "2020-01-01" },
			wantField: "birthDate",
		},
		{
			name:      "consent refused",
			mutate:    func(doc map[string]interface{}) { doc["tcpaConsent"] = false },
			wantField: "tcpaConsent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validSubmission()
			tt.mutate(doc)

			result := ValidateSubmission(doc)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			if tt.wantField != "" {
				assert.True(t, result.HasErrors(tt.wantField), result.GetErrorMessages())
			}
		})
	}
}

// ==========================
// Field helpers
// ==========================

func TestRules_ValidateBirthDate(t *testing.T) {
	today := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return today }

	tests := []struct {
		name      string
		rules     Rules
		birthDate string
		wantErr   bool
	}{
		{"eighteenth birthday today", Rules{Now: clock}, "2008-06-15", false},
		{"one day short of eighteen", Rules{Now: clock}, "2008-06-16", true},
		{"adult", Rules{Now: clock}, "1990-05-17", false},
		{"future date", Rules{Now: clock}, "2027-01-01", true},
		{"not a date", Rules{Now: clock}, "15/06/1990", true},
		{"configured minimum", Rules{MinimumAge: 21, Now: clock}, "2005-06-16", true},
		{"configured minimum met", Rules{MinimumAge: 21, Now: clock}, "2005-06-15", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.ValidateBirthDate(tt.birthDate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRules_ValidateSubmissionUsesMinimumAge(t *testing.T) {
	doc := validSubmission()
	doc["birthDate"] = "2005-01-01"
	rules := Rules{MinimumAge: 21, Now: func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }}

	result := rules.ValidateSubmission(doc)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("birthDate"), result.GetErrorMessages())
}

func TestAgeOn(t *testing.T) {
	birth := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 17, AgeOn(birth, time.Date(2018, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 18, AgeOn(birth, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("(555) 123-4567")
	assert.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = NormalizePhone("+1 555.123.4567")
	assert.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	_, err = NormalizePhone("12345")
	assert.Error(t, err)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Jane", SanitizeText("  <b>Jane</b> "))
	assert.Equal(t, "", SanitizeText(`<script>alert(1)</script>`))
	assert.Equal(t, "O'Brien", SanitizeText("O'Brien"))
	assert.Equal(t, "", SanitizeText("   "))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom &amp; Jerry"))

	encoded := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"&#60;b&#62;Jane&#60;/b&#62;",
		"Jane <",
	}
	for _, in := range encoded {
		out := SanitizeText(in)
		assert.NotContains(t, out, "<", in)
		assert.NotContains(t, out, ">", in)
	}
	assert.NotContains(t, SanitizeText("&lt;script&gt;alert(1)&lt;/script&gt;"), "script")
}
