package blocked

const notSpecified = "Not specified"

var (
	loanPurposeLabels = map[string]string{
		"debt_consolidation": "Debt Consolidation",
		"credit_card_refi":   "Credit Card Refinancing",
		"emergency":          "Emergency Expenses",
		"home_improvement":   "Home Improvement",
		"large_purchases":    "Large Purchases",
		"other":              "Other",
	}

	employmentStatusLabels = map[string]string{
		"employed":           "Employed",
		"employed_full_time": "Full-Time Employed",
		"employed_part_time": "Part-Time Employed",
		"military":           "Military",
		"not_employed":       "Not Employed",
		"self_employed":      "Self-Employed",
		"retired":            "Retired",
		"other":              "Other",
	}

	propertyStatusLabels = map[string]string{
		"own_with_mortgage": "Own with Mortgage",
		"rent":              "Rent",
	}

	educationLevelLabels = map[string]string{
		"high_school":       "High School or GED",
		"associate":         "Associate's Degree",
		"bachelors":         "Bachelor's Degree",
		"masters":           "Master's Degree",
		"doctorate":         "Doctorate",
		"other_grad_degree": "Other Graduate Degree",
		"certificate":       "Certificate/Certification",
		"did_not_graduate":  "Did Not Graduate",
		"still_enrolled":    "Currently Enrolled",
		"other":             "Other",
	}
)

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return notSpecified
}

func LoanPurposeLabel(key string) string { return label(loanPurposeLabels, key) }
func EmploymentStatusLabel(key string) string { return label(employmentStatusLabels, key) }
func PropertyStatusLabel(key string) string { return label(propertyStatusLabels, key) }
func EducationLevelLabel(key string) string { return label(educationLevelLabels, key) }
