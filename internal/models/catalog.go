// internal/models/catalog.go
package models

// Allowed option values for the select fields of the form, in display order.
var (
	LoanPurposes = []string{
		"debt_consolidation", "credit_card_refi", "emergency",
		"home_improvement", "large_purchases", "other",
	}

	EmploymentStatuses = []string{
		"employed", "employed_full_time", "employed_part_time", "military",
		"not_employed", "self_employed", "retired", "other",
	}

	PropertyStatuses = []string{"own_with_mortgage", "rent"}

	EducationLevels = []string{
		"high_school", "associate", "bachelors", "masters", "doctorate",
		"other_grad_degree", "certificate", "did_not_graduate", "still_enrolled", "other",
	}
)
