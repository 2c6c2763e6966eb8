// Package eligibility decides whether a student may apply to a drive.
// Evaluation is pure: no I/O, no side effects, deterministic.
package eligibility

import (
	"fmt"
	"slices"

	"github.com/gartstein/placement/internal/placement/models"
)

// Result is the outcome of an evaluation together with the criteria that
// were not met.
type Result struct {
	Eligible bool
	Reasons  []string
}

// Evaluate checks the student against the drive criteria. A nil criteria
// imposes no restriction. All set criteria must hold.
func Evaluate(student *models.StudentProfile, criteria *models.Eligibility) Result {
	if criteria == nil {
		return Result{Eligible: true}
	}

	var reasons []string
	if len(criteria.AllowedBranches) > 0 && !slices.Contains(criteria.AllowedBranches, student.Branch) {
		reasons = append(reasons, fmt.Sprintf("branch %q not allowed", student.Branch))
	}
	if criteria.MinCGPA != nil && student.CGPA < *criteria.MinCGPA {
		reasons = append(reasons, fmt.Sprintf("cgpa %.2f below minimum %.2f", student.CGPA, *criteria.MinCGPA))
	}
	if criteria.PassingYear != nil && student.Year != *criteria.PassingYear {
		reasons = append(reasons, fmt.Sprintf("passing year %d does not match %d", student.Year, *criteria.PassingYear))
	}

	return Result{Eligible: len(reasons) == 0, Reasons: reasons}
}

// IsEligible is the boolean projection of Evaluate.
func IsEligible(student *models.StudentProfile, criteria *models.Eligibility) bool {
	return Evaluate(student, criteria).Eligible
}
