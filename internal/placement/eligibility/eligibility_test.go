package eligibility

import (
	"testing"

	"github.com/gartstein/placement/internal/pkg/utils"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	student := &models.StudentProfile{Branch: "CS", CGPA: 8.2, Year: 2024}

	tests := []struct {
		name     string
		criteria *models.Eligibility
		want     bool
		reasons  int
	}{
		{
			name:     "no criteria record",
			criteria: nil,
			want:     true,
		},
		{
			name:     "empty criteria",
			criteria: &models.Eligibility{},
			want:     true,
		},
		{
			name: "all criteria met",
			criteria: &models.Eligibility{
				AllowedBranches: []string{"CS", "IT"},
				MinCGPA:         utils.Ptr(7.5),
				PassingYear:     utils.Ptr(2024),
			},
			want: true,
		},
		{
			name:     "cgpa equal to minimum is inclusive",
			criteria: &models.Eligibility{MinCGPA: utils.Ptr(8.2)},
			want:     true,
		},
		{
			name:     "branch not allowed",
			criteria: &models.Eligibility{AllowedBranches: []string{"ME", "EE"}},
			want:     false,
			reasons:  1,
		},
		{
			name:     "cgpa below minimum",
			criteria: &models.Eligibility{MinCGPA: utils.Ptr(8.5)},
			want:     false,
			reasons:  1,
		},
		{
			name:     "passing year is exact match",
			criteria: &models.Eligibility{PassingYear: utils.Ptr(2025)},
			want:     false,
			reasons:  1,
		},
		{
			name: "every criterion failing",
			criteria: &models.Eligibility{
				AllowedBranches: []string{"ME"},
				MinCGPA:         utils.Ptr(9.0),
				PassingYear:     utils.Ptr(2023),
			},
			want:    false,
			reasons: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(student, tt.criteria)
			assert.Equal(t, tt.want, got.Eligible)
			assert.Len(t, got.Reasons, tt.reasons)
			assert.Equal(t, tt.want, IsEligible(student, tt.criteria))
		})
	}
}

// TestIsEligible_Exhaustive checks the predicate against its definition over
// a grid of students and criteria.
func TestIsEligible_Exhaustive(t *testing.T) {
	branches := []string{"CS", "IT", "ME"}
	cgpas := []float64{6.0, 7.5, 9.1}
	years := []int{2023, 2024}

	branchSets := [][]string{nil, {"CS"}, {"CS", "IT"}}
	minCGPAs := []*float64{nil, utils.Ptr(7.5)}
	passingYears := []*int{nil, utils.Ptr(2024)}

	for _, b := range branches {
		for _, c := range cgpas {
			for _, y := range years {
				s := &models.StudentProfile{Branch: b, CGPA: c, Year: y}
				for _, bs := range branchSets {
					for _, mc := range minCGPAs {
						for _, py := range passingYears {
							crit := &models.Eligibility{AllowedBranches: bs, MinCGPA: mc, PassingYear: py}

							branchOK := len(bs) == 0
							for _, allowed := range bs {
								if allowed == b {
									branchOK = true
								}
							}
							want := branchOK &&
								(mc == nil || c >= *mc) &&
								(py == nil || y == *py)

							assert.Equal(t, want, IsEligible(s, crit), "student=%+v criteria=%+v", s, crit)
						}
					}
				}
			}
		}
	}
}
