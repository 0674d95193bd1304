package aggregate

import (
	"strconv"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
)

// DefaultBodySystems bounds the adverse-event body-system view
const DefaultBodySystems = 8

// Outcomes summarises enrollment status across the cohort
type Outcomes struct {
	Enrolled       int     `json:"enrolled_patients"`
	Enrollments    int     `json:"enrollments"`
	Completed      int     `json:"completed"`
	Active         int     `json:"active"`
	Withdrawn      int     `json:"withdrawn"`
	WithdrawalRate float64 `json:"withdrawal_rate"`
}

// Clinical holds the relationship views of a cohort
type Clinical struct {
	Protocols     []Count  `json:"protocol_enrollment"`
	Interventions []Count  `json:"interventions"`
	Grades        []Count  `json:"ae_grades"`
	BodySystems   []Count  `json:"ae_body_systems"`
	SeriousEvents int      `json:"serious_events"`
	Outcomes      Outcomes `json:"outcomes"`
}

// BuildClinical walks the enrollments of the given patients. Grade counts are
// listed for every grade in 1..5 in ascending order, including zeros.
func BuildClinical(idx *clinical.Index, patients []int64, bodySystems int) Clinical {
	if bodySystems <= 0 {
		bodySystems = DefaultBodySystems
	}
	protocols := make(map[string]int)
	interventions := make(map[string]int)
	systems := make(map[string]int)
	grades := make([]int, domain.MaxGrade+1)
	var c Clinical

	for _, mrn := range patients {
		enrollments := idx.EnrollmentsOf(mrn)
		if len(enrollments) > 0 {
			c.Outcomes.Enrolled++
		}
		for _, e := range enrollments {
			c.Outcomes.Enrollments++
			protocols[e.ProtocolID]++
			switch e.Status {
			case domain.EnrollmentCompleted:
				c.Outcomes.Completed++
			case domain.EnrollmentActive:
				c.Outcomes.Active++
			case domain.EnrollmentWithdrawn:
				c.Outcomes.Withdrawn++
			}
			for _, iv := range idx.InterventionsOf(e.RaveID) {
				interventions[iv.Category]++
			}
			for _, ae := range idx.AdverseEventsOf(e.RaveID) {
				grades[ae.Grade]++
				systems[ae.BodySystem]++
				if ae.Serious {
					c.SeriousEvents++
				}
			}
		}
	}

	if c.Outcomes.Enrollments > 0 {
		c.Outcomes.WithdrawalRate = float64(c.Outcomes.Withdrawn) / float64(c.Outcomes.Enrollments)
	}
	c.Protocols = sortCounts(protocols)
	c.Interventions = sortCounts(interventions)
	c.BodySystems = top(sortCounts(systems), bodySystems)
	c.Grades = make([]Count, 0, domain.MaxGrade)
	for g := domain.MinGrade; g <= domain.MaxGrade; g++ {
		c.Grades = append(c.Grades, Count{Label: strconv.Itoa(g), Count: grades[g]})
	}
	return c
}
