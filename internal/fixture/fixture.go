// Package fixture generates deterministic synthetic cohorts for tests.
package fixture

import (
	"fmt"
	"math/rand/v2"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Genes used by generated variants
var Genes = []string{"TP53", "KRAS", "BRCA1", "BRCA2", "EGFR", "PIK3CA", "APC", "PTEN", "ATM", "BRAF", "NRAS", "ALK"}

// InterventionCategories used by generated interventions
var InterventionCategories = []string{
	"Immunotherapy", "Chemotherapy", "Targeted Therapy", "Angiogenesis Inhibitors",
	"Radiation Therapy", "Surgery", "Stem Cell Transplant", "Gene Therapy", "Hormone Therapy",
}

// BodySystems used by generated adverse events
var BodySystems = []string{
	"Gastrointestinal", "Hematologic", "Dermatologic", "Neurologic",
	"Cardiovascular", "Respiratory", "Hepatic", "Renal", "Musculoskeletal",
}

var phases = []string{"Phase I", "Phase II", "Phase III"}

// Dataset is a generated cohort
type Dataset struct {
	Patients []domain.Patient
	Variants []domain.Variant
	Clinical *domain.ClinicalData
}

// Options shape a generated dataset
type Options struct {
	Patients  int
	Protocols int
	Seed      uint64
	// Orphans adds one variant and one enrollment pointing at an unknown patient.
	Orphans bool
}

// Generate builds a reproducible dataset; every patient carries at least one variant.
func Generate(opts Options) *Dataset {
	if opts.Protocols == 0 {
		opts.Protocols = 5
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	ds := &Dataset{Clinical: &domain.ClinicalData{}}

	for i := 0; i < opts.Protocols; i++ {
		status := "Active"
		if i%3 == 2 {
			status = "Completed"
		}
		ds.Clinical.Protocols = append(ds.Clinical.Protocols, domain.Protocol{
			ID:     fmt.Sprintf("PROT_%03d", i+1),
			Name:   fmt.Sprintf("Protocol %d", i+1),
			Phase:  phases[i%len(phases)],
			Status: status,
		})
	}

	rave := 1000
	for i := 0; i < opts.Patients; i++ {
		p := domain.Patient{MRN: int64(100000 + i), Age: 18 + rng.IntN(68), Sex: domain.SexMale}
		if rng.IntN(2) == 0 {
			p.Sex = domain.SexFemale
		}
		ds.Patients = append(ds.Patients, p)

		for v, n := 0, 1+rng.IntN(6); v < n; v++ {
			ds.Variants = append(ds.Variants, domain.Variant{
				MRN:            p.MRN,
				Gene:           Genes[rng.IntN(len(Genes))],
				Assessment:     domain.AllAssessments[rng.IntN(len(domain.AllAssessments))],
				AlleleFraction: float64(rng.IntN(1000)) / 1000,
				Actionability:  []string{"", "Tier I", "Tier II"}[rng.IntN(3)],
			})
		}

		for e, n := 0, 1+rng.IntN(2); e < n; e++ {
			raveID := fmt.Sprintf("RAVE_%d", rave)
			rave++
			ds.Clinical.Enrollments = append(ds.Clinical.Enrollments, domain.Enrollment{
				RaveID:     raveID,
				MRN:        p.MRN,
				ProtocolID: ds.Clinical.Protocols[rng.IntN(opts.Protocols)].ID,
				Status:     []string{domain.EnrollmentActive, domain.EnrollmentCompleted, domain.EnrollmentWithdrawn}[rng.IntN(3)],
			})
			for k, m := 0, 1+rng.IntN(3); k < m; k++ {
				ds.Clinical.Interventions = append(ds.Clinical.Interventions, domain.Intervention{
					RaveID:    raveID,
					Category:  InterventionCategories[rng.IntN(len(InterventionCategories))],
					DoseLevel: []string{"Low", "Medium", "High"}[rng.IntN(3)],
				})
			}
			for k, m := 0, rng.IntN(4); k < m; k++ {
				ds.Clinical.AdverseEvents = append(ds.Clinical.AdverseEvents, domain.AdverseEvent{
					RaveID:     raveID,
					BodySystem: BodySystems[rng.IntN(len(BodySystems))],
					Grade:      1 + rng.IntN(5),
					Serious:    rng.IntN(5) == 0,
				})
			}
		}
	}

	if opts.Orphans {
		ds.Variants = append(ds.Variants, domain.Variant{MRN: 999999, Gene: "TP53", Assessment: domain.AssessmentPathogenic})
		ds.Clinical.Enrollments = append(ds.Clinical.Enrollments, domain.Enrollment{
			RaveID: "RAVE_ORPHAN", MRN: 999999, ProtocolID: ds.Clinical.Protocols[0].ID, Status: domain.EnrollmentActive,
		})
		ds.Clinical.Enrollments = append(ds.Clinical.Enrollments, domain.Enrollment{
			RaveID: "RAVE_NOPROTO", MRN: ds.Patients[0].MRN, ProtocolID: "PROT_999", Status: domain.EnrollmentActive,
		})
	}
	return ds
}
