package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Sex represents the recorded sex of a patient
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// AllSexes lists sexes in display order
var AllSexes = []Sex{SexMale, SexFemale}

// ParseSex normalizes a sex value from a store or request
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m":
		return SexMale, nil
	case "female", "f":
		return SexFemale, nil
	}
	return "", NewValidationError("sex", "unknown sex value", value)
}

// Assessment is the clinical significance assigned to a variant
type Assessment string

const (
	AssessmentPathogenic       Assessment = "Pathogenic"
	AssessmentLikelyPathogenic Assessment = "Likely Pathogenic"
	AssessmentVUS              Assessment = "VUS"
	AssessmentLikelyBenign     Assessment = "Likely Benign"
	AssessmentBenign           Assessment = "Benign"
)

// AllAssessments lists assessments from most to least severe
var AllAssessments = []Assessment{
	AssessmentPathogenic,
	AssessmentLikelyPathogenic,
	AssessmentVUS,
	AssessmentLikelyBenign,
	AssessmentBenign,
}

// ParseAssessment maps the spellings found in lab exports onto the canonical enum.
func ParseAssessment(value string) (Assessment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pathogenic":
		return AssessmentPathogenic, nil
	case "likely pathogenic", "likely_pathogenic":
		return AssessmentLikelyPathogenic, nil
	case "vus", "uncertain significance", "uncertain_significance":
		return AssessmentVUS, nil
	case "likely benign", "likely_benign":
		return AssessmentLikelyBenign, nil
	case "benign":
		return AssessmentBenign, nil
	}
	return "", NewValidationError("assessment", "unknown assessment value", value)
}

// IsPathogenic reports whether the assessment counts toward pathogenic load
func (a Assessment) IsPathogenic() bool {
	return a == AssessmentPathogenic || a == AssessmentLikelyPathogenic
}

// Severity ranks assessments; higher is more severe
func (a Assessment) Severity() int {
	for i, candidate := range AllAssessments {
		if candidate == a {
			return len(AllAssessments) - i
		}
	}
	return 0
}

// Patient is a single sequenced individual
type Patient struct {
	MRN int64 `json:"mrn"`
	Age int   `json:"age"`
	Sex Sex   `json:"sex"`
}

// Variant is a sequenced gene variant belonging to one patient
type Variant struct {
	MRN            int64      `json:"mrn"`
	Gene           string     `json:"gene"`
	Assessment     Assessment `json:"assessment"`
	AlleleFraction float64    `json:"allele_fraction"`
	Actionability  string     `json:"actionability,omitempty"`
}

// ValidAlleleFraction reports whether af is a finite fraction in [0,1]
func ValidAlleleFraction(af float64) bool {
	return !math.IsNaN(af) && af >= 0 && af <= 1
}

// Row is one patient-variant pair of the joined table
type Row struct {
	MRN            int64      `json:"mrn"`
	Age            int        `json:"age"`
	Sex            Sex        `json:"sex"`
	Gene           string     `json:"gene"`
	Assessment     Assessment `json:"assessment"`
	AlleleFraction float64    `json:"allele_fraction"`
	Actionability  string     `json:"actionability,omitempty"`
}

// Protocol is a clinical trial protocol
type Protocol struct {
	ID     string `json:"protocol_id"`
	Name   string `json:"protocol_name"`
	Phase  string `json:"phase"`
	Status string `json:"status"`
}

// Enrollment links one patient to one protocol under a RAVE ID
type Enrollment struct {
	RaveID     string `json:"rave_id"`
	MRN        int64  `json:"mrn"`
	ProtocolID string `json:"protocol_id"`
	Status     string `json:"enrollment_status"`
}

// Enrollment statuses
const (
	EnrollmentActive    = "Active"
	EnrollmentCompleted = "Completed"
	EnrollmentWithdrawn = "Withdrawn"
)

// Intervention is a treatment received under an enrollment
type Intervention struct {
	RaveID    string `json:"rave_id"`
	Category  string `json:"intervention_category"`
	DoseLevel string `json:"dose_level"`
}

// AdverseEvent is an event reported under an enrollment
type AdverseEvent struct {
	RaveID     string `json:"rave_id"`
	BodySystem string `json:"ae_body_system"`
	Grade      int    `json:"grade"`
	Serious    bool   `json:"serious"`
}

// Grade bounds for adverse events
const (
	MinGrade = 1
	MaxGrade = 5
)

// ClinicalData is the relationship side of the dataset as loaded from a store
type ClinicalData struct {
	Protocols     []Protocol
	Enrollments   []Enrollment
	Interventions []Intervention
	AdverseEvents []AdverseEvent
}

// PatientSet is a set of MRNs
type PatientSet map[int64]struct{}

// NewPatientSet builds a set from the given MRNs
func NewPatientSet(mrns ...int64) PatientSet {
	set := make(PatientSet, len(mrns))
	for _, mrn := range mrns {
		set[mrn] = struct{}{}
	}
	return set
}

// Contains reports set membership
func (s PatientSet) Contains(mrn int64) bool {
	_, ok := s[mrn]
	return ok
}

// Intersect returns the MRNs present in both sets
func (s PatientSet) Intersect(other PatientSet) PatientSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PatientSet, len(small))
	for mrn := range small {
		if large.Contains(mrn) {
			out[mrn] = struct{}{}
		}
	}
	return out
}

// Sorted returns the MRNs in ascending order
func (s PatientSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for mrn := range s {
		out = append(out, mrn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MRNLabel renders an MRN the way it is labelled in views
func MRNLabel(mrn int64) string {
	return strconv.FormatInt(mrn, 10)
}
