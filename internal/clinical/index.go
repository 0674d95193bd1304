// Package clinical indexes enrollment, intervention and adverse-event
// records by patient and enrollment for relationship lookups.
package clinical

import (
	"sort"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// DropCounts reports records discarded for referencing unknown entities
type DropCounts struct {
	Enrollments   int `json:"enrollments"`
	Interventions int `json:"interventions"`
	AdverseEvents int `json:"adverse_events"`
}

// Total sums every dropped record
func (d DropCounts) Total() int {
	return d.Enrollments + d.Interventions + d.AdverseEvents
}

// Index is an immutable view of the relationship data
type Index struct {
	protocols     []domain.Protocol
	protocolByID  map[string]domain.Protocol
	enrollments   []domain.Enrollment
	byMRN         map[int64][]domain.Enrollment
	interventions map[string][]domain.Intervention
	adverse       map[string][]domain.AdverseEvent
	categories    []string
	dropped       DropCounts
}

// NewIndex keeps only records that resolve to a known patient: enrollments
// need a known patient and protocol, interventions and adverse events a kept enrollment.
func NewIndex(patients []domain.Patient, data *domain.ClinicalData) *Index {
	idx := &Index{
		protocolByID:  make(map[string]domain.Protocol),
		byMRN:         make(map[int64][]domain.Enrollment),
		interventions: make(map[string][]domain.Intervention),
		adverse:       make(map[string][]domain.AdverseEvent),
	}
	if data == nil {
		return idx
	}

	known := make(map[int64]bool, len(patients))
	for _, p := range patients {
		known[p.MRN] = true
	}
	for _, pr := range data.Protocols {
		if _, dup := idx.protocolByID[pr.ID]; dup {
			continue
		}
		idx.protocolByID[pr.ID] = pr
		idx.protocols = append(idx.protocols, pr)
	}
	sort.Slice(idx.protocols, func(i, j int) bool { return idx.protocols[i].ID < idx.protocols[j].ID })

	kept := make(map[string]bool, len(data.Enrollments))
	for _, e := range data.Enrollments {
		if _, ok := idx.protocolByID[e.ProtocolID]; !ok || !known[e.MRN] || kept[e.RaveID] {
			idx.dropped.Enrollments++
			continue
		}
		kept[e.RaveID] = true
		idx.enrollments = append(idx.enrollments, e)
		idx.byMRN[e.MRN] = append(idx.byMRN[e.MRN], e)
	}

	categories := make(map[string]bool)
	for _, iv := range data.Interventions {
		if !kept[iv.RaveID] {
			idx.dropped.Interventions++
			continue
		}
		idx.interventions[iv.RaveID] = append(idx.interventions[iv.RaveID], iv)
		categories[iv.Category] = true
	}
	for c := range categories {
		idx.categories = append(idx.categories, c)
	}
	sort.Strings(idx.categories)

	for _, ae := range data.AdverseEvents {
		if !kept[ae.RaveID] || ae.Grade < domain.MinGrade || ae.Grade > domain.MaxGrade {
			idx.dropped.AdverseEvents++
			continue
		}
		idx.adverse[ae.RaveID] = append(idx.adverse[ae.RaveID], ae)
	}
	return idx
}

// Protocols returns every protocol ordered by ID
func (idx *Index) Protocols() []domain.Protocol { return idx.protocols }

// Protocol looks up a protocol by ID
func (idx *Index) Protocol(id string) (domain.Protocol, bool) {
	p, ok := idx.protocolByID[id]
	return p, ok
}

// Enrollments returns every kept enrollment in load order
func (idx *Index) Enrollments() []domain.Enrollment { return idx.enrollments }

// EnrollmentsOf returns a patient's enrollments
func (idx *Index) EnrollmentsOf(mrn int64) []domain.Enrollment { return idx.byMRN[mrn] }

// InterventionsOf returns the interventions received under an enrollment
func (idx *Index) InterventionsOf(raveID string) []domain.Intervention {
	return idx.interventions[raveID]
}

// AdverseEventsOf returns the adverse events reported under an enrollment
func (idx *Index) AdverseEventsOf(raveID string) []domain.AdverseEvent {
	return idx.adverse[raveID]
}

// InterventionCategories returns the distinct intervention categories, sorted
func (idx *Index) InterventionCategories() []string { return idx.categories }

// PatientCategories returns the distinct intervention categories a patient received
func (idx *Index) PatientCategories(mrn int64) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.byMRN[mrn] {
		for _, iv := range idx.interventions[e.RaveID] {
			if !seen[iv.Category] {
				seen[iv.Category] = true
				out = append(out, iv.Category)
			}
		}
	}
	return out
}

// PatientProtocols returns the distinct protocols a patient is enrolled in
func (idx *Index) PatientProtocols(mrn int64) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range idx.byMRN[mrn] {
		if !seen[e.ProtocolID] {
			seen[e.ProtocolID] = true
			out = append(out, e.ProtocolID)
		}
	}
	return out
}

// Dropped reports how many records were discarded at build time
func (idx *Index) Dropped() DropCounts { return idx.dropped }
