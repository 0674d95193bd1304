package graph

import (
	"context"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
)

// MemoryStore evaluates traversals over the in-process clinical index.
// It is used when no external graph database is configured.
type MemoryStore struct {
	patients map[int64]domain.Patient
	index    *clinical.Index
}

// NewMemoryStore builds a store over already-validated patients and relationships
func NewMemoryStore(patients []domain.Patient, index *clinical.Index) *MemoryStore {
	byMRN := make(map[int64]domain.Patient, len(patients))
	for _, p := range patients {
		byMRN[p.MRN] = p
	}
	return &MemoryStore{patients: byMRN, index: index}
}

// MatchPatients walks every enrollment once and keeps patients whose
// enrollment satisfies all hops of the traversal.
func (m *MemoryStore) MatchPatients(ctx context.Context, t Traversal) ([]int64, error) {
	matched := make(domain.PatientSet)
	for i, e := range m.index.Enrollments() {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if matched.Contains(e.MRN) {
			continue
		}
		p, ok := m.patients[e.MRN]
		if !ok || !m.demographicsMatch(p, t) {
			continue
		}
		if t.ProtocolID != "" && e.ProtocolID != t.ProtocolID {
			continue
		}
		if t.InterventionCategory != "" && !m.receives(e.RaveID, t.InterventionCategory) {
			continue
		}
		if t.Grades != nil && !m.experiences(e.RaveID, t.Grades) {
			continue
		}
		matched[e.MRN] = struct{}{}
	}

	return matched.Sorted(), nil
}

func (m *MemoryStore) demographicsMatch(p domain.Patient, t Traversal) bool {
	if t.Sexes != nil {
		found := false
		for _, s := range t.Sexes {
			if s == p.Sex {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if t.Age != nil && !t.Age.Contains(p.Age) {
		return false
	}
	return true
}

func (m *MemoryStore) receives(raveID, category string) bool {
	for _, iv := range m.index.InterventionsOf(raveID) {
		if iv.Category == category {
			return true
		}
	}
	return false
}

func (m *MemoryStore) experiences(raveID string, grades []int) bool {
	for _, ae := range m.index.AdverseEventsOf(raveID) {
		for _, g := range grades {
			if ae.Grade == g {
				return true
			}
		}
	}
	return false
}

// RelationshipTypes reports the relationships the index models
func (m *MemoryStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return append([]string(nil), RequiredRelationships...), nil
}

// Close is a no-op for the in-memory store
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
