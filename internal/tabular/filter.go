package tabular

import (
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

// Result is the tabular side of a resolution
type Result struct {
	Rows     []domain.Row
	Patients domain.PatientSet
}

// Filter applies demographic and variant predicates to a Table
type Filter struct {
	table *Table
}

// NewFilter binds a filter to table. Every tabular predicate must map to a
// column the table was loaded with; a missing one is a configuration error.
func NewFilter(table *Table) (*Filter, error) {
	var missing []string
	for _, f := range predicate.Fields {
		if f.Relationship() {
			continue
		}
		if !table.HasColumn(f.Column()) {
			missing = append(missing, f.Column())
		}
	}
	if !table.HasColumn("mrn") {
		missing = append(missing, "mrn")
	}
	if len(missing) > 0 {
		return nil, domain.NewConfigurationError("tabular", "predicates reference columns absent from the joined table", missing...)
	}
	return &Filter{table: table}, nil
}

// Table returns the snapshot the filter reads
func (f *Filter) Table() *Table { return f.table }

// Apply returns the rows satisfying every active tabular predicate.
// Inactive predicates are skipped entirely.
func (f *Filter) Apply(set predicate.Set) Result {
	checks := make([]func(domain.Row) bool, 0, 4)
	if set.Sex.IsActive() {
		checks = append(checks, func(r domain.Row) bool { return set.Sex.Matches(r.Sex) })
	}
	if set.AgeActive() {
		age := *set.Age
		checks = append(checks, func(r domain.Row) bool { return age.Contains(r.Age) })
	}
	if set.Gene.IsActive() {
		checks = append(checks, func(r domain.Row) bool { return set.Gene.Matches(r.Gene) })
	}
	if set.Assessment.IsActive() {
		checks = append(checks, func(r domain.Row) bool { return set.Assessment.Matches(r.Assessment) })
	}

	if len(checks) == 0 {
		return Result{Rows: f.table.rows, Patients: patientsOf(f.table.rows)}
	}

	rows := make([]domain.Row, 0)
rowLoop:
	for _, r := range f.table.rows {
		for _, check := range checks {
			if !check(r) {
				continue rowLoop
			}
		}
		rows = append(rows, r)
	}
	return Result{Rows: rows, Patients: patientsOf(rows)}
}

func patientsOf(rows []domain.Row) domain.PatientSet {
	set := make(domain.PatientSet)
	for _, r := range rows {
		set[r.MRN] = struct{}{}
	}
	return set
}
