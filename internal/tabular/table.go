// Package tabular holds the immutable joined patient/variant table and the
// attribute filter evaluated against it.
package tabular

import (
	"sort"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Columns of the joined patient/variant table
var Columns = []string{"mrn", "age", "sex", "gene", "assessment", "allelefraction", "actionability"}

// Table is a load-once snapshot of the joined demographic and variant data.
// It is never mutated after NewTable returns; Rows and Patients hand out shared slices.
type Table struct {
	rows     []domain.Row
	patients []domain.Patient
	byMRN    map[int64]domain.Patient
	genes    []string
	columns  map[string]bool
	dropped  int
}

// NewTable joins variants to patients by MRN. Variants whose patient is
// unknown are dropped; Dropped reports how many.
func NewTable(schema []string, patients []domain.Patient, variants []domain.Variant) *Table {
	t := &Table{
		byMRN:   make(map[int64]domain.Patient, len(patients)),
		columns: make(map[string]bool, len(schema)),
	}
	for _, c := range schema {
		t.columns[c] = true
	}
	for _, p := range patients {
		if _, seen := t.byMRN[p.MRN]; seen {
			continue
		}
		t.byMRN[p.MRN] = p
		t.patients = append(t.patients, p)
	}
	sort.Slice(t.patients, func(i, j int) bool { return t.patients[i].MRN < t.patients[j].MRN })

	geneSet := make(map[string]struct{})
	t.rows = make([]domain.Row, 0, len(variants))
	for _, v := range variants {
		p, ok := t.byMRN[v.MRN]
		if !ok {
			t.dropped++
			continue
		}
		t.rows = append(t.rows, domain.Row{
			MRN:            p.MRN,
			Age:            p.Age,
			Sex:            p.Sex,
			Gene:           v.Gene,
			Assessment:     v.Assessment,
			AlleleFraction: v.AlleleFraction,
			Actionability:  v.Actionability,
		})
		geneSet[v.Gene] = struct{}{}
	}
	for g := range geneSet {
		t.genes = append(t.genes, g)
	}
	sort.Strings(t.genes)
	return t
}

// Rows returns every joined row in load order
func (t *Table) Rows() []domain.Row { return t.rows }

// Len returns the number of joined rows
func (t *Table) Len() int { return len(t.rows) }

// Patients returns every loaded patient ordered by MRN
func (t *Table) Patients() []domain.Patient { return t.patients }

// Patient looks up one patient
func (t *Table) Patient(mrn int64) (domain.Patient, bool) {
	p, ok := t.byMRN[mrn]
	return p, ok
}

// Genes returns the distinct genes of the table, sorted
func (t *Table) Genes() []string { return t.genes }

// HasColumn reports whether the source schema provided column
func (t *Table) HasColumn(column string) bool { return t.columns[column] }

// Dropped returns how many variants referenced an unknown patient
func (t *Table) Dropped() int { return t.dropped }

// AgeBounds returns the youngest and oldest patient ages
func (t *Table) AgeBounds() (int, int) {
	if len(t.patients) == 0 {
		return 0, 0
	}
	lo, hi := t.patients[0].Age, t.patients[0].Age
	for _, p := range t.patients[1:] {
		if p.Age < lo {
			lo = p.Age
		}
		if p.Age > hi {
			hi = p.Age
		}
	}
	return lo, hi
}
