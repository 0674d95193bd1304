// Package repository reads the static tabular store: demographics, variants
// and the clinical tables. Sources only ever issue SELECT statements.
package repository

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Default table names
const (
	DefaultDemographicsTable  = "demographics"
	DefaultVariantsTable      = "variants"
	DefaultProtocolsTable     = "protocols"
	DefaultEnrollmentsTable   = "clinical_trial_subjects"
	DefaultInterventionsTable = "interventions"
	DefaultAdverseEventsTable = "adverse_events"
)

// Columns each table must provide
var (
	DemographicsColumns  = []string{"mrn", "age", "sex"}
	VariantsColumns      = []string{"mrn", "gene", "assessment", "allelefraction", "actionability"}
	ProtocolsColumns     = []string{"protocol_id", "protocol_name", "phase", "status"}
	EnrollmentsColumns   = []string{"rave_id", "mrn", "protocol_id", "enrollment_status"}
	InterventionsColumns = []string{"rave_id", "intervention_category", "dose_level"}
	AdverseEventsColumns = []string{"rave_id", "ae_body_system", "grade", "serious"}
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// tableDef pairs a configured table name with its required columns
type tableDef struct {
	name    string
	columns []string
}

func (s tableDef) selectAll() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.columns, ", "), s.name)
}

func (s tableDef) probe() string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.name)
}

// schema is the set of tables a source reads
type schema struct {
	demographics  tableDef
	variants      tableDef
	protocols     tableDef
	enrollments   tableDef
	interventions tableDef
	adverseEvents tableDef
}

// WithDefaults fills unset table names
func WithDefaults(names domain.TableNames) domain.TableNames {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&names.Demographics, DefaultDemographicsTable)
	fill(&names.Variants, DefaultVariantsTable)
	fill(&names.Protocols, DefaultProtocolsTable)
	fill(&names.Enrollments, DefaultEnrollmentsTable)
	fill(&names.Interventions, DefaultInterventionsTable)
	fill(&names.AdverseEvents, DefaultAdverseEventsTable)
	return names
}

// ValidateTableNames rejects names that are not plain SQL identifiers
func ValidateTableNames(names domain.TableNames) error {
	for field, name := range map[string]string{
		"demographics":   names.Demographics,
		"variants":       names.Variants,
		"protocols":      names.Protocols,
		"enrollments":    names.Enrollments,
		"interventions":  names.Interventions,
		"adverse_events": names.AdverseEvents,
	} {
		if name != "" && !identifierPattern.MatchString(name) {
			return domain.NewValidationError("tabular.tables."+field, "table name must be a plain identifier", name)
		}
	}
	return nil
}

func newSchema(names domain.TableNames) schema {
	names = WithDefaults(names)
	return schema{
		demographics:  tableDef{names.Demographics, DemographicsColumns},
		variants:      tableDef{names.Variants, VariantsColumns},
		protocols:     tableDef{names.Protocols, ProtocolsColumns},
		enrollments:   tableDef{names.Enrollments, EnrollmentsColumns},
		interventions: tableDef{names.Interventions, InterventionsColumns},
		adverseEvents: tableDef{names.AdverseEvents, AdverseEventsColumns},
	}
}

func (s schema) tables() []tableDef {
	return []tableDef{s.demographics, s.variants, s.protocols, s.enrollments, s.interventions, s.adverseEvents}
}
