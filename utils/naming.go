package utils

import (
	"strings"

	"github.com/go-openapi/inflect"
)

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	r := inflect.NewDefaultRuleset()
	for _, w := range []string{"API", "CSV", "DB", "ID", "JSON", "SQL", "UI", "URL", "UUID"} {
		r.AddAcronym(w)
	}
	return r
}

// Singular returns the singular form of a table name: "tasks" -> "task".
func Singular(s string) string {
	return rules.Singularize(s)
}

// Plural returns the plural form of a model name: "task" -> "tasks".
func Plural(s string) string {
	return rules.Pluralize(s)
}

// Pascal converts a snake_case identifier to PascalCase:
// "job_targets" -> "JobTargets".
func Pascal(s string) string {
	return rules.Camelize(s)
}

// Camel converts a snake_case identifier to camelCase:
// "move_before" -> "moveBefore".
func Camel(s string) string {
	return rules.CamelizeDownFirst(s)
}

// Underscore converts a PascalCase name to snake_case:
// "ScheduledDateTime" -> "scheduled_date_time".
func Underscore(s string) string {
	return rules.Underscore(s)
}

// TableFor derives the conventional table name for a model name:
// "Job" -> "jobs", "ScheduledDateTime" -> "scheduled_date_times".
func TableFor(model string) string {
	return Plural(Underscore(model))
}

// ForeignKeyFor derives the conventional foreign key column for an
// association name: "job" -> "job_id", "notable" -> "notable_id".
func ForeignKeyFor(assoc string) string {
	if strings.HasSuffix(assoc, "_id") {
		return assoc
	}
	return Underscore(assoc) + "_id"
}
