package introspect

import "strings"

// Framework bookkeeping and infrastructure backends. These tables never
// reach pattern detection or generation, and the list is deliberately not
// configurable; user-level exclusions are additive on top.
var infrastructureTables = map[string]bool{
	"schema_migrations":              true,
	"ar_internal_metadata":           true,
	"versions":                       true,
	"solid_cache_entries":            true,
	"solid_cable_messages":           true,
	"active_storage_blobs":           true,
	"active_storage_attachments":     true,
	"active_storage_variant_records": true,
}

const solidQueuePrefix = "solid_queue_"

// IsInfrastructure reports whether a table belongs to the framework
// rather than the application.
func IsInfrastructure(table string) bool {
	if infrastructureTables[table] {
		return true
	}
	return strings.HasPrefix(table, solidQueuePrefix)
}
