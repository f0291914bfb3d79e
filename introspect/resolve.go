package introspect

import (
	"fmt"

	"github.com/kinnrichard/zerogen/registry"
	"github.com/kinnrichard/zerogen/schema"
)

// resolveModels matches registered models against the extracted tables.
// A model whose table is absent from the catalog is dropped without
// error; the miss becomes a snapshot warning so `status` can surface it.
// Enum declarations on a resolved model are stamped onto the matching
// columns, overriding any native enum values.
func resolveModels(tables []schema.Table, reg *registry.Registry) (map[string]schema.Model, []string) {
	models := map[string]schema.Model{}
	if reg == nil {
		return models, nil
	}

	byName := map[string]*schema.Table{}
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	var warnings []string
	for _, m := range reg.Models() {
		t, ok := byName[m.TableName]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("model %s: table %q not in database, skipped", m.Name, m.TableName))
			continue
		}
		applyEnumDecls(t, m)
		models[m.TableName] = m
	}

	return models, warnings
}

func applyEnumDecls(t *schema.Table, m schema.Model) {
	for col, values := range m.EnumDecls {
		if c := t.Column(col); c != nil {
			c.Enum = true
			c.EnumValues = values
		}
	}
}
