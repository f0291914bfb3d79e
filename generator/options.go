package generator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options configures one generation run. File values come from
// zerogen.yaml; flags override them. Dry-run and force are invocation
// modes and never live in the file.
type Options struct {
	OutputDir      string            `yaml:"output_dir"`
	SchemaPath     string            `yaml:"schema_file"`
	TypesPath      string            `yaml:"types_file"`
	Extension      string            `yaml:"extension"`
	ExcludedTables []string          `yaml:"excluded_tables"`
	NameOverrides  map[string]string `yaml:"name_overrides"`
	TypeOverrides  map[string]string `yaml:"type_overrides"`
	Workers        int               `yaml:"workers"`

	DryRun        bool `yaml:"-"`
	Force         bool `yaml:"-"`
	SchemaOnly    bool `yaml:"-"`
	MutationsOnly bool `yaml:"-"`
}

// DefaultOptions returns the conventional frontend layout: mutators in
// their own directory, schema and types one level up.
func DefaultOptions() Options {
	return Options{
		OutputDir:  "frontend/src/lib/mutations",
		SchemaPath: "frontend/src/lib/schema.gen.ts",
		TypesPath:  "frontend/src/lib/types.gen.ts",
		Extension:  "ts",
		Workers:    1,
	}
}

// LoadOptions reads a zerogen.yaml over the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, NewConfigurationError("config", path, err.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultOptions(), nil
		}
		return opts, NewConfigurationError("config", path, err.Error())
	}

	return opts, nil
}

// Validate rejects unusable options before anything runs. A failure here
// is fatal: no introspection, no files, no manifest changes.
func (o *Options) Validate() error {
	if o.OutputDir == "" {
		return NewConfigurationError("output_dir", nil, "must not be empty")
	}
	if !o.MutationsOnly {
		if o.SchemaPath == "" {
			return NewConfigurationError("schema_file", nil, "must not be empty")
		}
		if o.TypesPath == "" {
			return NewConfigurationError("types_file", nil, "must not be empty")
		}
	}
	if strings.TrimPrefix(o.Extension, ".") == "" {
		return NewConfigurationError("extension", o.Extension, "must not be empty")
	}
	if o.Workers < 0 {
		return NewConfigurationError("workers", o.Workers, "must not be negative")
	}
	if o.SchemaOnly && o.MutationsOnly {
		return NewConfigurationError("schema-only", nil, "cannot combine with mutations-only")
	}

	for _, t := range o.ExcludedTables {
		if strings.TrimSpace(t) == "" {
			return NewConfigurationError("excluded_tables", nil, "contains an empty table name")
		}
	}

	for op, verb := range o.NameOverrides {
		if !knownOperation(op) {
			return NewConfigurationError("name_overrides", op, "unknown operation")
		}
		if !isIdentifier(verb) {
			return NewConfigurationError("name_overrides", verb, fmt.Sprintf("invalid identifier for %q", op))
		}
	}

	for col, target := range o.TypeOverrides {
		switch ColumnType(target) {
		case TypeString, TypeNumber, TypeBoolean, TypeJSON:
		default:
			return NewConfigurationError("type_overrides", target, fmt.Sprintf("unknown target type for %q", col))
		}
	}

	return nil
}

// ext returns the output extension without a leading dot.
func (o *Options) ext() string {
	return strings.TrimPrefix(o.Extension, ".")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
