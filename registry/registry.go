package registry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kinnrichard/zerogen/schema"
	"github.com/kinnrichard/zerogen/utils"
)

// CurrentVersion is the registry document version this build reads.
const CurrentVersion = 1

type yamlFile struct {
	Version int         `yaml:"version"`
	Models  []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name        string              `yaml:"name"`
	Table       string              `yaml:"table"`
	BelongsTo   []yamlAssociation   `yaml:"belongs_to"`
	HasMany     []yamlAssociation   `yaml:"has_many"`
	HasOne      []yamlAssociation   `yaml:"has_one"`
	Enums       map[string][]string `yaml:"enums"`
	Positioning *yamlPositioning    `yaml:"positioning"`
}

type yamlAssociation struct {
	Name        string `yaml:"name"`
	Table       string `yaml:"table"`
	ForeignKey  string `yaml:"foreign_key"`
	Through     string `yaml:"through"`
	Polymorphic bool   `yaml:"polymorphic"`
	Dependent   string `yaml:"dependent"`
}

type yamlPositioning struct {
	Column string   `yaml:"column"`
	Ops    []string `yaml:"ops"`
}

// Registry is the static model catalog the introspector resolves against.
// It is plain configuration: models are declared in YAML, never discovered
// by walking application code.
type Registry struct {
	Version int

	models  []schema.Model
	byTable map[string]schema.Model
}

// Load reads and validates a models.yaml document.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model registry: %v", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return reg, nil
}

// Parse validates a registry document and fills in conventional table and
// foreign key names where the document omits them.
func Parse(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var yf yamlFile
	if err := dec.Decode(&yf); err != nil {
		return nil, fmt.Errorf("unmarshalling registry YAML: %v", err)
	}

	if yf.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported registry version %d (want %d)", yf.Version, CurrentVersion)
	}

	reg := &Registry{
		Version: yf.Version,
		byTable: make(map[string]schema.Model),
	}

	seenNames := map[string]bool{}
	for _, ym := range yf.Models {
		if ym.Name == "" {
			return nil, fmt.Errorf("model with empty name")
		}
		if seenNames[ym.Name] {
			return nil, fmt.Errorf("duplicate model %q", ym.Name)
		}
		seenNames[ym.Name] = true

		m, err := buildModel(ym)
		if err != nil {
			return nil, fmt.Errorf("model %q: %v", ym.Name, err)
		}
		if _, dup := reg.byTable[m.TableName]; dup {
			return nil, fmt.Errorf("models share table %q", m.TableName)
		}

		reg.models = append(reg.models, m)
		reg.byTable[m.TableName] = m
	}

	return reg, nil
}

func buildModel(ym yamlModel) (schema.Model, error) {
	m := schema.Model{
		Name:      ym.Name,
		TableName: ym.Table,
		EnumDecls: ym.Enums,
	}
	if m.TableName == "" {
		m.TableName = utils.TableFor(ym.Name)
	}

	for _, ya := range ym.BelongsTo {
		a, err := buildAssociation(ya, belongsToAssoc, m)
		if err != nil {
			return m, err
		}
		m.BelongsTo = append(m.BelongsTo, a)
	}
	for _, ya := range ym.HasMany {
		a, err := buildAssociation(ya, hasManyAssoc, m)
		if err != nil {
			return m, err
		}
		m.HasMany = append(m.HasMany, a)
	}
	for _, ya := range ym.HasOne {
		a, err := buildAssociation(ya, hasOneAssoc, m)
		if err != nil {
			return m, err
		}
		m.HasOne = append(m.HasOne, a)
	}

	if ym.Positioning != nil {
		decl := &schema.PositioningDecl{Column: ym.Positioning.Column}
		for _, op := range ym.Positioning.Ops {
			if !schema.ValidMoveOp(op) {
				return m, fmt.Errorf("unknown move op %q", op)
			}
			decl.Ops = append(decl.Ops, schema.MoveOp(op))
		}
		m.Positioning = decl
	}

	return m, nil
}

type assocKind int

const (
	belongsToAssoc assocKind = iota
	hasManyAssoc
	hasOneAssoc
)

// buildAssociation fills conventional defaults. On the belongs-to side
// the foreign key lives on the owning table and the target is the
// pluralized association name; on the has side the foreign key points
// back at the owner and the target is the association name, pluralized
// for has_one whose name is singular.
func buildAssociation(ya yamlAssociation, kind assocKind, owner schema.Model) (schema.Association, error) {
	if ya.Name == "" {
		return schema.Association{}, fmt.Errorf("association with empty name")
	}
	if ya.Polymorphic && kind != belongsToAssoc {
		return schema.Association{}, fmt.Errorf("association %q: polymorphic is only valid on belongs_to", ya.Name)
	}

	a := schema.Association{
		Name:        ya.Name,
		TargetTable: ya.Table,
		ForeignKey:  ya.ForeignKey,
		Through:     ya.Through != "",
		Polymorphic: ya.Polymorphic,
		Dependent:   ya.Dependent,
	}

	if kind == belongsToAssoc {
		if a.ForeignKey == "" {
			a.ForeignKey = utils.ForeignKeyFor(ya.Name)
		}
		if a.TargetTable == "" && !a.Polymorphic {
			a.TargetTable = utils.Plural(utils.Underscore(ya.Name))
		}
		if a.Polymorphic {
			// Candidate targets for polymorphic associations are
			// resolved at generation time, never declared here.
			a.TargetTable = ""
		}
		return a, nil
	}

	if a.TargetTable == "" {
		a.TargetTable = utils.Underscore(ya.Name)
		if kind == hasOneAssoc {
			a.TargetTable = utils.Plural(a.TargetTable)
		}
	}
	if a.ForeignKey == "" {
		a.ForeignKey = utils.ForeignKeyFor(utils.Underscore(owner.Name))
	}
	return a, nil
}

// Models returns the registered models in declaration order.
func (r *Registry) Models() []schema.Model {
	return r.models
}

// ModelFor returns the model backed by the given table.
func (r *Registry) ModelFor(table string) (schema.Model, bool) {
	m, ok := r.byTable[table]
	return m, ok
}

// Tables returns the table names the registry claims, in declaration order.
func (r *Registry) Tables() []string {
	names := make([]string, len(r.models))
	for i, m := range r.models {
		names[i] = m.TableName
	}
	return names
}
