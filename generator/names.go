package generator

import (
	"github.com/kinnrichard/zerogen/schema"
	"github.com/kinnrichard/zerogen/utils"
)

// Operation names one logical mutation.
type Operation string

const (
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpDelete       Operation = "delete"
	OpRestore      Operation = "restore"
	OpUpsert       Operation = "upsert"
	OpMoveBefore   Operation = "move_before"
	OpMoveAfter    Operation = "move_after"
	OpMoveToTop    Operation = "move_to_top"
	OpMoveToBottom Operation = "move_to_bottom"
)

// operationOrder fixes the emission order inside generated files.
var operationOrder = []Operation{
	OpCreate,
	OpUpdate,
	OpDelete,
	OpRestore,
	OpUpsert,
	OpMoveBefore,
	OpMoveAfter,
	OpMoveToTop,
	OpMoveToBottom,
}

func knownOperation(name string) bool {
	for _, op := range operationOrder {
		if string(op) == name {
			return true
		}
	}
	return false
}

// operationsFor maps detected patterns to the operations emitted for a
// table: baseline CRUD always, restore under soft deletion, and exactly
// the move subset the positioning pattern reports.
func operationsFor(ps schema.PatternSet) []Operation {
	ops := []Operation{OpCreate, OpUpdate, OpDelete}
	if ps.Has(schema.KindSoftDeletion) {
		ops = append(ops, OpRestore)
	}
	ops = append(ops, OpUpsert)

	if p, ok := ps.Get(schema.KindPositioning); ok {
		for _, mv := range p.(schema.Positioning).Ops {
			ops = append(ops, Operation(mv))
		}
	}
	return ops
}

// operationName composes the emitted identifier for an operation on an
// entity: create + task -> createTask, move_to_top + task -> moveTaskToTop.
// An override replaces the verb before composition, so delete: discard
// yields discardTask.
func operationName(op Operation, entity string, overrides map[string]string) string {
	if verb, ok := overrides[string(op)]; ok {
		return utils.Camel(verb) + utils.Pascal(entity)
	}

	switch op {
	case OpMoveBefore:
		return "move" + utils.Pascal(entity) + "Before"
	case OpMoveAfter:
		return "move" + utils.Pascal(entity) + "After"
	case OpMoveToTop:
		return "move" + utils.Pascal(entity) + "ToTop"
	case OpMoveToBottom:
		return "move" + utils.Pascal(entity) + "ToBottom"
	default:
		return string(op) + utils.Pascal(entity)
	}
}

// rowTypeName is the row interface emitted for a table: tasks -> TaskRow.
func rowTypeName(table string) string {
	return utils.Pascal(utils.Singular(table)) + "Row"
}

// tableConstName is the schema const emitted for a table: job_targets ->
// jobTarget. Names colliding with reserved words get a Table suffix.
func tableConstName(table string) string {
	name := utils.Camel(utils.Singular(table))
	if reservedWords[name] {
		return name + "Table"
	}
	return name
}

var reservedWords = map[string]bool{
	"case": true, "class": true, "const": true, "debugger": true,
	"default": true, "delete": true, "do": true, "enum": true,
	"export": true, "function": true, "import": true, "in": true,
	"new": true, "package": true, "return": true, "switch": true,
	"this": true, "type": true, "var": true, "void": true, "while": true,
}
