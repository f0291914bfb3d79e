package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kinnrichard/zerogen/registry"
	"github.com/kinnrichard/zerogen/schema"
)

// DB is the query surface the introspector needs. *pgxpool.Pool satisfies
// it; the handle is passed in explicitly and only ever read from.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Introspector struct {
	db         DB
	reg        *registry.Registry
	schemaName string
}

type Option func(*Introspector)

// WithSchemaName overrides the Postgres schema to introspect (default public).
func WithSchemaName(name string) Option {
	return func(in *Introspector) { in.schemaName = name }
}

// New builds an introspector over an explicit database handle. The
// registry may be nil, which limits the snapshot to catalog data.
func New(db DB, reg *registry.Registry, opts ...Option) *Introspector {
	in := &Introspector{db: db, reg: reg, schemaName: "public"}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Extract reads the catalog and resolves the model registry against it.
// Tables come back in name order, so the same database always produces
// the same snapshot. Infrastructure tables are dropped before anything
// downstream can see them.
func (in *Introspector) Extract(ctx context.Context) (*schema.Snapshot, error) {
	enums, err := in.enumTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying enum types: %v", err)
	}

	tableNames, err := in.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	var tables []schema.Table
	for _, tableName := range tableNames {
		columns, err := in.getColumns(ctx, tableName, enums)
		if err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %v", tableName, err)
		}

		foreignKeys, err := in.getForeignKeys(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting foreign keys for table %s: %v", tableName, err)
		}

		indexes, err := in.getIndexes(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("getting indexes for table %s: %v", tableName, err)
		}

		tables = append(tables, schema.Table{
			Name:        tableName,
			Columns:     columns,
			ForeignKeys: foreignKeys,
			Indexes:     indexes,
		})
	}

	models, warnings := resolveModels(tables, in.reg)

	return &schema.Snapshot{
		Tables:   tables,
		Models:   models,
		Warnings: warnings,
	}, nil
}

// TableNames lists the base tables of the schema, infrastructure
// excluded, in name order.
func (in *Introspector) TableNames(ctx context.Context) ([]string, error) {
	tablesQuery := `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type='BASE TABLE'
	ORDER BY table_name;
	`

	rows, err := in.db.Query(ctx, tablesQuery, in.schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %v", err)
	}
	defer rows.Close()

	var tableNames []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("scanning table name: %v", err)
		}
		if IsInfrastructure(tableName) {
			continue
		}
		tableNames = append(tableNames, tableName)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating table rows: %v", rows.Err())
	}

	return tableNames, nil
}

// TableExists reports whether a base table exists in the schema.
func (in *Introspector) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`

	var exists bool
	if err := in.db.QueryRow(ctx, query, in.schemaName, tableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking table %s: %v", tableName, err)
	}
	return exists, nil
}

// columnsQuery lists a table's columns. The comment lookup resolves
// pg_attribute.attnum by column name: ordinal_position renumbers after
// a dropped column and would attribute comments to the wrong column.
const columnsQuery = `
	SELECT
		c.column_name,
		c.data_type,
		c.udt_name,
		(c.is_nullable = 'YES') as is_nullable,
		c.column_default,
		c.ordinal_position,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name
				AND kcu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		) as is_primary,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name
				AND kcu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'UNIQUE'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
		) as is_unique,
		col_description(
			format('%I.%I', c.table_schema, c.table_name)::regclass,
			(
				SELECT a.attnum
				FROM pg_attribute a
				WHERE a.attrelid = format('%I.%I', c.table_schema, c.table_name)::regclass
					AND a.attname = c.column_name
			)
		) as comment
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position;
	`

func (in *Introspector) getColumns(ctx context.Context, tableName string, enums map[string][]string) ([]schema.Column, error) {
	rows, err := in.db.Query(ctx, columnsQuery, in.schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %v", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.UDTName,
			&col.Nullable,
			&col.Default,
			&col.Ordinal,
			&col.IsPrimaryKey,
			&col.IsUnique,
			&col.Comment,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %v", err)
		}
		if values, ok := enums[col.UDTName]; ok {
			col.Enum = true
			col.EnumValues = values
		}
		columns = append(columns, col)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating column rows: %v", rows.Err())
	}

	return columns, nil
}

func (in *Introspector) getForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	foreignKeysQuery := `
	SELECT
		tc.constraint_name,
		kcu.column_name,
		ccu.table_name AS foreign_table_name,
		ccu.column_name AS foreign_column_name,
		rc.delete_rule,
		rc.update_rule
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
		AND ccu.table_schema = tc.table_schema
	LEFT JOIN information_schema.referential_constraints AS rc
		ON tc.constraint_name = rc.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2;
	`

	rows, err := in.db.Query(ctx, foreignKeysQuery, in.schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %v", err)
	}
	defer rows.Close()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		if err := rows.Scan(
			&fk.ConstraintName,
			&fk.Column,
			&fk.ReferencesTable,
			&fk.ReferencesColumn,
			&fk.OnDelete,
			&fk.OnUpdate,
		); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %v", err)
		}
		foreignKeys = append(foreignKeys, fk)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %v", rows.Err())
	}

	return foreignKeys, nil
}

func (in *Introspector) getIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	indexesQuery := `
	SELECT
		i.indexname,
		i.tablename,
		array_to_string(array_agg(a.attname), ',') as column_names,
		idx.indisunique,
		am.amname as index_type
	FROM pg_indexes i
	JOIN pg_class c ON c.relname = i.indexname
	JOIN pg_index idx ON idx.indexrelid = c.oid
	JOIN pg_attribute a ON a.attrelid = idx.indrelid AND a.attnum = ANY(idx.indkey)
	JOIN pg_am am ON am.oid = c.relam
	WHERE i.tablename = $1 AND i.schemaname = $2
	GROUP BY i.indexname, i.tablename, idx.indisunique, am.amname
	ORDER BY i.indexname;
	`

	rows, err := in.db.Query(ctx, indexesQuery, tableName, in.schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %v", err)
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var columnNames string
		if err := rows.Scan(
			&idx.Name,
			&idx.Table,
			&columnNames,
			&idx.Unique,
			&idx.Type,
		); err != nil {
			return nil, fmt.Errorf("scanning index: %v", err)
		}
		idx.Columns = splitIndexColumns(columnNames)
		indexes = append(indexes, idx)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating index rows: %v", rows.Err())
	}

	return indexes, nil
}

// enumTypes maps user-defined enum type names to their labels in
// declaration order.
func (in *Introspector) enumTypes(ctx context.Context) (map[string][]string, error) {
	enumQuery := `
	SELECT
		t.typname as enum_name,
		array_agg(e.enumlabel ORDER BY e.enumsortorder) as enum_values
	FROM pg_type t
	JOIN pg_enum e ON t.oid = e.enumtypid
	JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
	WHERE n.nspname = $1
	GROUP BY t.typname;
	`

	rows, err := in.db.Query(ctx, enumQuery, in.schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying enums: %v", err)
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var name string
		var values []string
		if err := rows.Scan(&name, &values); err != nil {
			return nil, fmt.Errorf("scanning enum: %v", err)
		}
		enums[name] = values
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating enum rows: %v", rows.Err())
	}

	return enums, nil
}

func splitIndexColumns(columnNames string) []string {
	columns := strings.Split(columnNames, ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}
